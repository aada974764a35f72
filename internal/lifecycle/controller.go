// Package lifecycle drives one workload invocation through its load,
// warm-up, execute, and unload phases.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"modelplane/internal/config"
	"modelplane/internal/host"
	"modelplane/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Warm-up probe issued after load so first-call latency is not recorded as
// if it were representative throughput.
const (
	warmupPrompt = "ok"
	warmupTokens = 8
)

// How long the deferred unload may take. It runs on a fresh context so a
// run that hit its deadline can still release the host's allocation.
const unloadTimeout = time.Minute

// Result is the outcome of one invocation. The scheduler converts it into a
// run record.
type Result struct {
	Success           bool
	Reason            store.RunReason
	FinalState        State
	Output            string
	Tokens            int
	Duration          time.Duration // execution phase only
	Throughput        float64       // tokens per second
	MeasuredFootprint int64         // megabytes held on the host after load, 0 if unknown
	UnloadFailed      bool          // resource possibly still held; callers should bias admission
}

// Controller sequences a single workload at a time. It is not safe for
// concurrent use; the scheduler is strictly sequential.
type Controller struct {
	host    host.Host
	intents store.IntentStore
	logger  *slog.Logger
}

// New creates a lifecycle controller.
func New(h host.Host, intents store.IntentStore, logger *slog.Logger) *Controller {
	return &Controller{host: h, intents: intents, logger: logger}
}

// Execute runs one admitted workload to completion. Once the loading state
// is entered, exactly one unload attempt happens on every exit path; this is
// the invariant that keeps host capacity from leaking across cycles.
//
// carried is the context packet from the previously completed workload,
// empty when there is none.
func (c *Controller) Execute(ctx context.Context, w config.Workload, carried string) (res Result) {
	tracer := otel.Tracer("lifecycle-controller")
	ctx, span := tracer.Start(ctx, "workload_run",
		trace.WithAttributes(
			attribute.String("workload.name", w.Name),
			attribute.Int64("workload.footprint_mb", w.Footprint),
		),
	)
	defer span.End()
	defer func() {
		span.SetAttributes(
			attribute.String("run.reason", string(res.Reason)),
			attribute.Bool("run.success", res.Success),
		)
	}()

	inv := invocation{state: StateIdle, logger: c.logger}

	// Durable "load issued" marker. Written before the load goes out so a
	// crash inside the load/unload window leaves a replayable trace.
	var intentID int64
	if c.intents != nil {
		id, err := c.intents.OpenIntent(ctx, w.Name, time.Now().UTC())
		if err != nil {
			c.logger.Error("failed to record load intent", "workload", w.Name, "error", err)
		} else {
			intentID = id
		}
	}

	inv.to(StateLoading)
	defer c.release(&inv, &res, w.Name, intentID, span)

	if err := c.host.Load(ctx, w.Name); err != nil {
		c.logger.Error("load failed", "workload", w.Name, "error", err)
		span.RecordError(err)
		res.Reason = store.ReasonLoadFailed
		return res
	}

	// Best-effort: the host may not report footprints.
	if fp, err := c.host.LoadedFootprint(ctx); err == nil {
		res.MeasuredFootprint = fp
	}

	inv.to(StateWarming)
	warmCtx, warmCancel := context.WithTimeout(ctx, w.Timeout)
	warm := c.host.Generate(warmCtx, w.Name, warmupPrompt, warmupTokens)
	warmCancel()
	if warm.Outcome != host.OutcomeSuccess {
		c.logger.Error("warm-up failed", "workload", w.Name, "outcome", int(warm.Outcome), "error", warm.Err)
		if warm.Err != nil {
			span.RecordError(warm.Err)
		}
		res.Reason = store.ReasonLoadFailed
		return res
	}

	inv.to(StateExecuting)
	prompt := w.Prompt
	if carried != "" {
		prompt = carried + "\n\n" + w.Prompt
	}

	execCtx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	start := time.Now()
	gen := c.host.Generate(execCtx, w.Name, prompt, w.MaxTokens)
	res.Duration = time.Since(start)

	switch gen.Outcome {
	case host.OutcomeSuccess:
		res.Success = true
		res.Reason = store.ReasonOK
		res.Output = gen.Text
		res.Tokens = gen.Tokens
		if secs := res.Duration.Seconds(); secs > 0 && gen.Tokens > 0 {
			res.Throughput = float64(gen.Tokens) / secs
		}
	case host.OutcomeTimeout:
		c.logger.Warn("execution timed out", "workload", w.Name, "timeout", w.Timeout)
		res.Reason = store.ReasonTimeout
	case host.OutcomeError:
		c.logger.Error("execution failed", "workload", w.Name, "error", gen.Err)
		span.RecordError(gen.Err)
		res.Reason = store.ReasonExecFailed
	}

	return res
}

// release attempts the unload. It runs deferred on every path after loading
// was entered, on a fresh context so cancelled or expired runs still clean up.
func (c *Controller) release(inv *invocation, res *Result, workload string, intentID int64, span trace.Span) {
	inv.to(StateUnloading)

	ctx, cancel := context.WithTimeout(context.Background(), unloadTimeout)
	defer cancel()

	if err := c.host.Unload(ctx, workload); err != nil {
		// Best-effort: not fatal to the scheduler, but the capacity may still
		// be held, so the caller biases the next admission conservatively.
		c.logger.Error("unload failed", "workload", workload, "error", err)
		span.RecordError(err)
		res.UnloadFailed = true
		inv.to(StateFailed)
		res.FinalState = inv.state
		return
	}

	if intentID > 0 && c.intents != nil {
		if err := c.intents.MarkReleased(ctx, intentID, time.Now().UTC()); err != nil {
			c.logger.Error("failed to mark intent released", "workload", workload, "error", err)
		}
	}

	if res.Success {
		inv.to(StateDone)
	} else {
		inv.to(StateFailed)
	}
	res.FinalState = inv.state
}

// invocation tracks the state of one run and guards against illegal moves.
type invocation struct {
	state  State
	logger *slog.Logger
}

func (i *invocation) to(next State) {
	if !CanTransition(i.state, next) {
		// Indicates a bug in the controller sequencing, not a runtime condition.
		i.logger.Error("illegal state transition", "from", string(i.state), "to", string(next))
		return
	}
	i.state = next
}
