// Package scheduler runs the time-boxed cycle loop over the workload roster.
package scheduler

import (
	"context"
	"log"
	"log/slog"
	"time"

	"modelplane/internal/admission"
	"modelplane/internal/carrier"
	"modelplane/internal/config"
	"modelplane/internal/lifecycle"
	"modelplane/internal/observability"
	"modelplane/internal/resource"
	"modelplane/internal/selector"
	"modelplane/internal/store"
)

// SnapshotReader takes a fresh capacity reading.
type SnapshotReader interface {
	Read(ctx context.Context) resource.Snapshot
}

// Runner executes one admitted workload to completion.
type Runner interface {
	Execute(ctx context.Context, w config.Workload, carried string) lifecycle.Result
}

// Config holds the scheduler's tuning values.
type Config struct {
	// SafetyThreshold for admission, inclusive at the boundary
	SafetyThreshold float64

	// Backoff after a cycle that admitted nothing (doubles up to MaxBackoff)
	Backoff    time.Duration
	MaxBackoff time.Duration

	// Adaptive reorders the roster each cycle from persisted success stats
	Adaptive bool
}

// Deps are the scheduler's collaborators. Snapshots and Metrics are optional.
type Deps struct {
	Reader    SnapshotReader
	Runner    Runner
	Runs      store.RunStore
	Snapshots store.SnapshotStore
	Carrier   *carrier.Carrier
	Metrics   *observability.ExecutorMetrics
	Logger    *slog.Logger
}

// Scheduler iterates the roster until its wall-clock budget expires. It is
// time-boxed, never count-boxed: a run guarantees a duration, not a number
// of cycles.
type Scheduler struct {
	roster    []config.Workload
	predictor admission.Predictor
	deps      Deps
	cfg       Config

	// suspectedHeld biases admission after a failed unload: the workload's
	// footprint counts as used until a later unload of it succeeds.
	suspectedHeld map[string]int64

	// lastCompleted names the workload whose context packet feeds the next
	// admitted run.
	lastCompleted string

	done chan struct{}
}

// New creates a scheduler over the given roster.
func New(roster []config.Workload, deps Deps, cfg Config) *Scheduler {
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = cfg.Backoff
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Scheduler{
		roster:        roster,
		predictor:     admission.Predictor{Threshold: cfg.SafetyThreshold},
		deps:          deps,
		cfg:           cfg,
		suspectedHeld: make(map[string]int64),
		done:          make(chan struct{}),
	}
}

// Run blocks until the duration budget elapses or the context is cancelled.
// A zero budget performs zero cycles. Per-workload failures never propagate;
// every attempt, including rejections, leaves a run record behind before the
// loop moves on.
func (s *Scheduler) Run(ctx context.Context, budget time.Duration) error {
	defer close(s.done)

	log.Printf("Scheduler starting: %d workloads, budget %v, threshold %.2f",
		len(s.roster), budget, s.cfg.SafetyThreshold)

	start := time.Now()
	backoff := s.cfg.Backoff
	cycle := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Since(start) >= budget {
			log.Printf("Duration budget elapsed after %d cycles", cycle)
			return nil
		}

		cycle++
		admitted := 0

		for _, w := range s.rosterOrder(ctx) {
			if err := ctx.Err(); err != nil {
				return err
			}

			snap := s.biased(s.deps.Reader.Read(ctx))
			s.auditSnapshot(ctx, snap)

			dec := s.predictor.Predict(w, snap)
			s.deps.Metrics.RecordAdmission(ctx, dec.Admit, string(dec.Reason))

			if !dec.Admit {
				log.Printf("Cycle %d: %s rejected (%s)", cycle, w.Name, dec.Reason)
				s.record(ctx, store.RunRecord{
					Cycle:             cycle,
					Workload:          w.Name,
					DeclaredFootprint: w.Footprint,
					Success:           false,
					Reason:            rejectionReason(dec.Reason),
				})
				continue
			}

			admitted++
			log.Printf("Cycle %d: %s admitted (projected %.1f%%)", cycle, w.Name, dec.Projected*100)

			res := s.deps.Runner.Execute(ctx, w, s.carriedContext())

			s.record(ctx, store.RunRecord{
				Cycle:             cycle,
				Workload:          w.Name,
				DeclaredFootprint: w.Footprint,
				MeasuredFootprint: res.MeasuredFootprint,
				Duration:          res.Duration,
				Tokens:            res.Tokens,
				Throughput:        res.Throughput,
				Success:           res.Success,
				Reason:            res.Reason,
			})
			s.deps.Metrics.RecordRun(ctx, w.Name, string(res.Reason), res.Duration)

			if res.UnloadFailed {
				s.suspectedHeld[w.Name] = w.Footprint
			} else {
				delete(s.suspectedHeld, w.Name)
			}

			if res.Success {
				if s.deps.Carrier != nil {
					s.deps.Carrier.Extract(w.Name, cycle, res.Output)
				}
				s.lastCompleted = w.Name
			}
		}

		s.deps.Metrics.RecordCycle(ctx)

		if admitted == 0 {
			log.Printf("Cycle %d admitted nothing, backing off %v", cycle, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > s.cfg.MaxBackoff {
				backoff = s.cfg.MaxBackoff
			}
		} else {
			backoff = s.cfg.Backoff
		}
	}
}

// Done returns a channel that is closed when the scheduler has fully stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// rosterOrder returns this cycle's attempt order. Adaptive mode reorders
// from persisted stats; any stats failure falls back to declaration order.
func (s *Scheduler) rosterOrder(ctx context.Context) []config.Workload {
	if !s.cfg.Adaptive {
		return s.roster
	}

	stats, err := s.deps.Runs.WorkloadStats(ctx)
	if err != nil {
		s.deps.Logger.Warn("failed to read workload stats, using roster order", "error", err)
		return s.roster
	}

	observed := make(map[string]selector.Stat, len(stats))
	for _, st := range stats {
		observed[st.Workload] = selector.Stat{Workload: st.Workload, Runs: st.Runs, Successes: st.Successes}
	}

	all := make([]selector.Stat, 0, len(s.roster))
	byName := make(map[string]config.Workload, len(s.roster))
	for _, w := range s.roster {
		byName[w.Name] = w
		if st, ok := observed[w.Name]; ok {
			all = append(all, st)
		} else {
			all = append(all, selector.Stat{Workload: w.Name})
		}
	}

	ordered := make([]config.Workload, 0, len(s.roster))
	for _, name := range selector.Choose(all, selector.DefaultExploitThreshold) {
		ordered = append(ordered, byName[name])
	}
	return ordered
}

// biased folds suspected-held footprints into the reading so admission stays
// conservative after a failed unload.
func (s *Scheduler) biased(snap resource.Snapshot) resource.Snapshot {
	if snap.Unknown || len(s.suspectedHeld) == 0 {
		return snap
	}

	for _, footprint := range s.suspectedHeld {
		snap.Used += footprint
	}
	if snap.Used > snap.Total {
		snap.Used = snap.Total
	}
	snap.Free = snap.Total - snap.Used
	snap.Percent = float64(snap.Used) / float64(snap.Total)

	return snap
}

// carriedContext returns the packet from the previously completed workload.
func (s *Scheduler) carriedContext() string {
	if s.deps.Carrier == nil || s.lastCompleted == "" {
		return ""
	}
	if p, ok := s.deps.Carrier.Get(s.lastCompleted); ok {
		return p.Text
	}
	return ""
}

// record appends one run record synchronously. A store failure is logged and
// the loop continues; history completeness is best-effort under storage
// faults, but a healthy store always sees a complete prefix.
func (s *Scheduler) record(ctx context.Context, rec store.RunRecord) {
	rec.CreatedAt = time.Now().UTC()
	if err := s.deps.Runs.RecordRun(ctx, nil, &rec); err != nil {
		s.deps.Logger.Error("failed to record run", "workload", rec.Workload, "cycle", rec.Cycle, "error", err)
	}
}

func (s *Scheduler) auditSnapshot(ctx context.Context, snap resource.Snapshot) {
	if s.deps.Snapshots == nil || snap.Unknown {
		return
	}

	row := store.SnapshotRow{
		Total:     snap.Total,
		Used:      snap.Used,
		Percent:   snap.Percent,
		CreatedAt: snap.Timestamp,
	}
	if err := s.deps.Snapshots.RecordSnapshot(ctx, &row); err != nil {
		s.deps.Logger.Warn("failed to record snapshot", "error", err)
	}
}

func rejectionReason(r admission.Reason) store.RunReason {
	if r == admission.ReasonSnapshotUnknown {
		return store.ReasonSnapshotUnavailable
	}
	return store.ReasonRejected
}
