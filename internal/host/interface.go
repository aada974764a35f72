// Package host provides the client for the external execution host that
// loads, runs, and unloads model workloads.
package host

import "context"

// Host defines the three operations the executor consumes. The wire protocol
// behind them is the host's concern; callers only see acks and results.
type Host interface {
	// Load makes the model resident on the host.
	Load(ctx context.Context, model string) error

	// Generate runs one prompt against a loaded model. The outcome is a
	// tagged result, not an error: a deadline hit is a Timeout outcome, and
	// host-side failures are Error outcomes with the cause attached.
	Generate(ctx context.Context, model, prompt string, maxTokens int) GenerateResult

	// Unload releases the model's allocation on the host.
	Unload(ctx context.Context, model string) error

	// LoadedFootprint reports the megabytes currently held by resident models.
	LoadedFootprint(ctx context.Context) (int64, error)
}

// Outcome tags a generation result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeError
)

// GenerateResult carries the outcome of one generation call.
type GenerateResult struct {
	Outcome Outcome
	Text    string
	Tokens  int
	Err     error // set only for OutcomeError
}
