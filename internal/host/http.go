package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Keep-alive granted on load; renewed by the task generation itself.
const loadKeepAlive = "10m"

// HTTPHost talks to an Ollama-compatible model server.
//
// Load and Unload are both expressed through /api/generate with an empty
// prompt: a positive keep_alive makes the model resident, keep_alive 0
// releases it. LoadedFootprint reads /api/ps.
type HTTPHost struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *rate.Limiter
	controlTimeout time.Duration
}

// Options configures the HTTP host client.
type Options struct {
	// BaseURL of the model server, e.g. "http://localhost:11434"
	BaseURL string

	// RateLimit caps requests/second to the host; 0 means unlimited
	RateLimit float64

	// ControlTimeout bounds load/unload/ps calls (default: 2m, loads pull
	// weights into memory and can be slow)
	ControlTimeout time.Duration
}

// NewHTTPHost creates a client for the model server at opts.BaseURL.
func NewHTTPHost(opts Options) *HTTPHost {
	// Ensure no trailing slash
	if len(opts.BaseURL) > 0 && opts.BaseURL[len(opts.BaseURL)-1] == '/' {
		opts.BaseURL = opts.BaseURL[:len(opts.BaseURL)-1]
	}

	if opts.ControlTimeout <= 0 {
		opts.ControlTimeout = 2 * time.Minute
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &HTTPHost{
		baseURL: opts.BaseURL,
		// No client-level timeout: generation deadlines come from the
		// caller's context, control calls get their own deadline below.
		httpClient:     &http.Client{Timeout: 0},
		limiter:        rate.NewLimiter(limit, 1),
		controlTimeout: opts.ControlTimeout,
	}
}

type generateRequest struct {
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt,omitempty"`
	Stream    bool            `json:"stream"`
	KeepAlive json.RawMessage `json:"keep_alive,omitempty"`
	Options   map[string]any  `json:"options,omitempty"`
}

type generateResponse struct {
	Response  string `json:"response"`
	EvalCount int    `json:"eval_count"`
	Done      bool   `json:"done"`
}

type psResponse struct {
	Models []struct {
		Name     string `json:"name"`
		Size     int64  `json:"size"`
		SizeVRAM int64  `json:"size_vram"`
	} `json:"models"`
}

// Load makes the model resident by issuing an empty-prompt generate with a
// keep-alive window.
func (h *HTTPHost) Load(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, h.controlTimeout)
	defer cancel()

	req := generateRequest{
		Model:     model,
		Stream:    false,
		KeepAlive: json.RawMessage(fmt.Sprintf("%q", loadKeepAlive)),
	}

	if _, err := h.postGenerate(ctx, req); err != nil {
		return fmt.Errorf("load %s: %w", model, err)
	}

	return nil
}

// Generate runs the prompt against a loaded model, bounded by the context
// deadline and the token cap.
func (h *HTTPHost) Generate(ctx context.Context, model, prompt string, maxTokens int) GenerateResult {
	req := generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"num_predict": maxTokens,
		},
	}

	resp, err := h.postGenerate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return GenerateResult{Outcome: OutcomeTimeout}
		}
		return GenerateResult{Outcome: OutcomeError, Err: err}
	}

	return GenerateResult{
		Outcome: OutcomeSuccess,
		Text:    resp.Response,
		Tokens:  resp.EvalCount,
	}
}

// Unload releases the model by setting its keep-alive to zero.
func (h *HTTPHost) Unload(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req := generateRequest{
		Model:     model,
		Stream:    false,
		KeepAlive: json.RawMessage("0"),
	}

	if _, err := h.postGenerate(ctx, req); err != nil {
		return fmt.Errorf("unload %s: %w", model, err)
	}

	return nil
}

// LoadedFootprint sums the resident sizes reported by /api/ps, in megabytes.
func (h *HTTPHost) LoadedFootprint(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := h.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/ps", nil)
	if err != nil {
		return 0, err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("host returned status %d", resp.StatusCode)
	}

	var ps psResponse
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		return 0, err
	}

	const mb = 1024 * 1024
	var total int64
	for _, m := range ps.Models {
		size := m.SizeVRAM
		if size == 0 {
			size = m.Size
		}
		total += size / mb
	}

	return total, nil
}

func (h *HTTPHost) postGenerate(ctx context.Context, body generateRequest) (*generateResponse, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		// Unwrap url.Error so callers can match context.DeadlineExceeded.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("host returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}
