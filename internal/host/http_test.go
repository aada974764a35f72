package host

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerate_Success(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{
			Response:  "the answer",
			EvalCount: 42,
			Done:      true,
		})
	}))
	defer server.Close()

	h := NewHTTPHost(Options{BaseURL: server.URL})

	result := h.Generate(context.Background(), "alpha", "what is the answer?", 128)

	if result.Outcome != OutcomeSuccess {
		t.Fatalf("got outcome %v, want success (err: %v)", result.Outcome, result.Err)
	}
	if result.Text != "the answer" {
		t.Errorf("got text %q, want %q", result.Text, "the answer")
	}
	if result.Tokens != 42 {
		t.Errorf("got tokens %d, want 42", result.Tokens)
	}

	if gotReq.Model != "alpha" {
		t.Errorf("got model %q, want alpha", gotReq.Model)
	}
	if gotReq.Options["num_predict"] != float64(128) {
		t.Errorf("got num_predict %v, want 128", gotReq.Options["num_predict"])
	}
}

func TestGenerate_DeadlineYieldsTimeoutOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(generateResponse{Done: true})
	}))
	defer server.Close()

	h := NewHTTPHost(Options{BaseURL: server.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := h.Generate(ctx, "alpha", "slow question", 16)

	if result.Outcome != OutcomeTimeout {
		t.Errorf("got outcome %v, want timeout", result.Outcome)
	}
	if result.Err != nil {
		t.Errorf("timeout outcome must not carry an error, got %v", result.Err)
	}
}

func TestGenerate_HostErrorYieldsErrorOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	h := NewHTTPHost(Options{BaseURL: server.URL})

	result := h.Generate(context.Background(), "missing", "hello", 16)

	if result.Outcome != OutcomeError {
		t.Fatalf("got outcome %v, want error", result.Outcome)
	}
	if result.Err == nil {
		t.Error("error outcome must carry the cause")
	}
}

func TestLoad_SendsKeepAlive(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(generateResponse{Done: true})
	}))
	defer server.Close()

	h := NewHTTPHost(Options{BaseURL: server.URL})

	if err := h.Load(context.Background(), "alpha"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if gotReq.Prompt != "" {
		t.Errorf("load must use an empty prompt, got %q", gotReq.Prompt)
	}
	if string(gotReq.KeepAlive) != `"10m"` {
		t.Errorf("got keep_alive %s, want \"10m\"", string(gotReq.KeepAlive))
	}
}

func TestUnload_SendsZeroKeepAlive(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(generateResponse{Done: true})
	}))
	defer server.Close()

	h := NewHTTPHost(Options{BaseURL: server.URL})

	if err := h.Unload(context.Background(), "alpha"); err != nil {
		t.Fatalf("Unload failed: %v", err)
	}

	if string(gotReq.KeepAlive) != "0" {
		t.Errorf("got keep_alive %s, want 0", string(gotReq.KeepAlive))
	}
}

func TestUnload_HostErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	h := NewHTTPHost(Options{BaseURL: server.URL})

	if err := h.Unload(context.Background(), "alpha"); err == nil {
		t.Error("expected error from failed unload")
	}
}

func TestLoadedFootprint_SumsResidentModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ps" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[
			{"name":"alpha","size":5242880000,"size_vram":4194304000},
			{"name":"beta","size":2097152000,"size_vram":0}
		]}`))
	}))
	defer server.Close()

	h := NewHTTPHost(Options{BaseURL: server.URL})

	got, err := h.LoadedFootprint(context.Background())
	if err != nil {
		t.Fatalf("LoadedFootprint failed: %v", err)
	}

	// alpha reports vram (4000 MB), beta falls back to size (2000 MB).
	if got != 6000 {
		t.Errorf("got %d MB, want 6000", got)
	}
}

func TestNewHTTPHost_TrimsTrailingSlash(t *testing.T) {
	h := NewHTTPHost(Options{BaseURL: "http://localhost:11434/"})

	if h.baseURL != "http://localhost:11434" {
		t.Errorf("got baseURL %q, want without trailing slash", h.baseURL)
	}
}
