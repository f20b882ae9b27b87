package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"TodoScanner/internal/config"
)

func TestCompleteRoundTrip(t *testing.T) {
	t.Parallel()

	var gotHeaders http.Header
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content": [{"type": "text", "text": "NO_TODOS"}, {"type": "text", "text": "\n"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(config.ModelConfig{
		Endpoint:  srv.URL,
		Model:     "claude-sonnet-4-20250514",
		APIKey:    "sk-test",
		MaxTokens: 1000,
	})

	reply, err := c.Complete(context.Background(), "Extract action items.")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "NO_TODOS" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if gotHeaders.Get("x-api-key") != "sk-test" {
		t.Fatal("api key header missing")
	}
	if gotHeaders.Get("anthropic-version") != apiVersion {
		t.Fatalf("unexpected version header: %q", gotHeaders.Get("anthropic-version"))
	}
	if gotBody["model"] != "claude-sonnet-4-20250514" || gotBody["max_tokens"] != float64(1000) {
		t.Fatalf("unexpected request body: %v", gotBody)
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 1 || msgs[0].(map[string]any)["content"] != "Extract action items." {
		t.Fatalf("unexpected messages: %v", msgs)
	}
}

func TestCompleteAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"type": "overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewAnthropicClient(config.ModelConfig{Endpoint: srv.URL, Model: "m", APIKey: "k"})
	if _, err := c.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected an error on 5xx response")
	}
}

func TestCompleteMisconfigured(t *testing.T) {
	t.Parallel()

	c := NewAnthropicClient(config.ModelConfig{})
	if _, err := c.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected a misconfiguration error")
	}
}
