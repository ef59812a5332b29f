package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/infrastructure/llm"
	"github.com/kirillkom/document-swarm/internal/infrastructure/resilience"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "{\"overall_strategy\": \"hold\"}"}
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestCompleteJSONUsesJSONModeAndEmbedsSchema(t *testing.T) {
	var payload struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-test"}, fastExecutor())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := client.CompleteJSON(context.Background(), llm.Completion{
		Operation: "negotiation",
		System:    "You are a negotiator.",
		Prompt:    "contract",
		Schema:    map[string]any{"type": "object", "title": "NegotiationStrategy"},
	})
	if err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if out != `{"overall_strategy": "hold"}` {
		t.Fatalf("unexpected output %q", out)
	}
	if payload.Model != "gpt-test" || payload.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(payload.Messages) != 2 || !strings.Contains(payload.Messages[0].Content, "NegotiationStrategy") {
		t.Fatalf("expected schema in system message, got %+v", payload.Messages)
	}
}

func TestCompleteJSONRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "sk-test", BaseURL: server.URL}, fastExecutor())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.CompleteJSON(context.Background(), llm.Completion{Operation: "risk"}); err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestCompleteJSONMarksServerErrorsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream"}}`))
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "sk-test", BaseURL: server.URL}, fastExecutor())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = client.CompleteJSON(context.Background(), llm.Completion{Operation: "risk"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
