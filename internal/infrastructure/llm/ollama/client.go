package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/document-swarm/internal/infrastructure/llm"
	"github.com/kirillkom/document-swarm/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client for a local Ollama server. Per-attempt deadlines come
// from the executor; the http timeout is only a backstop.
func New(baseURL, model string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	// Format is "json" or a JSON schema for constrained decoding.
	Format any `json:"format"`
}

type generateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// CompleteJSON calls /api/generate with schema-constrained output.
func (c *Client) CompleteJSON(ctx context.Context, req llm.Completion) (string, error) {
	operation := "ollama_" + req.Operation
	body := generateRequest{
		Model:  c.model,
		System: req.System,
		Prompt: req.Prompt,
		Format: "json",
	}
	if req.Schema != nil {
		body.Format = req.Schema
	}

	var resp generateResponse
	err := c.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		start := time.Now()
		if err := c.generate(callCtx, body, &resp, req.Operation); err != nil {
			return err
		}
		slog.DebugContext(ctx, "llm_completion",
			"provider", llm.ProviderOllama,
			"operation", req.Operation,
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"prompt_tokens", resp.PromptEvalCount,
			"completion_tokens", resp.EvalCount,
		)
		return nil
	}, classifyOllamaError)
	if err != nil {
		return "", resilience.Temporary(operation, err, classifyOllamaError)
	}
	return llm.ExtractJSONObject(resp.Response), nil
}

func (c *Client) generate(ctx context.Context, payload generateRequest, out *generateResponse, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
