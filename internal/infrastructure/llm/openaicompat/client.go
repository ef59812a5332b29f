package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kirillkom/document-swarm/internal/infrastructure/llm"
	"github.com/kirillkom/document-swarm/internal/infrastructure/resilience"
)

const defaultModel = "gpt-4o-mini"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	client   openai.Client
	model    string
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}

	// Retries are owned by the executor.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:   openai.NewClient(opts...),
		model:    model,
		executor: executor,
	}, nil
}

func (c *Client) CompleteJSON(ctx context.Context, req llm.Completion) (string, error) {
	operation := "openai_" + req.Operation
	system := req.System
	if req.Schema != nil {
		system += "\n\nRespond with a single JSON object matching this schema:\n" + llm.SchemaJSON(req.Schema)
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	var content string
	err := c.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		start := time.Now()
		resp, err := c.client.Chat.Completions.New(callCtx, params)
		if err != nil {
			return fmt.Errorf("openai chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		slog.DebugContext(callCtx, "llm_completion",
			"operation", req.Operation,
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
		)
		content = resp.Choices[0].Message.Content
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return "", resilience.Temporary(operation, err, classifyOpenAIError)
	}
	return llm.ExtractJSONObject(content), nil
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (resilience.ErrorClassification, bool) {
		var apiErr *openai.Error
		if !errors.As(err, &apiErr) {
			return resilience.ErrorClassification{}, false
		}
		// A conflicting concurrent request is worth one more try.
		if apiErr.StatusCode == http.StatusConflict {
			return resilience.Transient, true
		}
		return resilience.StatusClass(apiErr.StatusCode), true
	})
}
