package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Completion is a single structured-output request.
type Completion struct {
	Operation string // used for breaker names and logs
	System    string
	Prompt    string
	// Schema is the JSON schema of the expected object. Backends that support
	// schema-constrained decoding pass it through; others embed it in the prompt.
	Schema any
}

// Completer returns one JSON object for a completion request.
type Completer interface {
	CompleteJSON(ctx context.Context, req Completion) (string, error)
}

// SchemaFor reflects the JSON schema of v with every object closed.
func SchemaFor(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// SchemaJSON renders a schema for inclusion in prompts.
func SchemaJSON(schema any) string {
	raw, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// ExtractJSONObject trims chatter and markdown fences around the outermost object.
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}
