package bootstrap

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/document-swarm/internal/config"
	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/usecase"
	"github.com/kirillkom/document-swarm/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-swarm/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/document-swarm/internal/observability/metrics"
)

func TestNewCompleterSelectsProvider(t *testing.T) {
	c, err := newCompleter(config.Config{LLMProvider: "ollama", OllamaURL: "http://localhost:11434", OllamaModel: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("newCompleter(ollama) error = %v", err)
	}
	if _, ok := c.(*ollama.Client); !ok {
		t.Fatalf("expected ollama client, got %T", c)
	}

	c, err = newCompleter(config.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test"})
	if err != nil {
		t.Fatalf("newCompleter(openai) error = %v", err)
	}
	if _, ok := c.(*openaicompat.Client); !ok {
		t.Fatalf("expected openai client, got %T", c)
	}

	if _, err := newCompleter(config.Config{LLMProvider: "openai"}); err == nil {
		t.Fatalf("expected error without openai key")
	}
	if _, err := newCompleter(config.Config{LLMProvider: "bard"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestObservedPlannerCountsItems(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewSwarmMetrics("test", reg)
	planner := observedPlanner{next: usecase.NewActionPlanSynthesizer(), metrics: m}

	plan, err := planner.Synthesize(domain.SynthesisInput{
		DocumentID: "doc-1",
		Risk:       &domain.RiskAnalysis{RiskScore: 90},
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(plan.Actions) != 1 {
		t.Fatalf("expected a single routing action, got %d", len(plan.Actions))
	}

	if _, err := planner.Synthesize(domain.SynthesisInput{}); err == nil {
		t.Fatalf("expected error without document id")
	}
	n, err := testutil.GatherAndCount(reg, "swarm_action_plan_items_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one action item series, got %d", n)
	}
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	var order []int
	app := &App{}
	app.onClose(func() { order = append(order, 1) })
	app.onClose(func() { order = append(order, 2) })

	app.Close()
	app.Close()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("unexpected close order %v", order)
	}
}
