package analyzer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/infrastructure/llm"
)

type completerFake struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	requests  []llm.Completion
}

func (f *completerFake) CompleteJSON(_ context.Context, req llm.Completion) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.responses[req.Operation], nil
}

func request() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		DocumentID: "doc-1",
		Filename:   "nda.txt",
		Content:    "Mutual NDA between Acme and Globex.",
		Context:    domain.AnalysisContext{UserParty: "Acme", Jurisdictions: []string{"US", "EU"}},
	}
}

func TestExtractNormalizesModelOutput(t *testing.T) {
	fake := &completerFake{responses: map[string]string{
		"extract": `{
			"dates": [{"date": "2025-03-01", "description": "Filing", "importance": "critical"},
			          {"date": "2025-04-01", "description": "Review", "importance": "urgent"}],
			"obligations": [{"party": "Acme", "obligation": "Pay", "deadline": " ", "penalty": "late fee"}],
			"amounts": [{"value": 100, "currency": "USD", "description": "fee", "frequency": ""}],
			"parties": ["Acme", "Globex"]
		}`,
	}}

	out, err := New(fake, Options{}).Extract(context.Background(), request())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Terms == nil {
		t.Fatalf("expected empty terms slice, got nil")
	}
	if out.Dates[0].Importance != domain.ImportanceCritical || out.Dates[1].Importance != domain.ImportanceMedium {
		t.Fatalf("unexpected importance normalization: %+v", out.Dates)
	}
	if out.Obligations[0].Deadline != nil || out.Obligations[0].Penalty == nil {
		t.Fatalf("unexpected obligation normalization: %+v", out.Obligations[0])
	}
	if out.Amounts[0].Frequency != nil {
		t.Fatalf("expected blank frequency dropped")
	}
}

func TestAnalyzeRiskClampsScores(t *testing.T) {
	fake := &completerFake{responses: map[string]string{
		"risk": `{"risk_score": 140, "current_risks": [{"category":"liability","description":"uncapped","severity":"severe"}],
			"predicted_risks": [{"description":"dispute","probability":-5,"timeframe":"1y"}]}`,
	}}

	out, err := New(fake, Options{}).AnalyzeRisk(context.Background(), request())
	if err != nil {
		t.Fatalf("AnalyzeRisk() error = %v", err)
	}
	if out.RiskScore != 100 {
		t.Fatalf("expected clamped score 100, got %d", out.RiskScore)
	}
	if out.PredictedRisks[0].Probability != 0 {
		t.Fatalf("expected clamped probability 0, got %d", out.PredictedRisks[0].Probability)
	}
	if out.CurrentRisks[0].Severity != domain.PriorityLow {
		t.Fatalf("expected unknown severity to map to Low, got %s", out.CurrentRisks[0].Severity)
	}
	if out.Recommendations == nil {
		t.Fatalf("expected empty recommendations slice")
	}
}

func TestCheckComplianceAndAdvise(t *testing.T) {
	fake := &completerFake{responses: map[string]string{
		"compliance":  `{"overall_compliance_score": 55, "checks": [{"jurisdiction":"EU","score":40,"status":"partial"}], "critical_issues": ["No DPA"]}`,
		"negotiation": `{"overall_strategy":"push","counter_proposals":[{"section":"9","priority":"HIGH"}]}`,
	}}
	a := New(fake, Options{})

	compliance, err := a.CheckCompliance(context.Background(), request())
	if err != nil {
		t.Fatalf("CheckCompliance() error = %v", err)
	}
	if compliance.Checks[0].Issues == nil || compliance.CriticalIssues[0] != "No DPA" {
		t.Fatalf("unexpected compliance %+v", compliance)
	}

	strategy, err := a.Advise(context.Background(), request())
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if strategy.CounterProposals[0].Priority != domain.PriorityHigh || strategy.RedLines == nil {
		t.Fatalf("unexpected strategy %+v", strategy)
	}
}

func TestPromptCarriesContextAndSchema(t *testing.T) {
	fake := &completerFake{responses: map[string]string{"risk": `{"risk_score": 10}`}}

	if _, err := New(fake, Options{MaxContentChars: 10}).AnalyzeRisk(context.Background(), request()); err != nil {
		t.Fatalf("AnalyzeRisk() error = %v", err)
	}
	sent := fake.requests[0]
	if !strings.Contains(sent.Prompt, "User party: Acme") || !strings.Contains(sent.Prompt, "Jurisdictions: US, EU") {
		t.Fatalf("expected context in prompt, got %q", sent.Prompt)
	}
	if !strings.HasSuffix(sent.Prompt, "Mutual NDA") {
		t.Fatalf("expected clipped content, got %q", sent.Prompt)
	}
	if sent.Schema == nil || sent.System != riskSystemPrompt {
		t.Fatalf("expected schema and risk system prompt")
	}
}

func TestCompletionFailuresPropagate(t *testing.T) {
	a := New(&completerFake{err: errors.New("model down")}, Options{})
	if _, err := a.Extract(context.Background(), request()); err == nil || !strings.Contains(err.Error(), "model down") {
		t.Fatalf("expected completer error, got %v", err)
	}

	a = New(&completerFake{responses: map[string]string{"risk": "not json"}}, Options{})
	if _, err := a.AnalyzeRisk(context.Background(), request()); err == nil || !strings.Contains(err.Error(), "decode risk output") {
		t.Fatalf("expected decode error, got %v", err)
	}

	a = New(&completerFake{responses: map[string]string{}}, Options{})
	if _, err := a.Advise(context.Background(), request()); err == nil {
		t.Fatalf("expected error on empty response")
	}
}
