package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/infrastructure/llm"
)

const defaultMaxContentChars = 60_000

type Options struct {
	// MaxContentChars caps the document text sent to the model.
	MaxContentChars int
}

// Analyzers implements the four analyzer units over a single completer.
// Each call is independent; the struct is safe for concurrent use.
type Analyzers struct {
	completer llm.Completer
	maxChars  int

	extractSchema     *jsonschema.Schema
	riskSchema        *jsonschema.Schema
	complianceSchema  *jsonschema.Schema
	negotiationSchema *jsonschema.Schema
}

func New(completer llm.Completer, opts Options) *Analyzers {
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = defaultMaxContentChars
	}
	return &Analyzers{
		completer:         completer,
		maxChars:          opts.MaxContentChars,
		extractSchema:     llm.SchemaFor(&domain.ExtractedData{}),
		riskSchema:        llm.SchemaFor(&domain.RiskAnalysis{}),
		complianceSchema:  llm.SchemaFor(&domain.ComplianceAnalysis{}),
		negotiationSchema: llm.SchemaFor(&domain.NegotiationStrategy{}),
	}
}

func (a *Analyzers) Extract(ctx context.Context, req domain.AnalysisRequest) (domain.ExtractedData, error) {
	out, err := complete[domain.ExtractedData](ctx, a, "extract", extractorSystemPrompt, a.extractSchema, req)
	if err != nil {
		return domain.ExtractedData{}, err
	}
	return normalizeExtracted(out), nil
}

func (a *Analyzers) AnalyzeRisk(ctx context.Context, req domain.AnalysisRequest) (domain.RiskAnalysis, error) {
	out, err := complete[domain.RiskAnalysis](ctx, a, "risk", riskSystemPrompt, a.riskSchema, req)
	if err != nil {
		return domain.RiskAnalysis{}, err
	}
	return normalizeRisk(out), nil
}

func (a *Analyzers) CheckCompliance(ctx context.Context, req domain.AnalysisRequest) (domain.ComplianceAnalysis, error) {
	out, err := complete[domain.ComplianceAnalysis](ctx, a, "compliance", complianceSystemPrompt, a.complianceSchema, req)
	if err != nil {
		return domain.ComplianceAnalysis{}, err
	}
	return normalizeCompliance(out), nil
}

func (a *Analyzers) Advise(ctx context.Context, req domain.AnalysisRequest) (domain.NegotiationStrategy, error) {
	out, err := complete[domain.NegotiationStrategy](ctx, a, "negotiation", negotiationSystemPrompt, a.negotiationSchema, req)
	if err != nil {
		return domain.NegotiationStrategy{}, err
	}
	return normalizeNegotiation(out), nil
}

func complete[T any](
	ctx context.Context,
	a *Analyzers,
	operation string,
	system string,
	schema *jsonschema.Schema,
	req domain.AnalysisRequest,
) (T, error) {
	var out T
	raw, err := a.completer.CompleteJSON(ctx, llm.Completion{
		Operation: operation,
		System:    system,
		Prompt:    buildUserPrompt(req, a.maxChars),
		Schema:    schema,
	})
	if err != nil {
		return out, fmt.Errorf("%s completion: %w", operation, err)
	}
	if strings.TrimSpace(raw) == "" {
		return out, fmt.Errorf("%s completion: empty response", operation)
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("decode %s output: %w", operation, err)
	}
	return out, nil
}
