package analyzer

import (
	"strings"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

func normalizeExtracted(in domain.ExtractedData) domain.ExtractedData {
	out := domain.ExtractedData{
		Terms:       nonNil(in.Terms),
		Dates:       make([]domain.KeyDate, 0, len(in.Dates)),
		Obligations: make([]domain.Obligation, 0, len(in.Obligations)),
		Parties:     nonNil(in.Parties),
		Amounts:     make([]domain.Amount, 0, len(in.Amounts)),
	}
	for _, d := range in.Dates {
		d.Importance = normalizeImportance(d.Importance)
		out.Dates = append(out.Dates, d)
	}
	for _, ob := range in.Obligations {
		ob.Deadline = blankToNil(ob.Deadline)
		ob.Penalty = blankToNil(ob.Penalty)
		out.Obligations = append(out.Obligations, ob)
	}
	for _, am := range in.Amounts {
		am.Frequency = blankToNil(am.Frequency)
		out.Amounts = append(out.Amounts, am)
	}
	return out
}

func normalizeRisk(in domain.RiskAnalysis) domain.RiskAnalysis {
	out := domain.RiskAnalysis{
		RiskScore:       clampScore(in.RiskScore),
		CurrentRisks:    make([]domain.RiskFinding, 0, len(in.CurrentRisks)),
		PredictedRisks:  make([]domain.PredictedRisk, 0, len(in.PredictedRisks)),
		Recommendations: nonNil(in.Recommendations),
	}
	for _, r := range in.CurrentRisks {
		r.Severity = normalizePriority(r.Severity)
		out.CurrentRisks = append(out.CurrentRisks, r)
	}
	for _, p := range in.PredictedRisks {
		p.Probability = clampScore(p.Probability)
		out.PredictedRisks = append(out.PredictedRisks, p)
	}
	return out
}

func normalizeCompliance(in domain.ComplianceAnalysis) domain.ComplianceAnalysis {
	out := domain.ComplianceAnalysis{
		OverallComplianceScore: clampScore(in.OverallComplianceScore),
		Checks:                 make([]domain.ComplianceCheck, 0, len(in.Checks)),
		CriticalIssues:         nonNil(in.CriticalIssues),
	}
	for _, c := range in.Checks {
		c.Score = clampScore(c.Score)
		c.Issues = nonNil(c.Issues)
		out.Checks = append(out.Checks, c)
	}
	return out
}

func normalizeNegotiation(in domain.NegotiationStrategy) domain.NegotiationStrategy {
	out := domain.NegotiationStrategy{
		OverallStrategy:  in.OverallStrategy,
		CounterProposals: make([]domain.CounterProposal, 0, len(in.CounterProposals)),
		RedLines:         nonNil(in.RedLines),
	}
	for _, p := range in.CounterProposals {
		p.Priority = normalizePriority(p.Priority)
		out.CounterProposals = append(out.CounterProposals, p)
	}
	return out
}

func normalizeImportance(v domain.Importance) domain.Importance {
	if known, ok := domain.ParseImportance(string(v)); ok {
		return known
	}
	return domain.ImportanceMedium
}

func normalizePriority(v domain.Priority) domain.Priority {
	if known, ok := domain.ParsePriority(string(v)); ok {
		return known
	}
	return domain.PriorityLow
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
