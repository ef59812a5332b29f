package analyzer

import (
	"strings"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

const extractorSystemPrompt = `You are a contract data extraction specialist.
Extract defined terms, key dates (ISO-8601 date, description, importance Low|Medium|High|Critical),
obligations (party, obligation, optional deadline and penalty), parties and monetary amounts
(value, ISO currency, description, frequency such as One-time or Monthly).
Only report facts stated in the document. Return a single JSON object, no markdown.`

const riskSystemPrompt = `You are a contract risk analyst.
Score the overall risk from 0 (none) to 100 (severe). List current risks with a category,
description and severity Critical|High|Medium|Low, predicted risks with a probability from 0 to 100
and a timeframe, and concrete recommendations. Return a single JSON object, no markdown.`

const complianceSystemPrompt = `You are a regulatory compliance reviewer.
For every jurisdiction in scope produce a check with a score from 0 to 100, a status
compliant|partial|non-compliant and the issues found. Give an overall compliance score and list
issues that block signing as critical_issues. Return a single JSON object, no markdown.`

const negotiationSystemPrompt = `You are a contract negotiation advisor acting for the user party.
Describe the overall strategy, propose counter-proposals (section, original text, proposed text,
reason, priority Critical|High|Medium|Low) and list red lines the user party must not concede.
Return a single JSON object, no markdown.`

func buildUserPrompt(req domain.AnalysisRequest, maxChars int) string {
	var b strings.Builder
	b.WriteString("Document: ")
	b.WriteString(req.Filename)
	b.WriteString("\n")
	if party := strings.TrimSpace(req.Context.UserParty); party != "" {
		b.WriteString("User party: ")
		b.WriteString(party)
		b.WriteString("\n")
	}
	if len(req.Context.Jurisdictions) > 0 {
		b.WriteString("Jurisdictions: ")
		b.WriteString(strings.Join(req.Context.Jurisdictions, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nContent:\n")
	b.WriteString(clip(req.Content, maxChars))
	return b.String()
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
