package domain

import (
	"encoding/json"
	"strings"
)

type Importance string

const (
	ImportanceLow      Importance = "Low"
	ImportanceMedium   Importance = "Medium"
	ImportanceHigh     Importance = "High"
	ImportanceCritical Importance = "Critical"
)

type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// ParseImportance matches v against the known levels ignoring case and
// surrounding space.
func ParseImportance(v string) (Importance, bool) {
	for _, known := range []Importance{ImportanceLow, ImportanceMedium, ImportanceHigh, ImportanceCritical} {
		if strings.EqualFold(strings.TrimSpace(v), string(known)) {
			return known, true
		}
	}
	return Importance(v), false
}

// UnmarshalJSON canonicalizes known levels; unknown values are kept verbatim
// for the caller to reject or normalize.
func (i *Importance) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i, _ = ParseImportance(raw)
	return nil
}

func ParsePriority(v string) (Priority, bool) {
	for _, known := range []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow} {
		if strings.EqualFold(strings.TrimSpace(v), string(known)) {
			return known, true
		}
	}
	return Priority(v), false
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p, _ = ParsePriority(raw)
	return nil
}

// AnalysisContext is optional caller-supplied context shared by all analyzer units.
type AnalysisContext struct {
	UserParty     string   `json:"user_party,omitempty"`
	Jurisdictions []string `json:"jurisdictions,omitempty"`
}

// AnalysisRequest is the immutable input handed to each analyzer unit.
type AnalysisRequest struct {
	DocumentID string          `json:"document_id"`
	Filename   string          `json:"filename"`
	Content    string          `json:"content"`
	Context    AnalysisContext `json:"context"`
}

// Clone returns a copy that shares no mutable state with the receiver.
func (r AnalysisRequest) Clone() AnalysisRequest {
	out := r
	if r.Context.Jurisdictions != nil {
		out.Context.Jurisdictions = append([]string(nil), r.Context.Jurisdictions...)
	}
	return out
}

type Term struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

type KeyDate struct {
	Date        string     `json:"date" jsonschema:"description=ISO-8601 date"`
	Description string     `json:"description"`
	Importance  Importance `json:"importance" jsonschema:"enum=Low,enum=Medium,enum=High,enum=Critical"`
}

type Obligation struct {
	Party      string  `json:"party"`
	Obligation string  `json:"obligation"`
	Deadline   *string `json:"deadline,omitempty"`
	Penalty    *string `json:"penalty,omitempty"`
}

type Amount struct {
	Value       float64 `json:"value"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Frequency   *string `json:"frequency,omitempty" jsonschema:"description=One-time or a recurrence label such as Monthly"`
}

// IsRecurring reports whether the amount denotes a repeating payment.
func (a Amount) IsRecurring() bool {
	if a.Frequency == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(*a.Frequency)) {
	case "", "one-time", "one time", "onetime", "once":
		return false
	default:
		return true
	}
}

type ExtractedData struct {
	Terms       []Term       `json:"terms"`
	Dates       []KeyDate    `json:"dates"`
	Obligations []Obligation `json:"obligations"`
	Parties     []string     `json:"parties"`
	Amounts     []Amount     `json:"amounts"`
}

type RiskFinding struct {
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Severity    Priority `json:"severity" jsonschema:"enum=Critical,enum=High,enum=Medium,enum=Low"`
}

type PredictedRisk struct {
	Description string `json:"description"`
	Probability int    `json:"probability" jsonschema:"minimum=0,maximum=100"`
	Timeframe   string `json:"timeframe"`
}

type RiskAnalysis struct {
	RiskScore       int             `json:"risk_score" jsonschema:"minimum=0,maximum=100"`
	CurrentRisks    []RiskFinding   `json:"current_risks"`
	PredictedRisks  []PredictedRisk `json:"predicted_risks"`
	Recommendations []string        `json:"recommendations"`
}

type ComplianceCheck struct {
	Jurisdiction string   `json:"jurisdiction"`
	Score        int      `json:"score" jsonschema:"minimum=0,maximum=100"`
	Status       string   `json:"status" jsonschema:"enum=compliant,enum=partial,enum=non-compliant"`
	Issues       []string `json:"issues"`
}

type ComplianceAnalysis struct {
	OverallComplianceScore int               `json:"overall_compliance_score" jsonschema:"minimum=0,maximum=100"`
	Checks                 []ComplianceCheck `json:"checks"`
	CriticalIssues         []string          `json:"critical_issues"`
}

type CounterProposal struct {
	Section      string   `json:"section"`
	OriginalText string   `json:"original_text"`
	ProposedText string   `json:"proposed_text"`
	Reason       string   `json:"reason"`
	Priority     Priority `json:"priority" jsonschema:"enum=Critical,enum=High,enum=Medium,enum=Low"`
}

type NegotiationStrategy struct {
	OverallStrategy  string            `json:"overall_strategy"`
	CounterProposals []CounterProposal `json:"counter_proposals"`
	RedLines         []string          `json:"red_lines"`
}
