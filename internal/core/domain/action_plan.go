package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type ActionType string

const (
	ActionCalendar     ActionType = "calendar"
	ActionPayment      ActionType = "payment"
	ActionNotification ActionType = "notification"
	ActionRouting      ActionType = "routing"
	ActionReminder     ActionType = "reminder"
	ActionApproval     ActionType = "approval"
)

// ActionTypeOrder is the generation order of action types within a plan.
var ActionTypeOrder = []ActionType{
	ActionCalendar,
	ActionReminder,
	ActionPayment,
	ActionRouting,
	ActionNotification,
	ActionApproval,
}

type ExecutionClass string

const (
	ExecutionAuto     ExecutionClass = "auto"
	ExecutionApproval ExecutionClass = "approval"
)

// Metadata provenance tags.
const (
	SourceExtractionDates       = "extraction.dates"
	SourceExtractionObligations = "extraction.obligations"
	SourceExtractionAmounts     = "extraction.amounts"
	SourceRiskAnalysis          = "risk_analysis"
	SourceCompliance            = "compliance"
	SourceNegotiation           = "negotiation"
)

type CalendarMetadata struct {
	Importance Importance `json:"importance"`
}

type ReminderMetadata struct {
	Party   string `json:"party"`
	Penalty string `json:"penalty,omitempty"`
}

type PaymentMetadata struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Frequency string  `json:"frequency"`
}

type RoutingMetadata struct {
	RiskScore       int      `json:"risk_score"`
	Recommendations []string `json:"recommendations,omitempty"`
}

type NotificationMetadata struct {
	Issue string `json:"issue"`
}

type ApprovalMetadata struct {
	Section      string `json:"section"`
	OriginalText string `json:"original_text"`
	ProposedText string `json:"proposed_text"`
	Reason       string `json:"reason,omitempty"`
}

// ActionMetadata carries the provenance of an action and exactly one typed
// payload matching the action type.
type ActionMetadata struct {
	Source       string                `json:"source"`
	Calendar     *CalendarMetadata     `json:"calendar,omitempty"`
	Reminder     *ReminderMetadata     `json:"reminder,omitempty"`
	Payment      *PaymentMetadata      `json:"payment,omitempty"`
	Routing      *RoutingMetadata      `json:"routing,omitempty"`
	Notification *NotificationMetadata `json:"notification,omitempty"`
	Approval     *ApprovalMetadata     `json:"approval,omitempty"`
}

type ActionItem struct {
	ID          string          `json:"id"`
	Type        ActionType      `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    Priority        `json:"priority"`
	Execution   ExecutionClass  `json:"execution"`
	DueDate     *string         `json:"due_date,omitempty"`
	Assignee    string          `json:"assignee,omitempty"`
	Metadata    *ActionMetadata `json:"metadata,omitempty"`
}

type ActionPlan struct {
	DocumentID       string       `json:"document_id"`
	Filename         string       `json:"filename"`
	Actions          []ActionItem `json:"actions"`
	AutoExecutable   []ActionItem `json:"auto_executable"`
	RequiresApproval []ActionItem `json:"requires_approval"`
	Summary          string       `json:"summary"`
}

// SynthesisInput is the set of agent outputs available for plan synthesis.
// A nil field means the agent failed or was not run.
type SynthesisInput struct {
	DocumentID  string               `json:"document_id"`
	Filename    string               `json:"filename"`
	Extracted   *ExtractedData       `json:"extracted,omitempty"`
	Risk        *RiskAnalysis        `json:"risk,omitempty"`
	Compliance  *ComplianceAnalysis  `json:"compliance,omitempty"`
	Negotiation *NegotiationStrategy `json:"negotiation,omitempty"`
}

// DecodeSynthesisInput decodes agent outputs supplied by an external caller.
// Unknown keys and unknown importance or priority levels are rejected so a
// mistyped payload cannot silently yield an empty plan. Level names are
// matched case-insensitively.
func DecodeSynthesisInput(raw []byte) (SynthesisInput, error) {
	const op = "decode synthesis input"

	var in SynthesisInput
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return SynthesisInput{}, WrapError(ErrInvalidInput, op, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return SynthesisInput{}, WrapError(ErrInvalidInput, op, errors.New("trailing data after json object"))
	}
	if err := in.validateLevels(); err != nil {
		return SynthesisInput{}, WrapError(ErrInvalidInput, op, err)
	}
	return in, nil
}

func (in SynthesisInput) validateLevels() error {
	if in.Extracted != nil {
		for i, d := range in.Extracted.Dates {
			if _, ok := ParseImportance(string(d.Importance)); !ok {
				return fmt.Errorf("extracted.dates[%d].importance: unknown level %q", i, d.Importance)
			}
		}
	}
	if in.Risk != nil {
		for i, r := range in.Risk.CurrentRisks {
			if _, ok := ParsePriority(string(r.Severity)); !ok {
				return fmt.Errorf("risk.current_risks[%d].severity: unknown level %q", i, r.Severity)
			}
		}
	}
	if in.Negotiation != nil {
		for i, p := range in.Negotiation.CounterProposals {
			if _, ok := ParsePriority(string(p.Priority)); !ok {
				return fmt.Errorf("negotiation.counter_proposals[%d].priority: unknown level %q", i, p.Priority)
			}
		}
	}
	return nil
}
