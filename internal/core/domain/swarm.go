package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type AgentName string

const (
	AgentExtractor   AgentName = "extractor"
	AgentRiskAnalyst AgentName = "riskAnalyst"
	AgentCompliance  AgentName = "compliance"
	AgentNegotiation AgentName = "negotiation"
)

// AllAgents lists the analyzer units in reporting order.
var AllAgents = []AgentName{AgentExtractor, AgentRiskAnalyst, AgentCompliance, AgentNegotiation}

type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

const errNoOutcome = "agent produced no outcome"

// AgentOutcome holds exactly one of a completed result or a failure message.
// The zero value reads as failed.
type AgentOutcome[T any] struct {
	data      T
	err       string
	completed bool
}

func Completed[T any](data T) AgentOutcome[T] {
	return AgentOutcome[T]{data: data, completed: true}
}

func Failed[T any](message string) AgentOutcome[T] {
	if message == "" {
		message = errNoOutcome
	}
	return AgentOutcome[T]{err: message}
}

func (o AgentOutcome[T]) IsCompleted() bool { return o.completed }

// Data returns the result and true when the outcome completed.
func (o AgentOutcome[T]) Data() (T, bool) {
	if !o.completed {
		var zero T
		return zero, false
	}
	return o.data, true
}

// DataPtr returns a pointer to a copy of the result, or nil on failure.
func (o AgentOutcome[T]) DataPtr() *T {
	if !o.completed {
		return nil
	}
	data := o.data
	return &data
}

func (o AgentOutcome[T]) Err() string {
	if o.completed {
		return ""
	}
	if o.err == "" {
		return errNoOutcome
	}
	return o.err
}

func (o AgentOutcome[T]) Status() OutcomeStatus {
	if o.completed {
		return OutcomeCompleted
	}
	return OutcomeFailed
}

type outcomeJSON[T any] struct {
	Status OutcomeStatus `json:"status"`
	Data   *T            `json:"data,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (o AgentOutcome[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(outcomeJSON[T]{
		Status: o.Status(),
		Data:   o.DataPtr(),
		Error:  o.Err(),
	})
}

func (o *AgentOutcome[T]) UnmarshalJSON(raw []byte) error {
	var payload outcomeJSON[T]
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	switch payload.Status {
	case OutcomeCompleted:
		if payload.Data == nil {
			return fmt.Errorf("completed outcome without data")
		}
		*o = Completed(*payload.Data)
	case OutcomeFailed:
		*o = Failed[T](payload.Error)
	default:
		return fmt.Errorf("unknown outcome status %q", payload.Status)
	}
	return nil
}

type SwarmStatus string

const (
	SwarmCompleted SwarmStatus = "completed"
	SwarmPartial   SwarmStatus = "partial"
	SwarmFailed    SwarmStatus = "failed"
)

// DeriveSwarmStatus is completed when every agent completed, failed when none did.
func DeriveSwarmStatus(completed ...bool) SwarmStatus {
	succeeded := 0
	for _, ok := range completed {
		if ok {
			succeeded++
		}
	}
	switch {
	case succeeded == len(completed):
		return SwarmCompleted
	case succeeded == 0:
		return SwarmFailed
	default:
		return SwarmPartial
	}
}

type SwarmResult struct {
	DocumentID      string                            `json:"document_id"`
	Filename        string                            `json:"filename"`
	Status          SwarmStatus                       `json:"status"`
	Extractor       AgentOutcome[ExtractedData]       `json:"extractor"`
	RiskAnalyst     AgentOutcome[RiskAnalysis]        `json:"risk_analyst"`
	Compliance      AgentOutcome[ComplianceAnalysis]  `json:"compliance"`
	Negotiation     AgentOutcome[NegotiationStrategy] `json:"negotiation"`
	ExecutionTimeMS int64                             `json:"execution_time_ms"`
	Timestamp       time.Time                         `json:"timestamp"`
}

// AgentReport is the per-agent status line shown to users.
type AgentReport struct {
	Agent  AgentName     `json:"agent"`
	Status OutcomeStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// Reports lists one status line per agent in AllAgents order.
func (r SwarmResult) Reports() []AgentReport {
	reports := make([]AgentReport, 0, len(AllAgents))
	for _, agent := range AllAgents {
		status, errMessage := r.outcome(agent)
		reports = append(reports, AgentReport{Agent: agent, Status: status, Error: errMessage})
	}
	return reports
}

func (r SwarmResult) outcome(agent AgentName) (OutcomeStatus, string) {
	switch agent {
	case AgentExtractor:
		return r.Extractor.Status(), r.Extractor.Err()
	case AgentRiskAnalyst:
		return r.RiskAnalyst.Status(), r.RiskAnalyst.Err()
	case AgentCompliance:
		return r.Compliance.Status(), r.Compliance.Err()
	case AgentNegotiation:
		return r.Negotiation.Status(), r.Negotiation.Err()
	default:
		return OutcomeFailed, fmt.Sprintf("unknown agent %q", agent)
	}
}

// SynthesisInput collects the successful agent outputs for plan synthesis.
func (r SwarmResult) SynthesisInput() SynthesisInput {
	return SynthesisInput{
		DocumentID:  r.DocumentID,
		Filename:    r.Filename,
		Extracted:   r.Extractor.DataPtr(),
		Risk:        r.RiskAnalyst.DataPtr(),
		Compliance:  r.Compliance.DataPtr(),
		Negotiation: r.Negotiation.DataPtr(),
	}
}
