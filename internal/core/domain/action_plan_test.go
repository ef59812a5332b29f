package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeSynthesisInputCanonicalizesLevels(t *testing.T) {
	in, err := DecodeSynthesisInput([]byte(`{"document_id":"d1",
		"extracted":{"dates":[{"date":"2025-03-01","description":"Filing deadline","importance":" critical "}]},
		"risk":{"risk_score":40,"current_risks":[{"category":"liability","severity":"HIGH"}]},
		"negotiation":{"counter_proposals":[{"section":"Liability","priority":"high"}]}}`))
	if err != nil {
		t.Fatalf("DecodeSynthesisInput() error = %v", err)
	}
	if in.Extracted.Dates[0].Importance != ImportanceCritical {
		t.Fatalf("unexpected importance %q", in.Extracted.Dates[0].Importance)
	}
	if in.Risk.CurrentRisks[0].Severity != PriorityHigh || in.Negotiation.CounterProposals[0].Priority != PriorityHigh {
		t.Fatalf("unexpected priorities %+v %+v", in.Risk.CurrentRisks, in.Negotiation.CounterProposals)
	}
}

func TestDecodeSynthesisInputRejectsMistypedPayloads(t *testing.T) {
	cases := map[string]string{
		"camelCase key":    `{"document_id":"d1","compliance":{"criticalIssues":["GDPR"]}}`,
		"unknown level":    `{"document_id":"d1","negotiation":{"counter_proposals":[{"priority":"urgent"}]}}`,
		"missing severity": `{"document_id":"d1","risk":{"current_risks":[{"category":"x"}]}}`,
		"trailing data":    `{"document_id":"d1"} {"document_id":"d2"}`,
		"not json":         `document`,
	}
	for name, body := range cases {
		_, err := DecodeSynthesisInput([]byte(body))
		if !IsKind(err, ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", name, err)
		}
	}
}

func TestLevelUnmarshalKeepsUnknownValues(t *testing.T) {
	var date KeyDate
	if err := json.Unmarshal([]byte(`{"importance":"Urgent"}`), &date); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if date.Importance != "Urgent" {
		t.Fatalf("expected unknown level kept verbatim, got %q", date.Importance)
	}
	if _, ok := ParsePriority("medium"); !ok {
		t.Fatalf("expected case-insensitive priority match")
	}
	if got, ok := ParseImportance("LOW"); !ok || got != ImportanceLow {
		t.Fatalf("ParseImportance(LOW) = %q, %v", got, ok)
	}
	if err := json.Unmarshal([]byte(`{"priority":5}`), &CounterProposal{}); err == nil || !strings.Contains(err.Error(), "number") {
		t.Fatalf("expected type error for numeric priority, got %v", err)
	}
}
