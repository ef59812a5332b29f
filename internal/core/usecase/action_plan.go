package usecase

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

const (
	// RiskRoutingThreshold is the inclusive risk score that routes a document to legal.
	RiskRoutingThreshold = 70

	legalTeam       = "Legal Team"
	complianceTeam  = "Compliance Team"
	negotiationTeam = "Negotiation Team"
)

// ActionPlanSynthesizer turns agent outputs into an ordered, approval-gated
// action plan. It holds no state and never reads the clock.
type ActionPlanSynthesizer struct{}

func NewActionPlanSynthesizer() *ActionPlanSynthesizer {
	return &ActionPlanSynthesizer{}
}

func (s *ActionPlanSynthesizer) Synthesize(input domain.SynthesisInput) (*domain.ActionPlan, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "synthesize action plan", errors.New("document id is required"))
	}

	b := &planBuilder{}
	if input.Extracted != nil {
		b.calendarActions(input.Extracted.Dates)
		b.reminderActions(input.Extracted.Obligations)
		b.paymentActions(input.Extracted.Amounts)
	}
	if input.Risk != nil {
		b.routingAction(*input.Risk)
	}
	if input.Compliance != nil {
		b.notificationActions(input.Compliance.CriticalIssues)
	}
	if input.Negotiation != nil {
		b.approvalActions(input.Negotiation.CounterProposals)
	}

	return b.plan(input.DocumentID, input.Filename), nil
}

type planBuilder struct {
	actions []domain.ActionItem
}

func (b *planBuilder) add(item domain.ActionItem, execution domain.ExecutionClass) {
	item.ID = "action-" + strconv.Itoa(len(b.actions)+1)
	item.Execution = execution
	b.actions = append(b.actions, item)
}

func (b *planBuilder) calendarActions(dates []domain.KeyDate) {
	for _, date := range dates {
		var priority domain.Priority
		var execution domain.ExecutionClass
		switch date.Importance {
		case domain.ImportanceCritical:
			priority, execution = domain.PriorityCritical, domain.ExecutionApproval
		case domain.ImportanceHigh:
			priority, execution = domain.PriorityHigh, domain.ExecutionAuto
		default:
			continue
		}
		due := date.Date
		b.add(domain.ActionItem{
			Type:        domain.ActionCalendar,
			Title:       "Add to calendar: " + date.Description,
			Description: fmt.Sprintf("%s on %s", date.Description, date.Date),
			Priority:    priority,
			DueDate:     &due,
			Metadata: &domain.ActionMetadata{
				Source:   domain.SourceExtractionDates,
				Calendar: &domain.CalendarMetadata{Importance: date.Importance},
			},
		}, execution)
	}
}

func (b *planBuilder) reminderActions(obligations []domain.Obligation) {
	for _, ob := range obligations {
		if ob.Deadline == nil {
			continue
		}
		priority := domain.PriorityMedium
		penalty := ""
		if ob.Penalty != nil && strings.TrimSpace(*ob.Penalty) != "" {
			priority = domain.PriorityHigh
			penalty = *ob.Penalty
		}
		description := ob.Obligation
		if penalty != "" {
			description += " (penalty: " + penalty + ")"
		}
		due := *ob.Deadline
		b.add(domain.ActionItem{
			Type:        domain.ActionReminder,
			Title:       fmt.Sprintf("Reminder: %s obligation due %s", ob.Party, due),
			Description: description,
			Priority:    priority,
			DueDate:     &due,
			Assignee:    ob.Party,
			Metadata: &domain.ActionMetadata{
				Source:   domain.SourceExtractionObligations,
				Reminder: &domain.ReminderMetadata{Party: ob.Party, Penalty: penalty},
			},
		}, domain.ExecutionAuto)
	}
}

func (b *planBuilder) paymentActions(amounts []domain.Amount) {
	for _, amount := range amounts {
		if !amount.IsRecurring() {
			continue
		}
		frequency := strings.TrimSpace(*amount.Frequency)
		b.add(domain.ActionItem{
			Type:        domain.ActionPayment,
			Title:       fmt.Sprintf("Schedule %s payment: %s", strings.ToLower(frequency), amount.Description),
			Description: fmt.Sprintf("%s %s %s (%s)", formatAmount(amount.Value), amount.Currency, amount.Description, frequency),
			Priority:    domain.PriorityHigh,
			Metadata: &domain.ActionMetadata{
				Source: domain.SourceExtractionAmounts,
				Payment: &domain.PaymentMetadata{
					Amount:    amount.Value,
					Currency:  amount.Currency,
					Frequency: frequency,
				},
			},
		}, domain.ExecutionApproval)
	}
}

func (b *planBuilder) routingAction(risk domain.RiskAnalysis) {
	if risk.RiskScore < RiskRoutingThreshold {
		return
	}
	var recommendations []string
	if len(risk.Recommendations) > 0 {
		recommendations = append([]string(nil), risk.Recommendations...)
	}
	b.add(domain.ActionItem{
		Type:        domain.ActionRouting,
		Title:       "Route to Legal Team",
		Description: fmt.Sprintf("Risk score %d is at or above %d; legal review required before signing.", risk.RiskScore, RiskRoutingThreshold),
		Priority:    domain.PriorityCritical,
		Assignee:    legalTeam,
		Metadata: &domain.ActionMetadata{
			Source:  domain.SourceRiskAnalysis,
			Routing: &domain.RoutingMetadata{RiskScore: risk.RiskScore, Recommendations: recommendations},
		},
	}, domain.ExecutionApproval)
}

func (b *planBuilder) notificationActions(issues []string) {
	for _, issue := range issues {
		b.add(domain.ActionItem{
			Type:        domain.ActionNotification,
			Title:       "Compliance issue: " + truncate(issue, 80),
			Description: issue,
			Priority:    domain.PriorityCritical,
			Assignee:    complianceTeam,
			Metadata: &domain.ActionMetadata{
				Source:       domain.SourceCompliance,
				Notification: &domain.NotificationMetadata{Issue: issue},
			},
		}, domain.ExecutionApproval)
	}
}

func (b *planBuilder) approvalActions(proposals []domain.CounterProposal) {
	for _, p := range proposals {
		if p.Priority != domain.PriorityCritical && p.Priority != domain.PriorityHigh {
			continue
		}
		b.add(domain.ActionItem{
			Type:        domain.ActionApproval,
			Title:       "Approve counter-proposal: " + p.Section,
			Description: p.Reason,
			Priority:    p.Priority,
			Assignee:    negotiationTeam,
			Metadata: &domain.ActionMetadata{
				Source: domain.SourceNegotiation,
				Approval: &domain.ApprovalMetadata{
					Section:      p.Section,
					OriginalText: p.OriginalText,
					ProposedText: p.ProposedText,
					Reason:       p.Reason,
				},
			},
		}, domain.ExecutionApproval)
	}
}

func (b *planBuilder) plan(documentID, filename string) *domain.ActionPlan {
	plan := &domain.ActionPlan{
		DocumentID:       documentID,
		Filename:         filename,
		Actions:          make([]domain.ActionItem, 0, len(b.actions)),
		AutoExecutable:   []domain.ActionItem{},
		RequiresApproval: []domain.ActionItem{},
	}
	for _, item := range b.actions {
		plan.Actions = append(plan.Actions, item)
		if item.Execution == domain.ExecutionAuto {
			plan.AutoExecutable = append(plan.AutoExecutable, item)
		} else {
			plan.RequiresApproval = append(plan.RequiresApproval, item)
		}
	}
	plan.Summary = summarize(plan)
	return plan
}

// summarize tallies actions per type (in generation order) and per execution class.
func summarize(plan *domain.ActionPlan) string {
	total := len(plan.Actions)
	if total == 0 {
		return "Generated 0 action items."
	}

	counts := make(map[domain.ActionType]int, len(domain.ActionTypeOrder))
	for _, item := range plan.Actions {
		counts[item.Type]++
	}
	parts := make([]string, 0, len(domain.ActionTypeOrder))
	for _, t := range domain.ActionTypeOrder {
		if counts[t] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
		}
	}

	noun := "action items"
	if total == 1 {
		noun = "action item"
	}
	return fmt.Sprintf("Generated %d %s: %s. %d auto-executable, %d require approval.",
		total, noun, strings.Join(parts, ", "), len(plan.AutoExecutable), len(plan.RequiresApproval))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
