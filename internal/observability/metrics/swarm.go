package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

// SwarmMetrics records analyzer unit outcomes, swarm statuses, action plan
// composition and webhook deliveries.
type SwarmMetrics struct {
	service string

	agentTotal       *prometheus.CounterVec
	agentDuration    *prometheus.HistogramVec
	swarmTotal       *prometheus.CounterVec
	swarmDuration    prometheus.Histogram
	actionItemsTotal *prometheus.CounterVec
	webhookTotal     *prometheus.CounterVec
}

func NewSwarmMetrics(service string, registerer prometheus.Registerer) *SwarmMetrics {
	agentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Analyzer unit runs by agent and outcome.",
		},
		[]string{"service", "agent", "status"},
	)
	agentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "duration_seconds",
			Help:      "Analyzer unit duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120, 300},
		},
		[]string{"service", "agent"},
	)
	swarmTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swarm",
			Name:      "runs_total",
			Help:      "Swarm runs by overall status.",
		},
		[]string{"service", "status"},
	)
	swarmDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "swarm",
			Name:        "duration_seconds",
			Help:        "Wall-clock swarm duration in seconds.",
			Buckets:     []float64{1, 2, 5, 10, 20, 40, 60, 120, 300},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	actionItemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action_plan",
			Name:      "items_total",
			Help:      "Synthesized action items by type and execution class.",
		},
		[]string{"service", "type", "execution"},
	)
	webhookTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by event and result.",
		},
		[]string{"service", "event", "result"},
	)

	registerer.MustRegister(agentTotal, agentDuration, swarmTotal, swarmDuration, actionItemsTotal, webhookTotal)

	return &SwarmMetrics{
		service:          service,
		agentTotal:       agentTotal,
		agentDuration:    agentDuration,
		swarmTotal:       swarmTotal,
		swarmDuration:    swarmDuration,
		actionItemsTotal: actionItemsTotal,
		webhookTotal:     webhookTotal,
	}
}

func (m *SwarmMetrics) ObserveAgent(agent domain.AgentName, status domain.OutcomeStatus, duration time.Duration) {
	m.agentTotal.WithLabelValues(m.service, string(agent), string(status)).Inc()
	m.agentDuration.WithLabelValues(m.service, string(agent)).Observe(duration.Seconds())
}

func (m *SwarmMetrics) ObserveSwarm(status domain.SwarmStatus, duration time.Duration) {
	m.swarmTotal.WithLabelValues(m.service, string(status)).Inc()
	m.swarmDuration.Observe(duration.Seconds())
}

func (m *SwarmMetrics) ObserveActionPlan(plan *domain.ActionPlan) {
	if plan == nil {
		return
	}
	for _, item := range plan.Actions {
		m.actionItemsTotal.WithLabelValues(m.service, string(item.Type), string(item.Execution)).Inc()
	}
}

func (m *SwarmMetrics) ObserveWebhookDelivery(event string, delivered bool) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.webhookTotal.WithLabelValues(m.service, event, result).Inc()
}
