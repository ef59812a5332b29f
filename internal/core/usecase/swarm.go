package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/ports"
)

const (
	tracerName          = "document-swarm/usecase"
	defaultAgentTimeout = 2 * time.Minute
)

// SwarmObserver receives per-agent and per-swarm measurements.
type SwarmObserver interface {
	ObserveAgent(agent domain.AgentName, status domain.OutcomeStatus, duration time.Duration)
	ObserveSwarm(status domain.SwarmStatus, duration time.Duration)
}

type SwarmOptions struct {
	// AgentTimeout bounds every analyzer unit call individually.
	AgentTimeout time.Duration
	Observer     SwarmObserver
	Now          func() time.Time
}

// SwarmCoordinator runs the four analyzer units concurrently for one document.
// It keeps no state between runs.
type SwarmCoordinator struct {
	extractor   ports.ContractExtractor
	risk        ports.RiskAnalyst
	compliance  ports.ComplianceAnalyst
	negotiation ports.NegotiationAdvisor

	agentTimeout time.Duration
	observer     SwarmObserver
	now          func() time.Time
	tracer       trace.Tracer
}

func NewSwarmCoordinator(
	extractor ports.ContractExtractor,
	risk ports.RiskAnalyst,
	compliance ports.ComplianceAnalyst,
	negotiation ports.NegotiationAdvisor,
	opts SwarmOptions,
) *SwarmCoordinator {
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = defaultAgentTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SwarmCoordinator{
		extractor:    extractor,
		risk:         risk,
		compliance:   compliance,
		negotiation:  negotiation,
		agentTimeout: opts.AgentTimeout,
		observer:     opts.Observer,
		now:          opts.Now,
		tracer:       otel.Tracer(tracerName),
	}
}

func (c *SwarmCoordinator) RunSwarm(ctx context.Context, req domain.AnalysisRequest) (*domain.SwarmResult, error) {
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run swarm", errors.New("document id is required"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run swarm", errors.New("document content is empty"))
	}

	ctx, span := c.tracer.Start(ctx, "swarm.run", trace.WithAttributes(
		attribute.String("document.id", req.DocumentID),
		attribute.Int("document.content_length", len(req.Content)),
	))
	defer span.End()

	started := c.now()

	var (
		wg          sync.WaitGroup
		extracted   domain.AgentOutcome[domain.ExtractedData]
		risk        domain.AgentOutcome[domain.RiskAnalysis]
		compliance  domain.AgentOutcome[domain.ComplianceAnalysis]
		negotiation domain.AgentOutcome[domain.NegotiationStrategy]
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		extracted = runAgent(ctx, c, domain.AgentExtractor, req.Clone(), c.extractor.Extract)
	}()
	go func() {
		defer wg.Done()
		risk = runAgent(ctx, c, domain.AgentRiskAnalyst, req.Clone(), c.risk.AnalyzeRisk)
	}()
	go func() {
		defer wg.Done()
		compliance = runAgent(ctx, c, domain.AgentCompliance, req.Clone(), c.compliance.CheckCompliance)
	}()
	go func() {
		defer wg.Done()
		negotiation = runAgent(ctx, c, domain.AgentNegotiation, req.Clone(), c.negotiation.Advise)
	}()
	wg.Wait()

	finished := c.now()
	elapsed := finished.Sub(started)
	status := domain.DeriveSwarmStatus(
		extracted.IsCompleted(),
		risk.IsCompleted(),
		compliance.IsCompleted(),
		negotiation.IsCompleted(),
	)
	result := domain.SwarmResult{
		DocumentID:      req.DocumentID,
		Filename:        req.Filename,
		Status:          status,
		Extractor:       extracted,
		RiskAnalyst:     risk,
		Compliance:      compliance,
		Negotiation:     negotiation,
		ExecutionTimeMS: elapsed.Milliseconds(),
		Timestamp:       finished.UTC(),
	}

	span.SetAttributes(attribute.String("swarm.status", string(result.Status)))
	if result.Status == domain.SwarmFailed {
		span.SetStatus(codes.Error, "all agents failed")
	}
	if c.observer != nil {
		c.observer.ObserveSwarm(result.Status, elapsed)
	}
	slog.InfoContext(ctx, "swarm_completed",
		"document_id", req.DocumentID,
		"status", result.Status,
		"execution_time_ms", result.ExecutionTimeMS,
	)

	return &result, nil
}

type agentResult[T any] struct {
	data T
	err  error
}

// runAgent time-boxes one unit. A unit that ignores cancellation is abandoned
// once its deadline passes; its late result is dropped.
func runAgent[T any](
	ctx context.Context,
	c *SwarmCoordinator,
	agent domain.AgentName,
	req domain.AnalysisRequest,
	fn func(context.Context, domain.AnalysisRequest) (T, error),
) domain.AgentOutcome[T] {
	ctx, span := c.tracer.Start(ctx, "swarm.agent", trace.WithAttributes(attribute.String("agent", string(agent))))
	defer span.End()

	agentCtx, cancel := context.WithTimeout(ctx, c.agentTimeout)
	defer cancel()

	started := time.Now()
	done := make(chan agentResult[T], 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- agentResult[T]{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		data, err := fn(agentCtx, req)
		done <- agentResult[T]{data: data, err: err}
	}()

	var outcome domain.AgentOutcome[T]
	select {
	case res := <-done:
		switch {
		case res.err == nil:
			outcome = domain.Completed(res.data)
		case errors.Is(res.err, context.DeadlineExceeded):
			outcome = domain.Failed[T]("timeout: " + res.err.Error())
		default:
			outcome = domain.Failed[T](res.err.Error())
		}
	case <-agentCtx.Done():
		if errors.Is(agentCtx.Err(), context.DeadlineExceeded) {
			outcome = domain.Failed[T](fmt.Sprintf("timeout: %s did not respond within %s", agent, c.agentTimeout))
		} else {
			outcome = domain.Failed[T]("cancelled: " + agentCtx.Err().Error())
		}
	}

	duration := time.Since(started)
	if !outcome.IsCompleted() {
		span.SetStatus(codes.Error, outcome.Err())
		slog.WarnContext(ctx, "agent_failed",
			"document_id", req.DocumentID,
			"agent", agent,
			"duration_ms", duration.Milliseconds(),
			"error", outcome.Err(),
		)
	}
	if c.observer != nil {
		c.observer.ObserveAgent(agent, outcome.Status(), duration)
	}
	return outcome
}
