package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/infrastructure/resilience"
)

const workerQueueGroup = "swarm-workers"

type Queue struct {
	conn         *nats.Conn
	subject      string
	executor     *resilience.Executor
	drainTimeout time.Duration
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// DrainTimeout bounds how long shutdown waits for delivered jobs.
	DrainTimeout time.Duration
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	drainTimeout := options.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 30 * time.Second
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("document-swarm"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:         conn,
		subject:      subject,
		executor:     options.ResilienceExecutor,
		drainTimeout: drainTimeout,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAnalysisRequested(ctx context.Context, job domain.AnalysisJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeAnalysisRequested blocks until ctx is done, then drains: messages
// already delivered are still handled before it returns. Jobs are
// load-balanced across workers in the same queue group.
func (q *Queue) SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisJob) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		handleMessage(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if !waitDrained(sub.IsValid, q.drainTimeout) {
		slog.Warn("nats_drain_timeout", "subject", q.subject, "timeout", q.drainTimeout.String())
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// handleMessage runs handler detached from ctx cancellation so a job taken
// off the subject is finished during shutdown instead of being dropped while
// its status stays pending.
func handleMessage(ctx context.Context, data []byte, handler func(context.Context, domain.AnalysisJob) error) {
	job, err := decodeJob(data)
	if err != nil {
		slog.ErrorContext(ctx, "analysis_job_decode_failed", "error", err)
		return
	}

	handlerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	if err := handler(handlerCtx, job); err != nil {
		slog.ErrorContext(handlerCtx, "worker_handler_error", "job_id", job.ID, "document_id", job.DocumentID, "error", err)
	}
}

// waitDrained polls until the subscription closes after its pending messages
// are handled, or timeout passes.
func waitDrained(valid func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for valid() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
	return true
}

func encodeJob(job domain.AnalysisJob) ([]byte, error) {
	if strings.TrimSpace(job.ID) == "" || strings.TrimSpace(job.DocumentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode analysis job", errors.New("job id and document id are required"))
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis job: %w", err)
	}
	return payload, nil
}

func decodeJob(payload []byte) (domain.AnalysisJob, error) {
	var job domain.AnalysisJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return domain.AnalysisJob{}, fmt.Errorf("unmarshal analysis job: %w", err)
	}
	if strings.TrimSpace(job.ID) == "" || strings.TrimSpace(job.DocumentID) == "" {
		return domain.AnalysisJob{}, fmt.Errorf("analysis job payload missing ids")
	}
	return job, nil
}
