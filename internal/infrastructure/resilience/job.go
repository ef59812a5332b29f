package resilience

import (
	"context"
	"time"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

// JobRetrier retries whole analysis jobs that failed with domain.ErrTemporary.
// Permanent failures return on the first attempt. There is no breaker: a job
// is not a call against one dependency.
type JobRetrier struct {
	executor *Executor
	attempts int
}

func NewJobRetrier(attempts int, backoff time.Duration) *JobRetrier {
	if attempts <= 0 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &JobRetrier{
		executor: NewExecutor(Config{
			RetryMaxAttempts:    attempts,
			RetryInitialBackoff: backoff,
			RetryMaxBackoff:     8 * backoff,
			RetryMultiplier:     2,
			BreakerEnabled:      false,
		}),
		attempts: attempts,
	}
}

func (r *JobRetrier) MaxAttempts() int {
	return r.attempts
}

func (r *JobRetrier) Retry(ctx context.Context, operation string, fn func(context.Context) error) error {
	return r.executor.Execute(ctx, operation, fn, classifyJobError)
}

func classifyJobError(err error) ErrorClassification {
	return Classify(err, func(err error) (ErrorClassification, bool) {
		if domain.IsKind(err, domain.ErrTemporary) {
			return Transient, true
		}
		return Rejected, true
	})
}
