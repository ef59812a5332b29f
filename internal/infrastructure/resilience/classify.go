package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

var (
	// Transient failures are retried and count against the breaker.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Rejected is a permanent answer from a healthy dependency.
	Rejected = ErrorClassification{}
	// Broken is permanent and still counts against the breaker.
	Broken = ErrorClassification{RecordFailure: true}
)

// Rule classifies the errors one adapter knows about and reports whether it
// matched.
type Rule func(err error) (ErrorClassification, bool)

// Classify applies the rules shared by every adapter and then the adapter's
// own rules in order. Caller cancellation is never retried; a single attempt
// running past AttemptTimeout is. Network errors are transient and anything
// unmatched is Broken.
func Classify(err error, rules ...Rule) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled):
		return Rejected
	case errors.Is(err, context.DeadlineExceeded), IsCircuitOpen(err):
		return Transient
	}
	for _, rule := range rules {
		if class, ok := rule(err); ok {
			return class
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	return Broken
}

// StatusClass classifies an HTTP status code returned by a dependency.
func StatusClass(code int) ErrorClassification {
	if RetryableStatus(code) {
		return Transient
	}
	return Rejected
}

func RetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= http.StatusInternalServerError && code != http.StatusNotImplemented
}

// Temporary marks err as domain.ErrTemporary when the classifier would have
// retried it, so callers can tell an outage from a bad request.
func Temporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifier(err).Retryable || IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
