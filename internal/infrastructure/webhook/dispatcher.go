package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/ports"
	"github.com/kirillkom/document-swarm/internal/infrastructure/resilience"
)

const (
	HeaderEvent     = "X-Webhook-Event"
	HeaderSignature = "X-Webhook-Signature"
	HeaderDelivery  = "X-Webhook-Delivery"

	signaturePrefix = "sha256="
)

type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Now        func() time.Time
	// Observer is optional and receives one call per finished delivery.
	Observer DeliveryObserver
}

type DeliveryObserver interface {
	ObserveWebhookDelivery(event string, delivered bool)
}

// Dispatcher delivers job events to the per-job callback URL and every
// registered webhook subscribed to the event. Failures are logged only.
type Dispatcher struct {
	hooks    ports.WebhookRepository
	client   *http.Client
	executor *resilience.Executor
	now      func() time.Time
	observer DeliveryObserver
}

func NewDispatcher(hooks ports.WebhookRepository, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		hooks:  hooks,
		client: &http.Client{Timeout: opts.Timeout},
		executor: resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts:    opts.MaxRetries + 1,
			RetryInitialBackoff: opts.RetryDelay,
			RetryMaxBackoff:     opts.RetryDelay * time.Duration(opts.MaxRetries+1),
			RetryMultiplier:     2,
			BreakerEnabled:      true,
		}),
		now:      opts.Now,
		observer: opts.Observer,
	}
}

type target struct {
	url    string
	secret string
}

func (d *Dispatcher) Notify(ctx context.Context, job domain.AnalysisJob, event string, data any) {
	targets := d.targets(ctx, job, event)
	if len(targets) == 0 {
		return
	}

	body, err := json.Marshal(domain.WebhookEvent{Event: event, Data: data, Timestamp: d.now().UTC()})
	if err != nil {
		slog.ErrorContext(ctx, "webhook_payload_encode_failed", "event", event, "job_id", job.ID, "error", err)
		return
	}

	for _, t := range targets {
		err := d.Deliver(ctx, t.url, t.secret, event, body)
		if d.observer != nil {
			d.observer.ObserveWebhookDelivery(event, err == nil)
		}
		if err != nil {
			slog.WarnContext(ctx, "webhook_delivery_failed",
				"event", event,
				"job_id", job.ID,
				"url", redactURL(t.url),
				"error", err,
			)
			continue
		}
		slog.InfoContext(ctx, "webhook_delivered", "event", event, "job_id", job.ID, "url", redactURL(t.url))
	}
}

func (d *Dispatcher) targets(ctx context.Context, job domain.AnalysisJob, event string) []target {
	seen := make(map[string]bool)
	var out []target
	if job.WebhookURL != "" {
		seen[job.WebhookURL] = true
		out = append(out, target{url: job.WebhookURL})
	}
	if d.hooks == nil {
		return out
	}

	hooks, err := d.hooks.ListActive(ctx)
	if err != nil {
		slog.WarnContext(ctx, "webhook_registry_unavailable", "error", err)
		return out
	}
	for _, hook := range hooks {
		if !hook.Subscribed(event) || seen[hook.URL] {
			continue
		}
		seen[hook.URL] = true
		out = append(out, target{url: hook.URL, secret: hook.Secret})
	}
	return out
}

// Deliver POSTs one signed payload with retries. 200, 201 and 202 count as delivered.
func (d *Dispatcher) Deliver(ctx context.Context, endpoint, secret, event string, body []byte) error {
	deliveryID := uuid.NewString()
	operation := "webhook_delivery:" + hostOf(endpoint)

	return d.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "document-swarm-webhooks/1")
		req.Header.Set(HeaderEvent, event)
		req.Header.Set(HeaderDelivery, deliveryID)
		if secret != "" {
			req.Header.Set(HeaderSignature, Sign(secret, body))
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return fmt.Errorf("post webhook: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			return nil
		default:
			return &StatusError{StatusCode: resp.StatusCode}
		}
	}, classifyDeliveryError)
}

type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook endpoint answered %d", e.StatusCode)
}

func classifyDeliveryError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (resilience.ErrorClassification, bool) {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return resilience.StatusClass(statusErr.StatusCode), true
		}
		return resilience.ErrorClassification{}, false
	})
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature header in constant time.
func VerifySignature(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	return hmac.Equal([]byte(header), []byte(Sign(secret, body)))
}

func hostOf(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return "unknown"
	}
	return parsed.Host
}

func redactURL(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "invalid"
	}
	parsed.User = nil
	parsed.RawQuery = ""
	return parsed.String()
}
