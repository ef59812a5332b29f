package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

type hookRepoFake struct {
	hooks []domain.Webhook
	err   error
}

func (f *hookRepoFake) Create(context.Context, *domain.Webhook) error { return nil }
func (f *hookRepoFake) GetByID(context.Context, string) (*domain.Webhook, error) {
	return nil, domain.ErrNotFound
}
func (f *hookRepoFake) Delete(context.Context, string) error { return nil }
func (f *hookRepoFake) ListActive(context.Context) ([]domain.Webhook, error) {
	return f.hooks, f.err
}

type received struct {
	event     string
	signature string
	body      []byte
}

type recorder struct {
	mu   sync.Mutex
	hits []received
}

func (r *recorder) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.hits = append(r.hits, received{
			event:     req.Header.Get(HeaderEvent),
			signature: req.Header.Get(HeaderSignature),
			body:      body,
		})
		r.mu.Unlock()
		w.WriteHeader(status)
	}
}

type deliveryObserverFake struct {
	delivered, failed int
}

func (f *deliveryObserverFake) ObserveWebhookDelivery(_ string, delivered bool) {
	if delivered {
		f.delivered++
	} else {
		f.failed++
	}
}

func fastOptions() Options {
	return Options{
		Timeout:    time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Now:        func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestNotifySignsRegisteredHooksAndCallsJobURL(t *testing.T) {
	jobRec, hookRec := &recorder{}, &recorder{}
	jobSrv := httptest.NewServer(jobRec.handler(http.StatusOK))
	defer jobSrv.Close()
	hookSrv := httptest.NewServer(hookRec.handler(http.StatusAccepted))
	defer hookSrv.Close()

	repo := &hookRepoFake{hooks: []domain.Webhook{
		{ID: "wh_1", URL: hookSrv.URL, Events: []string{domain.EventAnalysisCompleted}, Secret: "s3cret", Active: true},
		{ID: "wh_2", URL: hookSrv.URL + "/failed-only", Events: []string{domain.EventAnalysisFailed}, Active: true},
	}}
	observer := &deliveryObserverFake{}
	opts := fastOptions()
	opts.Observer = observer
	d := NewDispatcher(repo, opts)

	d.Notify(context.Background(), domain.AnalysisJob{ID: "job_1", WebhookURL: jobSrv.URL}, domain.EventAnalysisCompleted, map[string]any{"job_id": "job_1"})

	if len(jobRec.hits) != 1 || jobRec.hits[0].signature != "" {
		t.Fatalf("expected one unsigned job callback, got %+v", jobRec.hits)
	}
	if len(hookRec.hits) != 1 {
		t.Fatalf("expected one registered hook delivery, got %d", len(hookRec.hits))
	}
	hit := hookRec.hits[0]
	if hit.event != domain.EventAnalysisCompleted {
		t.Fatalf("unexpected event header %q", hit.event)
	}
	if !VerifySignature("s3cret", hit.body, hit.signature) {
		t.Fatalf("signature %q does not verify", hit.signature)
	}

	var payload domain.WebhookEvent
	if err := json.Unmarshal(hit.body, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Event != domain.EventAnalysisCompleted || !payload.Timestamp.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if observer.delivered != 2 || observer.failed != 0 {
		t.Fatalf("unexpected observer counts %+v", observer)
	}
}

func TestDeliverRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, fastOptions())
	if err := d.Deliver(context.Background(), srv.URL, "", domain.EventAnalysisFailed, []byte(`{}`)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDeliverGivesUpOnClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	d := NewDispatcher(nil, fastOptions())
	err := d.Deliver(context.Background(), srv.URL, "", domain.EventAnalysisCompleted, []byte(`{}`))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusGone {
		t.Fatalf("expected 410 status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestNotifyToleratesRegistryFailure(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	d := NewDispatcher(&hookRepoFake{err: errors.New("db down")}, fastOptions())
	d.Notify(context.Background(), domain.AnalysisJob{ID: "job_1", WebhookURL: srv.URL}, domain.EventAnalysisFailed, nil)

	if len(rec.hits) != 1 {
		t.Fatalf("expected job callback despite registry failure, got %d", len(rec.hits))
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	body := []byte(`{"event":"analysis.completed"}`)
	sig := Sign("k", body)
	if !VerifySignature("k", body, sig) {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature("k", []byte(`{"event":"analysis.failed"}`), sig) || VerifySignature("other", body, sig) {
		t.Fatalf("expected tampered payload or key to fail")
	}
	if VerifySignature("k", body, sig[len("sha256="):]) {
		t.Fatalf("expected missing prefix to fail")
	}
}
