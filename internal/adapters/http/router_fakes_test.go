package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/kirillkom/document-swarm/internal/config"
	"github.com/kirillkom/document-swarm/internal/core/domain"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type ingestFake struct {
	err      error
	upload   domain.Upload
	received []byte
}

func (f *ingestFake) Upload(_ context.Context, upload domain.Upload, body io.Reader) (*domain.UploadReceipt, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.upload = upload
	f.received = raw
	if f.err != nil {
		return nil, f.err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("file is empty"))
	}
	return &domain.UploadReceipt{
		Document:            &domain.Document{ID: "doc-1", Filename: upload.Filename, SizeBytes: int64(len(raw))},
		JobID:               "job_0123456789abcdef",
		Status:              string(domain.JobProcessing),
		CreatedAt:           fixedNow,
		EstimatedCompletion: fixedNow.Add(10 * time.Second),
	}, nil
}

type swarmFake struct {
	err      error
	received domain.AnalysisRequest
}

func (f *swarmFake) RunSwarm(_ context.Context, req domain.AnalysisRequest) (*domain.SwarmResult, error) {
	f.received = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.SwarmResult{
		DocumentID:  req.DocumentID,
		Filename:    req.Filename,
		Status:      domain.SwarmPartial,
		Extractor:   domain.Completed(domain.ExtractedData{Parties: []string{"Acme"}}),
		RiskAnalyst: domain.Completed(domain.RiskAnalysis{RiskScore: 80}),
		Compliance:  domain.Failed[domain.ComplianceAnalysis]("timeout: compliance"),
		Negotiation: domain.Failed[domain.NegotiationStrategy]("model down"),
		Timestamp:   fixedNow,
	}, nil
}

type plannerFake struct {
	received domain.SynthesisInput
}

func (f *plannerFake) Synthesize(input domain.SynthesisInput) (*domain.ActionPlan, error) {
	f.received = input
	if input.DocumentID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "synthesize", errors.New("document id is required"))
	}
	return &domain.ActionPlan{
		DocumentID:       input.DocumentID,
		Filename:         input.Filename,
		Actions:          []domain.ActionItem{},
		AutoExecutable:   []domain.ActionItem{},
		RequiresApproval: []domain.ActionItem{},
		Summary:          "Generated 0 action items.",
	}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Filename: "nda.pdf", Status: domain.StatusAnalyzed}, nil
}

type analysesFake struct {
	analysis *domain.StoredAnalysis
}

func (f analysesFake) Save(context.Context, *domain.StoredAnalysis) error { return nil }

func (f analysesFake) LatestByDocumentID(_ context.Context, id string) (*domain.StoredAnalysis, error) {
	if f.analysis == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "latest analysis", errors.New(id))
	}
	return f.analysis, nil
}

type jobsFake struct {
	jobs map[string]domain.AnalysisJob
}

func (f jobsFake) Put(context.Context, domain.AnalysisJob) error { return nil }

func (f jobsFake) Get(_ context.Context, id string) (*domain.AnalysisJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get job", errors.New(id))
	}
	return &job, nil
}

type webhooksFake struct {
	registered []domain.WebhookRegistration
	deleted    []string
}

func (f *webhooksFake) Register(_ context.Context, reg domain.WebhookRegistration) (*domain.Webhook, error) {
	f.registered = append(f.registered, reg)
	events := reg.Events
	if len(events) == 0 {
		events = []string{domain.EventAnalysisCompleted}
	}
	return &domain.Webhook{ID: "wh_1", URL: reg.URL, Events: events, Secret: reg.Secret, Active: true, CreatedAt: fixedNow}, nil
}

func (f *webhooksFake) Get(_ context.Context, id string) (*domain.Webhook, error) {
	if id != "wh_1" {
		return nil, domain.WrapError(domain.ErrNotFound, "get webhook", errors.New(id))
	}
	return &domain.Webhook{ID: id, URL: "https://example.com/hook", Active: true}, nil
}

func (f *webhooksFake) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		ServiceName:          "swarm-api",
		MaxUploadBytes:       1 << 20,
		DefaultJurisdictions: []string{"US"},
	}
}

// withDefaults fills unset dependencies with permissive fakes.
func withDefaults(deps Dependencies) Dependencies {
	if deps.Ingest == nil {
		deps.Ingest = &ingestFake{}
	}
	if deps.Swarm == nil {
		deps.Swarm = &swarmFake{}
	}
	if deps.Planner == nil {
		deps.Planner = &plannerFake{}
	}
	if deps.Docs == nil {
		deps.Docs = docsFake{}
	}
	if deps.Analyses == nil {
		deps.Analyses = analysesFake{}
	}
	if deps.Jobs == nil {
		deps.Jobs = jobsFake{jobs: map[string]domain.AnalysisJob{}}
	}
	if deps.Webhooks == nil {
		deps.Webhooks = &webhooksFake{}
	}
	return deps
}

func newTestHandler(t *testing.T, cfg config.Config, deps Dependencies) http.Handler {
	t.Helper()
	router, err := NewRouter(cfg, withDefaults(deps))
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	router.now = func() time.Time { return fixedNow }
	return router.Handler()
}
