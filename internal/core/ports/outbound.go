package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

// ContractExtractor pulls terms, dates, obligations, parties and amounts.
type ContractExtractor interface {
	Extract(ctx context.Context, req domain.AnalysisRequest) (domain.ExtractedData, error)
}

// RiskAnalyst scores current and predicted risks.
type RiskAnalyst interface {
	AnalyzeRisk(ctx context.Context, req domain.AnalysisRequest) (domain.RiskAnalysis, error)
}

// ComplianceAnalyst evaluates the document per jurisdiction.
type ComplianceAnalyst interface {
	CheckCompliance(ctx context.Context, req domain.AnalysisRequest) (domain.ComplianceAnalysis, error)
}

// NegotiationAdvisor proposes counter-proposals and red lines.
type NegotiationAdvisor interface {
	Advise(ctx context.Context, req domain.AnalysisRequest) (domain.NegotiationStrategy, error)
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
}

// AnalysisRepository persists swarm results with their action plans.
type AnalysisRepository interface {
	Save(ctx context.Context, analysis *domain.StoredAnalysis) error
	LatestByDocumentID(ctx context.Context, documentID string) (*domain.StoredAnalysis, error)
}

// WebhookRepository stores webhook registrations.
type WebhookRepository interface {
	Create(ctx context.Context, hook *domain.Webhook) error
	GetByID(ctx context.Context, id string) (*domain.Webhook, error)
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]domain.Webhook, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes analysis jobs.
type MessageQueue interface {
	PublishAnalysisRequested(ctx context.Context, job domain.AnalysisJob) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisJob) error) error
}

// JobStore tracks asynchronous job status.
type JobStore interface {
	Put(ctx context.Context, job domain.AnalysisJob) error
	Get(ctx context.Context, id string) (*domain.AnalysisJob, error)
}

// TextExtractor extracts UTF-8 text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// WebhookNotifier delivers analysis events to subscribers.
type WebhookNotifier interface {
	Notify(ctx context.Context, job domain.AnalysisJob, event string, data any)
}

// ActionPlanProjector mirrors a plan into an external store (graph, ticketing).
type ActionPlanProjector interface {
	Project(ctx context.Context, doc *domain.Document, plan *domain.ActionPlan) error
}

// JobRetrier re-runs a job step while it fails with domain.ErrTemporary.
type JobRetrier interface {
	MaxAttempts() int
	Retry(ctx context.Context, operation string, fn func(context.Context) error) error
}
