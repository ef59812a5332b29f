package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

// SwarmRunner is the inbound contract for one concurrent analysis of a document.
type SwarmRunner interface {
	RunSwarm(ctx context.Context, req domain.AnalysisRequest) (*domain.SwarmResult, error)
}

// ActionPlanSynthesizer derives an approval-gated action plan from agent outputs.
type ActionPlanSynthesizer interface {
	Synthesize(input domain.SynthesisInput) (*domain.ActionPlan, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, upload domain.Upload, body io.Reader) (*domain.UploadReceipt, error)
}

// DocumentAnalyzer processes a queued analysis job end to end.
type DocumentAnalyzer interface {
	AnalyzeJob(ctx context.Context, job domain.AnalysisJob) (*domain.StoredAnalysis, error)
}

// DocumentReader is the inbound read model for document metadata and analyses.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// WebhookRegistry manages webhook subscriptions.
type WebhookRegistry interface {
	Register(ctx context.Context, registration domain.WebhookRegistration) (*domain.Webhook, error)
	Get(ctx context.Context, id string) (*domain.Webhook, error)
	Delete(ctx context.Context, id string) error
}
