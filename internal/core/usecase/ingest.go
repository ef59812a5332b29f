package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/ports"
)

const (
	DefaultMaxUploadBytes = 50 << 20

	minEstimatedAnalysis = 10 * time.Second
	bytesPerEstimatedSec = 100_000
)

type IngestOptions struct {
	MaxUploadBytes int64
	Now            func() time.Time
}

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	jobs    ports.JobStore
	queue   ports.MessageQueue

	maxUploadBytes int64
	now            func() time.Time
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	jobs ports.JobStore,
	queue ports.MessageQueue,
	opts IngestOptions,
) *IngestDocumentUseCase {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &IngestDocumentUseCase{
		repo:           repo,
		storage:        storage,
		jobs:           jobs,
		queue:          queue,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            opts.Now,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	upload domain.Upload,
	body io.Reader,
) (*domain.UploadReceipt, error) {
	if err := validateWebhookURL(upload.WebhookURL); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", err)
	}

	raw, err := io.ReadAll(io.LimitReader(body, uc.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("file is empty"))
	}
	if int64(len(raw)) > uc.maxUploadBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("file too large, maximum size is %d bytes", uc.maxUploadBytes))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename))
	now := uc.now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    upload.Filename,
		MimeType:    upload.MimeType,
		StoragePath: storageKey,
		SizeBytes:   int64(len(raw)),
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	job := domain.AnalysisJob{
		ID:         newJobID(),
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		WebhookURL: upload.WebhookURL,
		Status:     domain.JobPending,
		CreatedAt:  now,
	}
	if err := uc.jobs.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("store analysis job: %w", err)
	}
	if err := uc.queue.PublishAnalysisRequested(ctx, job); err != nil {
		err = fmt.Errorf("publish analysis job: %w", err)
		uc.markUnqueued(ctx, job, err)
		return nil, err
	}

	return &domain.UploadReceipt{
		Document:            doc,
		JobID:               job.ID,
		Status:              string(domain.JobProcessing),
		CreatedAt:           now,
		EstimatedCompletion: now.Add(estimateAnalysisDuration(doc.SizeBytes)),
	}, nil
}

// markUnqueued fails a job that never reached the queue so neither the job
// nor its document is left waiting for a worker.
func (uc *IngestDocumentUseCase) markUnqueued(ctx context.Context, job domain.AnalysisJob, cause error) {
	ctx = context.WithoutCancel(ctx)
	completedAt := uc.now().UTC()
	job.Status = domain.JobFailed
	job.Error = cause.Error()
	job.CompletedAt = &completedAt
	if err := uc.jobs.Put(ctx, job); err != nil {
		slog.WarnContext(ctx, "job_status_update_failed", "job_id", job.ID, "error", err)
	}
	if err := uc.repo.UpdateStatus(ctx, job.DocumentID, domain.StatusFailed, cause.Error()); err != nil {
		slog.WarnContext(ctx, "document_status_update_failed", "document_id", job.DocumentID, "error", err)
	}
}

func estimateAnalysisDuration(size int64) time.Duration {
	estimate := time.Duration(size/bytesPerEstimatedSec) * time.Second
	if estimate < minEstimatedAnalysis {
		return minEstimatedAnalysis
	}
	return estimate
}

func newJobID() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func validateWebhookURL(raw string) error {
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("webhook url must be absolute http(s): %q", raw)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
