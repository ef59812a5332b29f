package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/ports"
)

type AnalyzeOptions struct {
	// DefaultContext applies when a job carries no caller context of its own.
	DefaultContext domain.AnalysisContext
	// Projector is optional.
	Projector ports.ActionPlanProjector
	// Retrier re-runs the pipeline on temporary failures; nil means one attempt.
	Retrier ports.JobRetrier
	Now     func() time.Time
}

// AnalyzeDocumentUseCase runs a queued analysis job: load content, run the
// swarm, synthesize the plan, persist and notify.
type AnalyzeDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	swarm     ports.SwarmRunner
	planner   ports.ActionPlanSynthesizer
	analyses  ports.AnalysisRepository
	jobs      ports.JobStore
	notifier  ports.WebhookNotifier

	projector      ports.ActionPlanProjector
	retrier        ports.JobRetrier
	defaultContext domain.AnalysisContext
	now            func() time.Time
}

func NewAnalyzeDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	swarm ports.SwarmRunner,
	planner ports.ActionPlanSynthesizer,
	analyses ports.AnalysisRepository,
	jobs ports.JobStore,
	notifier ports.WebhookNotifier,
	opts AnalyzeOptions,
) *AnalyzeDocumentUseCase {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Retrier == nil {
		opts.Retrier = singleAttempt{}
	}
	return &AnalyzeDocumentUseCase{
		repo:           repo,
		extractor:      extractor,
		swarm:          swarm,
		planner:        planner,
		analyses:       analyses,
		jobs:           jobs,
		notifier:       notifier,
		projector:      opts.Projector,
		retrier:        opts.Retrier,
		defaultContext: opts.DefaultContext,
		now:            opts.Now,
	}
}

func (uc *AnalyzeDocumentUseCase) AnalyzeJob(ctx context.Context, job domain.AnalysisJob) (*domain.StoredAnalysis, error) {
	job.Status = domain.JobProcessing
	job.Attempts = 1
	if err := uc.jobs.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("set job status=processing: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, job.DocumentID, domain.StatusProcessing, ""); err != nil {
		return nil, uc.fail(ctx, job, fmt.Errorf("set status=processing: %w", err))
	}

	var analysis *domain.StoredAnalysis
	maxAttempts := uc.retrier.MaxAttempts()
	attempt := 0
	err := uc.retrier.Retry(ctx, "analysis_job", func(attemptCtx context.Context) error {
		attempt++
		if attempt > 1 {
			job.Attempts = attempt
			slog.WarnContext(attemptCtx, "analysis_job_retry", "job_id", job.ID, "document_id", job.DocumentID, "attempt", attempt)
			if err := uc.jobs.Put(attemptCtx, job); err != nil {
				slog.WarnContext(attemptCtx, "job_status_update_failed", "job_id", job.ID, "error", err)
			}
		}
		var err error
		analysis, err = uc.pipeline(attemptCtx, job, attempt >= maxAttempts)
		return err
	})
	if err != nil {
		if markErr := uc.repo.UpdateStatus(ctx, job.DocumentID, domain.StatusFailed, err.Error()); markErr != nil {
			err = fmt.Errorf("%w; mark failed status: %v", err, markErr)
		}
		return nil, uc.fail(ctx, job, err)
	}

	if err := uc.repo.UpdateStatus(ctx, job.DocumentID, domain.StatusAnalyzed, ""); err != nil {
		return nil, uc.fail(ctx, job, fmt.Errorf("set status=analyzed: %w", err))
	}

	completedAt := uc.now().UTC()
	job.Status = domain.JobCompleted
	job.CompletedAt = &completedAt
	if err := uc.jobs.Put(ctx, job); err != nil {
		slog.WarnContext(ctx, "job_status_update_failed", "job_id", job.ID, "error", err)
	}

	uc.notifier.Notify(ctx, job, domain.EventAnalysisCompleted, completedEventData(job, analysis))
	return analysis, nil
}

// pipeline runs one attempt. A swarm where every agent failed is retried
// while attempts remain; the last attempt keeps it as a degraded result.
func (uc *AnalyzeDocumentUseCase) pipeline(ctx context.Context, job domain.AnalysisJob, lastAttempt bool) (*domain.StoredAnalysis, error) {
	doc, err := uc.repo.GetByID(ctx, job.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	swarm, err := uc.swarm.RunSwarm(ctx, domain.AnalysisRequest{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Content:    text,
		Context:    uc.defaultContext,
	})
	if err != nil {
		return nil, fmt.Errorf("run swarm: %w", err)
	}
	if swarm.Status == domain.SwarmFailed && !lastAttempt {
		return nil, domain.WrapError(domain.ErrTemporary, "run swarm", errors.New("every agent failed"))
	}

	plan, err := uc.planner.Synthesize(swarm.SynthesisInput())
	if err != nil {
		return nil, fmt.Errorf("synthesize action plan: %w", err)
	}

	analysis := &domain.StoredAnalysis{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Swarm:      *swarm,
		ActionPlan: *plan,
		CreatedAt:  uc.now().UTC(),
	}
	if err := uc.analyses.Save(ctx, analysis); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	if uc.projector != nil {
		if err := uc.projector.Project(ctx, doc, plan); err != nil {
			slog.WarnContext(ctx, "action_plan_projection_failed", "document_id", doc.ID, "error", err)
		}
	}
	return analysis, nil
}

func (uc *AnalyzeDocumentUseCase) fail(ctx context.Context, job domain.AnalysisJob, cause error) error {
	completedAt := uc.now().UTC()
	job.Status = domain.JobFailed
	job.Error = cause.Error()
	job.CompletedAt = &completedAt
	if err := uc.jobs.Put(ctx, job); err != nil {
		slog.WarnContext(ctx, "job_status_update_failed", "job_id", job.ID, "error", err)
	}
	uc.notifier.Notify(ctx, job, domain.EventAnalysisFailed, map[string]any{
		"job_id":      job.ID,
		"document_id": job.DocumentID,
		"status":      job.Status,
		"error":       job.Error,
	})
	return cause
}

func completedEventData(job domain.AnalysisJob, analysis *domain.StoredAnalysis) map[string]any {
	return map[string]any{
		"job_id":       job.ID,
		"document_id":  analysis.DocumentID,
		"filename":     job.Filename,
		"status":       job.Status,
		"swarm_status": analysis.Swarm.Status,
		"agents":       analysis.Swarm.Reports(),
		"action_plan":  analysis.ActionPlan,
	}
}

type singleAttempt struct{}

func (singleAttempt) MaxAttempts() int { return 1 }

func (singleAttempt) Retry(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}
