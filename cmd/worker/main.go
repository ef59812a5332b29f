package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/document-swarm/internal/bootstrap"
	"github.com/kirillkom/document-swarm/internal/config"
	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/observability/logging"
	"github.com/kirillkom/document-swarm/internal/observability/metrics"
	"github.com/kirillkom/document-swarm/internal/observability/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	service := cfg.ServiceName + "-worker"
	logger := logging.Install(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: service,
		Endpoint:    cfg.OTelEndpoint,
		Headers:     cfg.OTelHeaders,
	})
	if err != nil {
		logger.Warn("tracing_disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	workerMetrics := metrics.NewWorkerMetrics(service)
	swarmMetrics := metrics.NewSwarmMetrics(service, workerMetrics.Registry())

	app, err := bootstrap.New(ctx, cfg, swarmMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalysisRequested(ctx, func(handlerCtx context.Context, job domain.AnalysisJob) error {
		if !job.CreatedAt.IsZero() {
			workerMetrics.ObserveQueueLag(service, time.Since(job.CreatedAt))
		}
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerProcessTimeout)
		defer cancel()

		workerMetrics.StartJob()
		started := time.Now()
		_, err := app.AnalyzeUC.AnalyzeJob(processCtx, job)
		workerMetrics.FinishJob(service, time.Since(started), err)
		if err != nil {
			logger.ErrorContext(processCtx, "analysis_job_failed", "job_id", job.ID, "document_id", job.DocumentID, "error", err)
		}
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
	}
}
