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

	httpadapter "github.com/kirillkom/document-swarm/internal/adapters/http"
	"github.com/kirillkom/document-swarm/internal/bootstrap"
	"github.com/kirillkom/document-swarm/internal/config"
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
	logger := logging.Install(cfg.ServiceName+"-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: cfg.ServiceName + "-api",
		Endpoint:    cfg.OTelEndpoint,
		Headers:     cfg.OTelHeaders,
	})
	if err != nil {
		logger.Warn("tracing_disabled", "error", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(cfg.ServiceName + "-api")
	swarmMetrics := metrics.NewSwarmMetrics(cfg.ServiceName+"-api", httpMetrics.Registry())

	app, err := bootstrap.New(ctx, cfg, swarmMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router, err := httpadapter.NewRouter(cfg, httpadapter.Dependencies{
		Ingest:   app.IngestUC,
		Swarm:    app.Swarm,
		Planner:  app.Planner,
		Docs:     app.Docs,
		Analyses: app.Analyses,
		Jobs:     app.Jobs,
		Webhooks: app.Webhooks,
		Metrics:  httpMetrics,
	})
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		// Synchronous swarm runs may take up to the agent timeout.
		WriteTimeout: cfg.AgentTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err)
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracing_shutdown_failed", "error", err)
	}
}
