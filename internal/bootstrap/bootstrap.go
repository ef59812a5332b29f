package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-swarm/internal/config"
	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/ports"
	"github.com/kirillkom/document-swarm/internal/core/usecase"
	"github.com/kirillkom/document-swarm/internal/infrastructure/analyzer"
	"github.com/kirillkom/document-swarm/internal/infrastructure/extractor"
	graph "github.com/kirillkom/document-swarm/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/document-swarm/internal/infrastructure/jobstore/redis"
	"github.com/kirillkom/document-swarm/internal/infrastructure/llm"
	"github.com/kirillkom/document-swarm/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-swarm/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/document-swarm/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-swarm/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-swarm/internal/infrastructure/resilience"
	"github.com/kirillkom/document-swarm/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-swarm/internal/infrastructure/webhook"
	"github.com/kirillkom/document-swarm/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Docs     ports.DocumentRepository
	Analyses ports.AnalysisRepository
	Jobs     ports.JobStore

	IngestUC  ports.DocumentIngestor
	AnalyzeUC ports.DocumentAnalyzer
	Swarm     ports.SwarmRunner
	Planner   ports.ActionPlanSynthesizer
	Webhooks  ports.WebhookRegistry

	closeFns []func()
}

// New wires every adapter. swarmMetrics is optional.
func New(ctx context.Context, cfg config.Config, swarmMetrics *metrics.SwarmMetrics) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.onClose(func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	analyses := postgres.NewAnalysisRepository(db)
	hooks := postgres.NewWebhookRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		DrainTimeout:       cfg.WorkerProcessTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	app.onClose(queue.Close)

	redisClient, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init job store: %w", err)
	}
	app.onClose(func() { _ = redisClient.Close() })
	jobs := redis.NewJobStore(redisClient, cfg.JobTTL)

	completer, err := newCompleter(cfg)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}
	units := analyzer.New(completer, analyzer.Options{MaxContentChars: cfg.LLMMaxChars})

	var (
		swarmObserver usecase.SwarmObserver
		planner       ports.ActionPlanSynthesizer = usecase.NewActionPlanSynthesizer()
		webhookOpts                               = webhook.Options{
			Timeout:    cfg.WebhookTimeout,
			MaxRetries: cfg.WebhookMaxRetries,
			RetryDelay: cfg.WebhookRetryDelay,
		}
	)
	if swarmMetrics != nil {
		swarmObserver = swarmMetrics
		planner = observedPlanner{next: planner, metrics: swarmMetrics}
		webhookOpts.Observer = swarmMetrics
	}

	swarm := usecase.NewSwarmCoordinator(units, units, units, units, usecase.SwarmOptions{
		AgentTimeout: cfg.AgentTimeout,
		Observer:     swarmObserver,
	})

	analyzeOpts := usecase.AnalyzeOptions{
		DefaultContext: domain.AnalysisContext{Jurisdictions: cfg.DefaultJurisdictions},
		Retrier:        resilience.NewJobRetrier(cfg.JobMaxAttempts, cfg.JobRetryBackoff),
	}
	if projector := connectProjector(ctx, cfg, app); projector != nil {
		analyzeOpts.Projector = projector
	}

	app.Queue = queue
	app.Docs = docs
	app.Analyses = analyses
	app.Jobs = jobs
	app.Swarm = swarm
	app.Planner = planner
	app.Webhooks = usecase.NewWebhookRegistryUseCase(hooks, nil)
	app.IngestUC = usecase.NewIngestDocumentUseCase(docs, storage, jobs, queue, usecase.IngestOptions{
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	app.AnalyzeUC = usecase.NewAnalyzeDocumentUseCase(
		docs,
		extractor.New(storage, cfg.MaxUploadBytes),
		swarm,
		planner,
		analyses,
		jobs,
		webhook.NewDispatcher(hooks, webhookOpts),
		analyzeOpts,
	)

	ok = true
	return app, nil
}

func newCompleter(cfg config.Config) (llm.Completer, error) {
	executor := resilience.NewExecutor(resilience.AnalyzerConfig(cfg.LLMRetryMax, cfg.LLMRetryBackoff, cfg.LLMTimeout))
	switch cfg.LLMProvider {
	case llm.ProviderOpenAI:
		return openaicompat.New(openaicompat.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}, executor)
	case llm.ProviderOllama, "":
		return ollama.New(cfg.OllamaURL, cfg.OllamaModel, executor), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

// connectProjector is best effort: the graph mirror is optional and an
// unreachable Neo4j must not keep the service from starting.
func connectProjector(ctx context.Context, cfg config.Config, app *App) ports.ActionPlanProjector {
	if cfg.Neo4jURI == "" {
		return nil
	}
	driver, err := graph.Connect(ctx, graph.Config{
		URI:      cfg.Neo4jURI,
		Username: cfg.Neo4jUser,
		Password: cfg.Neo4jPassword,
		Database: cfg.Neo4jDatabase,
	})
	if err != nil {
		slog.WarnContext(ctx, "neo4j_unavailable", "error", err)
		return nil
	}
	app.onClose(func() { _ = driver.Close(context.Background()) })

	projector := graph.NewProjector(driver, cfg.Neo4jDatabase)
	if err := projector.EnsureSchema(ctx); err != nil {
		slog.WarnContext(ctx, "neo4j_schema_failed", "error", err)
	}
	return projector
}

func (a *App) onClose(fn func()) {
	a.closeFns = append(a.closeFns, fn)
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

type observedPlanner struct {
	next    ports.ActionPlanSynthesizer
	metrics *metrics.SwarmMetrics
}

func (p observedPlanner) Synthesize(input domain.SynthesisInput) (*domain.ActionPlan, error) {
	plan, err := p.next.Synthesize(input)
	if err == nil {
		p.metrics.ObserveActionPlan(plan)
	}
	return plan, err
}
