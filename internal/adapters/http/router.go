package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/document-swarm/internal/config"
	"github.com/kirillkom/document-swarm/internal/core/ports"
	"github.com/kirillkom/document-swarm/internal/observability/metrics"
)

// Dependencies groups the use cases and read models served over HTTP.
// Metrics is optional.
type Dependencies struct {
	Ingest   ports.DocumentIngestor
	Swarm    ports.SwarmRunner
	Planner  ports.ActionPlanSynthesizer
	Docs     ports.DocumentReader
	Analyses ports.AnalysisRepository
	Jobs     ports.JobStore
	Webhooks ports.WebhookRegistry
	Metrics  *metrics.HTTPServerMetrics
}

type Router struct {
	deps      Dependencies
	validator *bodyValidator

	serviceName          string
	maxUploadBytes       int64
	defaultJurisdictions []string
	apiKeys              []string
	rateLimitRPS         float64
	rateLimitBurst       int
	maxInFlight          int
	backpressureWait     time.Duration
	now                  func() time.Time
}

func NewRouter(cfg config.Config, deps Dependencies) (*Router, error) {
	validator, err := newBodyValidator()
	if err != nil {
		return nil, err
	}
	return &Router{
		deps:                 deps,
		validator:            validator,
		serviceName:          cfg.ServiceName,
		maxUploadBytes:       cfg.MaxUploadBytes,
		defaultJurisdictions: cfg.DefaultJurisdictions,
		apiKeys:              cfg.APIKeys,
		rateLimitRPS:         cfg.APIRateLimitRPS,
		rateLimitBurst:       cfg.APIRateLimitBurst,
		maxInFlight:          cfg.APIMaxInFlight,
		backpressureWait:     cfg.APIBackpressureWait,
		now:                  time.Now,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{document_id}", rt.getDocument)
	mux.HandleFunc("GET /v1/documents/{document_id}/analysis", rt.getDocumentAnalysis)
	mux.HandleFunc("GET /v1/jobs/{job_id}", rt.getJob)

	mux.HandleFunc("POST /v1/webhooks", rt.createWebhook)
	mux.HandleFunc("GET /v1/webhooks/{webhook_id}", rt.getWebhook)
	mux.HandleFunc("DELETE /v1/webhooks/{webhook_id}", rt.deleteWebhook)

	mux.HandleFunc("POST /v1/swarm/run", rt.runSwarm)
	mux.HandleFunc("POST /v1/action-plans", rt.synthesizeActionPlan)

	var handler http.Handler = mux
	handler = apiKeyMiddleware(handler, rt.apiKeys, rt.reject)
	handler = backpressureWithReject(handler, rt.maxInFlight, rt.backpressureWait, rt.reject)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.reject)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(rt.serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) reject(reason string) {
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRejected(rt.serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   rt.serviceName,
		"timestamp": rt.now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
