package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/document-swarm/internal/adapters/mcp"
	"github.com/kirillkom/document-swarm/internal/bootstrap"
	"github.com/kirillkom/document-swarm/internal/config"
	"github.com/kirillkom/document-swarm/internal/observability/logging"
)

const version = "0.1.0"

// The MCP server speaks over stdio, so logs go to stderr only.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.InstallWriter(os.Stderr, cfg.ServiceName+"-mcp", cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg, nil)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(mcpadapter.Dependencies{
		Swarm:                app.Swarm,
		Planner:              app.Planner,
		Jobs:                 app.Jobs,
		Analyses:             app.Analyses,
		DefaultJurisdictions: cfg.DefaultJurisdictions,
	})
	if err := server.ServeStdio(mcpadapter.NewServer(cfg.ServiceName, version, tools)); err != nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
