package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-askdb/pkg/audit"
	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
	"github.com/ekaya-inc/ekaya-askdb/pkg/handlers"
	"github.com/ekaya-inc/ekaya-askdb/pkg/llm"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/mcp"
	"github.com/ekaya-inc/ekaya-askdb/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-askdb/pkg/middleware"
	"github.com/ekaya-inc/ekaya-askdb/pkg/observability"
	"github.com/ekaya-inc/ekaya-askdb/pkg/prompts"
	"github.com/ekaya-inc/ekaya-askdb/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("db_type", cfg.Database.Type),
		zap.String("db", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTL: cfg.Database.ConnTTL,
	}, logger)
	defer connMgr.Close()

	adapter, err := datasource.NewAdapter(ctx, datasource.ParamsFromConfig(cfg.Database), connMgr, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer adapter.Close()

	completer, err := llm.NewCompleter(cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create model client", zap.Error(err))
	}

	glossary := prompts.DefaultGlossary()
	if cfg.Prompt.GlossaryFile != "" {
		glossary, err = prompts.LoadGlossary(cfg.Prompt.GlossaryFile)
		if err != nil {
			logger.Fatal("Failed to load glossary", zap.String("path", cfg.Prompt.GlossaryFile), zap.Error(err))
		}
	}

	schemaService := services.NewSchemaService(adapter, adapter.Dialect(), cfg.Schema, logger)
	pipeline := services.NewQueryPipeline(
		schemaService,
		completer,
		services.NewGuardedExecutor(adapter, logger),
		audit.NewSecurityAuditor(logger),
		services.PipelineConfig{
			Dialect:      adapter.Dialect(),
			DefaultTable: cfg.Prompt.DefaultTable,
			Tables:       cfg.Prompt.Tables,
			Glossary:     glossary,
			MaxRetries:   cfg.LLM.MaxRetries,
		},
		logger,
	)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, adapter, connMgr, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(pipeline, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(schemaService, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", observability.Handler())

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer("ekaya-askdb", cfg.Version, logger)
		mcpServer.RegisterAll(cfg.Version,
			&tools.AskToolDeps{Answerer: pipeline, Logger: logger},
			&tools.SchemaToolDeps{SchemaService: schemaService, Logger: logger},
		)
		mcpServer.RegisterRoutes(mux)
	}

	handler := middleware.RequestID(
		middleware.RequestLogger(logger)(
			observability.MetricsMiddleware(mux),
		),
	)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Warm the schema cache; a failure here is retried on the first question.
	go func() {
		if _, err := schemaService.GetSchemaText(ctx); err != nil {
			logger.Warn("Initial schema introspection failed", zap.Error(err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-askdb",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}
