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

	"github.com/apresai/promptpatterns/internal/config"
	"github.com/apresai/promptpatterns/internal/mcpserver"
	"github.com/apresai/promptpatterns/internal/observability"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(); err != nil {
		observability.InitLogger(os.Stderr, slog.LevelInfo).Error("Failed to read .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(config.NewViper())
	if err != nil {
		observability.InitLogger(os.Stderr, slog.LevelInfo).Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.InitLogger(os.Stderr, cfg.Level())
	logger.Info("Prompt patterns MCP server starting...", "version", version, "provider", cfg.Provider, "model", cfg.ActiveModel())

	shutdown, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "promptpatterns-mcp", version)
	if err != nil {
		logger.Warn("Failed to init tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("Tracer shutdown error", "error", err)
			}
		}()
	}

	if cfg.NeedsSecrets() {
		sm, err := config.NewSecretsClient(ctx, cfg.Region)
		if err != nil {
			logger.Error("Failed to create secrets client", "error", err)
			os.Exit(1)
		}
		if err := cfg.LoadSecrets(ctx, sm, logger); err != nil {
			logger.Error("Failed to load secrets", "error", err)
			os.Exit(1)
		}
	}

	srv := mcpserver.New(mcpserver.ConfigFrom(cfg, version), cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received, waiting for in-flight calls...")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 8*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
		logger.Info("Shutdown complete")
	}
}
