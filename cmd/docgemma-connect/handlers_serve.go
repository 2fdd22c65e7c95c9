package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/galinilin/docgemma-connect/internal/config"
	"github.com/galinilin/docgemma-connect/internal/graph"
	"github.com/galinilin/docgemma-connect/internal/model"
	"github.com/galinilin/docgemma-connect/internal/nodes"
	"github.com/galinilin/docgemma-connect/internal/observability"
	"github.com/galinilin/docgemma-connect/internal/runner"
	"github.com/galinilin/docgemma-connect/internal/sessions"
	"github.com/galinilin/docgemma-connect/internal/tools"
	"github.com/galinilin/docgemma-connect/internal/tools/clinical"
)

// runServe implements the serve command logic: configuration loading,
// dependency wiring, and graceful shutdown.
func runServe(ctx context.Context, configPath string, debug bool) error {
	if debug {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	slog.Info("starting docgemma-connect",
		"version", version,
		"commit", commit,
		"config", configPath,
		"debug", debug,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics()

	store, err := buildSessionStore(cfg.Sessions)
	if err != nil {
		return fmt.Errorf("failed to build session store: %w", err)
	}

	adapter, err := buildModelAdapter(cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to build model adapter: %w", err)
	}

	registry := tools.NewRegistry()
	clinical.RegisterAll(registry)

	graphCfg := graph.Config{
		MaxToolIterations: cfg.Graph.MaxToolIterations,
		ApprovalGating:    *cfg.Graph.ApprovalGating,
	}
	g := nodes.Build(graphCfg, nodes.Deps{
		Adapter:           adapter,
		Registry:          registry,
		MaxToolIterations: graphCfg.MaxToolIterations,
	})

	agentRunner := runner.New(g, store)

	srv := newServer(serverConfig{
		Store:   store,
		Runner:  agentRunner,
		Registry: registry,
		Logger:  logger,
		Metrics: metrics,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("docgemma-connect listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	slog.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("docgemma-connect stopped gracefully")
	return nil
}

// buildSessionStore constructs the configured backing store. Per-session
// write serialization (spec §5) is the store's own concern: FileStore
// locks internally via SessionLocker, and MemoryStore's single mutex is
// sufficient for its in-process use.
func buildSessionStore(cfg config.SessionsConfig) (sessions.Store, error) {
	switch cfg.Backend {
	case "file":
		return sessions.NewFileStore(cfg.DataDir)
	default:
		return sessions.NewMemoryStore(), nil
	}
}

func buildModelAdapter(cfg config.ModelConfig) (model.Adapter, error) {
	switch cfg.Provider {
	case "fake":
		return model.NewFakeAdapter(), nil
	default:
		return model.NewAnthropicAdapter(model.AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.DefaultModel,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   cfg.RetryDelay,
		})
	}
}
