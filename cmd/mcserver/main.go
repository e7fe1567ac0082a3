// Package main is the entry point for the Monte Carlo estimation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/branched-services/go-montecarlo/internal/api"
	"github.com/branched-services/go-montecarlo/internal/artifact"
	"github.com/branched-services/go-montecarlo/internal/catalog"
	"github.com/branched-services/go-montecarlo/internal/config"
	"github.com/branched-services/go-montecarlo/internal/events"
	"github.com/branched-services/go-montecarlo/internal/observability"
	"github.com/branched-services/go-montecarlo/internal/runs"
	"github.com/branched-services/go-montecarlo/pkg/health"
)

func main() {
	// Root context canceled on SIGTERM/SIGINT
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	code := 0
	if err := run(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		code = 1
	}

	os.Exit(code)
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting montecarlo service",
		"api_addr", cfg.APIAddr,
		"http_addr", cfg.HTTPAddr,
		"shapes_file", cfg.ShapesFile,
		"default_samples", cfg.DefaultSamples,
		"max_samples", cfg.MaxSamples,
		"run_timeout", cfg.RunTimeout,
		"artifacts", cfg.ArtifactsEnabled(),
		"events", cfg.EventsEnabled(),
	)

	// 1. Target catalog
	cat, err := catalog.Load(cfg.ShapesFile)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	slog.Info("catalog loaded", "targets", cat.Names())

	// 2. Artifact store (optional)
	var store artifact.Store = artifact.NopStore{}
	if cfg.ArtifactsEnabled() {
		store, err = artifact.NewMinIOStore(artifact.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		}, logger)
		if err != nil {
			return fmt.Errorf("artifact store: %w", err)
		}
	}

	// 3. Event publisher (optional)
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.EventsEnabled() {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("event publisher close error", "error", err)
		}
	}()

	// 4. Run service
	svc := runs.NewService(cat,
		runs.WithHistorySize(cfg.HistorySize),
		runs.WithDefaultSamples(cfg.DefaultSamples),
		runs.WithMaxSamples(cfg.MaxSamples),
		runs.WithProgressEvery(cfg.ProgressEvery),
		runs.WithRunTimeout(cfg.RunTimeout),
		runs.WithArtifactStore(store),
		runs.WithPublisher(publisher),
		runs.WithLogger(logger),
	)

	// 5. API server
	apiServer := api.NewServer(cfg.APIAddr, svc, logger, api.WithWriteTimeout(cfg.APIWriteTimeout()))

	// 6. Health server
	healthServer := health.NewServer(cfg.HTTPAddr, svc, logger)

	// Run all components concurrently
	errCh := make(chan error, 2)

	go func() {
		if err := apiServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	go func() {
		if err := healthServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	case err := <-errCh:
		slog.Error("component failed", "error", err)
		return err
	}

	slog.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown in reverse dependency order
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api server shutdown error", "error", err)
	}

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("health server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
