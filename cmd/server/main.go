package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/bousai-map/internal/adapter/httpadapter"
	"github.com/couchcryptid/bousai-map/internal/adapter/xlsx"
	"github.com/couchcryptid/bousai-map/internal/config"
	"github.com/couchcryptid/bousai-map/internal/observability"
	"github.com/couchcryptid/bousai-map/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	loader := xlsx.NewLoader(cfg.DataFile, logger)
	p := pipeline.New(loader, cfg.Columns, logger, metrics, nil)

	// The source is read per request, so a missing file only fails readiness.
	if err := loader.CheckSource(context.Background()); err != nil {
		logger.Warn("data file not available at startup", "path", cfg.DataFile, "error", err)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, cfg.AllowedOrigins, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "data_file", cfg.DataFile)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
