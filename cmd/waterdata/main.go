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

	"github.com/couchcryptid/water-data-pipeline/internal/adapter/artifacts"
	"github.com/couchcryptid/water-data-pipeline/internal/adapter/httpserver"
	"github.com/couchcryptid/water-data-pipeline/internal/adapter/sqlitestore"
	"github.com/couchcryptid/water-data-pipeline/internal/adapter/usgs"
	"github.com/couchcryptid/water-data-pipeline/internal/chart"
	"github.com/couchcryptid/water-data-pipeline/internal/config"
	"github.com/couchcryptid/water-data-pipeline/internal/observability"
	"github.com/couchcryptid/water-data-pipeline/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("pipeline error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	client := usgs.NewClient(cfg, logger, metrics)
	store := artifacts.NewStore(cfg.OutputDir, logger)
	renderer := chart.NewRenderer(cfg.PlotParameter1, cfg.PlotParameter2, logger)

	// SQLite archive (feature-flagged via ARCHIVE_DB_PATH).
	var archiver pipeline.Archiver
	if cfg.ArchiveDBPath != "" {
		db, err := sqlitestore.Open(cfg.ArchiveDBPath, logger)
		if err != nil {
			return fmt.Errorf("open archive db: %w", err)
		}
		defer db.Close()
		archiver = db
		logger.Info("sqlite archive enabled", "path", cfg.ArchiveDBPath)
	} else {
		logger.Info("sqlite archive disabled")
	}

	p := pipeline.New(cfg, client, store, renderer, archiver, logger, metrics, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics server (feature-flagged via HTTP_ADDR).
	var srv *httpserver.Server
	if cfg.HTTPAddr != "" {
		srv = httpserver.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	runErr := p.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	return runErr
}
