package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/wildlife-incident-analyzer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wildlife-incident-analyzer/internal/adapter/kafka"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/adapter/mapbox"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/adapter/sqlite"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/config"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/observability"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/pipeline"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("failed to open incident store", "error", err)
		os.Exit(1)
	}

	// Place names are feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocode cache", "error", err)
			os.Exit(1)
		}
		geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox place names enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox place names disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, pipeline.NewTransformer(), store, logger, metrics, cfg.BatchSize)
	analyzer := service.NewAnalysisService(store, geocoder, cfg.Analysis, metrics, logger)
	digest := service.NewDigest(analyzer, writer, nil, metrics, logger)

	api := httpadapter.NewAPI(analyzer, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, store, api, cfg.CORSOrigins, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	if cfg.DigestSchedule != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := digest.Start(ctx, cfg.DigestSchedule); err != nil {
				logger.Error("digest error", "error", err)
			}
		}()
	} else {
		logger.Info("risk digest disabled")
	}

	logger.Info("analyzer started",
		"policy", cfg.Analysis.Policy,
		"db_path", cfg.DBPath,
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("incident store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
