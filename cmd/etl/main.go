package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/nwstraits/survey-etl/internal/adapter/attachments"
	"github.com/nwstraits/survey-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/nwstraits/survey-etl/internal/adapter/kafka"
	"github.com/nwstraits/survey-etl/internal/adapter/noaa"
	"github.com/nwstraits/survey-etl/internal/adapter/xlsx"
	"github.com/nwstraits/survey-etl/internal/config"
	"github.com/nwstraits/survey-etl/internal/domain"
	"github.com/nwstraits/survey-etl/internal/observability"
	"github.com/nwstraits/survey-etl/internal/pipeline"
	"github.com/nwstraits/survey-etl/internal/report"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tides := noaa.NewClient(cfg.NOAABaseURL, cfg.NOAAApplication, cfg.NOAATimeout, metrics, logger)
	registry := domain.NewStationRegistry(tides, logger, metrics)

	store := attachments.NewStore(cfg.AttachmentsDir, cfg.OutputDir, logger)
	if err := store.Index(); err != nil {
		return err
	}

	reader, err := xlsx.NewReader(cfg.InputXLSX, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Error("workbook close error", "error", err)
		}
	}()

	collector := pipeline.NewCollector()
	loaders := pipeline.MultiLoader{store, collector}
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	transformer := pipeline.NewTransformer(cfg.SurveyKind, cfg.StartDate, registry, tides, store, logger, metrics)
	p := pipeline.New(reader, transformer, loaders, logger, metrics, cfg.BatchSize, cfg.Workers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	return writeOutputs(ctx, cfg, collector, store, registry, logger)
}

// writeOutputs produces the county folders, the GIS worksheet and the extraction log.
func writeOutputs(ctx context.Context, cfg *config.Config, collector *pipeline.Collector, store *attachments.Store, registry *domain.StationRegistry, logger *slog.Logger) error {
	groups := collector.ByCounty()
	params := cfg.RuntimeParams()

	var content string
	switch cfg.SurveyKind {
	case domain.KindKelp:
		if err := store.CreateCountyDirs(collector.Counties(), domain.FolderSitePhotos, domain.FolderDataFiles, domain.FolderVolunteerPhotos); err != nil {
			return err
		}
		gisPath := filepath.Join(cfg.OutputDir, xlsx.GISFileName(cfg.SurveyYear))
		rows := collector.GISRows()
		if err := xlsx.WriteGISWorkbook(gisPath, rows); err != nil {
			return err
		}
		logger.Info("gis worksheet written", "path", gisPath, "rows", len(rows))

		n, err := store.CopyBeachImages()
		if err != nil {
			return fmt.Errorf("copy beach images: %w", err)
		}
		logger.Info("beach album written", "images", n)

		content = report.Kelp(ctx, params, groups, registry)
	case domain.KindAnchoring:
		if err := store.CreateCountyDirs(collector.Counties(), domain.FolderSitePhotos); err != nil {
			return err
		}
		content = report.Anchoring(params, groups)
	}

	path, err := report.Write(cfg.OutputDir, cfg.SurveyYear, content)
	if err != nil {
		return err
	}
	logger.Info("extraction complete",
		"surveys", collector.Len(),
		"counties", len(groups),
		"missing_attachments", len(store.Missing()),
		"log", path,
	)
	return nil
}
