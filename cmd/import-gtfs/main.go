package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/you/transit-analytics/internal/config"
	"github.com/you/transit-analytics/internal/logging"
	"github.com/you/transit-analytics/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	zipPath := flag.String("gtfs", "data/gtfs.zip", "Path or http(s) URL of the GTFS static zip")
	flag.Parse()

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	if err := run(context.Background(), cfg, *zipPath, logger); err != nil {
		logging.LogError(logger, "gtfs import failed", err, slog.String("gtfs", *zipPath))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, zipPath string, logger *slog.Logger) error {
	store, err := repository.OpenEventSource(ctx, cfg.Relational)
	if err != nil {
		return fmt.Errorf("relational source %s unreachable: %w", cfg.Relational.Driver, err)
	}
	defer logging.CloseQuietly(store, logger, "relational_source")

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	importer, err := repository.NewImporterFor(store)
	if err != nil {
		return err
	}
	defer logging.CloseQuietly(importer, logger, "importer")

	stats, err := importer.ImportSource(ctx, zipPath)
	if err != nil {
		return err
	}

	logging.LogStep(logger, "gtfs_imported",
		slog.String("driver", store.Driver()),
		slog.String("gtfs", zipPath),
		slog.Int("stops", stats.Stops),
		slog.Int("routes", stats.Routes),
		slog.Int("trips", stats.Trips),
		slog.Int("stop_times", stats.StopTimes),
		slog.Int("warnings", stats.Warnings),
		slog.Duration("duration", stats.Duration))
	return nil
}
