package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/you/transit-analytics/internal/config"
	"github.com/you/transit-analytics/internal/logging"
	"github.com/you/transit-analytics/internal/reports"
	"github.com/you/transit-analytics/internal/snapshot"
	"github.com/you/transit-analytics/models"
	"github.com/you/transit-analytics/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	outputDir := flag.String("output", cfg.SnapshotDir, "Output directory for the report CSV files")
	ifStale := flag.Bool("if-stale", false, "Only regenerate when the snapshot is missing or older than SNAPSHOT_MAX_AGE_HOURS")
	flag.Parse()

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	if *ifStale && !snapshot.IsStaleOrMissing(*outputDir, cfg.SnapshotMaxAge(), time.Now()) {
		logger.Info("snapshot is fresh, skipping export", slog.String("dir", *outputDir))
		return
	}
	if err := run(context.Background(), cfg, *outputDir, logger); err != nil {
		logging.LogError(logger, "report export failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, outputDir string, logger *slog.Logger) error {
	start := time.Now()

	source, err := repository.OpenEventSource(ctx, cfg.Relational)
	if err != nil {
		return fmt.Errorf("relational source %s unreachable: %w", cfg.Relational.Driver, err)
	}
	defer logging.CloseQuietly(source, logger, "relational_source")

	events, err := source.TripEvents(ctx, models.Combined())
	if err != nil {
		return err
	}
	logger.Info("trip events extracted", slog.Int("rows", len(events)))

	manifest, err := snapshot.Write(outputDir, reports.BuildTables(events), time.Now())
	if err != nil {
		return err
	}

	attrs := []slog.Attr{
		logging.RunID(manifest.RunID),
		slog.String("dir", outputDir),
		slog.Duration("duration", time.Since(start)),
	}
	for file, rows := range manifest.Rows {
		attrs = append(attrs, slog.Int(file, rows))
	}
	logging.LogStep(logger, "snapshot_written", attrs...)
	return nil
}
