package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/you/transit-analytics/internal/config"
	"github.com/you/transit-analytics/internal/logging"
	"github.com/you/transit-analytics/internal/timetable"
	"github.com/you/transit-analytics/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	batchSize := flag.Int("batch-size", cfg.ChunkSize, "stop_times rows read per batch")
	flag.Parse()

	logger := logging.New(cfg.LogFormat, cfg.LogLevel).With(logging.RunID(uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *batchSize, logger); err != nil {
		logging.LogError(logger, "denormalizer run aborted", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, batchSize int, logger *slog.Logger) error {
	source, err := repository.OpenEventSource(ctx, cfg.Relational)
	if err != nil {
		return fmt.Errorf("relational source %s unreachable: %w", cfg.Relational.Driver, err)
	}
	defer logging.CloseQuietly(source, logger, "relational_source")

	sink, err := repository.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if errors.Is(err, repository.ErrDocumentStoreAuth) {
		return fmt.Errorf("check the MONGO_URI user, password and authSource: %w", err)
	}
	if err != nil {
		return fmt.Errorf("document store unreachable: %w", err)
	}
	defer logging.CloseQuietly(sink, logger, "document_store")

	logger.Info("denormalizer starting",
		slog.String("driver", source.Driver()),
		slog.String("collection", cfg.Mongo.Collection),
		slog.Int("batch_size", batchSize))

	stats, err := timetable.NewDenormalizer(source, sink, batchSize, logger).Run(ctx)
	if err != nil {
		return err
	}

	logging.LogStep(logger, "denormalizer_finished",
		slog.Int64("cleared", stats.Cleared),
		slog.Int("batches", stats.Batches),
		slog.Int("rows", stats.Events),
		slog.Int("stop_writes", stats.Upserts),
		slog.Duration("duration", stats.Duration))
	return nil
}
