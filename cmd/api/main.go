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

	"github.com/you/transit-analytics/handlers"
	"github.com/you/transit-analytics/internal/config"
	"github.com/you/transit-analytics/internal/logging"
	"github.com/you/transit-analytics/internal/reports"
	"github.com/you/transit-analytics/internal/snapshot"
	"github.com/you/transit-analytics/internal/timetable"
	"github.com/you/transit-analytics/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logging.LogError(logger, "api stopped", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	events, err := repository.OpenEventSource(connectCtx, cfg.Relational)
	if err != nil {
		return fmt.Errorf("relational source %s unreachable: %w", cfg.Relational.Driver, err)
	}
	defer logging.CloseQuietly(events, logger, "relational_source")
	logger.Info("relational source connected", slog.String("driver", events.Driver()))

	documents, err := repository.NewMongoStore(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	if errors.Is(err, repository.ErrDocumentStoreAuth) {
		return fmt.Errorf("check the MONGO_URI user, password and authSource: %w", err)
	}
	if err != nil {
		return fmt.Errorf("document store unreachable: %w", err)
	}
	defer logging.CloseQuietly(documents, logger, "document_store")

	if err := documents.EnsureNameIndex(connectCtx); err != nil {
		return err
	}
	logger.Info("document store connected",
		slog.String("database", cfg.Mongo.Database),
		slog.String("collection", cfg.Mongo.Collection))

	cache := snapshot.NewCache(cfg.SnapshotDir, logger)
	if snapshot.IsStaleOrMissing(cfg.SnapshotDir, cfg.SnapshotMaxAge(), time.Now()) {
		logger.Warn("report snapshot missing or stale, reports without a snapshot file are computed live",
			slog.String("snapshot_dir", cfg.SnapshotDir))
	}
	reportService := reports.NewService(events, cache, logger)
	router := handlers.NewRouter(handlers.RouterConfig{
		Reports:        handlers.NewReportHandler(reportService),
		Timetables:     handlers.NewTimetableHandler(timetable.NewService(documents)),
		Health:         handlers.NewHealthHandler(events, documents),
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout(),
		StaticDir:      cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP drops cached snapshot files and live results so a fresh
	// export or import is picked up.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			cache.Purge()
			reportService.Purge()
			logging.LogStep(logger, "snapshot_cache_purged", slog.String("dir", cache.Dir()))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", slog.Int("port", cfg.Port), slog.String("snapshot_dir", cfg.SnapshotDir))
		serverErr <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
