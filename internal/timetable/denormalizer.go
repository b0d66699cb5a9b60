package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/you/transit-analytics/models"
)

// DefaultBatchSize is the number of stop_times rows read per batch.
const DefaultBatchSize = 100000

// EventBatcher pages through every trip event ordered by stop_id, then
// departure_time.
type EventBatcher interface {
	TripEventBatch(ctx context.Context, limit, offset int) ([]models.TripEvent, error)
}

// DocumentSink receives per-stop timetable documents.
type DocumentSink interface {
	// Clear removes every document and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
	EnsureIndexes(ctx context.Context) error
	// AppendServices creates missing stop documents and appends the
	// given services to existing ones.
	AppendServices(ctx context.Context, upserts []models.StopUpsert) error
}

// RunStats summarizes a denormalizer run.
type RunStats struct {
	Cleared  int64
	Batches  int
	Events   int
	Upserts  int
	Duration time.Duration
}

// Denormalizer rebuilds the per-stop timetable documents from the
// relational source.
type Denormalizer struct {
	source    EventBatcher
	sink      DocumentSink
	batchSize int
	logger    *slog.Logger
}

// NewDenormalizer creates a denormalizer. A non-positive batchSize uses
// DefaultBatchSize.
func NewDenormalizer(source EventBatcher, sink DocumentSink, batchSize int, logger *slog.Logger) *Denormalizer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Denormalizer{source: source, sink: sink, batchSize: batchSize, logger: logger}
}

// Run clears the store, ensures its indexes and loads every stop. It is
// the only safe way to rebuild: Load on its own appends to whatever is
// already stored.
func (d *Denormalizer) Run(ctx context.Context) (RunStats, error) {
	start := time.Now()

	cleared, err := d.sink.Clear(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("failed to clear timetable documents: %w", err)
	}
	d.logger.Info("cleared timetable documents", slog.Int64("deleted", cleared))

	if err := d.sink.EnsureIndexes(ctx); err != nil {
		return RunStats{}, fmt.Errorf("failed to ensure timetable indexes: %w", err)
	}

	stats, err := d.Load(ctx)
	stats.Cleared = cleared
	stats.Duration = time.Since(start)
	return stats, err
}

// Load streams every trip event in batches and appends it to its stop's
// document. A stop whose events span several batches receives one append
// per batch. Any failure aborts the run.
func (d *Denormalizer) Load(ctx context.Context) (RunStats, error) {
	var stats RunStats
	for offset := 0; ; offset += d.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		events, err := d.source.TripEventBatch(ctx, d.batchSize, offset)
		if err != nil {
			return stats, fmt.Errorf("failed to read batch at offset %d: %w", offset, err)
		}
		if len(events) == 0 {
			break
		}

		upserts := GroupByStop(events)
		if err := d.sink.AppendServices(ctx, upserts); err != nil {
			return stats, fmt.Errorf("failed to write batch at offset %d: %w", offset, err)
		}

		stats.Batches++
		stats.Events += len(events)
		stats.Upserts += len(upserts)
		d.logger.Info("batch written",
			slog.Int("batch", stats.Batches),
			slog.Int("offset", offset),
			slog.Int("rows", len(events)),
			slog.Int("stops", len(upserts)))

		if len(events) < d.batchSize {
			break
		}
	}
	return stats, nil
}

// GroupByStop turns a batch of events into one upsert per stop, in order
// of first appearance, keeping each stop's events in source order.
func GroupByStop(events []models.TripEvent) []models.StopUpsert {
	index := make(map[string]int)
	var upserts []models.StopUpsert
	for _, e := range events {
		i, ok := index[e.StopID]
		if !ok {
			i = len(upserts)
			index[e.StopID] = i
			upserts = append(upserts, models.StopUpsert{
				StopID:   e.StopID,
				StopName: e.StopName,
				StopCode: e.StopCode,
				Location: models.NewGeoPoint(e.StopLon, e.StopLat),
			})
		}
		upserts[i].Services = append(upserts[i].Services, upcomingService(e))
	}
	return upserts
}

func upcomingService(e models.TripEvent) models.UpcomingService {
	s := models.UpcomingService{
		RouteID:        e.RouteID,
		RouteShortName: e.RouteShortName,
		RouteLongName:  e.RouteLongName,
		TripID:         e.TripID,
		ServiceID:      e.ServiceID,
		TripHeadsign:   e.TripHeadsign,
	}
	if e.DepartureSeconds != nil {
		s.DepartureTime = models.FormatElapsedDays(*e.DepartureSeconds)
	}
	return s
}
