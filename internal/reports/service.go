package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"

	"github.com/you/transit-analytics/internal/logging"
	"github.com/you/transit-analytics/models"
)

// liveEntries bounds the memoized live results: four reports times four
// scopes.
const liveEntries = 16

// ErrNoSource is returned when a report has neither a snapshot nor a live
// source to be computed from.
var ErrNoSource = errors.New("no report source configured")

// EventSource reads trip events from the relational store.
type EventSource interface {
	TripEvents(ctx context.Context, scope models.ServiceScope) ([]models.TripEvent, error)
}

// Snapshot serves precomputed report rows. Each method reports false when
// its file is not present, in which case the report is computed live.
type Snapshot interface {
	BusiestStops() ([]models.BusiestStopRow, bool, error)
	RouteDurations() ([]models.RouteDurationRow, bool, error)
	TransferPoints() ([]models.TransferPointRow, bool, error)
	HourlyFrequency() ([]models.HourlyFrequencyRow, bool, error)
}

// Service answers the four report queries, from the snapshot when one is
// available and from the live source otherwise. Live rows are kept per
// report and scope until Purge, and concurrent misses share one query.
type Service struct {
	events   EventSource
	snapshot Snapshot
	logger   *slog.Logger

	live     gcache.Cache
	inflight singleflight.Group
}

// NewService creates a report service. Either source may be nil.
func NewService(events EventSource, snapshot Snapshot, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		events:   events,
		snapshot: snapshot,
		logger:   logger,
		live:     gcache.New(liveEntries).LRU().Build(),
	}
}

// Purge drops every memoized live result.
func (s *Service) Purge() {
	s.live.Purge()
}

// BusiestStops answers Q1.
func (s *Service) BusiestStops(ctx context.Context, scope models.ServiceScope, limit models.Limit) ([]models.BusiestStop, error) {
	rows, err := fromSnapshotOrLive(ctx, s, "q1", scope,
		func(snap Snapshot) ([]models.BusiestStopRow, bool, error) { return snap.BusiestStops() },
		func(events []models.TripEvent) []models.BusiestStopRow { return BuildBusiestStops(events, scope) })
	if err != nil {
		return nil, err
	}
	return RankBusiestStops(rows, scope, limit), nil
}

// RouteDurations answers Q2.
func (s *Service) RouteDurations(ctx context.Context, scope models.ServiceScope, limit models.Limit) (models.DurationReport, error) {
	rows, err := fromSnapshotOrLive(ctx, s, "q2", scope,
		func(snap Snapshot) ([]models.RouteDurationRow, bool, error) { return snap.RouteDurations() },
		BuildRouteDurations)
	if err != nil {
		return models.DurationReport{}, err
	}
	return RankRouteDurations(rows, scope, limit), nil
}

// TransferPoints answers Q3.
func (s *Service) TransferPoints(ctx context.Context, scope models.ServiceScope, limit models.Limit) ([]models.TransferPoint, error) {
	rows, err := fromSnapshotOrLive(ctx, s, "q3", scope,
		func(snap Snapshot) ([]models.TransferPointRow, bool, error) { return snap.TransferPoints() },
		func(events []models.TripEvent) []models.TransferPointRow { return BuildTransferPoints(events, scope) })
	if err != nil {
		return nil, err
	}
	return RankTransferPoints(rows, scope, limit), nil
}

// HourlyFrequency answers Q4.
func (s *Service) HourlyFrequency(ctx context.Context, scope models.ServiceScope, limit models.Limit) (models.FrequencyReport, error) {
	rows, err := fromSnapshotOrLive(ctx, s, "q4", scope,
		func(snap Snapshot) ([]models.HourlyFrequencyRow, bool, error) { return snap.HourlyFrequency() },
		BuildHourlyFrequency)
	if err != nil {
		return models.FrequencyReport{}, err
	}
	return RankHourlyFrequency(rows, scope, limit), nil
}

// fromSnapshotOrLive returns the rows of one report. Live rows are built
// from the scope's events only, which is all the rankers read, and are
// memoized under the report and scope.
func fromSnapshotOrLive[R any](
	ctx context.Context,
	s *Service,
	report string,
	scope models.ServiceScope,
	cached func(Snapshot) ([]R, bool, error),
	build func([]models.TripEvent) []R,
) ([]R, error) {
	if s.snapshot != nil {
		rows, ok, err := cached(s.snapshot)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s snapshot: %w", report, err)
		}
		if ok {
			s.logger.Debug("report served from snapshot", logging.Report(report, scope))
			return rows, nil
		}
	}
	if s.events == nil {
		return nil, ErrNoSource
	}

	key := report + "/" + scope.Label()
	if v, err := s.live.Get(key); err == nil {
		if rows, ok := v.([]R); ok {
			return rows, nil
		}
	}

	v, err, _ := s.inflight.Do(key, func() (interface{}, error) {
		events, err := s.events.TripEvents(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to query trip events for %s: %w", report, err)
		}
		rows := build(events)
		s.logger.Debug("report computed live",
			logging.Report(report, scope),
			slog.Int("events", len(events)),
			slog.Int("rows", len(rows)))
		if err := s.live.Set(key, rows); err != nil {
			return nil, fmt.Errorf("failed to memoize %s: %w", report, err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]R), nil
}
