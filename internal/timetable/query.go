package timetable

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/you/transit-analytics/models"
)

// Fallback labels for incomplete services in the grouped timetable.
const (
	UnknownRoute     = "Unknown Route"
	UnknownDirection = "Unknown Direction"
	UnknownTime      = "N/A"
)

// StopReader reads timetable documents. FindStop returns
// models.ErrStopNotFound for an unknown stop_id.
type StopReader interface {
	ListStops(ctx context.Context) ([]models.StopSummary, error)
	FindStop(ctx context.Context, stopID string) (*models.StopDocument, error)
}

// Service answers timetable queries over the per-stop documents.
type Service struct {
	reader StopReader
}

func NewService(reader StopReader) *Service {
	return &Service{reader: reader}
}

// Stops lists every stop, ordered by name.
func (s *Service) Stops(ctx context.Context) ([]models.StopSummary, error) {
	return s.reader.ListStops(ctx)
}

// Timetable groups every service at a stop by route long name, then
// headsign, with display times sorted as strings.
func (s *Service) Timetable(ctx context.Context, stopID string) (models.GroupedTimetable, error) {
	doc, err := s.reader.FindStop(ctx, stopID)
	if err != nil {
		return nil, err
	}

	grouped := make(models.GroupedTimetable)
	for _, svc := range doc.UpcomingServices {
		route := svc.RouteLongName
		if route == "" {
			route = UnknownRoute
		}
		headsign := UnknownDirection
		if svc.TripHeadsign != nil {
			headsign = *svc.TripHeadsign
		}
		clock := UnknownTime
		if svc.DepartureTime != "" {
			clock = models.DisplayTime(svc.DepartureTime)
		}

		if grouped[route] == nil {
			grouped[route] = make(map[string][]string)
		}
		grouped[route][headsign] = append(grouped[route][headsign], clock)
	}
	for _, directions := range grouped {
		for _, times := range directions {
			sort.Strings(times)
		}
	}
	return grouped, nil
}

// RoutesForStop returns the distinct (route short name, headsign) pairs
// served at a stop on the given scope, leaving out trips not in service.
// An unknown stop yields an empty list.
func (s *Service) RoutesForStop(ctx context.Context, stopID string, scope models.ServiceScope) ([]models.RoutePair, error) {
	doc, err := s.findOrNil(ctx, stopID)
	if err != nil || doc == nil {
		return []models.RoutePair{}, err
	}

	seen := make(map[models.RoutePair]struct{})
	pairs := []models.RoutePair{}
	for _, svc := range doc.UpcomingServices {
		if !inScope(svc, scope) || !carriesPassengers(svc) || svc.RouteShortName == "" {
			continue
		}
		pair := models.RoutePair{RouteShortName: svc.RouteShortName, TripHeadsign: *svc.TripHeadsign}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].RouteShortName != pairs[j].RouteShortName {
			return pairs[i].RouteShortName < pairs[j].RouteShortName
		}
		return pairs[i].TripHeadsign < pairs[j].TripHeadsign
	})
	return pairs, nil
}

// ArrivalsFor returns the sorted departure times of one route and
// headsign at a stop. The headsign is matched exactly, so an explicit
// request for a not-in-service headsign is honoured.
func (s *Service) ArrivalsFor(ctx context.Context, q models.ArrivalsQuery) (models.ArrivalTimes, error) {
	doc, err := s.findOrNil(ctx, q.StopID)
	if err != nil || doc == nil {
		return models.ArrivalTimes{Times: []string{}}, err
	}

	times := []string{}
	for _, svc := range doc.UpcomingServices {
		if !inScope(svc, q.Service) {
			continue
		}
		if svc.TripHeadsign == nil || *svc.TripHeadsign != q.TripHeadsign || svc.RouteShortName != q.RouteShortName {
			continue
		}
		if svc.DepartureTime != "" {
			times = append(times, models.DisplayTime(svc.DepartureTime))
		}
	}
	sort.Strings(times)
	return models.ArrivalTimes{Times: times, Count: len(times)}, nil
}

// GroupedArrivals returns the departure times at a stop grouped by
// (route_id, headsign), leaving out trips not in service.
func (s *Service) GroupedArrivals(ctx context.Context, q models.ArrivalsQuery) (*models.GroupedArrivals, error) {
	doc, err := s.findOrNil(ctx, q.StopID)
	if err != nil || doc == nil {
		return nil, err
	}

	type groupKey struct{ routeID, headsign string }
	index := make(map[groupKey]int)
	groups := []models.ArrivalGroup{}
	for _, svc := range doc.UpcomingServices {
		if !inScope(svc, q.Service) || !carriesPassengers(svc) {
			continue
		}
		key := groupKey{routeID: svc.RouteID, headsign: *svc.TripHeadsign}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, models.ArrivalGroup{
				RouteID:        svc.RouteID,
				RouteShortName: svc.RouteShortName,
				TripHeadsign:   *svc.TripHeadsign,
				Times:          []string{},
			})
		}
		if svc.DepartureTime != "" {
			groups[i].Times = append(groups[i].Times, models.DisplayTime(svc.DepartureTime))
		}
	}

	total := 0
	for i := range groups {
		sort.Strings(groups[i].Times)
		groups[i].Count = len(groups[i].Times)
		total += groups[i].Count
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.RouteShortName != b.RouteShortName {
			return a.RouteShortName < b.RouteShortName
		}
		if a.TripHeadsign != b.TripHeadsign {
			return a.TripHeadsign < b.TripHeadsign
		}
		return a.RouteID < b.RouteID
	})
	return &models.GroupedArrivals{Groups: groups, TotalCount: total}, nil
}

// findOrNil maps an unknown stop to a nil document.
func (s *Service) findOrNil(ctx context.Context, stopID string) (*models.StopDocument, error) {
	doc, err := s.reader.FindStop(ctx, stopID)
	if errors.Is(err, models.ErrStopNotFound) {
		return nil, nil
	}
	return doc, err
}

// inScope keeps services on the three weekly calendars that fall within
// the requested scope. Services on any other calendar are always dropped.
func inScope(svc models.UpcomingService, scope models.ServiceScope) bool {
	if _, ok := models.ParseServiceDay(svc.ServiceID); !ok {
		return false
	}
	return scope.Includes(svc.ServiceID)
}

func carriesPassengers(svc models.UpcomingService) bool {
	if svc.TripHeadsign == nil {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(*svc.TripHeadsign), models.NotInServiceHeadsign)
}
