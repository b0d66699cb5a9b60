package reports

import (
	"sort"

	"github.com/you/transit-analytics/internal/metrics"
	"github.com/you/transit-analytics/models"
)

const (
	// Trips this short or shorter are treated as data errors and left out of Q2.
	minTripDurationSeconds = 60
	minTransferRoutes      = 2
)

// BuildTables computes every report table for every scope from the full
// set of trip events. The combined-scope rows of the stop reports are
// grouped over the union of all events; the combined rows of the route
// reports are recombined from the per-service rows.
func BuildTables(events []models.TripEvent) models.ReportTables {
	var tables models.ReportTables
	for _, scope := range models.ReportScopes() {
		tables.BusiestStops = append(tables.BusiestStops, BuildBusiestStops(events, scope)...)
		tables.TransferPoints = append(tables.TransferPoints, BuildTransferPoints(events, scope)...)
	}
	tables.RouteDurations = BuildRouteDurations(events)
	tables.HourlyFrequency = BuildHourlyFrequency(events)
	return tables
}

type stopActivity struct {
	first  models.TripEvent
	events int
	routes map[string]struct{}
}

// groupByStop groups the events of a scope by stop_id, returning the
// groups in stop_id order.
func groupByStop(events []models.TripEvent, scope models.ServiceScope) []*stopActivity {
	byStop := make(map[string]*stopActivity)
	for _, e := range events {
		if !scope.Includes(e.ServiceID) {
			continue
		}
		a, ok := byStop[e.StopID]
		if !ok {
			a = &stopActivity{first: e, routes: make(map[string]struct{})}
			byStop[e.StopID] = a
		}
		a.events++
		a.routes[e.RouteID] = struct{}{}
	}

	groups := make([]*stopActivity, 0, len(byStop))
	for _, a := range byStop {
		groups = append(groups, a)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].first.StopID < groups[j].first.StopID
	})
	return groups
}

// BuildBusiestStops computes Q1 rows for one scope.
func BuildBusiestStops(events []models.TripEvent, scope models.ServiceScope) []models.BusiestStopRow {
	groups := groupByStop(events, scope)
	rows := make([]models.BusiestStopRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, models.BusiestStopRow{
			Scope:           scope,
			StopID:          g.first.StopID,
			StopCode:        g.first.StopCode,
			StopName:        g.first.StopName,
			StopLat:         g.first.StopLat,
			StopLon:         g.first.StopLon,
			TotalTripEvents: g.events,
			NumUniqueRoutes: len(g.routes),
		})
	}
	return rows
}

// BuildTransferPoints computes Q3 rows for one scope, keeping only stops
// served by at least two distinct routes.
func BuildTransferPoints(events []models.TripEvent, scope models.ServiceScope) []models.TransferPointRow {
	var rows []models.TransferPointRow
	for _, g := range groupByStop(events, scope) {
		if len(g.routes) < minTransferRoutes {
			continue
		}
		rows = append(rows, models.TransferPointRow{
			Scope:           scope,
			StopID:          g.first.StopID,
			StopCode:        g.first.StopCode,
			StopName:        g.first.StopName,
			StopLat:         g.first.StopLat,
			StopLon:         g.first.StopLon,
			NumUniqueRoutes: len(g.routes),
		})
	}
	return rows
}

// tripSpan collects the extent of one trip across its stop times.
type tripSpan struct {
	route     models.RouteKey
	serviceID string
	firstDep  *int
	lastArr   *int
	minDist   *float64
	maxDist   *float64
}

func (t *tripSpan) add(e models.TripEvent) {
	if e.DepartureSeconds != nil && (t.firstDep == nil || *e.DepartureSeconds < *t.firstDep) {
		v := *e.DepartureSeconds
		t.firstDep = &v
	}
	if e.ArrivalSeconds != nil && (t.lastArr == nil || *e.ArrivalSeconds > *t.lastArr) {
		v := *e.ArrivalSeconds
		t.lastArr = &v
	}
	if d := e.ShapeDistTraveled; d != nil {
		if t.minDist == nil || *d < *t.minDist {
			v := *d
			t.minDist = &v
		}
		if t.maxDist == nil || *d > *t.maxDist {
			v := *d
			t.maxDist = &v
		}
	}
}

// duration returns the trip duration in seconds and whether it is known.
func (t *tripSpan) duration() (int, bool) {
	if t.firstDep == nil || t.lastArr == nil {
		return 0, false
	}
	return *t.lastArr - *t.firstDep, true
}

// distance returns the trip distance and whether any of its stop times
// carried shape_dist_traveled.
func (t *tripSpan) distance() (float64, bool) {
	if t.minDist == nil {
		return 0, false
	}
	return *t.maxDist - *t.minDist, true
}

type routeService struct {
	route models.RouteKey
	day   models.ServiceDay
}

type durationAgg struct {
	distance metrics.WelfordState
	duration metrics.WelfordState
	speed    metrics.WelfordState
}

// BuildRouteDurations computes Q2 rows: one per route per calendar, plus
// one combined row per route whose metrics are the trip-weighted
// combination of that route's calendar rows.
func BuildRouteDurations(events []models.TripEvent) []models.RouteDurationRow {
	trips := make(map[string]*tripSpan)
	for _, e := range events {
		t, ok := trips[e.TripID]
		if !ok {
			t = &tripSpan{route: e.Route(), serviceID: e.ServiceID}
			trips[e.TripID] = t
		}
		t.add(e)
	}

	aggs := make(map[routeService]*durationAgg)
	for _, t := range trips {
		day, ok := models.ParseServiceDay(t.serviceID)
		if !ok {
			continue
		}
		seconds, ok := t.duration()
		if !ok || seconds <= minTripDurationSeconds {
			continue
		}
		key := routeService{route: t.route, day: day}
		a, ok := aggs[key]
		if !ok {
			a = &durationAgg{}
			aggs[key] = a
		}
		a.duration.Update(float64(seconds) / 60.0)
		if dist, ok := t.distance(); ok {
			a.distance.Update(dist)
			a.speed.Update(dist / float64(seconds) * 3600)
		}
	}

	keys := make([]routeService, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].route != keys[j].route {
			return keys[i].route.Less(keys[j].route)
		}
		return keys[i].day < keys[j].day
	})

	rows := make([]models.RouteDurationRow, 0, len(keys))
	for _, k := range keys {
		a := aggs[k]
		row := models.RouteDurationRow{
			Scope:             models.Only(k.day),
			Route:             k.route,
			TotalTrips:     a.duration.GetCount(),
			AvgDurationMin: a.duration.GetMean(),
			DistanceTrips:  a.distance.GetCount(),
		}
		if row.DistanceTrips > 0 {
			dist, speed := a.distance.GetMean(), a.speed.GetMean()
			row.AvgTripDistanceKm = &dist
			row.AvgSpeedKmh = &speed
		}
		if sd, ok := a.duration.GetStdDev(); ok {
			row.DurationStdDevMin = &sd
		}
		rows = append(rows, row)
	}
	return append(rows, CombineRouteDurations(rows)...)
}

// CombineRouteDurations derives the combined-scope row of every route
// from its per-calendar rows. Durations are weighted by each calendar's
// trip count, distance and speed by its count of trips with a known
// distance. The standard deviation is not recombined and stays nil.
func CombineRouteDurations(rows []models.RouteDurationRow) []models.RouteDurationRow {
	type combined struct {
		trips         int
		distanceTrips int
		distance      metrics.WeightedMean
		duration      metrics.WeightedMean
		speed         metrics.WeightedMean
	}

	byRoute := make(map[models.RouteKey]*combined)
	var order []models.RouteKey
	for _, r := range rows {
		if r.Scope.IsCombined() {
			continue
		}
		c, ok := byRoute[r.Route]
		if !ok {
			c = &combined{}
			byRoute[r.Route] = c
			order = append(order, r.Route)
		}
		c.trips += r.TotalTrips
		c.duration.Add(r.AvgDurationMin, float64(r.TotalTrips))
		if r.AvgTripDistanceKm != nil && r.AvgSpeedKmh != nil {
			c.distanceTrips += r.DistanceTrips
			c.distance.Add(*r.AvgTripDistanceKm, float64(r.DistanceTrips))
			c.speed.Add(*r.AvgSpeedKmh, float64(r.DistanceTrips))
		}
	}

	out := make([]models.RouteDurationRow, 0, len(order))
	for _, route := range order {
		c := byRoute[route]
		row := models.RouteDurationRow{
			Scope:          models.Combined(),
			Route:          route,
			TotalTrips:     c.trips,
			AvgDurationMin: c.duration.Value(),
			DistanceTrips:  c.distanceTrips,
		}
		if c.distance.Weight() > 0 {
			dist, speed := c.distance.Value(), c.speed.Value()
			row.AvgTripDistanceKm = &dist
			row.AvgSpeedKmh = &speed
		}
		out = append(out, row)
	}
	return out
}

type routeHour struct {
	route models.RouteKey
	day   models.ServiceDay
	hour  int
}

// BuildHourlyFrequency computes Q4 rows: distinct trips of each route
// departing in each elapsed hour, per calendar, plus combined rows that
// sum the calendars hour by hour.
func BuildHourlyFrequency(events []models.TripEvent) []models.HourlyFrequencyRow {
	trips := make(map[routeHour]map[string]struct{})
	for _, e := range events {
		day, ok := e.Service()
		if !ok || e.DepartureSeconds == nil {
			continue
		}
		key := routeHour{route: e.Route(), day: day, hour: *e.DepartureSeconds / 3600}
		set, ok := trips[key]
		if !ok {
			set = make(map[string]struct{})
			trips[key] = set
		}
		set[e.TripID] = struct{}{}
	}

	type combinedKey struct {
		route models.RouteKey
		hour  int
	}
	combined := make(map[combinedKey]int)

	rows := make([]models.HourlyFrequencyRow, 0, len(trips))
	for k, set := range trips {
		rows = append(rows, models.HourlyFrequencyRow{
			Scope:        models.Only(k.day),
			Route:        k.route,
			Hour:         k.hour,
			TripsPerHour: len(set),
		})
		combined[combinedKey{route: k.route, hour: k.hour}] += len(set)
	}
	for k, n := range combined {
		rows = append(rows, models.HourlyFrequencyRow{
			Scope:        models.Combined(),
			Route:        k.route,
			Hour:         k.hour,
			TripsPerHour: n,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Scope.Label() != b.Scope.Label() {
			return a.Scope.Label() < b.Scope.Label()
		}
		if a.Route != b.Route {
			return a.Route.Less(b.Route)
		}
		return a.Hour < b.Hour
	})
	return rows
}
