package reports

import (
	"sort"

	"github.com/you/transit-analytics/internal/metrics"
	"github.com/you/transit-analytics/models"
)

// The rankers below turn report rows, whether freshly built or read from
// a snapshot, into API responses. They filter to the requested scope,
// order, cap and round.

// RankBusiestStops orders Q1 rows by trip events, busiest first.
func RankBusiestStops(rows []models.BusiestStopRow, scope models.ServiceScope, limit models.Limit) []models.BusiestStop {
	var scoped []models.BusiestStopRow
	for _, r := range rows {
		if r.Scope == scope {
			scoped = append(scoped, r)
		}
	}
	sort.SliceStable(scoped, func(i, j int) bool {
		if scoped[i].TotalTripEvents != scoped[j].TotalTripEvents {
			return scoped[i].TotalTripEvents > scoped[j].TotalTripEvents
		}
		return scoped[i].StopID < scoped[j].StopID
	})

	items := make([]models.BusiestStop, 0, limit.Cap(len(scoped)))
	for _, r := range scoped[:limit.Cap(len(scoped))] {
		items = append(items, models.BusiestStop{
			StopID:          r.StopID,
			StopCode:        r.StopCode,
			StopName:        r.StopName,
			StopLat:         metrics.Round6(r.StopLat),
			StopLon:         metrics.Round6(r.StopLon),
			TotalTripEvents: r.TotalTripEvents,
			NumUniqueRoutes: r.NumUniqueRoutes,
		})
	}
	return items
}

// RankTransferPoints orders Q3 rows by distinct routes. Rows below two
// routes are dropped even if a snapshot carries them.
func RankTransferPoints(rows []models.TransferPointRow, scope models.ServiceScope, limit models.Limit) []models.TransferPoint {
	var scoped []models.TransferPointRow
	for _, r := range rows {
		if r.Scope == scope && r.NumUniqueRoutes >= minTransferRoutes {
			scoped = append(scoped, r)
		}
	}
	sort.SliceStable(scoped, func(i, j int) bool {
		if scoped[i].NumUniqueRoutes != scoped[j].NumUniqueRoutes {
			return scoped[i].NumUniqueRoutes > scoped[j].NumUniqueRoutes
		}
		return scoped[i].StopID < scoped[j].StopID
	})

	items := make([]models.TransferPoint, 0, limit.Cap(len(scoped)))
	for _, r := range scoped[:limit.Cap(len(scoped))] {
		items = append(items, models.TransferPoint{
			StopID:          r.StopID,
			StopCode:        r.StopCode,
			StopName:        r.StopName,
			StopLat:         metrics.Round6(r.StopLat),
			StopLon:         metrics.Round6(r.StopLon),
			NumUniqueRoutes: r.NumUniqueRoutes,
		})
	}
	return items
}

// RankRouteDurations builds the Q2 response. In the combined scope routes
// are ranked by their whole-week average duration and each selected route
// carries its per-calendar rows; otherwise the calendar's own rows are
// ranked. The overall figures weight the route averages by trip count,
// over the selected routes only; the whole-week overall uses the rounded
// route averages.
func RankRouteDurations(rows []models.RouteDurationRow, scope models.ServiceScope, limit models.Limit) models.DurationReport {
	var scoped []models.RouteDurationRow
	for _, r := range rows {
		if r.Scope == scope {
			scoped = append(scoped, r)
		}
	}
	sort.SliceStable(scoped, func(i, j int) bool {
		if scoped[i].AvgDurationMin != scoped[j].AvgDurationMin {
			return scoped[i].AvgDurationMin > scoped[j].AvgDurationMin
		}
		return scoped[i].Route.Less(scoped[j].Route)
	})
	selected := scoped[:limit.Cap(len(scoped))]

	report := models.DurationReport{
		Mode:   models.ModeSingleService,
		Routes: make([]models.RouteDuration, 0, len(selected)),
	}
	if scope.IsCombined() {
		report.Mode = models.ModeWholeWeek
	}

	perDay := make(map[models.RouteKey][]models.RouteDurationRow)
	if scope.IsCombined() {
		for _, r := range rows {
			if !r.Scope.IsCombined() {
				perDay[r.Route] = append(perDay[r.Route], r)
			}
		}
	}

	var overallDuration, overallSpeed metrics.WeightedMean
	for _, r := range selected {
		entry := models.RouteDuration{
			RouteLongName:  r.Route.LongName,
			RouteShortName: optionalName(r.Route.ShortName),
		}
		if scope.IsCombined() {
			entry.Global = &models.DurationStats{
				TotalTrips:        r.TotalTrips,
				AvgTripDistanceKm: roundOptional(r.AvgTripDistanceKm),
				AvgDurationMin:    metrics.Round2(r.AvgDurationMin),
				AvgSpeedKmh:       roundOptional(r.AvgSpeedKmh),
			}
			days := perDay[r.Route]
			sort.SliceStable(days, func(i, j int) bool {
				return days[i].Scope.Label() < days[j].Scope.Label()
			})
			for _, d := range days {
				entry.Services = append(entry.Services, serviceStats(d))
			}
		} else {
			stats := serviceStats(r)
			entry.ServiceDurationStats = &stats
		}
		report.Routes = append(report.Routes, entry)

		// a route without a known speed counts as 0 km/h
		duration, speed := r.AvgDurationMin, 0.0
		if r.AvgSpeedKmh != nil {
			speed = *r.AvgSpeedKmh
		}
		if scope.IsCombined() {
			duration, speed = metrics.Round2(duration), metrics.Round2(speed)
		}
		w := float64(r.TotalTrips)
		overallDuration.Add(duration, w)
		overallSpeed.Add(speed, w)
	}

	report.Overall = models.OverallDuration{
		AvgDurationMin: metrics.Round2(overallDuration.Value()),
		AvgSpeedKmh:    metrics.Round2(overallSpeed.Value()),
	}
	return report
}

func serviceStats(r models.RouteDurationRow) models.ServiceDurationStats {
	return models.ServiceDurationStats{
		ServiceID:         r.Scope.Label(),
		TotalTrips:        r.TotalTrips,
		AvgTripDistanceKm: roundOptional(r.AvgTripDistanceKm),
		AvgDurationMin:    metrics.Round2(r.AvgDurationMin),
		DurationStdDevMin: roundOptional(r.DurationStdDevMin),
		AvgSpeedKmh:       roundOptional(r.AvgSpeedKmh),
	}
}

// combinedServiceID is the service_id of Q4 entries in the combined scope.
const combinedServiceID = "all"

// RankHourlyFrequency builds the Q4 response: routes ordered by total
// daily trips, each with its hourly series. In the combined scope every
// route also carries its per-calendar totals and their mean over the
// three calendars.
func RankHourlyFrequency(rows []models.HourlyFrequencyRow, scope models.ServiceScope, limit models.Limit) models.FrequencyReport {
	type routeSeries struct {
		route  models.RouteKey
		hourly []models.HourlyCount
		total  int
	}

	byRoute := make(map[models.RouteKey]*routeSeries)
	perDay := make(map[models.RouteKey]map[string]int)
	maxHour := 0
	for _, r := range rows {
		if r.Scope != scope {
			if scope.IsCombined() {
				if perDay[r.Route] == nil {
					perDay[r.Route] = make(map[string]int)
				}
				perDay[r.Route][r.Scope.Label()] += r.TripsPerHour
			}
			continue
		}
		s, ok := byRoute[r.Route]
		if !ok {
			s = &routeSeries{route: r.Route}
			byRoute[r.Route] = s
		}
		s.hourly = append(s.hourly, models.HourlyCount{Hour: r.Hour, Trips: r.TripsPerHour})
		s.total += r.TripsPerHour
		if r.Hour > maxHour {
			maxHour = r.Hour
		}
	}

	series := make([]*routeSeries, 0, len(byRoute))
	for _, s := range byRoute {
		sort.Slice(s.hourly, func(i, j int) bool { return s.hourly[i].Hour < s.hourly[j].Hour })
		series = append(series, s)
	}
	sort.Slice(series, func(i, j int) bool {
		if series[i].total != series[j].total {
			return series[i].total > series[j].total
		}
		return series[i].route.Less(series[j].route)
	})

	report := models.FrequencyReport{
		MaxHour: maxHour,
		Routes:  make([]models.RouteFrequency, 0, limit.Cap(len(series))),
	}
	for _, s := range series[:limit.Cap(len(series))] {
		entry := models.RouteFrequency{
			RouteLongName:   s.route.LongName,
			RouteShortName:  optionalName(s.route.ShortName),
			Hourly:          s.hourly,
			TotalDailyTrips: s.total,
		}
		if day, ok := scope.Day(); ok {
			entry.ServiceID = day.ID()
		} else {
			entry.ServiceID = combinedServiceID
			entry.TotalsByService = make(map[string]int, len(models.ServiceDays()))
			sum := 0
			for _, d := range models.ServiceDays() {
				n := perDay[s.route][d.ID()]
				entry.TotalsByService[d.ID()] = n
				sum += n
			}
			avg := float64(sum) / float64(len(models.ServiceDays()))
			entry.AverageDailyTrips = &avg
		}
		report.Routes = append(report.Routes, entry)
	}
	return report
}

func roundOptional(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := metrics.Round2(*v)
	return &r
}

func optionalName(name string) *string {
	if name == "" {
		return nil
	}
	return &name
}
