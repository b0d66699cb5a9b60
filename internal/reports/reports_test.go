package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/transit-analytics/models"
)

var routeNames = map[string][2]string{
	"R1": {"Alpha", "1"},
	"R2": {"Beta", "2"},
	"R3": {"Gamma", "3"},
}

func seconds(t *testing.T, clock string) *int {
	t.Helper()
	s, err := models.ParseElapsed(clock)
	require.NoError(t, err)
	return &s
}

func km(v float64) *float64 { return &v }

type ev struct {
	trip, route, service, stop string
	dep, arr                   string
	dist                       *float64
}

func events(t *testing.T, specs ...ev) []models.TripEvent {
	t.Helper()
	out := make([]models.TripEvent, 0, len(specs))
	for _, s := range specs {
		names := routeNames[s.route]
		e := models.TripEvent{
			TripID:            s.trip,
			RouteID:           s.route,
			RouteLongName:     names[0],
			RouteShortName:    names[1],
			ServiceID:         s.service,
			StopID:            s.stop,
			StopName:          "Stop " + s.stop,
			StopLat:           41.3850639,
			StopLon:           2.1734036,
			ShapeDistTraveled: s.dist,
		}
		if s.dep != "" {
			e.DepartureSeconds = seconds(t, s.dep)
		}
		if s.arr != "" {
			e.ArrivalSeconds = seconds(t, s.arr)
		}
		out = append(out, e)
	}
	return out
}

func stopEvents(t *testing.T) []models.TripEvent {
	return events(t,
		ev{trip: "t1", route: "R1", service: "1", stop: "A", dep: "08:00:00", arr: "08:00:00"},
		ev{trip: "t2", route: "R1", service: "1", stop: "A", dep: "09:00:00", arr: "09:00:00"},
		ev{trip: "t3", route: "R2", service: "2", stop: "A", dep: "10:00:00", arr: "10:00:00"},
		ev{trip: "t4", route: "R1", service: "3", stop: "A", dep: "11:00:00", arr: "11:00:00"},
		ev{trip: "t1", route: "R1", service: "1", stop: "B", dep: "08:10:00", arr: "08:10:00"},
		ev{trip: "t5", route: "R3", service: "1", stop: "B", dep: "08:20:00", arr: "08:20:00"},
		ev{trip: "t6", route: "R3", service: "1", stop: "B", dep: "08:30:00", arr: "08:30:00"},
		ev{trip: "t3", route: "R2", service: "2", stop: "C", dep: "10:10:00", arr: "10:10:00"},
		ev{trip: "t7", route: "R2", service: "2", stop: "C", dep: "10:20:00", arr: "10:20:00"},
		ev{trip: "t4", route: "R1", service: "3", stop: "D", dep: "11:10:00", arr: "11:10:00"},
	)
}

func TestBusiestStopsCombinedCountsTheUnion(t *testing.T) {
	rows := BuildBusiestStops(stopEvents(t), models.Combined())
	items := RankBusiestStops(rows, models.Combined(), models.Unbounded())

	require.Len(t, items, 4)
	assert.Equal(t, "A", items[0].StopID)
	assert.Equal(t, 4, items[0].TotalTripEvents)
	assert.Equal(t, 2, items[0].NumUniqueRoutes)
	assert.Equal(t, "B", items[1].StopID)
	assert.Equal(t, 3, items[1].TotalTripEvents)
	assert.Equal(t, 2, items[1].NumUniqueRoutes)

	// summing per-service top-1 lists would give A only 2 events on service 1
	weekday := RankBusiestStops(BuildBusiestStops(stopEvents(t), models.Only(models.Weekday)), models.Only(models.Weekday), models.LimitOf(1))
	require.Len(t, weekday, 1)
	assert.Equal(t, "B", weekday[0].StopID)
	assert.Equal(t, 3, weekday[0].TotalTripEvents)
}

func TestBusiestStopsTieBreakAndLimit(t *testing.T) {
	rows := BuildBusiestStops(stopEvents(t), models.Combined())

	items := RankBusiestStops(rows, models.Combined(), models.LimitOf(3))
	require.Len(t, items, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{items[0].StopID, items[1].StopID, items[2].StopID})

	sunday := RankBusiestStops(BuildBusiestStops(stopEvents(t), models.Only(models.Sunday)), models.Only(models.Sunday), models.LimitOf(20))
	require.Len(t, sunday, 2)
	assert.Equal(t, "A", sunday[0].StopID, "ties resolve by stop_id ascending")
	assert.Equal(t, "D", sunday[1].StopID)
	assert.Equal(t, 41.385064, sunday[0].StopLat)
	assert.Equal(t, 2.173404, sunday[0].StopLon)
}

func TestRankIgnoresRowsOfOtherScopes(t *testing.T) {
	tables := BuildTables(stopEvents(t))

	items := RankBusiestStops(tables.BusiestStops, models.Only(models.Saturday), models.Unbounded())
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].StopID)
	assert.Equal(t, 2, items[0].TotalTripEvents)
	assert.Equal(t, "A", items[1].StopID)
	assert.Equal(t, 1, items[1].TotalTripEvents)
}

func TestTransferPointsNeverBelowTwoRoutes(t *testing.T) {
	tables := BuildTables(stopEvents(t))
	for _, scope := range models.ReportScopes() {
		for _, item := range RankTransferPoints(tables.TransferPoints, scope, models.Unbounded()) {
			assert.GreaterOrEqual(t, item.NumUniqueRoutes, 2, "scope %s stop %s", scope.Label(), item.StopID)
		}
	}

	combined := RankTransferPoints(tables.TransferPoints, models.Combined(), models.Unbounded())
	require.Len(t, combined, 2)
	assert.Equal(t, "A", combined[0].StopID)
	assert.Equal(t, "B", combined[1].StopID)

	assert.Empty(t, RankTransferPoints(tables.TransferPoints, models.Only(models.Saturday), models.Unbounded()))
}

func TestRankTransferPointsDropsSingleRouteRowsFromSnapshots(t *testing.T) {
	rows := []models.TransferPointRow{
		{Scope: models.Combined(), StopID: "X", NumUniqueRoutes: 1},
		{Scope: models.Combined(), StopID: "Y", NumUniqueRoutes: 3},
	}
	items := RankTransferPoints(rows, models.Combined(), models.Unbounded())
	require.Len(t, items, 1)
	assert.Equal(t, "Y", items[0].StopID)
}

func durationEvents(t *testing.T) []models.TripEvent {
	return events(t,
		// Alpha, weekday: 30 min / 10 km and 60 min / 30 km
		ev{trip: "t1", route: "R1", service: "1", stop: "A", dep: "08:00:00", arr: "08:00:00", dist: km(0)},
		ev{trip: "t1", route: "R1", service: "1", stop: "B", dep: "08:30:00", arr: "08:30:00", dist: km(10)},
		ev{trip: "t2", route: "R1", service: "1", stop: "A", dep: "08:00:00", arr: "08:00:00", dist: km(0)},
		ev{trip: "t2", route: "R1", service: "1", stop: "B", dep: "08:59:00", arr: "09:00:00", dist: km(30)},
		// Alpha, Saturday: 20 min / 10 km
		ev{trip: "t3", route: "R1", service: "2", stop: "A", dep: "10:00:00", arr: "10:00:00", dist: km(5)},
		ev{trip: "t3", route: "R1", service: "2", stop: "B", dep: "10:20:00", arr: "10:20:00", dist: km(15)},
		// Beta, weekday: 10 min / 2 km
		ev{trip: "t4", route: "R2", service: "1", stop: "A", dep: "07:00:00", arr: "07:00:00", dist: km(0)},
		ev{trip: "t4", route: "R2", service: "1", stop: "C", dep: "07:10:00", arr: "07:10:00", dist: km(2)},
		// Beta, Sunday: 30 s, discarded as noise
		ev{trip: "t5", route: "R2", service: "3", stop: "A", dep: "07:00:00", arr: "07:00:00", dist: km(0)},
		ev{trip: "t5", route: "R2", service: "3", stop: "C", dep: "07:00:30", arr: "07:00:30", dist: km(1)},
		// Gamma, Saturday: 45 min, no shape distances
		ev{trip: "t6", route: "R3", service: "2", stop: "A", dep: "10:00:00", arr: "10:00:00"},
		ev{trip: "t6", route: "R3", service: "2", stop: "D", dep: "", arr: ""},
		ev{trip: "t6", route: "R3", service: "2", stop: "C", dep: "10:45:00", arr: "10:45:00"},
	)
}

func findDuration(rows []models.RouteDurationRow, scope models.ServiceScope, long string) (models.RouteDurationRow, bool) {
	for _, r := range rows {
		if r.Scope == scope && r.Route.LongName == long {
			return r, true
		}
	}
	return models.RouteDurationRow{}, false
}

func TestRouteDurationRows(t *testing.T) {
	rows := BuildRouteDurations(durationEvents(t))

	alphaWeekday, ok := findDuration(rows, models.Only(models.Weekday), "Alpha")
	require.True(t, ok)
	assert.Equal(t, 2, alphaWeekday.TotalTrips)
	require.NotNil(t, alphaWeekday.AvgTripDistanceKm)
	assert.InDelta(t, 20.0, *alphaWeekday.AvgTripDistanceKm, 1e-9)
	assert.InDelta(t, 45.0, alphaWeekday.AvgDurationMin, 1e-9)
	require.NotNil(t, alphaWeekday.DurationStdDevMin)
	assert.InDelta(t, 15.0, *alphaWeekday.DurationStdDevMin, 1e-9)
	// mean of per-trip speeds (20 and 30), not 20 km / 45 min
	require.NotNil(t, alphaWeekday.AvgSpeedKmh)
	assert.InDelta(t, 25.0, *alphaWeekday.AvgSpeedKmh, 1e-9)

	alphaSaturday, ok := findDuration(rows, models.Only(models.Saturday), "Alpha")
	require.True(t, ok)
	assert.Nil(t, alphaSaturday.DurationStdDevMin, "singleton groups have no stddev")

	_, ok = findDuration(rows, models.Only(models.Sunday), "Beta")
	assert.False(t, ok, "trips of 60s or less are discarded")

	gamma, ok := findDuration(rows, models.Only(models.Saturday), "Gamma")
	require.True(t, ok)
	assert.InDelta(t, 45.0, gamma.AvgDurationMin, 1e-9)
	assert.Nil(t, gamma.AvgTripDistanceKm, "no shape distances means unknown, not zero")
	assert.Nil(t, gamma.AvgSpeedKmh)
	assert.Equal(t, 0, gamma.DistanceTrips)
}

func TestUnknownDistancesOnlyCountTowardTripsAndDuration(t *testing.T) {
	rows := BuildRouteDurations(events(t,
		ev{trip: "m1", route: "R1", service: "1", stop: "A", dep: "08:00:00", arr: "08:00:00", dist: km(0)},
		ev{trip: "m1", route: "R1", service: "1", stop: "B", dep: "08:10:00", arr: "08:10:00", dist: km(10)},
		ev{trip: "m2", route: "R1", service: "1", stop: "A", dep: "09:00:00", arr: "09:00:00"},
		ev{trip: "m2", route: "R1", service: "1", stop: "B", dep: "09:10:00", arr: "09:10:00"},
		ev{trip: "m3", route: "R1", service: "2", stop: "A", dep: "09:00:00", arr: "09:00:00", dist: km(0)},
		ev{trip: "m3", route: "R1", service: "2", stop: "B", dep: "09:10:00", arr: "09:10:00", dist: km(20)},
	))

	weekday, ok := findDuration(rows, models.Only(models.Weekday), "Alpha")
	require.True(t, ok)
	assert.Equal(t, 2, weekday.TotalTrips)
	assert.Equal(t, 1, weekday.DistanceTrips)
	assert.InDelta(t, 10.0, weekday.AvgDurationMin, 1e-9)
	require.NotNil(t, weekday.AvgTripDistanceKm)
	assert.InDelta(t, 10.0, *weekday.AvgTripDistanceKm, 1e-9)
	require.NotNil(t, weekday.AvgSpeedKmh)
	assert.InDelta(t, 60.0, *weekday.AvgSpeedKmh, 1e-9)

	// distance and speed recombine over the two trips that have one
	combined, ok := findDuration(rows, models.Combined(), "Alpha")
	require.True(t, ok)
	assert.Equal(t, 3, combined.TotalTrips)
	assert.Equal(t, 2, combined.DistanceTrips)
	assert.InDelta(t, 15.0, *combined.AvgTripDistanceKm, 1e-9)
	assert.InDelta(t, 90.0, *combined.AvgSpeedKmh, 1e-9)

	single := RankRouteDurations(rows, models.Only(models.Weekday), models.Unbounded())
	require.Len(t, single.Routes, 1)
	assert.Equal(t, 10.0, *single.Routes[0].AvgTripDistanceKm)
	assert.Equal(t, 60.0, *single.Routes[0].AvgSpeedKmh)
}

func TestCombinedDurationIsTripWeighted(t *testing.T) {
	rows := BuildRouteDurations(durationEvents(t))

	for _, long := range []string{"Alpha", "Beta", "Gamma"} {
		combined, ok := findDuration(rows, models.Combined(), long)
		require.True(t, ok, long)
		assert.Nil(t, combined.DurationStdDevMin)

		trips, distTrips, duration, speed := 0, 0, 0.0, 0.0
		for _, day := range models.ServiceDays() {
			if r, ok := findDuration(rows, models.Only(day), long); ok {
				trips += r.TotalTrips
				duration += r.AvgDurationMin * float64(r.TotalTrips)
				if r.AvgSpeedKmh != nil {
					distTrips += r.DistanceTrips
					speed += *r.AvgSpeedKmh * float64(r.DistanceTrips)
				}
			}
		}
		assert.Equal(t, trips, combined.TotalTrips, long)
		assert.InDelta(t, duration/float64(trips), combined.AvgDurationMin, 1e-9, long)
		if distTrips == 0 {
			assert.Nil(t, combined.AvgSpeedKmh, long)
			continue
		}
		require.NotNil(t, combined.AvgSpeedKmh, long)
		assert.InDelta(t, speed/float64(distTrips), *combined.AvgSpeedKmh, 1e-9, long)
	}

	alpha, _ := findDuration(rows, models.Combined(), "Alpha")
	assert.InDelta(t, 110.0/3.0, alpha.AvgDurationMin, 1e-9)
}

func TestWholeWeekDurationReport(t *testing.T) {
	rows := BuildRouteDurations(durationEvents(t))

	report := RankRouteDurations(rows, models.Combined(), models.LimitOf(2))
	assert.Equal(t, models.ModeWholeWeek, report.Mode)
	require.Len(t, report.Routes, 2)

	gamma := report.Routes[0]
	assert.Equal(t, "Gamma", gamma.RouteLongName)
	require.NotNil(t, gamma.RouteShortName)
	assert.Equal(t, "3", *gamma.RouteShortName)
	require.NotNil(t, gamma.Global)
	assert.Equal(t, 45.0, gamma.Global.AvgDurationMin)
	assert.Nil(t, gamma.ServiceDurationStats)

	alpha := report.Routes[1]
	assert.Equal(t, "Alpha", alpha.RouteLongName)
	assert.Equal(t, 3, alpha.Global.TotalTrips)
	assert.Equal(t, 36.67, alpha.Global.AvgDurationMin)
	require.Len(t, alpha.Services, 2)
	assert.Equal(t, "1", alpha.Services[0].ServiceID)
	assert.Equal(t, "2", alpha.Services[1].ServiceID)
	require.NotNil(t, alpha.Services[0].DurationStdDevMin)
	assert.Equal(t, 15.0, *alpha.Services[0].DurationStdDevMin)

	// (45*1 + 36.67*3) / 4
	assert.InDelta(t, 38.75, report.Overall.AvgDurationMin, 1e-9)
	// (0*1 + 26.67*3) / 4
	assert.InDelta(t, 20.0, report.Overall.AvgSpeedKmh, 1e-9)
}

func TestOverallChangesWithLimit(t *testing.T) {
	rows := BuildRouteDurations(durationEvents(t))

	top1 := RankRouteDurations(rows, models.Combined(), models.LimitOf(1))
	require.Len(t, top1.Routes, 1)
	assert.Equal(t, 45.0, top1.Overall.AvgDurationMin)

	all := RankRouteDurations(rows, models.Combined(), models.Unbounded())
	require.Len(t, all.Routes, 3)
	assert.Equal(t, "Beta", all.Routes[2].RouteLongName)
	// (45*1 + 36.67*3 + 10*1) / 5
	assert.InDelta(t, 33.0, all.Overall.AvgDurationMin, 1e-9)
}

func TestSingleServiceDurationReport(t *testing.T) {
	rows := BuildRouteDurations(durationEvents(t))

	report := RankRouteDurations(rows, models.Only(models.Weekday), models.Unbounded())
	assert.Equal(t, models.ModeSingleService, report.Mode)
	require.Len(t, report.Routes, 2)
	assert.Equal(t, "Alpha", report.Routes[0].RouteLongName)
	require.NotNil(t, report.Routes[0].ServiceDurationStats)
	assert.Equal(t, "1", report.Routes[0].ServiceID)
	assert.Equal(t, 45.0, report.Routes[0].AvgDurationMin)
	assert.Nil(t, report.Routes[0].Global)
	assert.Empty(t, report.Routes[0].Services)

	// (45*2 + 10*1) / 3
	assert.InDelta(t, 33.33, report.Overall.AvgDurationMin, 1e-9)

	// 2 trips of 601s and 1 of 604s: the single-service overall uses the
	// unrounded route means, the whole-week overall the rounded ones
	precise := BuildRouteDurations(events(t,
		ev{trip: "p1", route: "R1", service: "1", stop: "A", dep: "08:00:00", arr: "08:00:00"},
		ev{trip: "p1", route: "R1", service: "1", stop: "B", dep: "08:10:01", arr: "08:10:01"},
		ev{trip: "p2", route: "R1", service: "1", stop: "A", dep: "09:00:00", arr: "09:00:00"},
		ev{trip: "p2", route: "R1", service: "1", stop: "B", dep: "09:10:01", arr: "09:10:01"},
		ev{trip: "p3", route: "R2", service: "1", stop: "A", dep: "08:00:00", arr: "08:00:00"},
		ev{trip: "p3", route: "R2", service: "1", stop: "B", dep: "08:10:04", arr: "08:10:04"},
	))
	assert.Equal(t, 10.03, RankRouteDurations(precise, models.Only(models.Weekday), models.Unbounded()).Overall.AvgDurationMin)
	assert.Equal(t, 10.04, RankRouteDurations(precise, models.Combined(), models.Unbounded()).Overall.AvgDurationMin)

	empty := RankRouteDurations(nil, models.Only(models.Sunday), models.LimitOf(5))
	assert.Empty(t, empty.Routes)
	assert.Equal(t, 0.0, empty.Overall.AvgDurationMin)
}

func frequencyEvents(t *testing.T) []models.TripEvent {
	return events(t,
		ev{trip: "a1", route: "R1", service: "1", stop: "A", dep: "08:05:00"},
		ev{trip: "a1", route: "R1", service: "1", stop: "B", dep: "08:20:00"},
		ev{trip: "a2", route: "R1", service: "1", stop: "A", dep: "08:40:00"},
		ev{trip: "a3", route: "R1", service: "2", stop: "A", dep: "25:10:00"},
		ev{trip: "a4", route: "R1", service: "3", stop: "A", dep: "09:00:00"},
		ev{trip: "b1", route: "R2", service: "1", stop: "A", dep: "07:00:00"},
	)
}

func TestHourlyFrequencyCombined(t *testing.T) {
	rows := BuildHourlyFrequency(frequencyEvents(t))
	report := RankHourlyFrequency(rows, models.Combined(), models.Unbounded())

	assert.Equal(t, 25, report.MaxHour)
	require.Len(t, report.Routes, 2)

	alpha := report.Routes[0]
	assert.Equal(t, "Alpha", alpha.RouteLongName)
	assert.Equal(t, "all", alpha.ServiceID)
	assert.Equal(t, []models.HourlyCount{{Hour: 8, Trips: 2}, {Hour: 9, Trips: 1}, {Hour: 25, Trips: 1}}, alpha.Hourly)
	assert.Equal(t, 4, alpha.TotalDailyTrips)
	assert.Equal(t, map[string]int{"1": 2, "2": 1, "3": 1}, alpha.TotalsByService)
	require.NotNil(t, alpha.AverageDailyTrips)

	sum := alpha.TotalsByService["1"] + alpha.TotalsByService["2"] + alpha.TotalsByService["3"]
	assert.InDelta(t, float64(sum)/3, *alpha.AverageDailyTrips, 1e-9)

	beta := report.Routes[1]
	assert.Equal(t, map[string]int{"1": 1, "2": 0, "3": 0}, beta.TotalsByService)
	assert.InDelta(t, 1.0/3.0, *beta.AverageDailyTrips, 1e-9)
}

func TestHourlyFrequencySingleService(t *testing.T) {
	rows := BuildHourlyFrequency(frequencyEvents(t))

	saturday := RankHourlyFrequency(rows, models.Only(models.Saturday), models.Unbounded())
	require.Len(t, saturday.Routes, 1)
	assert.Equal(t, "2", saturday.Routes[0].ServiceID)
	assert.Equal(t, 25, saturday.MaxHour)
	assert.Nil(t, saturday.Routes[0].TotalsByService)
	assert.Nil(t, saturday.Routes[0].AverageDailyTrips)

	weekday := RankHourlyFrequency(rows, models.Only(models.Weekday), models.LimitOf(1))
	require.Len(t, weekday.Routes, 1)
	assert.Equal(t, "Alpha", weekday.Routes[0].RouteLongName)
	assert.Equal(t, 2, weekday.Routes[0].TotalDailyTrips)
	assert.Equal(t, 8, weekday.MaxHour, "max_hour spans the scope, not only the selected routes")
}

type fakeEvents struct {
	events []models.TripEvent
	err    error
	scopes []models.ServiceScope
}

func (f *fakeEvents) TripEvents(_ context.Context, scope models.ServiceScope) ([]models.TripEvent, error) {
	f.scopes = append(f.scopes, scope)
	var out []models.TripEvent
	for _, e := range f.events {
		if scope.Includes(e.ServiceID) {
			out = append(out, e)
		}
	}
	return out, f.err
}

type fakeSnapshot struct {
	busiest []models.BusiestStopRow
	present bool
}

func (f fakeSnapshot) BusiestStops() ([]models.BusiestStopRow, bool, error) {
	return f.busiest, f.present, nil
}
func (f fakeSnapshot) RouteDurations() ([]models.RouteDurationRow, bool, error) {
	return nil, false, nil
}
func (f fakeSnapshot) TransferPoints() ([]models.TransferPointRow, bool, error) {
	return nil, false, nil
}
func (f fakeSnapshot) HourlyFrequency() ([]models.HourlyFrequencyRow, bool, error) {
	return nil, false, nil
}

func TestServicePrefersSnapshot(t *testing.T) {
	source := &fakeEvents{events: stopEvents(t)}
	snap := fakeSnapshot{present: true, busiest: []models.BusiestStopRow{
		{Scope: models.Combined(), StopID: "S", TotalTripEvents: 99, NumUniqueRoutes: 5},
	}}
	svc := NewService(source, snap, nil)

	items, err := svc.BusiestStops(context.Background(), models.Combined(), models.LimitOf(20))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "S", items[0].StopID)
	assert.Empty(t, source.scopes, "live source must not be queried")

	// no Q4 snapshot file: computed live
	report, err := svc.HourlyFrequency(context.Background(), models.Only(models.Sunday), models.LimitOf(20))
	require.NoError(t, err)
	require.Len(t, report.Routes, 1)
	assert.Equal(t, []models.ServiceScope{models.Only(models.Sunday)}, source.scopes)
}

func TestServiceMemoizesLiveRows(t *testing.T) {
	source := &fakeEvents{events: stopEvents(t)}
	svc := NewService(source, nil, nil)
	ctx := context.Background()

	first, err := svc.BusiestStops(ctx, models.Combined(), models.LimitOf(20))
	require.NoError(t, err)
	second, err := svc.BusiestStops(ctx, models.Combined(), models.LimitOf(2))
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, first[:2], second)
	assert.Len(t, source.scopes, 1, "second request is served from memory")

	_, err = svc.BusiestStops(ctx, models.Only(models.Weekday), models.LimitOf(20))
	require.NoError(t, err)
	_, err = svc.TransferPoints(ctx, models.Combined(), models.LimitOf(20))
	require.NoError(t, err)
	assert.Len(t, source.scopes, 3, "each report and scope is built once")

	svc.Purge()
	_, err = svc.BusiestStops(ctx, models.Combined(), models.LimitOf(20))
	require.NoError(t, err)
	assert.Len(t, source.scopes, 4)
}

func TestServiceLiveErrors(t *testing.T) {
	svc := NewService(&fakeEvents{err: errors.New("connection refused")}, nil, nil)
	_, err := svc.TransferPoints(context.Background(), models.Combined(), models.LimitOf(20))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = NewService(nil, nil, nil).RouteDurations(context.Background(), models.Combined(), models.LimitOf(20))
	assert.ErrorIs(t, err, ErrNoSource)
}
