package models

// Aggregate rows. Every row carries the scope it was computed over; a
// snapshot holds rows for all four scopes side by side. Values are kept
// at full precision here and rounded when a response is assembled.

// BusiestStopRow is a Q1 row: trip events and distinct routes at a stop.
type BusiestStopRow struct {
	Scope           ServiceScope
	StopID          string
	StopCode        *string
	StopName        string
	StopLat         float64
	StopLon         float64
	TotalTripEvents int
	NumUniqueRoutes int
}

// TransferPointRow is a Q3 row: a stop served by two or more routes.
type TransferPointRow struct {
	Scope           ServiceScope
	StopID          string
	StopCode        *string
	StopName        string
	StopLat         float64
	StopLon         float64
	NumUniqueRoutes int
}

// RouteDurationRow is a Q2 row for one route in one scope.
type RouteDurationRow struct {
	Scope             ServiceScope
	Route             RouteKey
	TotalTrips        int
	AvgTripDistanceKm *float64
	AvgDurationMin    float64
	DurationStdDevMin *float64
	AvgSpeedKmh       *float64

	// DistanceTrips counts the trips with a known distance, which the
	// distance and speed means are taken over. It is not persisted in
	// snapshot files.
	DistanceTrips int
}

// HourlyFrequencyRow is a Q4 row: distinct trips of a route departing in
// one elapsed hour.
type HourlyFrequencyRow struct {
	Scope        ServiceScope
	Route        RouteKey
	Hour         int
	TripsPerHour int
}

// ReportTables is the full output of report generation, the unit written
// to and read from a snapshot.
type ReportTables struct {
	BusiestStops    []BusiestStopRow
	RouteDurations  []RouteDurationRow
	TransferPoints  []TransferPointRow
	HourlyFrequency []HourlyFrequencyRow
}

// Responses.

// BusiestStop is an item of GET /api/q1.
type BusiestStop struct {
	StopID          string  `json:"stop_id"`
	StopCode        *string `json:"stop_code"`
	StopName        string  `json:"stop_name"`
	StopLat         float64 `json:"stop_lat"`
	StopLon         float64 `json:"stop_lon"`
	TotalTripEvents int     `json:"total_trip_events"`
	NumUniqueRoutes int     `json:"num_unique_routes"`
}

// TransferPoint is an item of GET /api/q3.
type TransferPoint struct {
	StopID          string  `json:"stop_id"`
	StopCode        *string `json:"stop_code"`
	StopName        string  `json:"stop_name"`
	StopLat         float64 `json:"stop_lat"`
	StopLon         float64 `json:"stop_lon"`
	NumUniqueRoutes int     `json:"num_unique_routes"`
}

// ItemsResponse wraps list reports.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

// Q2 modes.
const (
	ModeWholeWeek     = "whole_week"
	ModeSingleService = "single_service"
)

// DurationStats are the rounded Q2 metrics of a route in the combined scope.
type DurationStats struct {
	TotalTrips        int      `json:"total_trips"`
	AvgTripDistanceKm *float64 `json:"avg_trip_distance_km"`
	AvgDurationMin    float64  `json:"avg_duration_min"`
	AvgSpeedKmh       *float64 `json:"avg_speed_kmh"`
}

// ServiceDurationStats are the rounded Q2 metrics of a route on one calendar.
type ServiceDurationStats struct {
	ServiceID         string   `json:"service_id"`
	TotalTrips        int      `json:"total_trips"`
	AvgTripDistanceKm *float64 `json:"avg_trip_distance_km"`
	AvgDurationMin    float64  `json:"avg_duration_min"`
	DurationStdDevMin *float64 `json:"duration_stddev_min"`
	AvgSpeedKmh       *float64 `json:"avg_speed_kmh"`
}

// RouteDuration is a route entry of GET /api/q2. In whole-week mode Global
// and Services are set; in single-service mode the embedded stats are.
type RouteDuration struct {
	RouteLongName  string  `json:"route_long_name"`
	RouteShortName *string `json:"route_short_name"`

	Global   *DurationStats         `json:"global,omitempty"`
	Services []ServiceDurationStats `json:"services,omitempty"`

	*ServiceDurationStats
}

// OverallDuration is the trip-weighted average over the selected routes.
type OverallDuration struct {
	AvgDurationMin float64 `json:"avg_duration_min"`
	AvgSpeedKmh    float64 `json:"avg_speed_kmh"`
}

// DurationReport is the GET /api/q2 response.
type DurationReport struct {
	Mode    string          `json:"mode"`
	Routes  []RouteDuration `json:"routes"`
	Overall OverallDuration `json:"overall"`
}

// HourlyCount is one point of an hourly series.
type HourlyCount struct {
	Hour  int `json:"hour"`
	Trips int `json:"trips"`
}

// RouteFrequency is a route entry of GET /api/q4. TotalsByService and
// AverageDailyTrips are only set in the combined scope.
type RouteFrequency struct {
	RouteLongName     string         `json:"route_long_name"`
	RouteShortName    *string        `json:"route_short_name"`
	ServiceID         string         `json:"service_id"`
	Hourly            []HourlyCount  `json:"hourly"`
	TotalDailyTrips   int            `json:"total_daily_trips"`
	TotalsByService   map[string]int `json:"totals_by_service,omitempty"`
	AverageDailyTrips *float64       `json:"average_daily_trips,omitempty"`
}

// FrequencyReport is the GET /api/q4 response.
type FrequencyReport struct {
	MaxHour int              `json:"max_hour"`
	Routes  []RouteFrequency `json:"routes"`
}
