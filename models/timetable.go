package models

// NotInServiceHeadsign marks trips that do not carry passengers.
const NotInServiceHeadsign = "NOT IN SERVICE"

// GeoPoint is a GeoJSON point, stored so a 2dsphere index can cover it.
type GeoPoint struct {
	Type        string     `json:"type" bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"` // [lon, lat]
}

// NewGeoPoint builds a point from a longitude/latitude pair.
func NewGeoPoint(lon, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

func (p GeoPoint) Lon() float64 { return p.Coordinates[0] }
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

// UpcomingService is one scheduled pass of a trip through a stop.
type UpcomingService struct {
	RouteID        string  `json:"route_id" bson:"route_id"`
	RouteShortName string  `json:"route_short_name" bson:"route_short_name"`
	RouteLongName  string  `json:"route_long_name" bson:"route_long_name"`
	TripID         string  `json:"trip_id" bson:"trip_id"`
	ServiceID      string  `json:"service_id" bson:"service_id"`
	TripHeadsign   *string `json:"trip_headsign" bson:"trip_headsign"`
	DepartureTime  string  `json:"departure_time" bson:"departure_time"`
}

// StopDocument is the denormalized per-stop timetable. There is exactly
// one document per stop_id.
type StopDocument struct {
	StopID           string            `json:"stop_id" bson:"stop_id"`
	StopName         string            `json:"stop_name" bson:"stop_name"`
	StopCode         *string           `json:"stop_code" bson:"stop_code"`
	Location         GeoPoint          `json:"location" bson:"location"`
	UpcomingServices []UpcomingService `json:"upcoming_services" bson:"upcoming_services"`
}

// StopUpsert is a single append operation for the document store: the
// static fields are only written when the document is created, the
// services are always appended.
type StopUpsert struct {
	StopID   string
	StopName string
	StopCode *string
	Location GeoPoint
	Services []UpcomingService
}

// StopSummary is a row of GET /get_stops.
type StopSummary struct {
	StopID   string  `json:"stop_id" bson:"stop_id"`
	StopName string  `json:"stop_name" bson:"stop_name"`
	StopCode *string `json:"stop_code" bson:"stop_code"`
}

// GroupedTimetable maps route long name -> headsign -> sorted display times.
type GroupedTimetable map[string]map[string][]string

// RoutePair is a distinct (route, headsign) served at a stop.
type RoutePair struct {
	RouteShortName string `json:"route_short_name"`
	TripHeadsign   string `json:"trip_headsign"`
}

// ArrivalsQuery filters the arrivals at a stop. Empty strings mean "not given".
type ArrivalsQuery struct {
	StopID         string
	RouteShortName string
	TripHeadsign   string
	Service        ServiceScope
}

// IsFlat reports whether both route and headsign were given, which
// selects the flat list response.
func (q ArrivalsQuery) IsFlat() bool {
	return q.RouteShortName != "" && q.TripHeadsign != ""
}

// ArrivalTimes is the flat arrivals response.
type ArrivalTimes struct {
	Times []string `json:"times"`
	Count int      `json:"count"`
}

// ArrivalGroup is the set of times for one (route_id, headsign) pair.
type ArrivalGroup struct {
	RouteID        string   `json:"route_id"`
	RouteShortName string   `json:"route_short_name"`
	TripHeadsign   string   `json:"trip_headsign"`
	Times          []string `json:"times"`
	Count          int      `json:"count"`
}

// GroupedArrivals is the arrivals response when no route/headsign pair is given.
type GroupedArrivals struct {
	Groups     []ArrivalGroup `json:"groups"`
	TotalCount int            `json:"total_count"`
}
