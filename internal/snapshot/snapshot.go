// Package snapshot materializes report tables as CSV files and serves them
// back to the report service from memory.
package snapshot

import (
	"os"
	"path/filepath"
)

// Report identifies one snapshot file.
type Report string

const (
	BusiestStops    Report = "q1"
	RouteDurations  Report = "q2"
	TransferPoints  Report = "q3"
	HourlyFrequency Report = "q4"
)

// ManifestFile sits next to the CSV files and describes the run that
// produced them.
const ManifestFile = "manifest.json"

var fileNames = map[Report]string{
	BusiestStops:    "q1_busiest_stops.csv",
	RouteDurations:  "q2_avg_duration_speed.csv",
	TransferPoints:  "q3_transfer_points.csv",
	HourlyFrequency: "q4_hourly_frequency.csv",
}

// Reports lists every snapshot file in generation order.
func Reports() []Report {
	return []Report{BusiestStops, RouteDurations, TransferPoints, HourlyFrequency}
}

// FileName returns the CSV file name of a report.
func (r Report) FileName() string {
	return fileNames[r]
}

// Path returns the location of a report's file inside dir.
func (r Report) Path(dir string) string {
	return filepath.Join(dir, r.FileName())
}

// Exists reports whether the report's file is present in dir.
func (r Report) Exists(dir string) bool {
	info, err := os.Stat(r.Path(dir))
	return err == nil && !info.IsDir()
}

// Column layouts. service_id holds "1", "2", "3" or "4" (combined).
var (
	busiestStopsHeader = []string{
		"stop_id", "stop_code", "stop_name", "stop_lat", "stop_lon",
		"total_trip_events", "num_unique_routes", "service_id",
	}
	routeDurationsHeader = []string{
		"route_long_name", "route_short_name", "service_id", "total_trips",
		"avg_trip_distance_km", "avg_duration_min", "duration_stddev_min", "avg_speed_kmh",
	}
	transferPointsHeader = []string{
		"stop_id", "stop_code", "stop_name", "stop_lat", "stop_lon",
		"num_unique_routes", "service_id",
	}
	hourlyFrequencyHeader = []string{
		"route_long_name", "route_short_name", "service_id", "hour_of_day", "trips_per_hour",
	}
)
