package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/you/transit-analytics/models"
)

// record gives named access to one CSV row.
type record struct {
	line   int
	fields []string
	idx    map[string]int
	err    error
}

func (r *record) str(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r *record) optionalStr(col string) *string {
	v := r.str(col)
	if v == "" {
		return nil
	}
	return &v
}

func (r *record) integer(col string) int {
	if r.err != nil {
		return 0
	}
	v := strings.TrimSpace(r.str(col))
	// pandas writes integer columns holding nulls as floats
	v = strings.TrimSuffix(v, ".0")
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("line %d: invalid %s %q", r.line, col, r.str(col))
	}
	return n
}

func (r *record) number(col string) float64 {
	if r.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(r.str(col)), 64)
	if err != nil {
		r.err = fmt.Errorf("line %d: invalid %s %q", r.line, col, r.str(col))
	}
	return f
}

func (r *record) optionalFloat(col string) *float64 {
	if strings.TrimSpace(r.str(col)) == "" {
		return nil
	}
	f := r.number(col)
	return &f
}

func (r *record) scope() models.ServiceScope {
	if r.err != nil {
		return models.ServiceScope{}
	}
	raw := strings.TrimSuffix(strings.TrimSpace(r.str("service_id")), ".0")
	s, ok := models.ParseScopeLabel(raw)
	if !ok {
		r.err = fmt.Errorf("line %d: invalid service_id %q", r.line, r.str("service_id"))
	}
	return s
}

func makeIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

// readCSV calls fn for every data row of the file at path. It fails when
// a required column is missing from the header.
func readCSV(path string, required []string, fn func(*record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	// strip a UTF-8 BOM left by spreadsheet tools
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	idx := makeIndex(headers)
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("missing column %q", col)
		}
	}

	line := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(&record{line: line, fields: fields, idx: idx}); err != nil {
			return err
		}
	}
}

// ReadBusiestStops loads the Q1 file from dir.
func ReadBusiestStops(dir string) ([]models.BusiestStopRow, error) {
	var rows []models.BusiestStopRow
	err := readCSV(BusiestStops.Path(dir), busiestStopsHeader, func(r *record) error {
		row := models.BusiestStopRow{
			Scope:           r.scope(),
			StopID:          r.str("stop_id"),
			StopCode:        r.optionalStr("stop_code"),
			StopName:        r.str("stop_name"),
			StopLat:         r.number("stop_lat"),
			StopLon:         r.number("stop_lon"),
			TotalTripEvents: r.integer("total_trip_events"),
			NumUniqueRoutes: r.integer("num_unique_routes"),
		}
		rows = append(rows, row)
		return r.err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadRouteDurations loads the Q2 file from dir.
func ReadRouteDurations(dir string) ([]models.RouteDurationRow, error) {
	var rows []models.RouteDurationRow
	err := readCSV(RouteDurations.Path(dir), routeDurationsHeader, func(r *record) error {
		row := models.RouteDurationRow{
			Scope:             r.scope(),
			Route:             models.RouteKey{LongName: r.str("route_long_name"), ShortName: r.str("route_short_name")},
			TotalTrips:        r.integer("total_trips"),
			AvgTripDistanceKm: r.optionalFloat("avg_trip_distance_km"),
			AvgDurationMin:    r.number("avg_duration_min"),
			DurationStdDevMin: r.optionalFloat("duration_stddev_min"),
			AvgSpeedKmh:       r.optionalFloat("avg_speed_kmh"),
		}
		rows = append(rows, row)
		return r.err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadTransferPoints loads the Q3 file from dir.
func ReadTransferPoints(dir string) ([]models.TransferPointRow, error) {
	var rows []models.TransferPointRow
	err := readCSV(TransferPoints.Path(dir), transferPointsHeader, func(r *record) error {
		row := models.TransferPointRow{
			Scope:           r.scope(),
			StopID:          r.str("stop_id"),
			StopCode:        r.optionalStr("stop_code"),
			StopName:        r.str("stop_name"),
			StopLat:         r.number("stop_lat"),
			StopLon:         r.number("stop_lon"),
			NumUniqueRoutes: r.integer("num_unique_routes"),
		}
		rows = append(rows, row)
		return r.err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadHourlyFrequency loads the Q4 file from dir.
func ReadHourlyFrequency(dir string) ([]models.HourlyFrequencyRow, error) {
	var rows []models.HourlyFrequencyRow
	err := readCSV(HourlyFrequency.Path(dir), hourlyFrequencyHeader, func(r *record) error {
		row := models.HourlyFrequencyRow{
			Scope:        r.scope(),
			Route:        models.RouteKey{LongName: r.str("route_long_name"), ShortName: r.str("route_short_name")},
			Hour:         r.integer("hour_of_day"),
			TripsPerHour: r.integer("trips_per_hour"),
		}
		rows = append(rows, row)
		return r.err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
