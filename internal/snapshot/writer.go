package snapshot

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/you/transit-analytics/models"
)

// Write materializes all report tables into dir, replacing any previous
// snapshot. Each file is written to a temporary name and renamed into
// place, so readers never observe a half-written file.
func Write(dir string, tables models.ReportTables, now time.Time) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	manifest := &Manifest{
		RunID:       uuid.New().String(),
		GeneratedAt: now.UTC(),
		Rows:        make(map[string]int),
	}

	files := []struct {
		report Report
		header []string
		rows   [][]string
	}{
		{BusiestStops, busiestStopsHeader, busiestStopRecords(tables.BusiestStops)},
		{RouteDurations, routeDurationsHeader, routeDurationRecords(tables.RouteDurations)},
		{TransferPoints, transferPointsHeader, transferPointRecords(tables.TransferPoints)},
		{HourlyFrequency, hourlyFrequencyHeader, hourlyFrequencyRecords(tables.HourlyFrequency)},
	}
	for _, f := range files {
		if err := writeCSV(f.report.Path(dir), f.header, f.rows); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.report.FileName(), err)
		}
		manifest.Rows[f.report.FileName()] = len(f.rows)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return manifest, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func busiestStopRecords(rows []models.BusiestStopRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.StopID,
			formatOptionalString(r.StopCode),
			r.StopName,
			formatFloat(r.StopLat),
			formatFloat(r.StopLon),
			strconv.Itoa(r.TotalTripEvents),
			strconv.Itoa(r.NumUniqueRoutes),
			r.Scope.Label(),
		})
	}
	return out
}

func routeDurationRecords(rows []models.RouteDurationRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Route.LongName,
			r.Route.ShortName,
			r.Scope.Label(),
			strconv.Itoa(r.TotalTrips),
			formatOptionalFloat(r.AvgTripDistanceKm),
			formatFloat(r.AvgDurationMin),
			formatOptionalFloat(r.DurationStdDevMin),
			formatOptionalFloat(r.AvgSpeedKmh),
		})
	}
	return out
}

func transferPointRecords(rows []models.TransferPointRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.StopID,
			formatOptionalString(r.StopCode),
			r.StopName,
			formatFloat(r.StopLat),
			formatFloat(r.StopLon),
			strconv.Itoa(r.NumUniqueRoutes),
			r.Scope.Label(),
		})
	}
	return out
}

func hourlyFrequencyRecords(rows []models.HourlyFrequencyRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Route.LongName,
			r.Route.ShortName,
			r.Scope.Label(),
			strconv.Itoa(r.Hour),
			strconv.Itoa(r.TripsPerHour),
		})
	}
	return out
}
