package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"
	"github.com/you/transit-analytics/models"
)

// ImportStats counts the rows written by an import.
type ImportStats struct {
	Stops     int
	Routes    int
	Trips     int
	StopTimes int
	Warnings  int
	Duration  time.Duration
}

// Importer loads a static GTFS feed into the relational source, replacing
// whatever was there.
type Importer struct {
	db      *sql.DB
	dialect dialect
	closeDB bool
}

// Close releases the importer's handle when it owns one.
func (im *Importer) Close() error {
	if im.closeDB {
		return im.db.Close()
	}
	return nil
}

// ImportFile parses the GTFS zip at path and imports it.
func (im *Importer) ImportFile(ctx context.Context, path string) (*ImportStats, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading local GTFS file: %w", err)
	}
	return im.importBytes(ctx, b)
}

// ImportSource imports from an http(s) URL or a local path.
func (im *Importer) ImportSource(ctx context.Context, source string) (*ImportStats, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return im.ImportFile(ctx, source)
	}
	b, err := downloadFeed(ctx, source)
	if err != nil {
		return nil, err
	}
	return im.importBytes(ctx, b)
}

func downloadFeed(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error building GTFS request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer resp.Body.Close() // nolint

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading GTFS data: unexpected status %s", resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	return b, nil
}

func (im *Importer) importBytes(ctx context.Context, b []byte) (*ImportStats, error) {
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}
	return im.Import(ctx, static)
}

// Import writes the feed in a single transaction.
func (im *Importer) Import(ctx context.Context, static *gtfs.Static) (*ImportStats, error) {
	start := time.Now()
	stats := &ImportStats{Warnings: len(static.Warnings)}

	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"stop_times", "trips", "routes", "stops"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if stats.Stops, err = im.insertStops(ctx, tx, static.Stops); err != nil {
		return nil, err
	}
	if stats.Routes, err = im.insertRoutes(ctx, tx, static.Routes); err != nil {
		return nil, err
	}
	if stats.Trips, stats.StopTimes, err = im.insertTrips(ctx, tx, static.Trips); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	stats.Duration = time.Since(start)
	return stats, nil
}

func (im *Importer) prepare(ctx context.Context, tx *sql.Tx, query string) (*sql.Stmt, error) {
	stmt, err := tx.PrepareContext(ctx, im.dialect.rebind(query))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare [%s]: %w", query, err)
	}
	return stmt, nil
}

func (im *Importer) insertStops(ctx context.Context, tx *sql.Tx, stops []gtfs.Stop) (int, error) {
	stmt, err := im.prepare(ctx, tx,
		"INSERT INTO stops (stop_id, stop_code, stop_name, stop_lat, stop_lon) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, s := range stops {
		if _, err := stmt.ExecContext(ctx, s.Id, toNullString(s.Code), s.Name,
			toNullFloat(s.Latitude), toNullFloat(s.Longitude)); err != nil {
			return 0, fmt.Errorf("failed to insert stop %s: %w", s.Id, err)
		}
	}
	return len(stops), nil
}

func (im *Importer) insertRoutes(ctx context.Context, tx *sql.Tx, routes []gtfs.Route) (int, error) {
	stmt, err := im.prepare(ctx, tx,
		"INSERT INTO routes (route_id, route_short_name, route_long_name) VALUES (?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range routes {
		if _, err := stmt.ExecContext(ctx, r.Id, toNullString(r.ShortName), toNullString(r.LongName)); err != nil {
			return 0, fmt.Errorf("failed to insert route %s: %w", r.Id, err)
		}
	}
	return len(routes), nil
}

func (im *Importer) insertTrips(ctx context.Context, tx *sql.Tx, trips []gtfs.ScheduledTrip) (int, int, error) {
	tripStmt, err := im.prepare(ctx, tx,
		"INSERT INTO trips (trip_id, route_id, service_id, trip_headsign) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, 0, err
	}
	defer tripStmt.Close()

	stopTimeStmt, err := im.prepare(ctx, tx,
		`INSERT INTO stop_times (trip_id, stop_id, stop_sequence, arrival_time, departure_time, shape_dist_traveled)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, err
	}
	defer stopTimeStmt.Close()

	inserted, stopTimes := 0, 0
	for _, t := range trips {
		if t.Route == nil || t.Service == nil {
			continue
		}
		if _, err := tripStmt.ExecContext(ctx, t.ID, t.Route.Id, t.Service.Id, toNullString(t.Headsign)); err != nil {
			return 0, 0, fmt.Errorf("failed to insert trip %s: %w", t.ID, err)
		}
		inserted++
		for _, st := range t.StopTimes {
			if st.Stop == nil {
				continue
			}
			arrival, departure := stopTimeValues(st)
			if _, err := stopTimeStmt.ExecContext(ctx, t.ID, st.Stop.Id, st.StopSequence,
				arrival, departure, toNullFloat(st.ShapeDistanceTraveled)); err != nil {
				return 0, 0, fmt.Errorf("failed to insert stop time %s/%d: %w", t.ID, st.StopSequence, err)
			}
			stopTimes++
		}
	}
	return inserted, stopTimes, nil
}

// stopTimeValues renders the times as GTFS text. Rows with neither time are
// dropped by the parser, so both values are always present here.
func stopTimeValues(st gtfs.ScheduledStopTime) (string, string) {
	return models.FormatClock(int(st.ArrivalTime / time.Second)),
		models.FormatClock(int(st.DepartureTime / time.Second))
}
