package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/you/transit-analytics/models"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var ddl string

// mysqlDuplicateKeyName is returned by MySQL when an index already exists.
const mysqlDuplicateKeyName = 1061

var indexStatements = []string{
	"CREATE INDEX idx_stop_times_stop_departure ON stop_times (stop_id, departure_time)",
	"CREATE INDEX idx_trips_service ON trips (service_id)",
	"CREATE INDEX idx_trips_route ON trips (route_id)",
}

// dialect captures the differences between the supported SQL engines.
type dialect struct {
	name string
	// dollar selects $1..$n placeholders instead of ?.
	dollar bool
	// ifNotExists is true when CREATE INDEX accepts IF NOT EXISTS.
	ifNotExists bool
}

var (
	dialectMySQL    = dialect{name: "mysql"}
	dialectSQLite   = dialect{name: "sqlite", ifNotExists: true}
	dialectPostgres = dialect{name: "postgres", dollar: true, ifNotExists: true}
)

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) indexStatements() []string {
	out := make([]string, 0, len(indexStatements))
	for _, stmt := range indexStatements {
		if d.ifNotExists {
			stmt = strings.Replace(stmt, "CREATE INDEX", "CREATE INDEX IF NOT EXISTS", 1)
		}
		out = append(out, stmt)
	}
	return out
}

// schemaStatements splits the embedded DDL into executable statements.
func schemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			out = append(out, s)
		}
	}
	return out
}

const tripEventColumns = `
	t.trip_id, t.route_id, r.route_short_name, r.route_long_name, t.service_id, t.trip_headsign,
	s.stop_id, s.stop_code, s.stop_name, s.stop_lat, s.stop_lon,
	st.departure_time, st.arrival_time, st.shape_dist_traveled
FROM stop_times st
JOIN trips t ON t.trip_id = st.trip_id
JOIN routes r ON r.route_id = t.route_id
JOIN stops s ON s.stop_id = st.stop_id`

// tripEventsQuery selects every event of the scope. Combined scope reads
// every trip, including trips on calendars outside the three known ones.
func tripEventsQuery(scope models.ServiceScope) (string, []any) {
	query := "SELECT" + tripEventColumns
	var args []any
	if day, ok := scope.Day(); ok {
		query += "\nWHERE t.service_id = ?"
		args = append(args, day.ID())
	}
	return query + "\nORDER BY st.trip_id, st.stop_sequence", args
}

// tripEventBatchQuery pages through all events by stop, then departure.
// trip_id breaks ties so pages never overlap.
const tripEventBatchQuery = "SELECT" + tripEventColumns + `
ORDER BY st.stop_id, st.departure_time, st.trip_id
LIMIT ? OFFSET ?`

// scanner is satisfied by *sql.Rows, *sql.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTripEvent(row scanner) (models.TripEvent, error) {
	var (
		e                   models.TripEvent
		shortName, longName *string
		departure, arrival  *string
		lat, lon            *float64
	)
	err := row.Scan(
		&e.TripID, &e.RouteID, &shortName, &longName, &e.ServiceID, &e.TripHeadsign,
		&e.StopID, &e.StopCode, &e.StopName, &lat, &lon,
		&departure, &arrival, &e.ShapeDistTraveled,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan trip event: %w", err)
	}
	if shortName != nil {
		e.RouteShortName = *shortName
	}
	if longName != nil {
		e.RouteLongName = *longName
	}
	if lat != nil {
		e.StopLat = *lat
	}
	if lon != nil {
		e.StopLon = *lon
	}
	if e.DepartureSeconds, err = elapsedOrNil(departure); err != nil {
		return e, fmt.Errorf("trip %s stop %s: %w", e.TripID, e.StopID, err)
	}
	if e.ArrivalSeconds, err = elapsedOrNil(arrival); err != nil {
		return e, fmt.Errorf("trip %s stop %s: %w", e.TripID, e.StopID, err)
	}
	return e, nil
}

func elapsedOrNil(value *string) (*int, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	secs, err := models.ParseElapsed(*value)
	if err != nil {
		return nil, err
	}
	return &secs, nil
}

// SQLSource reads trip events through database/sql. It serves MySQL and
// SQLite.
type SQLSource struct {
	db      *sql.DB
	dialect dialect
}

// NewMySQLSource opens a MySQL connection from a go-sql-driver DSN.
func NewMySQLSource(ctx context.Context, dsn string) (*SQLSource, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = false
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return newSQLSource(ctx, db, dialectMySQL)
}

// NewSQLiteSource opens the SQLite database at dbPath, creating it when absent.
func NewSQLiteSource(ctx context.Context, dbPath string) (*SQLSource, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer keeps the importer transaction from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return newSQLSource(ctx, db, dialectSQLite)
}

func newSQLSource(ctx context.Context, db *sql.DB, d dialect) (*SQLSource, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLSource{db: db, dialect: d}, nil
}

// DB returns the underlying connection pool.
func (s *SQLSource) DB() *sql.DB {
	return s.db
}

// Driver names the SQL engine behind the source.
func (s *SQLSource) Driver() string {
	return s.dialect.name
}

// Ping checks connectivity.
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables and indexes when missing.
func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, s.db, s.dialect)
}

func ensureSchema(ctx context.Context, db *sql.DB, d dialect) error {
	for _, stmt := range schemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement [%s]: %w", stmt, err)
		}
	}
	for _, stmt := range d.indexStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			var myErr *mysql.MySQLError
			if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateKeyName {
				continue
			}
			return fmt.Errorf("failed to create index [%s]: %w", stmt, err)
		}
	}
	return nil
}

// TripEvents returns every trip event on the scope's calendars.
func (s *SQLSource) TripEvents(ctx context.Context, scope models.ServiceScope) ([]models.TripEvent, error) {
	query, args := tripEventsQuery(scope)
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip events: %w", err)
	}
	return collectTripEvents(rows)
}

// TripEventBatch returns one page of trip events ordered by stop_id, then
// departure_time.
func (s *SQLSource) TripEventBatch(ctx context.Context, limit, offset int) ([]models.TripEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(tripEventBatchQuery), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip event batch at offset %d: %w", offset, err)
	}
	return collectTripEvents(rows)
}

func collectTripEvents(rows *sql.Rows) ([]models.TripEvent, error) {
	defer rows.Close()

	var events []models.TripEvent
	for rows.Next() {
		e, err := scanTripEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trip events: %w", err)
	}
	return events, nil
}
