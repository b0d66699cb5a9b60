package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/transit-analytics/internal/config"
	"github.com/you/transit-analytics/models"
)

func newTestSQLite(t *testing.T) *SQLSource {
	t.Helper()
	ctx := context.Background()
	src, err := NewSQLiteSource(ctx, filepath.Join(t.TempDir(), "transit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	require.NoError(t, src.EnsureSchema(ctx))
	return src
}

func seed(t *testing.T, src *SQLSource) {
	t.Helper()
	stmts := []string{
		`INSERT INTO stops VALUES ('S1', '101', 'Plaza', 41.38, 2.17)`,
		`INSERT INTO stops VALUES ('S2', NULL, 'Harbour', NULL, NULL)`,
		`INSERT INTO routes VALUES ('R1', '7', 'Crosstown')`,
		`INSERT INTO routes VALUES ('R2', NULL, NULL)`,
		`INSERT INTO trips VALUES ('T1', 'R1', '1', 'Harbour')`,
		`INSERT INTO trips VALUES ('T2', 'R1', '2', NULL)`,
		`INSERT INTO trips VALUES ('T3', 'R2', '9', 'Depot')`,
		`INSERT INTO stop_times VALUES ('T1', 'S1', 1, '08:00:00', '08:00:30', 0)`,
		`INSERT INTO stop_times VALUES ('T1', 'S2', 2, '08:10:00', '08:10:00', 2.5)`,
		`INSERT INTO stop_times VALUES ('T2', 'S1', 1, '24:30:00', '24:30:00', NULL)`,
		`INSERT INTO stop_times VALUES ('T2', 'S2', 2, '', NULL, NULL)`,
		`INSERT INTO stop_times VALUES ('T3', 'S1', 1, '07:00:00', '07:00:00', NULL)`,
	}
	for _, stmt := range stmts {
		_, err := src.DB().Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	src := newTestSQLite(t)
	assert.NoError(t, src.EnsureSchema(context.Background()))
	assert.Equal(t, "sqlite", src.Driver())
}

func TestTripEventsByScope(t *testing.T) {
	src := newTestSQLite(t)
	seed(t, src)
	ctx := context.Background()

	all, err := src.TripEvents(ctx, models.Combined())
	require.NoError(t, err)
	assert.Len(t, all, 5, "combined scope includes unknown calendars")

	weekday, err := src.TripEvents(ctx, models.Only(models.Weekday))
	require.NoError(t, err)
	require.Len(t, weekday, 2)

	first := weekday[0]
	assert.Equal(t, "T1", first.TripID)
	assert.Equal(t, "7", first.RouteShortName)
	assert.Equal(t, "Crosstown", first.RouteLongName)
	assert.Equal(t, "Harbour", *first.TripHeadsign)
	assert.Equal(t, "101", *first.StopCode)
	assert.InDelta(t, 41.38, first.StopLat, 1e-9)
	assert.Equal(t, 8*3600+30, *first.DepartureSeconds)
	assert.Equal(t, 8*3600, *first.ArrivalSeconds)
	require.NotNil(t, first.ShapeDistTraveled)
	assert.Zero(t, *first.ShapeDistTraveled)

	second := weekday[1]
	assert.Nil(t, second.StopCode)
	assert.Zero(t, second.StopLat)
	assert.InDelta(t, 2.5, *second.ShapeDistTraveled, 1e-9)
}

func TestTripEventsNullableFields(t *testing.T) {
	src := newTestSQLite(t)
	seed(t, src)

	saturday, err := src.TripEvents(context.Background(), models.Only(models.Saturday))
	require.NoError(t, err)
	require.Len(t, saturday, 2)

	assert.Nil(t, saturday[0].TripHeadsign)
	assert.Equal(t, 24*3600+30*60, *saturday[0].DepartureSeconds)
	assert.Nil(t, saturday[0].ShapeDistTraveled)

	assert.Nil(t, saturday[1].DepartureSeconds, "NULL time")
	assert.Nil(t, saturday[1].ArrivalSeconds, "blank time")
}

func TestTripEventBatchPaging(t *testing.T) {
	src := newTestSQLite(t)
	seed(t, src)
	ctx := context.Background()

	var got []string
	for offset := 0; ; offset += 2 {
		batch, err := src.TripEventBatch(ctx, 2, offset)
		require.NoError(t, err)
		for _, e := range batch {
			got = append(got, e.StopID+"/"+e.TripID)
		}
		if len(batch) < 2 {
			break
		}
	}
	// stop_id, then departure_time text, then trip_id
	assert.Equal(t, []string{"S1/T3", "S1/T1", "S1/T2", "S2/T2", "S2/T1"}, got)
}

func TestRebind(t *testing.T) {
	q := "SELECT 1 WHERE a = ? AND b = ? LIMIT ?"
	assert.Equal(t, q, dialectMySQL.rebind(q))
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2 LIMIT $3", dialectPostgres.rebind(q))
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements()
	require.Len(t, stmts, 4)
	for _, s := range stmts {
		assert.Contains(t, s, "CREATE TABLE IF NOT EXISTS")
		assert.NotContains(t, s, "--")
	}

	assert.Contains(t, dialectSQLite.indexStatements()[0], "IF NOT EXISTS")
	assert.NotContains(t, dialectMySQL.indexStatements()[0], "IF NOT EXISTS")
}

func TestOpenEventSource(t *testing.T) {
	ctx := context.Background()
	store, err := OpenEventSource(ctx, config.RelationalConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(ctx))

	_, err = OpenEventSource(ctx, config.RelationalConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported relational driver")
}
