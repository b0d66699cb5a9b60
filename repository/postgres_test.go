package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/transit-analytics/models"
)

// TestPostgresSource runs against TEST_DATABASE_URL and replaces its
// GTFS tables.
func TestPostgresSource(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	src, err := NewPostgresSource(ctx, url)
	require.NoError(t, err)
	defer src.Close()
	require.NoError(t, src.EnsureSchema(ctx))
	require.NoError(t, src.EnsureSchema(ctx))

	im, err := NewImporterFor(src)
	require.NoError(t, err)
	defer im.Close()
	_, err = im.ImportFile(ctx, writeFeed(t))
	require.NoError(t, err)

	weekday, err := src.TripEvents(ctx, models.Only(models.Weekday))
	require.NoError(t, err)
	require.Len(t, weekday, 2)
	assert.Equal(t, "Crosstown", weekday[0].RouteLongName)

	batch, err := src.TripEventBatch(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "S1", batch[0].StopID)
	assert.Equal(t, 8*3600, *batch[0].DepartureSeconds)
}
