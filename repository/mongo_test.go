package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/transit-analytics/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/auth"
)

func TestClassifyMongoError(t *testing.T) {
	assert.Nil(t, classifyMongoError(nil))

	byCode := classifyMongoError(mongo.CommandError{Code: 18, Message: "bad credentials"})
	assert.ErrorIs(t, byCode, ErrDocumentStoreAuth)
	assert.Contains(t, byCode.Error(), "bad credentials")

	handshake := classifyMongoError(fmt.Errorf("connection() error occurred during connection handshake: %w", &auth.Error{}))
	assert.ErrorIs(t, handshake, ErrDocumentStoreAuth)

	other := errors.New("server selection timeout")
	assert.Same(t, other, classifyMongoError(other))

	// configuration mistakes mention auth options but are not credential failures
	for _, msg := range []string{
		`error parsing uri: authSource must be non-empty when supplied in a URI`,
		`error validating uri: unsupported authMechanism "PLAIN-X"`,
	} {
		cfgErr := errors.New(msg)
		assert.NotErrorIs(t, classifyMongoError(cfgErr), ErrDocumentStoreAuth, msg)
	}
}

// newTestMongo connects to MONGO_TEST_URI using a throwaway collection.
func newTestMongo(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewMongoStore(ctx, uri, "transit_test", "timetables_"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.collection.Drop(context.Background())
		store.Close()
	})
	return store
}

func TestMongoStoreAppendAndRead(t *testing.T) {
	store := newTestMongo(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureIndexes(ctx))

	code := "101"
	headsign := "Harbour"
	batch := []models.StopUpsert{{
		StopID:   "S1",
		StopName: "Plaza",
		StopCode: &code,
		Location: models.NewGeoPoint(2.17, 41.38),
		Services: []models.UpcomingService{{
			RouteID: "R1", RouteShortName: "7", RouteLongName: "Crosstown",
			TripID: "T1", ServiceID: "1", TripHeadsign: &headsign, DepartureTime: "0 days 08:00:00",
		}},
	}, {
		StopID:   "S0",
		StopName: "Avenue",
		Location: models.NewGeoPoint(2.1, 41.3),
		Services: []models.UpcomingService{{TripID: "T9", ServiceID: "2", DepartureTime: "1 days 00:10:00"}},
	}}
	require.NoError(t, store.AppendServices(ctx, batch))
	require.NoError(t, store.AppendServices(ctx, batch[:1]))

	stops, err := store.ListStops(ctx)
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "Avenue", stops[0].StopName)
	assert.Nil(t, stops[0].StopCode)
	assert.Equal(t, "101", *stops[1].StopCode)

	doc, err := store.FindStop(ctx, "S1")
	require.NoError(t, err)
	assert.Len(t, doc.UpcomingServices, 2, "appends are not deduplicated")
	assert.Equal(t, [2]float64{2.17, 41.38}, doc.Location.Coordinates)

	_, err = store.FindStop(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrStopNotFound)

	removed, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}
