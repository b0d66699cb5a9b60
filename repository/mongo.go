package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/you/transit-analytics/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/auth"
)

// ErrDocumentStoreAuth is returned when MongoDB rejects the credentials.
var ErrDocumentStoreAuth = errors.New("document store authentication failed")

// MongoDB server codes for Unauthorized and AuthenticationFailed.
var mongoAuthCodes = []int{13, 18}

// MongoStore holds the per-stop timetable documents.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects and pings the primary.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", classifyMongoError(err))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping document store: %w", classifyMongoError(err))
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// classifyMongoError tags authentication failures with ErrDocumentStoreAuth:
// server replies with an auth code and handshake errors raised by the
// driver's authenticator. URI and option errors are left as they are.
func classifyMongoError(err error) error {
	if err == nil {
		return nil
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		for _, code := range mongoAuthCodes {
			if serverErr.HasErrorCode(code) {
				return fmt.Errorf("%w: %v", ErrDocumentStoreAuth, err)
			}
		}
	}
	var handshakeErr *auth.Error
	if errors.As(err, &handshakeErr) {
		return fmt.Errorf("%w: %v", ErrDocumentStoreAuth, err)
	}
	return err
}

// Ping checks connectivity.
func (m *MongoStore) Ping(ctx context.Context) error {
	return classifyMongoError(m.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	return m.client.Disconnect(context.Background())
}

// Clear removes every document.
func (m *MongoStore) Clear(ctx context.Context) (int64, error) {
	res, err := m.collection.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear timetable collection: %w", classifyMongoError(err))
	}
	return res.DeletedCount, nil
}

// EnsureIndexes creates the geo, name and stop_id indexes.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "stop_name", Value: 1}}},
		{Keys: bson.D{{Key: "stop_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create timetable indexes: %w", classifyMongoError(err))
	}
	return nil
}

// EnsureNameIndex creates the stop_name index used by ListStops.
func (m *MongoStore) EnsureNameIndex(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "stop_name", Value: 1}}})
	if err != nil {
		return fmt.Errorf("failed to create stop_name index: %w", classifyMongoError(err))
	}
	return nil
}

// AppendServices upserts one document per stop, appending the services.
// Appends are not deduplicated.
func (m *MongoStore) AppendServices(ctx context.Context, upserts []models.StopUpsert) error {
	if len(upserts) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(upserts))
	for _, u := range upserts {
		services := u.Services
		if services == nil {
			services = []models.UpcomingService{}
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"stop_id": u.StopID}).
			SetUpdate(bson.M{
				"$setOnInsert": bson.M{
					"_id":       u.StopID,
					"stop_id":   u.StopID,
					"stop_name": u.StopName,
					"stop_code": u.StopCode,
					"location":  u.Location,
				},
				"$push": bson.M{"upcoming_services": bson.M{"$each": services}},
			}).
			SetUpsert(true))
	}
	if _, err := m.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to write %d stop documents: %w", len(writes), classifyMongoError(err))
	}
	return nil
}

// ListStops returns every stop sorted by name.
func (m *MongoStore) ListStops(ctx context.Context) ([]models.StopSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "stop_name", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}, {Key: "stop_id", Value: 1}, {Key: "stop_name", Value: 1}, {Key: "stop_code", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stops: %w", classifyMongoError(err))
	}
	stops := []models.StopSummary{}
	if err := cursor.All(ctx, &stops); err != nil {
		return nil, fmt.Errorf("failed to decode stops: %w", err)
	}
	return stops, nil
}

// FindStop returns the document for stopID or models.ErrStopNotFound.
func (m *MongoStore) FindStop(ctx context.Context, stopID string) (*models.StopDocument, error) {
	var doc models.StopDocument
	err := m.collection.FindOne(ctx, bson.M{"stop_id": stopID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrStopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stop %s: %w", stopID, classifyMongoError(err))
	}
	return &doc, nil
}
