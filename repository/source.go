package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/you/transit-analytics/internal/config"
	"github.com/you/transit-analytics/models"
)

// EventStore is the relational source shared by the reports, the
// denormalizer and the importer.
type EventStore interface {
	TripEvents(ctx context.Context, scope models.ServiceScope) ([]models.TripEvent, error)
	TripEventBatch(ctx context.Context, limit, offset int) ([]models.TripEvent, error)
	EnsureSchema(ctx context.Context) error
	Driver() string
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ EventStore = (*SQLSource)(nil)
	_ EventStore = (*PostgresSource)(nil)
)

// OpenEventSource connects to the configured relational driver.
func OpenEventSource(ctx context.Context, cfg config.RelationalConfig) (EventStore, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return NewMySQLSource(ctx, cfg.MySQL.DSN())
	case config.DriverSQLite:
		return NewSQLiteSource(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return NewPostgresSource(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unsupported relational driver %q", cfg.Driver)
}

// NewImporterFor builds an importer writing into the given source.
func NewImporterFor(store EventStore) (*Importer, error) {
	switch s := store.(type) {
	case *SQLSource:
		return &Importer{db: s.DB(), dialect: s.dialect}, nil
	case *PostgresSource:
		return &Importer{db: s.DB(), dialect: dialectPostgres, closeDB: true}, nil
	}
	return nil, fmt.Errorf("unsupported event store %T", store)
}

// toNullString maps an empty string to NULL.
func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
