package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/you/transit-analytics/models"
)

// PostgresSource reads trip events from a PostgreSQL database.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a pool from a connection URL and checks it.
func NewPostgresSource(ctx context.Context, databaseURL string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSource{pool: pool}, nil
}

// Driver names the SQL engine behind the source.
func (p *PostgresSource) Driver() string {
	return dialectPostgres.name
}

// Ping checks connectivity.
func (p *PostgresSource) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *PostgresSource) Close() error {
	p.pool.Close()
	return nil
}

// DB exposes the pool through database/sql for code shared with the other
// engines. The caller closes the returned handle; the pool stays open.
func (p *PostgresSource) DB() *sql.DB {
	return stdlib.OpenDBFromPool(p.pool)
}

// EnsureSchema creates the tables and indexes when missing.
func (p *PostgresSource) EnsureSchema(ctx context.Context) error {
	db := p.DB()
	defer db.Close()
	return ensureSchema(ctx, db, dialectPostgres)
}

// TripEvents returns every trip event on the scope's calendars.
func (p *PostgresSource) TripEvents(ctx context.Context, scope models.ServiceScope) ([]models.TripEvent, error) {
	query, args := tripEventsQuery(scope)
	rows, err := p.pool.Query(ctx, dialectPostgres.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip events: %w", err)
	}
	return collectPgTripEvents(rows)
}

// TripEventBatch returns one page of trip events ordered by stop_id, then
// departure_time.
func (p *PostgresSource) TripEventBatch(ctx context.Context, limit, offset int) ([]models.TripEvent, error) {
	rows, err := p.pool.Query(ctx, dialectPostgres.rebind(tripEventBatchQuery), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip event batch at offset %d: %w", offset, err)
	}
	return collectPgTripEvents(rows)
}

func collectPgTripEvents(rows pgx.Rows) ([]models.TripEvent, error) {
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
