// Package postgres is a PostgreSQL implementation of the tracked item store.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of *pgxpool.Pool used by the repository.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tracked_items (
		id TEXT PRIMARY KEY,
		owner_id BIGINT NOT NULL,
		canonical_url TEXT NOT NULL,
		platform TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		current_price DOUBLE PRECISION NOT NULL,
		previous_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		recommendation TEXT NOT NULL DEFAULT 'Neutral',
		last_checked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		version BIGINT NOT NULL DEFAULT 0,
		UNIQUE (owner_id, canonical_url)
	)`,
	`CREATE TABLE IF NOT EXISTS price_samples (
		item_id TEXT NOT NULL REFERENCES tracked_items(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		price DOUBLE PRECISION NOT NULL CHECK (price > 0),
		observed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (item_id, seq)
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		chat_id BIGINT PRIMARY KEY
	)`,
}

// Repository stores tracked items in PostgreSQL.
type Repository struct {
	pool Pool
	log  *slog.Logger
}

// NewRepository connects to dsn and migrates the schema.
func NewRepository(ctx context.Context, log *slog.Logger, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	repo := NewWithPool(log, pool)
	if err = repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return repo, nil
}

// NewWithPool wraps an existing pool without migrating it.
func NewWithPool(log *slog.Logger, pool Pool) *Repository {
	return &Repository{pool: pool, log: log}
}

// Migrate creates the tables if they don't already exist.
func (r *Repository) Migrate(ctx context.Context) error {
	const opn = "repository.postgres.Migrate"

	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: failed to execute migration query: %w", opn, err)
		}
	}

	return nil
}

// Close releases the pool.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}
