package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// Repository stores tracked items, their price history and alert
// subscriptions in a single SQLite file.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository opens (or creates) the database at storagePath and migrates
// the schema.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string) (*Repository, error) {
	dtb, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", storagePath))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// SQLite allows a single writer at a time.
	dtb.SetMaxOpenConns(1)

	if err = dtb.PingContext(ctx); err != nil {
		_ = dtb.Close()
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	if err = initSchema(ctx, dtb); err != nil {
		_ = dtb.Close()
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{db: dtb, log: log}, nil
}

// NewForTest wraps an already opened handle without migrating it.
func NewForTest(db *sql.DB) *Repository {
	return &Repository{db: db, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// initSchema creates the necessary tables if they don't already exist.
func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS tracked_items (
		id TEXT PRIMARY KEY NOT NULL,
		owner_id INTEGER NOT NULL,
		canonical_url TEXT NOT NULL,
		platform TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		current_price REAL NOT NULL,
		previous_price REAL NOT NULL DEFAULT 0,
		recommendation TEXT NOT NULL DEFAULT 'Neutral',
		last_checked_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		UNIQUE (owner_id, canonical_url)
	);

	CREATE TABLE IF NOT EXISTS price_samples (
		item_id TEXT NOT NULL REFERENCES tracked_items(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		price REAL NOT NULL CHECK (price > 0),
		observed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (item_id, seq)
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		chat_id INTEGER PRIMARY KEY NOT NULL
	);
	`
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}
