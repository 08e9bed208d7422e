package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/mattn/go-sqlite3"
)

const selectItemsQuery = `SELECT id, owner_id, canonical_url, platform, display_name, image_url,
	current_price, previous_price, recommendation, last_checked_at, created_at, version
	FROM tracked_items`

const insertItemQuery = `INSERT INTO tracked_items (id, owner_id, canonical_url, platform, display_name,
	image_url, current_price, previous_price, recommendation, last_checked_at, created_at, version)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateItemQuery = `UPDATE tracked_items SET
		display_name = ?,
		image_url = ?,
		current_price = ?,
		previous_price = ?,
		recommendation = ?,
		last_checked_at = ?,
		version = version + 1
	WHERE id = ? AND version = ?`

// FindAll returns every tracked item with its price history.
func (r *Repository) FindAll(ctx context.Context) ([]models.TrackedItem, error) {
	const opn = "repository.sqlite.FindAll"

	return r.queryItems(ctx, opn, selectItemsQuery+" ORDER BY created_at, id")
}

// FindByOwner returns the items tracked by ownerID.
func (r *Repository) FindByOwner(ctx context.Context, ownerID int64) ([]models.TrackedItem, error) {
	const opn = "repository.sqlite.FindByOwner"

	return r.queryItems(ctx, opn, selectItemsQuery+" WHERE owner_id = ? ORDER BY created_at, id", ownerID)
}

// FindByKey looks an item up by its dedup key.
func (r *Repository) FindByKey(ctx context.Context, canonicalURL string, ownerID int64) (*models.TrackedItem, error) {
	const opn = "repository.sqlite.FindByKey"

	items, err := r.queryItems(ctx, opn,
		selectItemsQuery+" WHERE canonical_url = ? AND owner_id = ?", canonicalURL, ownerID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, repository.ErrItemNotFound
	}

	return &items[0], nil
}

// FindByID looks an item up by its identifier.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.TrackedItem, error) {
	const opn = "repository.sqlite.FindByID"

	items, err := r.queryItems(ctx, opn, selectItemsQuery+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, repository.ErrItemNotFound
	}

	return &items[0], nil
}

// Create inserts a new item and its history.
func (r *Repository) Create(ctx context.Context, item *models.TrackedItem) error {
	const opn = "repository.sqlite.Create"

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // returns sql.ErrTxDone after a successful commit.

	_, err = tx.ExecContext(ctx, insertItemQuery,
		item.ID, item.OwnerID, item.CanonicalURL, string(item.Platform), item.DisplayName,
		item.ImageURL, item.CurrentPrice, item.PreviousPrice, string(item.Recommendation),
		nullTime(item.LastCheckedAt), item.CreatedAt, item.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w: %s", opn, repository.ErrItemExists, item.CanonicalURL)
		}
		return fmt.Errorf("%s: failed to insert item %s: %w", opn, item.ID, err)
	}

	if err = insertSamples(ctx, tx, item, 0); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

// Update writes the item if it is still at item.Version and appends the
// samples that follow the stored history.
func (r *Repository) Update(ctx context.Context, item *models.TrackedItem) error {
	const opn = "repository.sqlite.Update"

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // returns sql.ErrTxDone after a successful commit.

	res, err := tx.ExecContext(ctx, updateItemQuery,
		item.DisplayName, item.ImageURL, item.CurrentPrice, item.PreviousPrice,
		string(item.Recommendation), nullTime(item.LastCheckedAt), item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update item %s: %w", opn, item.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if n == 0 {
		var exists bool
		err = tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM tracked_items WHERE id = ?)", item.ID).Scan(&exists)
		switch {
		case err != nil:
			return fmt.Errorf("%s: failed to check item %s: %w", opn, item.ID, err)
		case !exists:
			return fmt.Errorf("%s: %w: %s", opn, repository.ErrItemNotFound, item.ID)
		default:
			return fmt.Errorf("%s: %w: %s at version %d", opn, repository.ErrStaleItem, item.ID, item.Version)
		}
	}

	var stored int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM price_samples WHERE item_id = ?", item.ID).Scan(&stored)
	if err != nil {
		return fmt.Errorf("%s: failed to count price samples: %w", opn, err)
	}
	if stored > len(item.PriceHistory) {
		return fmt.Errorf("%s: %w: %s has %d stored samples, got %d",
			opn, repository.ErrStaleItem, item.ID, stored, len(item.PriceHistory))
	}

	if err = insertSamples(ctx, tx, item, stored); err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}
	item.Version++

	return nil
}

// insertSamples stores item.PriceHistory[from:]. A sample that already exists
// is an error, never silently skipped.
func insertSamples(ctx context.Context, tx *sql.Tx, item *models.TrackedItem, from int) error {
	if from >= len(item.PriceHistory) {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO price_samples (item_id, seq, price, observed_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for seq := from; seq < len(item.PriceHistory); seq++ {
		s := item.PriceHistory[seq]
		if _, err = stmt.ExecContext(ctx, item.ID, seq, s.Price, s.ObservedAt); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: price sample %d of %s", repository.ErrStaleItem, seq, item.ID)
			}
			return fmt.Errorf("failed to insert price sample %d: %w", seq, err)
		}
	}

	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error

	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

// DeleteByID removes the item; its samples go with it.
func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	const opn = "repository.sqlite.DeleteByID"

	res, err := r.db.ExecContext(ctx, "DELETE FROM tracked_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", opn, err)
	}
	if n == 0 {
		return repository.ErrItemNotFound
	}

	return nil
}

// queryItems runs an item query and then loads the history of every row.
// Rows are drained first because the pool holds a single connection.
func (r *Repository) queryItems(ctx context.Context, opn, query string, args ...any) ([]models.TrackedItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get items: %w", opn, err)
	}
	defer rows.Close()

	var items []models.TrackedItem
	for rows.Next() {
		var (
			item        models.TrackedItem
			pltf, rec   string
			lastChecked sql.NullTime
		)
		err = rows.Scan(&item.ID, &item.OwnerID, &item.CanonicalURL, &pltf, &item.DisplayName,
			&item.ImageURL, &item.CurrentPrice, &item.PreviousPrice, &rec, &lastChecked, &item.CreatedAt, &item.Version)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan item: %w", opn, err)
		}

		item.Platform = models.Platform(pltf)
		item.Recommendation = models.Recommendation(rec)
		if lastChecked.Valid {
			t := lastChecked.Time
			item.LastCheckedAt = &t
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}
	rows.Close()

	for i := range items {
		if items[i].PriceHistory, err = r.loadHistory(ctx, items[i].ID); err != nil {
			return nil, fmt.Errorf("%s: %w", opn, err)
		}
	}

	return items, nil
}

func (r *Repository) loadHistory(ctx context.Context, itemID string) ([]models.PriceSample, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT price, observed_at FROM price_samples WHERE item_id = ? ORDER BY seq", itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history of %s: %w", itemID, err)
	}
	defer rows.Close()

	var history []models.PriceSample
	for rows.Next() {
		var s models.PriceSample
		if err = rows.Scan(&s.Price, &s.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price sample: %w", err)
		}
		history = append(history, s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows iteration error: %w", err)
	}

	return history, nil
}
