package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const selectItemsQuery = `SELECT id, owner_id, canonical_url, platform, display_name, image_url,
	current_price, previous_price, recommendation, last_checked_at, created_at, version
	FROM tracked_items`

const insertItemQuery = `INSERT INTO tracked_items (id, owner_id, canonical_url, platform, display_name,
	image_url, current_price, previous_price, recommendation, last_checked_at, created_at, version)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const updateItemQuery = `UPDATE tracked_items SET
		display_name = $1,
		image_url = $2,
		current_price = $3,
		previous_price = $4,
		recommendation = $5,
		last_checked_at = $6,
		version = version + 1
	WHERE id = $7 AND version = $8`

const insertSampleQuery = `INSERT INTO price_samples (item_id, seq, price, observed_at) VALUES ($1, $2, $3, $4)`

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// FindAll returns every tracked item with its price history.
func (r *Repository) FindAll(ctx context.Context) ([]models.TrackedItem, error) {
	const opn = "repository.postgres.FindAll"

	return r.queryItems(ctx, opn, selectItemsQuery+" ORDER BY created_at, id")
}

// FindByOwner returns the items tracked by ownerID.
func (r *Repository) FindByOwner(ctx context.Context, ownerID int64) ([]models.TrackedItem, error) {
	const opn = "repository.postgres.FindByOwner"

	return r.queryItems(ctx, opn, selectItemsQuery+" WHERE owner_id = $1 ORDER BY created_at, id", ownerID)
}

// FindByKey looks an item up by its dedup key.
func (r *Repository) FindByKey(ctx context.Context, canonicalURL string, ownerID int64) (*models.TrackedItem, error) {
	const opn = "repository.postgres.FindByKey"

	items, err := r.queryItems(ctx, opn,
		selectItemsQuery+" WHERE canonical_url = $1 AND owner_id = $2", canonicalURL, ownerID)
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
	const opn = "repository.postgres.FindByID"

	items, err := r.queryItems(ctx, opn, selectItemsQuery+" WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, repository.ErrItemNotFound
	}

	return &items[0], nil
}

// Create inserts a new item and its history.
func (r *Repository) Create(ctx context.Context, item *models.TrackedItem) (err error) {
	const opn = "repository.postgres.Create"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer r.rollbackOnError(ctx, opn, tx, &err)

	_, err = tx.Exec(ctx, insertItemQuery,
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

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

// Update writes the item if it is still at item.Version and appends the
// samples that follow the stored history.
func (r *Repository) Update(ctx context.Context, item *models.TrackedItem) (err error) {
	const opn = "repository.postgres.Update"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer r.rollbackOnError(ctx, opn, tx, &err)

	tag, err := tx.Exec(ctx, updateItemQuery,
		item.DisplayName, item.ImageURL, item.CurrentPrice, item.PreviousPrice,
		string(item.Recommendation), nullTime(item.LastCheckedAt), item.ID, item.Version,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to update item %s: %w", opn, item.ID, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		err = tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM tracked_items WHERE id = $1)", item.ID).Scan(&exists)
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
	err = tx.QueryRow(ctx, "SELECT COUNT(*) FROM price_samples WHERE item_id = $1", item.ID).Scan(&stored)
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

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}
	item.Version++

	return nil
}

func (r *Repository) rollbackOnError(ctx context.Context, opn string, tx pgx.Tx, err *error) {
	if *err == nil {
		return
	}
	if rbErr := tx.Rollback(ctx); rbErr != nil {
		r.log.WarnContext(ctx, "rollback failed", "op", opn, "error", rbErr)
	}
}

// insertSamples stores item.PriceHistory[from:]. A sample that already exists
// is an error, never silently skipped.
func insertSamples(ctx context.Context, tx pgx.Tx, item *models.TrackedItem, from int) error {
	for seq := from; seq < len(item.PriceHistory); seq++ {
		s := item.PriceHistory[seq]
		if _, err := tx.Exec(ctx, insertSampleQuery, item.ID, seq, s.Price, s.ObservedAt); err != nil {
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
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// DeleteByID removes the item; its samples go with it.
func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	const opn = "repository.postgres.DeleteByID"

	tag, err := r.pool.Exec(ctx, "DELETE FROM tracked_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%s: %w", opn, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrItemNotFound
	}

	return nil
}

func (r *Repository) queryItems(ctx context.Context, opn, query string, args ...any) ([]models.TrackedItem, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get items: %w", opn, err)
	}
	defer rows.Close()

	var (
		items []models.TrackedItem
		ids   []string
	)
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
		ids = append(ids, item.ID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	if len(items) == 0 {
		return items, nil
	}

	history, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opn, err)
	}
	for i := range items {
		items[i].PriceHistory = history[items[i].ID]
	}

	return items, nil
}

func (r *Repository) loadHistory(ctx context.Context, ids []string) (map[string][]models.PriceSample, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT item_id, price, observed_at FROM price_samples WHERE item_id = ANY($1) ORDER BY item_id, seq", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	defer rows.Close()

	history := make(map[string][]models.PriceSample, len(ids))
	for rows.Next() {
		var (
			itemID string
			s      models.PriceSample
		)
		if err = rows.Scan(&itemID, &s.Price, &s.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price sample: %w", err)
		}
		history[itemID] = append(history[itemID], s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows iteration error: %w", err)
	}

	return history, nil
}
