package sqlite_test

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2025, time.May, 10, 8, 0, 0, 0, time.UTC)
	checked = created.Add(6 * time.Hour)
)

func widget(id string, owner int64) *models.TrackedItem {
	last := created

	return &models.TrackedItem{
		ID:             id,
		OwnerID:        owner,
		CanonicalURL:   "https://www.amazon.in/widget/dp/B0ABCDEFGH",
		Platform:       models.PlatformAmazon,
		DisplayName:    "Widget",
		ImageURL:       "https://m.media-amazon.com/w.jpg",
		CurrentPrice:   100,
		PriceHistory:   []models.PriceSample{{Price: 100, ObservedAt: created}},
		LastCheckedAt:  &last,
		Recommendation: models.RecommendationNeutral,
		CreatedAt:      created,
	}
}

// =============================================================================
// Integration Tests (using a real temporary database)
// =============================================================================

func TestRepository_Integration_ItemLifecycle(t *testing.T) {
	repo := newTestDB(t)
	ctx := t.Context()
	item := widget("item-1", 42)

	t.Run("lookup in empty db", func(t *testing.T) {
		_, err := repo.FindByKey(ctx, item.CanonicalURL, item.OwnerID)
		require.ErrorIs(t, err, repository.ErrItemNotFound)

		items, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("create new item", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, item))

		got, err := repo.FindByKey(ctx, item.CanonicalURL, item.OwnerID)
		require.NoError(t, err)
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, models.PlatformAmazon, got.Platform)
		assert.Equal(t, "Widget", got.DisplayName)
		assert.InDelta(t, 100.0, got.CurrentPrice, 0.001)
		assert.Equal(t, int64(0), got.Version)
		require.Len(t, got.PriceHistory, 1)
		assert.True(t, got.PriceHistory[0].ObservedAt.Equal(created))
		require.NotNil(t, got.LastCheckedAt)
		assert.True(t, got.LastCheckedAt.Equal(created))
	})

	t.Run("append sample on update", func(t *testing.T) {
		item.PreviousPrice = 100
		item.CurrentPrice = 80
		item.PriceHistory = append(item.PriceHistory, models.PriceSample{Price: 80, ObservedAt: checked})
		item.LastCheckedAt = &checked
		item.Recommendation = models.RecommendationStrongBuy

		require.NoError(t, repo.Update(ctx, item))
		assert.Equal(t, int64(1), item.Version)

		got, err := repo.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.InDelta(t, 80.0, got.CurrentPrice, 0.001)
		assert.InDelta(t, 100.0, got.PreviousPrice, 0.001)
		assert.Equal(t, models.RecommendationStrongBuy, got.Recommendation)
		assert.Equal(t, int64(1), got.Version)
		require.Len(t, got.PriceHistory, 2)
		assert.InDelta(t, 100.0, got.PriceHistory[0].Price, 0.001)
		assert.InDelta(t, 80.0, got.PriceHistory[1].Price, 0.001)
	})

	t.Run("owner scoping", func(t *testing.T) {
		other := widget("item-2", 7)
		require.NoError(t, repo.Create(ctx, other))

		mine, err := repo.FindByOwner(ctx, 42)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "item-1", mine[0].ID)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("dedup key is unique per owner", func(t *testing.T) {
		dup := widget("item-3", 42)
		require.ErrorIs(t, repo.Create(ctx, dup), repository.ErrItemExists)

		again := widget("item-1", 99)
		require.ErrorIs(t, repo.Create(ctx, again), repository.ErrItemExists)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteByID(ctx, item.ID))
		require.ErrorIs(t, repo.DeleteByID(ctx, item.ID), repository.ErrItemNotFound)

		_, err := repo.FindByID(ctx, item.ID)
		require.ErrorIs(t, err, repository.ErrItemNotFound)

		var samples int
		require.NoError(t, repo.DB().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM price_samples WHERE item_id = ?", item.ID).Scan(&samples))
		assert.Zero(t, samples)
	})

	t.Run("update after delete does not bring the item back", func(t *testing.T) {
		item.CurrentPrice = 70
		item.PriceHistory = append(item.PriceHistory, models.PriceSample{Price: 70, ObservedAt: checked.Add(time.Hour)})

		require.ErrorIs(t, repo.Update(ctx, item), repository.ErrItemNotFound)

		_, err := repo.FindByID(ctx, item.ID)
		require.ErrorIs(t, err, repository.ErrItemNotFound)

		var samples int
		require.NoError(t, repo.DB().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM price_samples WHERE item_id = ?", item.ID).Scan(&samples))
		assert.Zero(t, samples)
	})
}

func TestRepository_Integration_ConcurrentWriters(t *testing.T) {
	repo := newTestDB(t)
	ctx := t.Context()
	require.NoError(t, repo.Create(ctx, widget("item-1", 42)))

	first, err := repo.FindByID(ctx, "item-1")
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, "item-1")
	require.NoError(t, err)

	first.CurrentPrice = 90
	first.PriceHistory = append(first.PriceHistory, models.PriceSample{Price: 90, ObservedAt: checked})
	require.NoError(t, repo.Update(ctx, first))

	// The second writer read the same version and must not overwrite the first.
	second.CurrentPrice = 95
	second.PriceHistory = append(second.PriceHistory, models.PriceSample{Price: 95, ObservedAt: checked})
	require.ErrorIs(t, repo.Update(ctx, second), repository.ErrStaleItem)

	got, err := repo.FindByID(ctx, "item-1")
	require.NoError(t, err)
	assert.InDelta(t, 90.0, got.CurrentPrice, 0.001)
	require.Len(t, got.PriceHistory, 2)
	assert.InDelta(t, got.CurrentPrice, got.PriceHistory[len(got.PriceHistory)-1].Price, 0.001)

	// Retrying from a fresh read succeeds and keeps both samples.
	got.CurrentPrice = 95
	got.PriceHistory = append(got.PriceHistory, models.PriceSample{Price: 95, ObservedAt: checked.Add(time.Minute)})
	require.NoError(t, repo.Update(ctx, got))

	final, err := repo.FindByID(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), final.Version)
	require.Len(t, final.PriceHistory, 3)
	assert.InDelta(t, final.CurrentPrice, final.PriceHistory[2].Price, 0.001)
}

func TestRepository_Integration_UpdateWithShorterHistory(t *testing.T) {
	repo := newTestDB(t)
	ctx := t.Context()
	item := widget("item-1", 42)
	item.PriceHistory = append(item.PriceHistory, models.PriceSample{Price: 90, ObservedAt: checked})
	require.NoError(t, repo.Create(ctx, item))

	item.PriceHistory = item.PriceHistory[:1]

	require.ErrorIs(t, repo.Update(ctx, item), repository.ErrStaleItem)
}

// =============================================================================
// Unit Tests (using sqlmock for failure scenarios)
// =============================================================================

var itemColumns = []string{
	"id", "owner_id", "canonical_url", "platform", "display_name", "image_url",
	"current_price", "previous_price", "recommendation", "last_checked_at", "created_at", "version",
}

func TestRepository_FindAll_Failures(t *testing.T) {
	ctx := t.Context()

	t.Run("error_on_items_query", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		expectedErr := errors.New("db connection lost")
		mock.ExpectQuery("SELECT id, owner_id").WillReturnError(expectedErr)

		_, err := repo.FindAll(ctx)

		require.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "repository.sqlite.FindAll")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_scan", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		rows := sqlmock.NewRows(itemColumns).
			AddRow("id", "not-a-number", "u", "amazon", "", "", 1.0, 0.0, "Neutral", nil, created, 0)
		mock.ExpectQuery("SELECT id, owner_id").WillReturnRows(rows)

		_, err := repo.FindAll(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to scan item")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_rows", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		rows := sqlmock.NewRows(itemColumns).
			AddRow("id", 1, "u", "amazon", "", "", 1.0, 0.0, "Neutral", nil, created, 0).
			RowError(0, assert.AnError)
		mock.ExpectQuery("SELECT id, owner_id").WillReturnRows(rows)

		_, err := repo.FindAll(ctx)

		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "rows iteration error")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_history_query", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		rows := sqlmock.NewRows(itemColumns).
			AddRow("id-1", 1, "u", "amazon", "", "", 1.0, 0.0, "Neutral", checked, created, 0)
		mock.ExpectQuery("SELECT id, owner_id").WillReturnRows(rows)
		mock.ExpectQuery("SELECT price, observed_at FROM price_samples").
			WithArgs("id-1").
			WillReturnError(assert.AnError)

		_, err := repo.FindAll(ctx)

		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to get price history of id-1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		rows := sqlmock.NewRows(itemColumns).
			AddRow("id-1", 42, "u", "flipkart", "Widget", "", 80.0, 100.0, "Strong Buy", checked, created, 2)
		mock.ExpectQuery("SELECT id, owner_id").WillReturnRows(rows)
		mock.ExpectQuery("SELECT price, observed_at FROM price_samples").
			WithArgs("id-1").
			WillReturnRows(sqlmock.NewRows([]string{"price", "observed_at"}).
				AddRow(100.0, created).
				AddRow(80.0, checked))

		items, err := repo.FindAll(ctx)

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, models.PlatformFlipkart, items[0].Platform)
		assert.Equal(t, models.RecommendationStrongBuy, items[0].Recommendation)
		assert.Equal(t, []models.PriceSample{{Price: 100, ObservedAt: created}, {Price: 80, ObservedAt: checked}},
			items[0].PriceHistory)
		require.NotNil(t, items[0].LastCheckedAt)
		assert.Equal(t, checked, *items[0].LastCheckedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Create_Failures(t *testing.T) {
	ctx := t.Context()
	item := widget("item-1", 42)

	t.Run("error_on_begin_transaction", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		expectedErr := errors.New("cannot start transaction")
		mock.ExpectBegin().WillReturnError(expectedErr)

		err := repo.Create(ctx, item)

		require.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_insert", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO tracked_items").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.Create(ctx, item)

		require.ErrorIs(t, err, assert.AnError)
		assert.NotErrorIs(t, err, repository.ErrItemExists)
		assert.Contains(t, err.Error(), "failed to insert item item-1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_prepare", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO tracked_items").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectPrepare("INSERT INTO price_samples").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.Create(ctx, item)

		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to prepare insert statement")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_sample_insert", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO tracked_items").WillReturnResult(sqlmock.NewResult(1, 1))
		prep := mock.ExpectPrepare("INSERT INTO price_samples")
		prep.ExpectExec().WithArgs("item-1", 0, 100.0, created).WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.Create(ctx, item)

		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to insert price sample 0")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_commit", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO tracked_items").
			WithArgs("item-1", int64(42), item.CanonicalURL, "amazon", "Widget", item.ImageURL,
				100.0, 0.0, "Neutral", sqlmock.AnyArg(), created, int64(0)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		prep := mock.ExpectPrepare("INSERT INTO price_samples")
		prep.ExpectExec().WithArgs("item-1", 0, 100.0, created).WillReturnResult(sqlmock.NewResult(1, 1))
		expectedErr := errors.New("commit failed")
		mock.ExpectCommit().WillReturnError(expectedErr)

		err := repo.Create(ctx, item)

		require.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Update_Failures(t *testing.T) {
	ctx := t.Context()

	tests := []struct {
		name      string
		setup     func(mock sqlmock.Sqlmock)
		wantErr   error
		wantMsg   string
		wantBumps bool
	}{
		{
			name: "error_on_update",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE tracked_items SET").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			wantErr: assert.AnError,
			wantMsg: "failed to update item item-1",
		},
		{
			name: "error_on_rows_affected",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE tracked_items SET").WillReturnResult(sqlmock.NewErrorResult(assert.AnError))
				mock.ExpectRollback()
			},
			wantErr: assert.AnError,
			wantMsg: "failed to get affected rows",
		},
		{
			name: "deleted_item",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE tracked_items SET").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT EXISTS").WithArgs("item-1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectRollback()
			},
			wantErr: repository.ErrItemNotFound,
		},
		{
			name: "stale_version",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE tracked_items SET").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery("SELECT EXISTS").WithArgs("item-1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
				mock.ExpectRollback()
			},
			wantErr: repository.ErrStaleItem,
			wantMsg: "at version 3",
		},
		{
			name: "error_on_sample_count",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE tracked_items SET").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery("SELECT COUNT").WithArgs("item-1").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			wantErr: assert.AnError,
			wantMsg: "failed to count price samples",
		},
		{
			name: "more_samples_stored_than_known",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE tracked_items SET").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery("SELECT COUNT").WithArgs("item-1").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
				mock.ExpectRollback()
			},
			wantErr: repository.ErrStaleItem,
			wantMsg: "has 3 stored samples, got 2",
		},
		{
			name: "appends_only_new_samples",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE tracked_items SET").
					WithArgs("Widget", sqlmock.AnyArg(), 80.0, 100.0, "Strong Buy", sqlmock.AnyArg(), "item-1", int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery("SELECT COUNT").WithArgs("item-1").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				prep := mock.ExpectPrepare("INSERT INTO price_samples")
				prep.ExpectExec().WithArgs("item-1", 1, 80.0, checked).WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			wantBumps: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockedRepo(t)
			item := widget("item-1", 42)
			item.Version = 3
			item.PreviousPrice = 100
			item.CurrentPrice = 80
			item.Recommendation = models.RecommendationStrongBuy
			item.PriceHistory = append(item.PriceHistory, models.PriceSample{Price: 80, ObservedAt: checked})
			tt.setup(mock)

			err := repo.Update(ctx, item)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "repository.sqlite.Update")
				assert.Contains(t, err.Error(), tt.wantMsg)
				assert.Equal(t, int64(3), item.Version)
			} else {
				require.NoError(t, err)
			}
			if tt.wantBumps {
				assert.Equal(t, int64(4), item.Version)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_DeleteByID_Failures(t *testing.T) {
	ctx := t.Context()

	t.Run("error_on_exec", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("DELETE FROM tracked_items").WithArgs("id-1").WillReturnError(sql.ErrConnDone)

		err := repo.DeleteByID(ctx, "id-1")

		require.ErrorIs(t, err, sql.ErrConnDone)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_rows_affected", func(t *testing.T) {
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("DELETE FROM tracked_items").
			WithArgs("id-1").
			WillReturnResult(sqlmock.NewErrorResult(assert.AnError))

		err := repo.DeleteByID(ctx, "id-1")

		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to get affected rows")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
