package reconciler_test

import (
	"testing"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/reconciler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

const itemURL = "https://www.amazon.in/widget/dp/B0ABCDEFGH"

func newWidget(t *testing.T) models.TrackedItem {
	t.Helper()

	item, err := reconciler.NewItem("id-1", 42, itemURL, models.PlatformAmazon,
		&models.ExtractionResult{Name: "Widget", Price: 100}, t0)
	require.NoError(t, err)

	return item
}

func TestNewItem(t *testing.T) {
	item := newWidget(t)

	assert.Equal(t, "id-1", item.ID)
	assert.Equal(t, int64(42), item.OwnerID)
	assert.Equal(t, "Widget", item.DisplayName)
	assert.InDelta(t, 100.0, item.CurrentPrice, 0.001)
	assert.Zero(t, item.PreviousPrice)
	assert.Equal(t, []models.PriceSample{{Price: 100, ObservedAt: t0}}, item.PriceHistory)
	require.NotNil(t, item.LastCheckedAt)
	assert.Equal(t, t0, *item.LastCheckedAt)
	assert.Equal(t, t0, item.CreatedAt)
	assert.Equal(t, models.RecommendationNeutral, item.Recommendation)
}

func TestNewItem_RequiresUsableResult(t *testing.T) {
	for name, res := range map[string]*models.ExtractionResult{
		"nil":        nil,
		"zero price": {Name: "Widget"},
		"no name":    {Price: 10},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := reconciler.NewItem("id", 1, itemURL, models.PlatformAmazon, res, t0)
			require.ErrorIs(t, err, reconciler.ErrUnusableResult)
		})
	}
}

func TestReconcile_PriceDropThenUnchanged(t *testing.T) {
	item := newWidget(t)
	t1 := t0.Add(6 * time.Hour)
	t2 := t1.Add(6 * time.Hour)

	dropped, outcome := reconciler.Reconcile(item, &models.ExtractionResult{Name: "Widget", Price: 80}, t1)

	assert.Equal(t, reconciler.OutcomeChanged, outcome)
	assert.InDelta(t, 100.0, dropped.PreviousPrice, 0.001)
	assert.InDelta(t, 80.0, dropped.CurrentPrice, 0.001)
	assert.Equal(t, []models.PriceSample{{Price: 100, ObservedAt: t0}, {Price: 80, ObservedAt: t1}}, dropped.PriceHistory)
	assert.Equal(t, models.RecommendationStrongBuy, dropped.Recommendation)

	again, outcome := reconciler.Reconcile(dropped, &models.ExtractionResult{Name: "Widget", Price: 80}, t2)

	assert.Equal(t, reconciler.OutcomeUnchanged, outcome)
	assert.Len(t, again.PriceHistory, 2)
	assert.InDelta(t, 100.0, again.PreviousPrice, 0.001)
	require.NotNil(t, again.LastCheckedAt)
	assert.Equal(t, t2, *again.LastCheckedAt)
}

func TestReconcile_Idempotent(t *testing.T) {
	item := newWidget(t)
	res := &models.ExtractionResult{Name: "Widget", Price: 120}

	first, _ := reconciler.Reconcile(item, res, t0.Add(time.Hour))
	second, outcome := reconciler.Reconcile(first, res, t0.Add(time.Hour))

	assert.Equal(t, reconciler.OutcomeUnchanged, outcome)
	assert.Equal(t, first.PriceHistory, second.PriceHistory)
	assert.Equal(t, first.CurrentPrice, second.CurrentPrice)
	assert.Equal(t, first.PreviousPrice, second.PreviousPrice)
}

func TestReconcile_ZeroPriceGuard(t *testing.T) {
	item := newWidget(t)
	later := t0.Add(time.Hour)

	for name, res := range map[string]*models.ExtractionResult{
		"failed extraction": nil,
		"zero price":        {Name: "Widget", Price: 0},
		"negative price":    {Name: "Widget", Price: -5},
	} {
		t.Run(name, func(t *testing.T) {
			got, outcome := reconciler.Reconcile(item, res, later)

			assert.Equal(t, reconciler.OutcomeSkipped, outcome)
			assert.Equal(t, item.PriceHistory, got.PriceHistory)
			assert.InDelta(t, item.CurrentPrice, got.CurrentPrice, 0.001)
			assert.InDelta(t, item.PreviousPrice, got.PreviousPrice, 0.001)
			require.NotNil(t, got.LastCheckedAt)
			assert.Equal(t, later, *got.LastCheckedAt)
		})
	}
}

func TestReconcile_DoesNotAliasHistory(t *testing.T) {
	item := newWidget(t)
	item.PriceHistory = append(make([]models.PriceSample, 0, 8), item.PriceHistory...)

	a, _ := reconciler.Reconcile(item, &models.ExtractionResult{Name: "Widget", Price: 90}, t0.Add(time.Hour))
	b, _ := reconciler.Reconcile(item, &models.ExtractionResult{Name: "Widget", Price: 70}, t0.Add(time.Hour))

	assert.Len(t, item.PriceHistory, 1)
	assert.InDelta(t, 90.0, a.PriceHistory[1].Price, 0.001)
	assert.InDelta(t, 70.0, b.PriceHistory[1].Price, 0.001)
}

func TestReconcile_MonotonicHistory(t *testing.T) {
	item := newWidget(t)
	earlier := t0.Add(-time.Hour)

	got, outcome := reconciler.Reconcile(item, &models.ExtractionResult{Name: "Widget", Price: 90}, earlier)

	require.Equal(t, reconciler.OutcomeChanged, outcome)
	for i := 1; i < len(got.PriceHistory); i++ {
		assert.False(t, got.PriceHistory[i].ObservedAt.Before(got.PriceHistory[i-1].ObservedAt))
	}
}

func TestReconcile_FillsMissingMetadata(t *testing.T) {
	item := newWidget(t)
	item.ImageURL = ""

	got, _ := reconciler.Reconcile(item,
		&models.ExtractionResult{Name: "Renamed", Price: 100, Image: "https://img/w.jpg"}, t0.Add(time.Hour))

	assert.Equal(t, "Widget", got.DisplayName)
	assert.Equal(t, "https://img/w.jpg", got.ImageURL)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "skipped", reconciler.OutcomeSkipped.String())
	assert.Equal(t, "unchanged", reconciler.OutcomeUnchanged.String())
	assert.Equal(t, "changed", reconciler.OutcomeChanged.String())
	assert.Equal(t, "outcome(9)", reconciler.Outcome(9).String())
}
