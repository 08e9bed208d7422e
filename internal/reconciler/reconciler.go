// Package reconciler merges extraction results into a tracked item's price
// history.
package reconciler

import (
	"errors"
	"fmt"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/recommend"
)

// ErrUnusableResult is returned by NewItem when the first extraction has no
// name or no positive price.
var ErrUnusableResult = errors.New("extraction result is not usable")

// Outcome tells what a reconciliation did to the item.
type Outcome int

const (
	OutcomeSkipped   Outcome = iota // no usable price, only LastCheckedAt refreshed
	OutcomeUnchanged                // same price as before
	OutcomeChanged                  // new sample appended
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeChanged:
		return "changed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Reconcile applies result to a copy of item and returns it. A nil result
// stands for a failed extraction. The recommendation is recomputed in every
// case and LastCheckedAt is always set to now.
func Reconcile(item models.TrackedItem, result *models.ExtractionResult, now time.Time) (models.TrackedItem, Outcome) {
	updated := item
	updated.PriceHistory = append(make([]models.PriceSample, 0, len(item.PriceHistory)+1), item.PriceHistory...)
	checked := now
	updated.LastCheckedAt = &checked

	outcome := OutcomeSkipped

	switch {
	case result == nil || result.Price <= 0:
	case result.Price == item.CurrentPrice:
		outcome = OutcomeUnchanged
	default:
		observedAt := now
		if last, ok := item.LastSample(); ok && observedAt.Before(last.ObservedAt) {
			observedAt = last.ObservedAt
		}

		updated.PreviousPrice = item.CurrentPrice
		updated.CurrentPrice = result.Price
		updated.PriceHistory = append(updated.PriceHistory, models.PriceSample{
			Price:      result.Price,
			ObservedAt: observedAt,
		})
		outcome = OutcomeChanged
	}

	if outcome != OutcomeSkipped {
		if updated.DisplayName == "" {
			updated.DisplayName = result.Name
		}
		if updated.ImageURL == "" {
			updated.ImageURL = result.Image
		}
	}

	updated.Recommendation = recommend.Recommend(updated.PriceHistory, updated.CurrentPrice)

	return updated, outcome
}

// NewItem builds the first record for a product from a usable extraction.
func NewItem(
	id string,
	ownerID int64,
	canonicalURL string,
	platform models.Platform,
	result *models.ExtractionResult,
	now time.Time,
) (models.TrackedItem, error) {
	const op = "reconciler.NewItem"

	if !result.Usable() {
		return models.TrackedItem{}, fmt.Errorf("%s: %w", op, ErrUnusableResult)
	}

	checked := now
	history := []models.PriceSample{{Price: result.Price, ObservedAt: now}}

	return models.TrackedItem{
		ID:             id,
		OwnerID:        ownerID,
		CanonicalURL:   canonicalURL,
		Platform:       platform,
		DisplayName:    result.Name,
		ImageURL:       result.Image,
		CurrentPrice:   result.Price,
		PriceHistory:   history,
		LastCheckedAt:  &checked,
		Recommendation: recommend.Recommend(history, result.Price),
		CreatedAt:      now,
	}, nil
}
