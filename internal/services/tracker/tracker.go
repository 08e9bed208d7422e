// Package tracker implements the operations behind the track, list and
// untrack commands.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/pipeline"
	"github.com/Houeta/pricewatch/internal/recommend"
	"github.com/Houeta/pricewatch/internal/repository"
)

// Pipeline resolves URLs and runs the extraction steps for tracking.
type Pipeline interface {
	Resolve(rawURL string) (pipeline.Target, error)
	Track(ctx context.Context, ownerID int64, target pipeline.Target) (pipeline.Commit, error)
}

// Service tracks products on behalf of owners.
type Service struct {
	log      *slog.Logger
	store    repository.Store
	pipeline Pipeline
}

// NewService creates a tracker service.
func NewService(log *slog.Logger, store repository.Store, pipeline Pipeline) *Service {
	return &Service{log: log, store: store, pipeline: pipeline}
}

// TrackProduct starts tracking rawURL for ownerID, or refreshes the item when
// the owner already tracks the same product. A failed refresh of an existing
// item still records the check before the error is returned.
func (s *Service) TrackProduct(ctx context.Context, ownerID int64, rawURL string) (*models.TrackedItem, error) {
	const op = "tracker.TrackProduct"
	log := s.log.With("op", op, "owner", ownerID)

	target, err := s.pipeline.Resolve(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	commit, err := s.pipeline.Track(ctx, ownerID, target)
	if err != nil {
		log.WarnContext(ctx, "Tracking failed", "url", target.URL, "error", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	item := commit.Item
	log.InfoContext(ctx, "Product tracked",
		"id", item.ID, "url", item.CanonicalURL, "price", item.CurrentPrice, "outcome", commit.Outcome)

	return &item, nil
}

// ListProducts returns the owner's items with freshly computed recommendations.
func (s *Service) ListProducts(ctx context.Context, ownerID int64) ([]models.TrackedItem, error) {
	const op = "tracker.ListProducts"

	items, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}

	for i := range items {
		items[i].Recommendation = recommend.Recommend(items[i].PriceHistory, items[i].CurrentPrice)
	}

	return items, nil
}

// RemoveProduct stops tracking the item. Items of other owners are reported
// as not found.
func (s *Service) RemoveProduct(ctx context.Context, ownerID int64, id string) error {
	const op = "tracker.RemoveProduct"

	item, err := s.store.FindByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrItemNotFound):
		return fmt.Errorf("%s: %w", op, repository.ErrItemNotFound)
	case err != nil:
		return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	case item.OwnerID != ownerID:
		return fmt.Errorf("%s: %w", op, repository.ErrItemNotFound)
	}

	if err = s.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}

	s.log.InfoContext(ctx, "Product untracked", "op", op, "owner", ownerID, "id", id)

	return nil
}
