// Package pipeline runs the classify, extract, reconcile and recommend steps
// shared by scheduled passes and first-time tracking.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/platform"
	"github.com/Houeta/pricewatch/internal/reconciler"
	"github.com/Houeta/pricewatch/internal/repository"
	"github.com/google/uuid"
)

// Extractor obtains product data for a canonical URL.
type Extractor interface {
	Extract(ctx context.Context, pageURL string, platform models.Platform) (*models.ExtractionResult, error)
}

// Classifier maps a URL to a platform.
type Classifier interface {
	Classify(rawURL string) (models.Platform, error)
}

// Store is the part of the item store the pipeline commits through.
type Store interface {
	FindByKey(ctx context.Context, canonicalURL string, ownerID int64) (*models.TrackedItem, error)
	FindByID(ctx context.Context, id string) (*models.TrackedItem, error)
	Create(ctx context.Context, item *models.TrackedItem) error
	Update(ctx context.Context, item *models.TrackedItem) error
}

// maxCommitAttempts bounds the re-read and retry loop on concurrent updates.
const maxCommitAttempts = 3

// Target is a resolved product location.
type Target struct {
	URL      string
	Platform models.Platform
}

// Commit is a reconciliation that has been stored.
type Commit struct {
	Item     models.TrackedItem
	OldPrice float64
	Outcome  reconciler.Outcome
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator replaces the uuid based ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

// Pipeline wires the classifier, the extraction service, the reconciler and
// the item store.
type Pipeline struct {
	log        *slog.Logger
	classifier Classifier
	extractor  Extractor
	store      Store
	now        func() time.Time
	newID      func() string
}

// New creates a pipeline.
func New(log *slog.Logger, classifier Classifier, extractor Extractor, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		log:        log,
		classifier: classifier,
		extractor:  extractor,
		store:      store,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Resolve classifies rawURL and reduces it to its canonical form.
func (p *Pipeline) Resolve(rawURL string) (Target, error) {
	pltf, err := p.classifier.Classify(rawURL)
	if err != nil {
		return Target{}, err
	}

	return Target{URL: platform.Canonicalize(rawURL, pltf), Platform: pltf}, nil
}

// Track extracts target and merges the result into the item ownerID already
// tracks under the same canonical URL, or creates a new item. When the owner
// already tracks the product a failed extraction still records the check; the
// extraction error is returned after the commit so callers can surface it.
func (p *Pipeline) Track(ctx context.Context, ownerID int64, target Target) (Commit, error) {
	const op = "pipeline.Track"

	existing, err := p.store.FindByKey(ctx, target.URL, ownerID)
	switch {
	case errors.Is(err, repository.ErrItemNotFound):
		existing = nil
	case err != nil:
		return Commit{}, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}

	res, extractErr := p.extractor.Extract(ctx, target.URL, target.Platform)
	if existing == nil {
		if extractErr != nil {
			return Commit{}, fmt.Errorf("%s: %w", op, extractErr)
		}
		return p.create(ctx, ownerID, target, res)
	}

	if extractErr != nil {
		res = nil
	}

	commit, err := p.commit(ctx, existing.ID, res)
	switch {
	case errors.Is(err, repository.ErrItemNotFound) && extractErr != nil:
		return Commit{}, fmt.Errorf("%s: %w", op, extractErr)
	case errors.Is(err, repository.ErrItemNotFound):
		// Untracked while extracting; track it anew.
		return p.create(ctx, ownerID, target, res)
	case err != nil:
		return Commit{}, fmt.Errorf("%s: %w", op, err)
	case extractErr != nil:
		return commit, fmt.Errorf("%s: %w", op, extractErr)
	}

	return commit, nil
}

// Refresh re-runs extraction for a stored item and commits the result against
// the latest stored state. A classification error means the item cannot be
// processed and nothing is stored. On extraction failure the refreshed
// LastCheckedAt is still committed, the outcome is OutcomeSkipped and the
// extraction error is returned. An item deleted meanwhile yields
// repository.ErrItemNotFound and is not written back.
func (p *Pipeline) Refresh(ctx context.Context, item models.TrackedItem) (Commit, error) {
	const op = "pipeline.Refresh"

	pltf, err := p.classifier.Classify(item.CanonicalURL)
	if err != nil {
		return Commit{}, fmt.Errorf("%s: %w", op, err)
	}

	res, extractErr := p.extractor.Extract(ctx, item.CanonicalURL, pltf)
	if extractErr != nil {
		res = nil
	}

	commit, err := p.commit(ctx, item.ID, res)
	if err != nil {
		return Commit{}, fmt.Errorf("%s: %w", op, err)
	}
	if extractErr != nil {
		return commit, fmt.Errorf("%s: %w", op, extractErr)
	}

	return commit, nil
}

func (p *Pipeline) create(
	ctx context.Context,
	ownerID int64,
	target Target,
	res *models.ExtractionResult,
) (Commit, error) {
	const op = "pipeline.create"

	item, err := reconciler.NewItem(p.newID(), ownerID, target.URL, target.Platform, res, p.now())
	if err != nil {
		return Commit{}, fmt.Errorf("%s: %w", op, err)
	}

	err = p.store.Create(context.WithoutCancel(ctx), &item)
	switch {
	case err == nil:
		p.log.DebugContext(ctx, "New item created", "op", op, "id", item.ID, "url", item.CanonicalURL)
		return Commit{Item: item, Outcome: reconciler.OutcomeChanged}, nil
	case !errors.Is(err, repository.ErrItemExists):
		return Commit{}, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
	}

	// A concurrent request created the item first; merge into it.
	existing, findErr := p.store.FindByKey(context.WithoutCancel(ctx), target.URL, ownerID)
	if findErr != nil {
		return Commit{}, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, errors.Join(err, findErr))
	}

	return p.commit(ctx, existing.ID, res)
}

// commit reconciles res into the stored item id and writes it back only if no
// other writer got there first, retrying from a fresh read otherwise. Store
// calls ignore ctx cancellation so an expired item deadline still records the
// check.
func (p *Pipeline) commit(ctx context.Context, id string, res *models.ExtractionResult) (Commit, error) {
	const op = "pipeline.commit"
	storeCtx := context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		var stored *models.TrackedItem
		if stored, err = p.store.FindByID(storeCtx, id); err != nil {
			return Commit{}, storeError(op, err)
		}

		item, outcome := reconciler.Reconcile(*stored, res, p.now())
		if err = p.store.Update(storeCtx, &item); err == nil {
			return Commit{Item: item, OldPrice: stored.CurrentPrice, Outcome: outcome}, nil
		}
		if !errors.Is(err, repository.ErrStaleItem) {
			return Commit{}, storeError(op, err)
		}

		p.log.DebugContext(ctx, "Item modified concurrently, retrying", "op", op, "id", id, "attempt", attempt)
	}

	return Commit{}, fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
}

func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrItemNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %w", op, repository.ErrPersistence, err)
}
