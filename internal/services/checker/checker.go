package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/pipeline"
	"github.com/Houeta/pricewatch/internal/platform"
	"github.com/Houeta/pricewatch/internal/reconciler"
	"github.com/Houeta/pricewatch/internal/repository"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Refresher re-extracts one stored item and commits the reconciled result.
type Refresher interface {
	Refresh(ctx context.Context, item models.TrackedItem) (pipeline.Commit, error)
}

// Store lists the items of a pass.
type Store interface {
	FindAll(ctx context.Context) ([]models.TrackedItem, error)
}

// Notifier is told about price drops found during a pass.
type Notifier interface {
	NotifyPriceDrop(ctx context.Context, change models.PriceChange) error
}

// Options bounds a pass.
type Options struct {
	Workers     int
	ItemTimeout time.Duration
}

// Summary counts what happened to the items of one pass.
type Summary struct {
	Total     int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

type itemStatus int

const (
	statusUpdated itemStatus = iota
	statusUnchanged
	statusSkipped
	statusFailed
)

func (s *Summary) record(status itemStatus) {
	switch status {
	case statusUpdated:
		s.Updated++
	case statusUnchanged:
		s.Unchanged++
	case statusSkipped:
		s.Skipped++
	case statusFailed:
		s.Failed++
	}
}

// Interface runs reconciliation passes.
type Interface interface {
	// RunPass reconciles every tracked item once.
	RunPass(ctx context.Context) (Summary, error)
}

// Checker is an orchestrator that performs a full reconciliation pass.
type Checker struct {
	log       *slog.Logger
	refresher Refresher
	store     Store
	notifier  Notifier
	opts      Options
}

// NewChecker creates a new Checker instance. notifier may be nil.
func NewChecker(log *slog.Logger, refresher Refresher, store Store, notifier Notifier, opts Options) *Checker {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}

	return &Checker{log: log, refresher: refresher, store: store, notifier: notifier, opts: opts}
}

// RunPass loads every item and reconciles it with bounded concurrency. Item
// failures are logged and counted; only a failure to load the items or a
// cancelled ctx is returned as an error.
func (c *Checker) RunPass(ctx context.Context) (Summary, error) {
	const opn = "checker.RunPass"
	log := c.log.With("op", opn)
	start := time.Now()

	items, err := c.store.FindAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: failed to load tracked items: %w", opn, err)
	}

	log.InfoContext(ctx, "Reconciliation pass started", "items", len(items), "workers", c.opts.Workers)

	var (
		mu      sync.Mutex
		summary = Summary{Total: len(items)}
		grp     errgroup.Group
	)
	grp.SetLimit(c.opts.Workers)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		grp.Go(func() error {
			status := c.processItem(ctx, log, item)

			mu.Lock()
			summary.record(status)
			mu.Unlock()

			return nil
		})
	}

	_ = grp.Wait()
	summary.Duration = time.Since(start)

	log.InfoContext(ctx, "Reconciliation pass finished",
		"total", summary.Total,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)

	if err = ctx.Err(); err != nil {
		return summary, fmt.Errorf("%s: pass interrupted: %w", opn, err)
	}

	return summary, nil
}

func (c *Checker) processItem(ctx context.Context, log *slog.Logger, item models.TrackedItem) (status itemStatus) {
	log = log.With("item", item.ID, "url", item.CanonicalURL)

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Item reconciliation panicked", "panic", r, "stack", string(debug.Stack()))
			status = statusFailed
		}
	}()

	itemCtx := ctx
	if c.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(ctx, c.opts.ItemTimeout)
		defer cancel()
	}

	commit, err := c.refresher.Refresh(itemCtx, item)
	switch {
	case errors.Is(err, platform.ErrUnsupportedPlatform), errors.Is(err, platform.ErrInvalidURL):
		log.ErrorContext(ctx, "Item cannot be classified", "error", err)
		return statusFailed
	case errors.Is(err, repository.ErrItemNotFound):
		log.InfoContext(ctx, "Item untracked during the pass, skipped")
		return statusSkipped
	case errors.Is(err, repository.ErrPersistence):
		log.ErrorContext(ctx, "Failed to save item", "error", err)
		return statusFailed
	case err != nil:
		log.WarnContext(ctx, "Extraction failed, item skipped", "error", err)
	}

	updated := commit.Item
	switch commit.Outcome {
	case reconciler.OutcomeChanged:
		log.InfoContext(ctx, "Price changed", "old", commit.OldPrice, "new", updated.CurrentPrice,
			"recommendation", updated.Recommendation)
		c.notify(ctx, log, models.PriceChange{Item: updated, Old: commit.OldPrice, New: updated.CurrentPrice})
		return statusUpdated
	case reconciler.OutcomeUnchanged:
		log.DebugContext(ctx, "Price unchanged")
		return statusUnchanged
	default:
		return statusSkipped
	}
}

func (c *Checker) notify(ctx context.Context, log *slog.Logger, change models.PriceChange) {
	if c.notifier == nil || !change.IsDrop() {
		return
	}

	if err := c.notifier.NotifyPriceDrop(ctx, change); err != nil {
		log.WarnContext(ctx, "Failed to send price drop notification", "error", err)
	}
}
