// Package extractor obtains a product's name, price and image through an
// ordered chain of extraction strategies.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
)

// Strategy names used in configuration.
const (
	StrategyRender = "render"
	StrategyStatic = "static"
	StrategyAPI    = "api"
)

// Strategy is one concrete way of obtaining product data from a URL.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, pageURL string, platform models.Platform) (*models.ExtractionResult, error)
}

// Step is a strategy together with its limits.
type Step struct {
	Strategy Strategy
	Timeout  time.Duration // Timeout bounds a single attempt; zero means no extra bound.
	Attempts int           // Attempts is the total number of tries for transient errors.
	Backoff  time.Duration
}

// Limits are the per-strategy bounds applied when building a chain.
type Limits struct {
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// BuildChain assembles a chain from strategy names in the given order.
func BuildChain(
	log *slog.Logger,
	names []string,
	available map[string]Strategy,
	limits map[string]Limits,
) (*Chain, error) {
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		strategy, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
		}

		lim := limits[name]
		steps = append(steps, Step{
			Strategy: strategy,
			Timeout:  lim.Timeout,
			Attempts: lim.Attempts,
			Backoff:  lim.Backoff,
		})
	}

	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: empty strategy list", ErrUnknownStrategy)
	}

	return NewChain(log, steps...), nil
}

// Chain tries its steps strictly in order until one yields a usable result.
type Chain struct {
	log   *slog.Logger
	steps []Step
}

// NewChain creates a chain. The order of steps is never changed afterwards.
func NewChain(log *slog.Logger, steps ...Step) *Chain {
	return &Chain{log: log, steps: steps}
}

// Strategies returns the strategy names in the order they are tried.
func (c *Chain) Strategies() []string {
	names := make([]string, 0, len(c.steps))
	for _, s := range c.steps {
		names = append(names, s.Strategy.Name())
	}

	return names
}

// Extract runs the chain. When every step fails the returned error is an
// *ExtractionError carrying the last error of each attempted strategy.
func (c *Chain) Extract(
	ctx context.Context,
	pageURL string,
	platform models.Platform,
) (*models.ExtractionResult, error) {
	const opn = "extractor.Chain.Extract"
	log := c.log.With("op", opn, "platform", platform, "url", pageURL)

	failure := &ExtractionError{URL: pageURL}

	for _, step := range c.steps {
		name := step.Strategy.Name()

		res, err := c.runStep(ctx, log, step, pageURL, platform)
		if err == nil {
			log.InfoContext(ctx, "Extraction succeeded", "strategy", name, "price", res.Price)
			return res, nil
		}

		failure.Attempts = append(failure.Attempts, Attempt{Strategy: name, Err: err})
		log.WarnContext(ctx, "Strategy failed", "strategy", name, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return nil, failure
}

func (c *Chain) runStep(
	ctx context.Context,
	log *slog.Logger,
	step Step,
	pageURL string,
	platform models.Platform,
) (*models.ExtractionResult, error) {
	attempts := max(step.Attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := c.attempt(ctx, step, pageURL, platform)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == attempts || ctx.Err() != nil {
			break
		}

		log.DebugContext(ctx, "Retrying strategy",
			"strategy", step.Strategy.Name(), "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(step.Backoff):
		}
	}

	return nil, lastErr
}

func (c *Chain) attempt(
	ctx context.Context,
	step Step,
	pageURL string,
	platform models.Platform,
) (*models.ExtractionResult, error) {
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	res, err := step.Strategy.Extract(ctx, pageURL, platform)
	if err != nil {
		return nil, classify(err)
	}

	if !res.Usable() {
		if res == nil {
			return nil, ErrUnusableResult
		}
		return nil, fmt.Errorf("%w: name=%q price=%v", ErrUnusableResult, res.Name, res.Price)
	}

	return res, nil
}

// Service routes extraction requests to the chain configured for a platform.
type Service struct {
	chains map[models.Platform]*Chain
}

// NewService creates a Service from per-platform chains.
func NewService(chains map[models.Platform]*Chain) *Service {
	return &Service{chains: chains}
}

// Extract runs the chain registered for platform.
func (s *Service) Extract(
	ctx context.Context,
	pageURL string,
	platform models.Platform,
) (*models.ExtractionResult, error) {
	chain, ok := s.chains[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoChain, platform)
	}

	return chain.Extract(ctx, pageURL, platform)
}
