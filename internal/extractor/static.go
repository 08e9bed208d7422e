package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/parser"
	"github.com/Houeta/pricewatch/internal/platform"
)

// PageFetcher downloads and parses a page without rendering it.
type PageFetcher interface {
	FetchPage(ctx context.Context, destURL string) (*parser.Page, error)
}

// StaticStrategy scrapes the server-rendered HTML of a product page.
type StaticStrategy struct {
	fetcher    PageFetcher
	selectors  map[models.Platform]parser.Selectors
	classifier *platform.Classifier
}

// NewStaticStrategy creates a static-fetch strategy.
func NewStaticStrategy(
	fetcher PageFetcher,
	classifier *platform.Classifier,
	selectors map[models.Platform]parser.Selectors,
) *StaticStrategy {
	return &StaticStrategy{fetcher: fetcher, selectors: selectors, classifier: classifier}
}

func (s *StaticStrategy) Name() string { return StrategyStatic }

func (s *StaticStrategy) Extract(
	ctx context.Context,
	pageURL string,
	pltf models.Platform,
) (*models.ExtractionResult, error) {
	sel, ok := s.selectors[pltf]
	if !ok {
		return nil, fmt.Errorf("%w: no selectors for %s", ErrNotApplicable, pltf)
	}

	page, err := s.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		if errors.Is(err, parser.ErrBlocked) || errors.Is(err, parser.ErrTooManyRedirects) {
			return nil, fmt.Errorf("%w: %w", ErrRedirectBlocked, err)
		}
		return nil, err
	}

	if !s.classifier.BelongsTo(page.FinalURL, pltf) {
		return nil, fmt.Errorf("%w: landed on %s", ErrRedirectBlocked, page.FinalURL)
	}

	res := sel.Apply(page.Doc)
	res.Name = strings.Join(strings.Fields(res.Name), " ")

	return &res, nil
}
