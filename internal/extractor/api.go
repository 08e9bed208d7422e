package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/parser"
	"github.com/Houeta/pricewatch/internal/platform"
)

const (
	defaultFlipkartAPIHost    = "real-time-flipkart-data2.p.rapidapi.com"
	defaultFlipkartAPIPincode = "400001"
)

// FlipkartAPIOptions configures the RapidAPI Flipkart product-data client.
type FlipkartAPIOptions struct {
	BaseURL string // BaseURL defaults to https://<Host>.
	Host    string
	Key     string
	Pincode string
}

// FlipkartAPIStrategy reads product data from a structured third-party API
// keyed by the Flipkart pid.
type FlipkartAPIStrategy struct {
	log    *slog.Logger
	client *http.Client
	opts   FlipkartAPIOptions
}

type flipkartAPIResponse struct {
	Data struct {
		Title  string          `json:"title"`
		Price  json.RawMessage `json:"price"`
		Images []string        `json:"images"`
	} `json:"data"`
}

// NewFlipkartAPIStrategy creates the API strategy.
func NewFlipkartAPIStrategy(log *slog.Logger, opts FlipkartAPIOptions) *FlipkartAPIStrategy {
	if opts.Host == "" {
		opts.Host = defaultFlipkartAPIHost
	}
	if opts.Pincode == "" {
		opts.Pincode = defaultFlipkartAPIPincode
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://" + opts.Host
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &FlipkartAPIStrategy{log: log, client: http.DefaultClient, opts: opts}
}

func (s *FlipkartAPIStrategy) Name() string { return StrategyAPI }

func (s *FlipkartAPIStrategy) Extract(
	ctx context.Context,
	pageURL string,
	pltf models.Platform,
) (*models.ExtractionResult, error) {
	if pltf != models.PlatformFlipkart {
		return nil, fmt.Errorf("%w: api supports flipkart only", ErrNotApplicable)
	}
	if s.opts.Key == "" {
		return nil, fmt.Errorf("%w: api key is not configured", ErrNotApplicable)
	}

	pid := platform.ProductID(pageURL, models.PlatformFlipkart)
	if pid == "" {
		return nil, fmt.Errorf("%w: url has no pid", ErrNotApplicable)
	}

	query := url.Values{}
	query.Set("pincode", s.opts.Pincode)
	query.Set("pid", pid)
	reqURL := s.opts.BaseURL + "/product-details?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("x-rapidapi-host", s.opts.Host)
	req.Header.Set("x-rapidapi-key", s.opts.Key)

	s.log.DebugContext(ctx, "Send request", "method", req.Method, "pid", pid)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request product details: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status code error: [%d] %s", ErrNetwork, resp.StatusCode, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status code error: [%d] %s", ErrNotApplicable, resp.StatusCode, resp.Status)
	}

	var payload flipkartAPIResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode product details: %w", ErrUnusableResult, err)
	}

	res := &models.ExtractionResult{
		Name:  strings.TrimSpace(payload.Data.Title),
		Price: parser.ParsePrice(priceText(payload.Data.Price)),
	}
	if len(payload.Data.Images) > 0 {
		res.Image = payload.Data.Images[0]
	}

	return res, nil
}

// priceText returns the price as text whether the API sent a number or a
// formatted string such as "₹1,299".
func priceText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	return string(raw)
}
