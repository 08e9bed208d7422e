package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent mimics a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxRedirects    = 3
	maxBodySize     = 8 << 20
	maxBlockPageLen = 256 << 10
)

var (
	ErrBlocked          = errors.New("blocked by anti-bot protection")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Page is a fetched and parsed HTML document.
type Page struct {
	Doc      *goquery.Document
	FinalURL string
}

// Parser fetches product pages over plain HTTP and parses them as HTML.
type Parser struct {
	log       *slog.Logger
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewParser creates a parser. rps limits outgoing requests per second; zero
// or negative disables the limit.
func NewParser(log *slog.Logger, rps float64) *Parser {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	client := &http.Client{
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}

	return &Parser{log: log, client: client, limiter: limiter, userAgent: DefaultUserAgent}
}

// FetchPage downloads destURL and parses the response body.
func (p *Parser) FetchPage(ctx context.Context, destURL string) (*Page, error) {
	resp, err := p.getHTMLResponse(ctx, destURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get html response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if blocked, marker := DetectBlock(resp, body); blocked {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, marker)
	}

	finalURL := destURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return ParseHTML(bytes.NewReader(body), finalURL)
}

// ParseHTML parses markup into a Page.
func ParseHTML(inp io.Reader, finalURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(inp)
	if err != nil {
		return nil, fmt.Errorf("data cannot be parsed as HTML: %w", err)
	}

	return &Page{Doc: doc, FinalURL: finalURL}, nil
}

func (p *Parser) getHTMLResponse(ctx context.Context, destURL string) (*http.Response, error) {
	reqURL, err := url.Parse(destURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination URL %s: %w", destURL, err)
	}

	if err = p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request %s: %w", reqURL.String(), err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	p.log.DebugContext(ctx, "Send request", "method", req.Method, "URL", req.URL)

	start := time.Now()
	res, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", destURL, err)
	}

	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, fmt.Errorf("status code error: [%d] %s", res.StatusCode, res.Status)
	}

	p.log.DebugContext(ctx, "Successfully received http response",
		"status code", res.StatusCode, "latency", time.Since(start))

	return res, nil
}

// DetectBlock checks a response for captcha or robot-check pages.
// Interstitial pages are small, so large bodies are never reported.
func DetectBlock(resp *http.Response, body []byte) (bool, string) {
	if resp == nil || len(body) > maxBlockPageLen {
		return false, ""
	}

	lower := strings.ToLower(string(body))
	for _, marker := range []string{
		"captcha",
		"robot check",
		"api-services-support@amazon.com",
		"are you a human",
	} {
		if strings.Contains(lower, marker) {
			return true, marker
		}
	}

	return false, ""
}
