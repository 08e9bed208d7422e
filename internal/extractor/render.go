package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/parser"
	"github.com/Houeta/pricewatch/internal/platform"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RenderedPage is the DOM snapshot of a page after JavaScript ran.
type RenderedPage struct {
	FinalURL string
	HTML     string
}

// Renderer loads a page in a headless browser.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (*RenderedPage, error)
}

// RenderStrategy scrapes the rendered DOM of a product page.
type RenderStrategy struct {
	renderer   Renderer
	selectors  map[models.Platform]parser.Selectors
	classifier *platform.Classifier
}

// NewRenderStrategy creates a rendered-page strategy.
func NewRenderStrategy(
	renderer Renderer,
	classifier *platform.Classifier,
	selectors map[models.Platform]parser.Selectors,
) *RenderStrategy {
	return &RenderStrategy{renderer: renderer, selectors: selectors, classifier: classifier}
}

func (s *RenderStrategy) Name() string { return StrategyRender }

func (s *RenderStrategy) Extract(
	ctx context.Context,
	pageURL string,
	pltf models.Platform,
) (*models.ExtractionResult, error) {
	sel, ok := s.selectors[pltf]
	if !ok {
		return nil, fmt.Errorf("%w: no selectors for %s", ErrNotApplicable, pltf)
	}

	rendered, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if !s.classifier.BelongsTo(rendered.FinalURL, pltf) {
		return nil, fmt.Errorf("%w: landed on %s", ErrRedirectBlocked, rendered.FinalURL)
	}

	page, err := parser.ParseHTML(strings.NewReader(rendered.HTML), rendered.FinalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnusableResult, err)
	}

	res := sel.Apply(page.Doc)
	res.Name = strings.Join(strings.Fields(res.Name), " ")

	return &res, nil
}

// RodOptions configures the headless browser.
type RodOptions struct {
	Bin       string // Bin is the browser binary; empty lets rod download one.
	Headless  bool
	UserAgent string
}

// browserSession is an isolated browser context that owns the pages opened in it.
type browserSession interface {
	OpenPage() (browserPage, error)
	Close() error
}

// browserPage is a tab. Every call except Close is bound to ctx.
type browserPage interface {
	SetUserAgent(ctx context.Context, userAgent string) error
	Navigate(ctx context.Context, pageURL string) error
	WaitLoad(ctx context.Context) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}

// RodRenderer renders pages with a lazily launched Chromium. Every Render call
// gets its own incognito browser context which is disposed before returning.
type RodRenderer struct {
	log  *slog.Logger
	opts RodOptions
	open func() (browserSession, error)

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodRenderer creates a renderer; the browser starts on first use.
func NewRodRenderer(log *slog.Logger, opts RodOptions) *RodRenderer {
	if opts.UserAgent == "" {
		opts.UserAgent = parser.DefaultUserAgent
	}

	r := &RodRenderer{log: log, opts: opts}
	r.open = r.openIncognito

	return r
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Headless(r.opts.Headless).NoSandbox(true)
	if r.opts.Bin != "" {
		l = l.Bin(r.opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err = browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	r.log.Info("Browser started", "headless", r.opts.Headless)
	r.launcher = l
	r.browser = browser

	return browser, nil
}

func (r *RodRenderer) openIncognito() (browserSession, error) {
	browser, err := r.connect()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("open incognito context: %w", err)
	}

	return rodSession{browser: incognito}, nil
}

// Render navigates to pageURL and returns the final URL and DOM. The page and
// its session are closed on every return path, including an expired ctx.
func (r *RodRenderer) Render(ctx context.Context, pageURL string) (*RenderedPage, error) {
	session, err := r.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			r.log.Warn("failed to dispose rendering session", "error", cerr)
		}
	}()

	page, err := session.OpenPage()
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close() //nolint:errcheck // the session teardown above disposes the page as well.

	if err = page.SetUserAgent(ctx, r.opts.UserAgent); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	if err = page.Navigate(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	if err = page.WaitLoad(ctx); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	finalURL, err := page.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	return &RenderedPage{FinalURL: finalURL, HTML: html}, nil
}

type rodSession struct {
	browser *rod.Browser
}

func (s rodSession) OpenPage() (browserPage, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, err
	}

	return rodPage{page: page}, nil
}

func (s rodSession) Close() error { return s.browser.Close() }

// rodPage binds each call to ctx on a clone of the page, so calls fail fast
// once ctx expires while the page itself stays usable for Close.
type rodPage struct {
	page *rod.Page
}

func (p rodPage) SetUserAgent(ctx context.Context, userAgent string) error {
	return p.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
}

func (p rodPage) Navigate(ctx context.Context, pageURL string) error {
	return p.page.Context(ctx).Navigate(pageURL)
}

func (p rodPage) WaitLoad(ctx context.Context) error { return p.page.Context(ctx).WaitLoad() }

func (p rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}

	return info.URL, nil
}

func (p rodPage) HTML(ctx context.Context) (string, error) { return p.page.Context(ctx).HTML() }

func (p rodPage) Close() error { return p.page.Close() }

// Close shuts the browser down if it was started.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}

	err := r.browser.Close()
	r.launcher.Kill()
	r.browser = nil
	r.launcher = nil

	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}

	return nil
}
