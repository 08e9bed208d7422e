// Package platform maps product URLs to supported platforms and builds the
// canonical URL used as the per-owner dedup key.
package platform

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Houeta/pricewatch/internal/models"
)

var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrInvalidURL          = errors.New("invalid product url")
)

var (
	amazonPathRegex   = regexp.MustCompile(`^/(?:([^/]+)/)?(?:dp|gp/product)/([A-Z0-9]{10})(?:[/?]|$)`)
	flipkartPathRegex = regexp.MustCompile(`^/([^/]+)/p/([A-Za-z0-9]+)(?:[/?]|$)`)
)

// DefaultDomains are the domain families recognized when no configuration is given.
var DefaultDomains = map[models.Platform][]string{
	models.PlatformAmazon:   {"amazon.in", "amazon.com"},
	models.PlatformFlipkart: {"flipkart.com"},
}

// Classifier recognizes platforms by the host of a URL.
type Classifier struct {
	domains map[models.Platform][]string
}

// NewClassifier creates a classifier for the given domain families.
// Platforms missing from domains are not recognized.
func NewClassifier(domains map[models.Platform][]string) *Classifier {
	normalized := make(map[models.Platform][]string, len(domains))
	for p, list := range domains {
		for _, d := range list {
			d = strings.ToLower(strings.TrimSpace(d))
			d = strings.TrimPrefix(d, "www.")
			if d != "" {
				normalized[p] = append(normalized[p], d)
			}
		}
	}

	return &Classifier{domains: normalized}
}

// Classify returns the platform the URL belongs to.
func (c *Classifier) Classify(rawURL string) (models.Platform, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return "", err
	}

	if p, ok := c.platformForHost(u.Hostname()); ok {
		return p, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, u.Hostname())
}

// BelongsTo reports whether rawURL is hosted on one of the platform's domains.
func (c *Classifier) BelongsTo(rawURL string, platform models.Platform) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	p, ok := c.platformForHost(u.Hostname())

	return ok && p == platform
}

func (c *Classifier) platformForHost(host string) (models.Platform, bool) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, p := range []models.Platform{models.PlatformAmazon, models.PlatformFlipkart} {
		for _, d := range c.domains[p] {
			if host == d || strings.HasSuffix(host, "."+d) {
				return p, true
			}
		}
	}

	return "", false
}

var defaultClassifier = NewClassifier(DefaultDomains)

// Classify classifies rawURL against the default domain families.
func Classify(rawURL string) (models.Platform, error) {
	return defaultClassifier.Classify(rawURL)
}

// Canonicalize reduces rawURL to the stable product-identifying form for the
// platform. It is deterministic and idempotent.
func Canonicalize(rawURL string, platform models.Platform) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return stripURL(rawURL)
	}

	host := strings.ToLower(u.Host)

	switch platform {
	case models.PlatformAmazon:
		m := amazonPathRegex.FindStringSubmatch(u.Path)
		if m == nil {
			break
		}
		if m[1] != "" && m[1] != "gp" {
			return fmt.Sprintf("https://%s/%s/dp/%s", host, m[1], m[2])
		}
		return fmt.Sprintf("https://%s/dp/%s", host, m[2])
	case models.PlatformFlipkart:
		m := flipkartPathRegex.FindStringSubmatch(u.Path)
		if m == nil {
			break
		}
		canonical := fmt.Sprintf("https://%s/%s/p/%s", host, m[1], m[2])
		if pid := u.Query().Get("pid"); pid != "" {
			canonical += "?pid=" + url.QueryEscape(pid)
		}
		return canonical
	}

	return stripURL(rawURL)
}

// ProductID extracts the platform-specific product identifier: the ASIN for
// Amazon and the pid query parameter for Flipkart. It returns "" when absent.
func ProductID(rawURL string, platform models.Platform) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	switch platform {
	case models.PlatformAmazon:
		if m := amazonPathRegex.FindStringSubmatch(u.Path); m != nil {
			return m[2]
		}
	case models.PlatformFlipkart:
		return u.Query().Get("pid")
	}

	return ""
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	return u, nil
}

// stripURL drops the query string, fragment and trailing slash.
func stripURL(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	return strings.TrimRight(s, "/")
}
