package parser

import (
	"regexp"
	"strings"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// FieldExtractor pulls one field out of a parsed document.
// It returns an empty string when the field is not present.
type FieldExtractor func(doc *goquery.Document) string

var (
	priceNoiseReplacer = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "₹", "", "$", "", "Rs.", "", "Rs", "")
	priceNumberRegex   = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
)

// imageAttrs are checked in order for image extractors.
var imageAttrs = []string{"src", "data-old-hires", "data-src"}

// TextSelector returns the trimmed text of the first element matching selector.
func TextSelector(selector string) FieldExtractor {
	return func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
}

// ImageSelector returns the first absolute http(s) URL found in the image
// attributes of the first element matching selector.
func ImageSelector(selector string) FieldExtractor {
	return func(doc *goquery.Document) string {
		sel := doc.Find(selector).First()
		for _, attr := range imageAttrs {
			val, ok := sel.Attr(attr)
			val = strings.TrimSpace(val)
			if ok && (strings.HasPrefix(val, "http://") || strings.HasPrefix(val, "https://")) {
				return val
			}
		}

		return ""
	}
}

// Selectors holds the ordered candidate extractors per field for one platform.
type Selectors struct {
	Name  []FieldExtractor
	Price []FieldExtractor
	Image []FieldExtractor
}

// NewSelectors builds extractors from CSS selector lists.
func NewSelectors(name, price, image []string) Selectors {
	var s Selectors
	for _, sel := range name {
		s.Name = append(s.Name, TextSelector(sel))
	}
	for _, sel := range price {
		s.Price = append(s.Price, TextSelector(sel))
	}
	for _, sel := range image {
		s.Image = append(s.Image, ImageSelector(sel))
	}

	return s
}

// Apply runs every field's extractors in order; the first non-empty value wins.
// For price the first text that parses to a positive number wins.
func (s Selectors) Apply(doc *goquery.Document) models.ExtractionResult {
	var res models.ExtractionResult

	res.Name = first(doc, s.Name)
	res.Image = first(doc, s.Image)

	for _, extract := range s.Price {
		if price := ParsePrice(extract(doc)); price > 0 {
			res.Price = price
			break
		}
	}

	return res
}

func first(doc *goquery.Document, extractors []FieldExtractor) string {
	for _, extract := range extractors {
		if val := extract(doc); val != "" {
			return val
		}
	}

	return ""
}

// ParsePrice strips currency symbols and thousands separators from text and
// parses the first decimal number in it. It returns 0 when nothing parses.
func ParsePrice(text string) float64 {
	cleaned := priceNoiseReplacer.Replace(strings.TrimSpace(text))

	match := priceNumberRegex.FindString(cleaned)
	if match == "" {
		return 0
	}

	d, err := decimal.NewFromString(match)
	if err != nil || !d.IsPositive() {
		return 0
	}

	return d.InexactFloat64()
}
