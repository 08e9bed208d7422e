package models

import "time"

// Platform identifies a supported e-commerce site.
type Platform string

const (
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
)

// Recommendation is the buy/wait label attached to a tracked item.
type Recommendation string

// Labels are part of the observable contract, spelling included.
const (
	RecommendationNeutral   Recommendation = "Neutral"
	RecommendationBuy       Recommendation = "Buy"
	RecommendationStrongBuy Recommendation = "Strong Buy"
	RecommendationWait      Recommendation = "Wait"
)

// PriceSample is one observed price. Samples are never modified once appended.
type PriceSample struct {
	Price      float64
	ObservedAt time.Time
}

// TrackedItem is a single product monitored on behalf of one owner.
type TrackedItem struct {
	ID             string
	OwnerID        int64 // OwnerID is the Telegram chat that tracks the item.
	CanonicalURL   string
	Platform       Platform
	DisplayName    string
	ImageURL       string
	CurrentPrice   float64
	PreviousPrice  float64 // PreviousPrice is 0 until the price changes for the first time.
	PriceHistory   []PriceSample
	LastCheckedAt  *time.Time
	Recommendation Recommendation
	CreatedAt      time.Time
	Version        int64 // Version is bumped by every stored update of the item.
}

// LastSample returns the most recently appended sample.
func (t *TrackedItem) LastSample() (PriceSample, bool) {
	if len(t.PriceHistory) == 0 {
		return PriceSample{}, false
	}

	return t.PriceHistory[len(t.PriceHistory)-1], true
}

// ExtractionResult is the transient output of an extraction strategy.
type ExtractionResult struct {
	Name  string
	Price float64 // Price is 0 when no price was found.
	Image string
}

// Usable reports whether the result has both a name and a positive price.
func (r *ExtractionResult) Usable() bool {
	return r != nil && r.Name != "" && r.Price > 0
}
