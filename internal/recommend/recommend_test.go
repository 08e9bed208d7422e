package recommend_test

import (
	"testing"
	"time"

	"github.com/Houeta/pricewatch/internal/models"
	"github.com/Houeta/pricewatch/internal/recommend"
	"github.com/stretchr/testify/assert"
)

func history(prices ...float64) []models.PriceSample {
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]models.PriceSample, 0, len(prices))
	for i, p := range prices {
		samples = append(samples, models.PriceSample{Price: p, ObservedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	return samples
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name    string
		history []models.PriceSample
		current float64
		want    models.Recommendation
	}{
		{name: "Empty history", history: nil, current: 100, want: models.RecommendationNeutral},
		{name: "Only zero prices", history: history(0, 0), current: 100, want: models.RecommendationNeutral},
		{name: "Single sample equals current", history: history(100), current: 100, want: models.RecommendationNeutral},
		{name: "Below average", history: history(100, 80), current: 80, want: models.RecommendationStrongBuy},
		{name: "Above average", history: history(80, 100), current: 100, want: models.RecommendationWait},
		{name: "Recent drop above average", history: history(100, 120), current: 115, want: models.RecommendationStrongBuy},
		{name: "Flat history", history: history(50, 50, 50), current: 50, want: models.RecommendationNeutral},
		{name: "Zero samples ignored", history: history(100, 0, 100), current: 100, want: models.RecommendationNeutral},
		{name: "Decimal average is exact", history: history(0.1, 0.2), current: 0.15, want: models.RecommendationNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, recommend.Recommend(tt.history, tt.current))
		})
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	h := history(120, 95, 110, 101)

	first := recommend.Recommend(h, 101)
	for range 10 {
		assert.Equal(t, first, recommend.Recommend(h, 101))
	}
}

func TestRecommend_DoesNotMutateHistory(t *testing.T) {
	h := history(100, 80)
	snapshot := append([]models.PriceSample(nil), h...)

	recommend.Recommend(h, 80)

	assert.Equal(t, snapshot, h)
}
