// Package recommend derives the buy/wait label from a price history.
package recommend

import (
	"github.com/Houeta/pricewatch/internal/models"
	"github.com/shopspring/decimal"
)

// Recommend returns the label for current given history. It never fails and
// always returns the same label for the same input.
//
// RecommendationBuy is never returned: every state that would qualify for it is
// already covered by RecommendationStrongBuy.
func Recommend(history []models.PriceSample, current float64) models.Recommendation {
	sum := decimal.Zero
	count := 0

	var last float64
	for _, s := range history {
		if s.Price <= 0 {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(s.Price))
		count++
		last = s.Price
	}

	if count == 0 {
		return models.RecommendationNeutral
	}

	avg := sum.Div(decimal.NewFromInt(int64(count)))
	cur := decimal.NewFromFloat(current)

	switch {
	case cur.LessThan(avg) || last > current:
		return models.RecommendationStrongBuy
	case cur.GreaterThan(avg):
		return models.RecommendationWait
	default:
		return models.RecommendationNeutral
	}
}
