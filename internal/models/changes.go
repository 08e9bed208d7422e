package models

// PriceChange describes a price movement detected during reconciliation.
type PriceChange struct {
	Item TrackedItem
	Old  float64
	New  float64
}

// IsDrop reports whether the new price is lower than the old one.
func (c PriceChange) IsDrop() bool {
	return c.Old > 0 && c.New < c.Old
}
