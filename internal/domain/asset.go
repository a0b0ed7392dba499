package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Asset represents one market-data record as delivered by the market feed.
// An Asset is an immutable snapshot: a refresh replaces the whole list, it never
// updates a single record in place.
type Asset struct {
	ID                    string            `json:"id"`
	Symbol                string            `json:"symbol"`
	Name                  string            `json:"name"`
	Image                 string            `json:"image"`
	CurrentPrice          decimal.Decimal   `json:"currentPrice"`
	MarketCap             decimal.Decimal   `json:"marketCap"`
	PriceChangePercent24h decimal.Decimal   `json:"priceChangePercent24h"`
	TotalVolume24h        decimal.Decimal   `json:"totalVolume24h"`
	Sparkline7d           []decimal.Decimal `json:"sparkline7d"`
}

// HasPrice reports whether the asset carries a usable (strictly positive) price
func (a Asset) HasPrice() bool {
	return a.CurrentPrice.IsPositive()
}

// MatchesSymbol reports whether code is the asset's own ticker symbol, case-insensitive
func (a Asset) MatchesSymbol(code string) bool {
	return a.Symbol != "" && strings.EqualFold(strings.TrimSpace(code), a.Symbol)
}

// Clone returns a deep copy so callers can hand the asset out without sharing the sparkline
func (a Asset) Clone() Asset {
	out := a
	if a.Sparkline7d != nil {
		out.Sparkline7d = make([]decimal.Decimal, len(a.Sparkline7d))
		copy(out.Sparkline7d, a.Sparkline7d)
	}
	return out
}

// FindAsset looks an asset up by ID.
// The reference from a Position to an Asset is weak: the asset may have disappeared
// between two refreshes, so the boolean must always be checked.
func FindAsset(assets []Asset, id string) (Asset, bool) {
	for _, a := range assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// IndexAssets builds an ID -> Asset lookup table
func IndexAssets(assets []Asset) map[string]Asset {
	index := make(map[string]Asset, len(assets))
	for _, a := range assets {
		index[a.ID] = a
	}
	return index
}
