package marketdata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/simaogato/cryptodash-backend/internal/domain"
)

// SortKey names a column the market table can be ordered by
type SortKey string

const (
	SortNone        SortKey = ""
	SortName        SortKey = "name"
	SortSymbol      SortKey = "symbol"
	SortPrice       SortKey = "current_price"
	SortMarketCap   SortKey = "market_cap"
	SortChange24h   SortKey = "price_change_percentage_24h"
	SortTotalVolume SortKey = "total_volume"
)

// ParseSortKey validates a sort column coming from a transport layer
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNone, SortName, SortSymbol, SortPrice, SortMarketCap, SortChange24h, SortTotalVolume:
		return k, nil
	default:
		return SortNone, fmt.Errorf("unknown sort key %q", s)
	}
}

// Query filters and orders a market snapshot for display
type Query struct {
	Search     string // case-insensitive substring of name or symbol
	SortBy     SortKey
	Descending bool
}

// Apply returns the matching assets. The input slice is never modified.
// With no SortBy the snapshot order (market cap descending) is kept.
func (q Query) Apply(assets []domain.Asset) []domain.Asset {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]domain.Asset, 0, len(assets))
	for _, a := range assets {
		if needle == "" ||
			strings.Contains(strings.ToLower(a.Name), needle) ||
			strings.Contains(strings.ToLower(a.Symbol), needle) {
			out = append(out, a)
		}
	}

	if q.SortBy == SortNone {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], q.SortBy)
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(a, b domain.Asset, key SortKey) int {
	switch key {
	case SortName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortSymbol:
		return strings.Compare(strings.ToLower(a.Symbol), strings.ToLower(b.Symbol))
	case SortPrice:
		return a.CurrentPrice.Cmp(b.CurrentPrice)
	case SortMarketCap:
		return a.MarketCap.Cmp(b.MarketCap)
	case SortChange24h:
		return a.PriceChangePercent24h.Cmp(b.PriceChangePercent24h)
	case SortTotalVolume:
		return a.TotalVolume24h.Cmp(b.TotalVolume24h)
	default:
		return 0
	}
}
