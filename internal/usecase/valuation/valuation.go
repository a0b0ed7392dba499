// Package valuation derives portfolio valuation from positions and a market snapshot.
// Every function here is pure: no storage, no clock, no shared state.
package valuation

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PositionValuation pairs a position with its derived valuation fields
type PositionValuation struct {
	Position          domain.Position
	Asset             *domain.Asset // nil when the asset is no longer in the snapshot
	CurrentPrice      decimal.Decimal
	CurrentValue      decimal.Decimal
	CostBasis         decimal.Decimal
	ProfitLoss        decimal.Decimal
	ProfitLossPercent decimal.Decimal
}

// Totals represents the aggregate valuation of the whole portfolio
type Totals struct {
	TotalValue             decimal.Decimal
	TotalCostBasis         decimal.Decimal
	TotalProfitLoss        decimal.Decimal
	TotalProfitLossPercent decimal.Decimal
}

// AllocationSlice is the share of the portfolio value held in one asset
type AllocationSlice struct {
	AssetID string
	Value   decimal.Decimal
	Percent decimal.Decimal
}

// ValuePositions computes the valuation of every position, in position order.
// Logic:
//   - CurrentValue = Quantity x Asset.CurrentPrice (0 when the asset is unknown)
//   - CostBasis = Quantity x PurchasePrice
//   - ProfitLoss = CurrentValue - CostBasis
//   - ProfitLossPercent = ProfitLoss / CostBasis x 100 (0 when CostBasis is 0)
func ValuePositions(positions []domain.Position, assets []domain.Asset) []PositionValuation {
	index := domain.IndexAssets(assets)

	out := make([]PositionValuation, 0, len(positions))
	for _, p := range positions {
		v := PositionValuation{
			Position:     p,
			CurrentPrice: decimal.Zero,
			CostBasis:    p.CostBasis(),
		}

		if asset, ok := index[p.AssetID]; ok {
			a := asset.Clone()
			v.Asset = &a
			v.CurrentPrice = a.CurrentPrice
		}

		v.CurrentValue = p.Quantity.Mul(v.CurrentPrice)
		v.ProfitLoss = v.CurrentValue.Sub(v.CostBasis)
		v.ProfitLossPercent = percentOf(v.ProfitLoss, v.CostBasis)

		out = append(out, v)
	}
	return out
}

// PortfolioTotals sums current value and cost basis across all positions
func PortfolioTotals(positions []domain.Position, assets []domain.Asset) Totals {
	return Sum(ValuePositions(positions, assets))
}

// Sum aggregates already computed valuations
func Sum(valuations []PositionValuation) Totals {
	totalValue := decimal.Zero
	totalCost := decimal.Zero
	for _, v := range valuations {
		totalValue = totalValue.Add(v.CurrentValue)
		totalCost = totalCost.Add(v.CostBasis)
	}

	profitLoss := totalValue.Sub(totalCost)
	return Totals{
		TotalValue:             totalValue,
		TotalCostBasis:         totalCost,
		TotalProfitLoss:        profitLoss,
		TotalProfitLossPercent: percentOf(profitLoss, totalCost),
	}
}

// Allocation groups valuations by asset and computes each asset's share of the total value.
// Slices are sorted by value descending, then asset ID. Percentages are 0 when the
// portfolio has no value.
func Allocation(valuations []PositionValuation) []AllocationSlice {
	byAsset := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	total := decimal.Zero

	for _, v := range valuations {
		if _, seen := byAsset[v.Position.AssetID]; !seen {
			order = append(order, v.Position.AssetID)
		}
		byAsset[v.Position.AssetID] = byAsset[v.Position.AssetID].Add(v.CurrentValue)
		total = total.Add(v.CurrentValue)
	}

	slices := make([]AllocationSlice, 0, len(order))
	for _, assetID := range order {
		value := byAsset[assetID]
		slices = append(slices, AllocationSlice{
			AssetID: assetID,
			Value:   value,
			Percent: percentOf(value, total),
		})
	}

	sort.SliceStable(slices, func(i, j int) bool {
		if !slices[i].Value.Equal(slices[j].Value) {
			return slices[i].Value.GreaterThan(slices[j].Value)
		}
		return slices[i].AssetID < slices[j].AssetID
	})

	return slices
}

// percentOf returns part / whole x 100, or 0 when whole is 0
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
