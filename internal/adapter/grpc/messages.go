package grpc

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
	"github.com/simaogato/cryptodash-backend/internal/usecase/valuation"
	"google.golang.org/protobuf/types/known/structpb"
)

// Decimals travel as strings so no precision is lost to float64.

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func boolField(in *structpb.Struct, key string) bool {
	return in.GetFields()[key].GetBoolValue()
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decimals(values []decimal.Decimal) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}

func assetValue(a domain.Asset) map[string]any {
	return map[string]any{
		"id":                          a.ID,
		"symbol":                      a.Symbol,
		"name":                        a.Name,
		"image":                       a.Image,
		"current_price":               a.CurrentPrice.String(),
		"market_cap":                  a.MarketCap.String(),
		"price_change_percentage_24h": a.PriceChangePercent24h.String(),
		"total_volume":                a.TotalVolume24h.String(),
		"sparkline_7d":                decimals(a.Sparkline7d),
	}
}

func snapshotValue(snap marketdata.Snapshot, assets []domain.Asset) map[string]any {
	list := make([]any, len(assets))
	for i, a := range assets {
		list[i] = assetValue(a)
	}
	return map[string]any{
		"assets":          list,
		"loading":         snap.Loading,
		"error":           snap.Error,
		"fallback_active": snap.FallbackActive,
		"updated_at":      timestamp(snap.UpdatedAt),
	}
}

func positionValue(p domain.Position) map[string]any {
	return map[string]any{
		"id":             p.ID.String(),
		"asset_id":       p.AssetID,
		"quantity":       p.Quantity.String(),
		"purchase_price": p.PurchasePrice.String(),
		"acquired_at":    timestamp(p.AcquiredAt),
	}
}

func transactionValue(tx domain.Transaction) map[string]any {
	return map[string]any{
		"id":         tx.ID.String(),
		"kind":       string(tx.Kind),
		"asset_id":   tx.AssetID,
		"quantity":   tx.Quantity.String(),
		"unit_price": tx.UnitPrice.String(),
		"value":      tx.Value().String(),
		"timestamp":  timestamp(tx.Timestamp),
	}
}

func valuationValue(v valuation.PositionValuation) map[string]any {
	out := map[string]any{
		"position":            positionValue(v.Position),
		"asset":               nil,
		"current_price":       v.CurrentPrice.String(),
		"current_value":       v.CurrentValue.String(),
		"cost_basis":          v.CostBasis.String(),
		"profit_loss":         v.ProfitLoss.String(),
		"profit_loss_percent": v.ProfitLossPercent.String(),
	}
	if v.Asset != nil {
		out["asset"] = assetValue(*v.Asset)
	}
	return out
}

func totalsValue(t valuation.Totals) map[string]any {
	return map[string]any{
		"total_value":               t.TotalValue.String(),
		"total_cost_basis":          t.TotalCostBasis.String(),
		"total_profit_loss":         t.TotalProfitLoss.String(),
		"total_profit_loss_percent": t.TotalProfitLossPercent.String(),
	}
}

func allocationValue(slices []valuation.AllocationSlice) []any {
	out := make([]any, len(slices))
	for i, s := range slices {
		out[i] = map[string]any{
			"asset_id": s.AssetID,
			"value":    s.Value.String(),
			"percent":  s.Percent.String(),
		}
	}
	return out
}
