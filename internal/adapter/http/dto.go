package http

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
	"github.com/simaogato/cryptodash-backend/internal/usecase/valuation"
)

// decimal.Decimal marshals as a quoted string, so amounts never lose precision on the wire.

type snapshotResponse struct {
	Assets         []domain.Asset `json:"assets"`
	Loading        bool           `json:"loading"`
	Error          string         `json:"error,omitempty"`
	FallbackActive bool           `json:"fallbackActive"`
	UpdatedAt      *time.Time     `json:"updatedAt,omitempty"`
}

func newSnapshotResponse(snap marketdata.Snapshot, assets []domain.Asset) snapshotResponse {
	resp := snapshotResponse{
		Assets:         assets,
		Loading:        snap.Loading,
		Error:          snap.Error,
		FallbackActive: snap.FallbackActive,
	}
	if resp.Assets == nil {
		resp.Assets = []domain.Asset{}
	}
	if !snap.UpdatedAt.IsZero() {
		t := snap.UpdatedAt.UTC()
		resp.UpdatedAt = &t
	}
	return resp
}

type chartStatsResponse struct {
	Points          int             `json:"points"`
	Min             float64         `json:"min"`
	Max             float64         `json:"max"`
	Mean            float64         `json:"mean"`
	StdDev          float64         `json:"stdDev"`
	ChangePercent7d decimal.Decimal `json:"changePercent7d"`
}

type chartResponse struct {
	AssetID string             `json:"assetId"`
	Points  []decimal.Decimal  `json:"points"`
	Stats   chartStatsResponse `json:"stats"`
}

func newChartResponse(asset domain.Asset) chartResponse {
	points := marketdata.ChartSeries(asset)
	stats := marketdata.SeriesStats(points)
	return chartResponse{
		AssetID: asset.ID,
		Points:  points,
		Stats: chartStatsResponse{
			Points:          stats.Points,
			Min:             stats.Min,
			Max:             stats.Max,
			Mean:            stats.Mean,
			StdDev:          stats.StdDev,
			ChangePercent7d: stats.ChangePercent7d,
		},
	}
}

type positionResponse struct {
	domain.Position
	Symbol            string          `json:"symbol,omitempty"`
	Name              string          `json:"name,omitempty"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	CurrentValue      decimal.Decimal `json:"currentValue"`
	CostBasis         decimal.Decimal `json:"costBasis"`
	ProfitLoss        decimal.Decimal `json:"profitLoss"`
	ProfitLossPercent decimal.Decimal `json:"profitLossPercent"`
}

type totalsResponse struct {
	TotalValue             decimal.Decimal `json:"totalValue"`
	TotalCostBasis         decimal.Decimal `json:"totalCostBasis"`
	TotalProfitLoss        decimal.Decimal `json:"totalProfitLoss"`
	TotalProfitLossPercent decimal.Decimal `json:"totalProfitLossPercent"`
}

type allocationResponse struct {
	AssetID string          `json:"assetId"`
	Value   decimal.Decimal `json:"value"`
	Percent decimal.Decimal `json:"percent"`
}

type portfolioResponse struct {
	Positions  []positionResponse   `json:"positions"`
	Totals     totalsResponse       `json:"totals"`
	Allocation []allocationResponse `json:"allocation"`
}

func newPortfolioResponse(valuations []valuation.PositionValuation, totals valuation.Totals, slices []valuation.AllocationSlice) portfolioResponse {
	resp := portfolioResponse{
		Positions:  make([]positionResponse, len(valuations)),
		Totals:     newTotalsResponse(totals),
		Allocation: make([]allocationResponse, len(slices)),
	}

	for i, v := range valuations {
		p := positionResponse{
			Position:          v.Position,
			CurrentPrice:      v.CurrentPrice,
			CurrentValue:      v.CurrentValue,
			CostBasis:         v.CostBasis,
			ProfitLoss:        v.ProfitLoss,
			ProfitLossPercent: v.ProfitLossPercent,
		}
		if v.Asset != nil {
			p.Symbol = v.Asset.Symbol
			p.Name = v.Asset.Name
		}
		resp.Positions[i] = p
	}

	for i, a := range slices {
		resp.Allocation[i] = allocationResponse{AssetID: a.AssetID, Value: a.Value, Percent: a.Percent}
	}
	return resp
}

func newTotalsResponse(t valuation.Totals) totalsResponse {
	return totalsResponse{
		TotalValue:             t.TotalValue,
		TotalCostBasis:         t.TotalCostBasis,
		TotalProfitLoss:        t.TotalProfitLoss,
		TotalProfitLossPercent: t.TotalProfitLossPercent,
	}
}

type transactionResponse struct {
	domain.Transaction
	Value decimal.Decimal `json:"value"`
}

func newTransactionResponse(tx domain.Transaction) transactionResponse {
	return transactionResponse{Transaction: tx, Value: tx.Value()}
}

type addPositionRequest struct {
	AssetID    string `json:"assetId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	AcquiredAt string `json:"acquiredAt,omitempty"` // RFC 3339
}

type addPositionResponse struct {
	Position    domain.Position     `json:"position"`
	Transaction transactionResponse `json:"transaction"`
}
