package marketdata

import (
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// flatThreshold is the absolute 24h change (in percent) under which the chart is drawn flat
var flatThreshold = decimal.RequireFromString("0.01")

// ChartSeries returns the points to plot for an asset's 7 day chart.
// The current price is appended when it differs from the last sparkline point, and
// an asset that barely moved in 24h is plotted as a flat line at the current price.
func ChartSeries(asset domain.Asset) []decimal.Decimal {
	points := make([]decimal.Decimal, 0, len(asset.Sparkline7d)+1)
	points = append(points, asset.Sparkline7d...)

	if n := len(points); n == 0 || !points[n-1].Equal(asset.CurrentPrice) {
		points = append(points, asset.CurrentPrice)
	}

	if asset.PriceChangePercent24h.Abs().LessThan(flatThreshold) {
		for i := range points {
			points[i] = asset.CurrentPrice
		}
	}
	return points
}

// ChartStats summarises a chart series
type ChartStats struct {
	Points          int
	Min             float64
	Max             float64
	Mean            float64
	StdDev          float64
	ChangePercent7d decimal.Decimal // first to last point
}

// SeriesStats computes summary statistics for a series. An empty series yields zero stats.
func SeriesStats(points []decimal.Decimal) ChartStats {
	if len(points) == 0 {
		return ChartStats{ChangePercent7d: decimal.Zero}
	}

	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.InexactFloat64()
	}

	stats := ChartStats{
		Points:          len(xs),
		Min:             floats.Min(xs),
		Max:             floats.Max(xs),
		Mean:            stat.Mean(xs, nil),
		ChangePercent7d: decimal.Zero,
	}
	if len(xs) > 1 {
		stats.StdDev = stat.StdDev(xs, nil)
	}

	first, last := points[0], points[len(points)-1]
	if !first.IsZero() {
		stats.ChangePercent7d = last.Sub(first).Div(first).Mul(decimal.NewFromInt(100))
	}
	return stats
}
