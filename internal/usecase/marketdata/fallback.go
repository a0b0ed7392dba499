package marketdata

import (
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
)

// FallbackAssets returns the fixed dataset served once every fetch attempt has failed.
// A fresh slice is built on every call so callers can never mutate the reference data.
func FallbackAssets() []domain.Asset {
	return []domain.Asset{
		{
			ID:                    "bitcoin",
			Symbol:                "btc",
			Name:                  "Bitcoin",
			Image:                 "https://assets.coingecko.com/coins/images/1/large/bitcoin.png",
			CurrentPrice:          decimal.RequireFromString("51432.12"),
			MarketCap:             decimal.RequireFromString("1008540934156"),
			PriceChangePercent24h: decimal.RequireFromString("2.34"),
			TotalVolume24h:        decimal.RequireFromString("37854392456"),
			Sparkline7d:           series("50000", "51000", "50500", "52000", "51500", "50800", "51432"),
		},
		{
			ID:                    "ethereum",
			Symbol:                "eth",
			Name:                  "Ethereum",
			Image:                 "https://assets.coingecko.com/coins/images/279/large/ethereum.png",
			CurrentPrice:          decimal.RequireFromString("2823.45"),
			MarketCap:             decimal.RequireFromString("339547293045"),
			PriceChangePercent24h: decimal.RequireFromString("3.12"),
			TotalVolume24h:        decimal.RequireFromString("18763254198"),
			Sparkline7d:           series("2750", "2800", "2780", "2900", "2850", "2820", "2823"),
		},
		{
			ID:                    "ripple",
			Symbol:                "xrp",
			Name:                  "XRP",
			Image:                 "https://assets.coingecko.com/coins/images/44/large/xrp-symbol-white-128.png",
			CurrentPrice:          decimal.RequireFromString("0.5324"),
			MarketCap:             decimal.RequireFromString("28452789123"),
			PriceChangePercent24h: decimal.RequireFromString("-1.24"),
			TotalVolume24h:        decimal.RequireFromString("1853254198"),
			Sparkline7d:           series("0.54", "0.55", "0.53", "0.52", "0.54", "0.53", "0.5324"),
		},
		{
			ID:                    "cardano",
			Symbol:                "ada",
			Name:                  "Cardano",
			Image:                 "https://assets.coingecko.com/coins/images/975/large/cardano.png",
			CurrentPrice:          decimal.RequireFromString("0.3524"),
			MarketCap:             decimal.RequireFromString("12452789123"),
			PriceChangePercent24h: decimal.RequireFromString("0.74"),
			TotalVolume24h:        decimal.RequireFromString("853254198"),
			Sparkline7d:           series("0.35", "0.36", "0.34", "0.35", "0.36", "0.35", "0.3524"),
		},
		{
			ID:                    "solana",
			Symbol:                "sol",
			Name:                  "Solana",
			Image:                 "https://assets.coingecko.com/coins/images/4128/large/solana.png",
			CurrentPrice:          decimal.RequireFromString("102.74"),
			MarketCap:             decimal.RequireFromString("43452789123"),
			PriceChangePercent24h: decimal.RequireFromString("5.24"),
			TotalVolume24h:        decimal.RequireFromString("2853254198"),
			Sparkline7d:           series("95", "98", "100", "103", "99", "101", "102.74"),
		},
	}
}

func series(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}
