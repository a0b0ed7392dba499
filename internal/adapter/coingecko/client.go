// Package coingecko reads market snapshots from the CoinGecko REST API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
)

const (
	// DefaultBaseURL is the public API root
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	apiKeyHeader = "x-cg-demo-api-key"
)

// Config controls the feed request
type Config struct {
	BaseURL string
	APIKey  string // optional demo key
	PerPage int
	Timeout time.Duration
}

// Client implements marketdata.Source against /coins/markets
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client. Zero values fall back to the public endpoint,
// 20 assets per page and a 10 second timeout.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With().Str("component", "coingecko").Logger(),
	}
}

type marketRow struct {
	ID                       string          `json:"id"`
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	Image                    string          `json:"image"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	MarketCap                decimal.Decimal `json:"market_cap"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
	TotalVolume              decimal.Decimal `json:"total_volume"`
	Sparkline                *struct {
		Price []decimal.Decimal `json:"price"`
	} `json:"sparkline_in_7d"`
}

// FetchMarkets returns the top assets by market cap in USD with 7 day sparklines.
// Failures are returned as *marketdata.FetchError.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.Asset, error) {
	endpoint, err := c.marketsURL()
	if err != nil {
		return nil, fmt.Errorf("failed to build markets URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create markets request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, marketdata.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &marketdata.FetchError{
			Kind:       marketdata.FailureServer,
			StatusCode: resp.StatusCode,
			Err:        errors.New(string(body)),
		}
	}

	var rows []marketRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, marketdata.Classify(fmt.Errorf("failed to decode markets response: %w", err))
	}

	assets := make([]domain.Asset, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, row.toAsset())
	}

	c.log.Debug().
		Int("assets", len(assets)).
		Dur("latency", time.Since(start)).
		Msg("Fetched markets")

	return assets, nil
}

func (c *Client) marketsURL() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	u = u.JoinPath("coins", "markets")

	q := u.Query()
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	q.Set("page", "1")
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "24h")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (r marketRow) toAsset() domain.Asset {
	asset := domain.Asset{
		ID:                    r.ID,
		Symbol:                r.Symbol,
		Name:                  r.Name,
		Image:                 r.Image,
		CurrentPrice:          r.CurrentPrice,
		MarketCap:             r.MarketCap,
		PriceChangePercent24h: r.PriceChangePercentage24h,
		TotalVolume24h:        r.TotalVolume,
	}
	if r.Sparkline != nil {
		asset.Sparkline7d = r.Sparkline.Price
	}
	return asset
}
