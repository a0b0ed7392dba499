package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// BaseCurrency is the quote currency of every market price
const BaseCurrency = "USD"

// RateTable maps a fiat currency code to its USD conversion rate.
// The table is configuration: it is not refreshed from any feed.
type RateTable struct {
	rates map[string]decimal.Decimal
}

// DefaultRates returns the built-in table used when no configuration overrides it
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("1.08"),
		"GBP": decimal.RequireFromString("1.27"),
		"JPY": decimal.RequireFromString("0.0067"),
	}
}

// NewRateTable validates rates and builds a RateTable.
// Every code must be a known ISO 4217 currency and every rate must be positive.
// USD is always present with a rate of 1.
func NewRateTable(rates map[string]decimal.Decimal) (*RateTable, error) {
	table := &RateTable{rates: make(map[string]decimal.Decimal, len(rates)+1)}
	for code, rate := range rates {
		code = strings.ToUpper(strings.TrimSpace(code))
		if money.GetCurrency(code) == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}
		table.rates[code] = rate
	}
	table.rates[BaseCurrency] = decimal.NewFromInt(1)
	return table, nil
}

// Rate returns the USD rate of code
func (t *RateTable) Rate(code string) (decimal.Decimal, bool) {
	rate, ok := t.rates[strings.ToUpper(strings.TrimSpace(code))]
	return rate, ok
}

// ToUSD converts amount expressed in code into USD
func (t *RateTable) ToUSD(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	rate, ok := t.Rate(code)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return amount.Mul(rate), nil
}

// Codes lists the supported currency codes, USD first then alphabetical
func (t *RateTable) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		if code != BaseCurrency {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return append([]string{BaseCurrency}, codes...)
}
