package main

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// formatUSD renders an amount with the currency's own symbol, separators and fraction
func formatUSD(amount decimal.Decimal) string {
	cur := money.GetCurrency(money.USD)
	return cur.Formatter().Format(amount.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction)).IntPart())
}

// formatPrice is formatUSD for unit prices; sub-dollar prices keep six decimals
func formatPrice(price decimal.Decimal) string {
	if price.Abs().LessThan(one) && !price.IsZero() {
		return "$" + price.StringFixed(6)
	}
	return formatUSD(price)
}

// formatPercent renders a signed percentage with two decimals
func formatPercent(p decimal.Decimal) string {
	s := p.StringFixed(2) + "%"
	if p.IsPositive() {
		return "+" + s
	}
	return s
}
