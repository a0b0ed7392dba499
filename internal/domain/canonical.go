package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalDecimal returns d in the shortest form its string encoding parses back to.
// A stored "1.0" reloads as "1", so records keep this form from creation.
func CanonicalDecimal(d decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(d.String())
}

// CanonicalTime drops the monotonic reading and location, which JSON does not keep
func CanonicalTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}
