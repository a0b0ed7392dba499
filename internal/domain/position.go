package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position represents a simulated holding in the portfolio.
// AssetID is a lookup key into the market snapshot, not an ownership link.
// Positions are never mutated in place; several positions may share an AssetID.
type Position struct {
	ID            uuid.UUID       `json:"id"`
	AssetID       string          `json:"assetId"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"` // USD per unit at acquisition
	AcquiredAt    time.Time       `json:"acquiredAt"`
}

// Validate ensures the position adheres to domain rules
func (p *Position) Validate() error {
	if p.AssetID == "" {
		return errors.New("position asset ID cannot be empty")
	}
	if !p.Quantity.IsPositive() {
		return errors.New("position quantity must be positive")
	}
	if p.PurchasePrice.IsNegative() {
		return errors.New("position purchase price cannot be negative")
	}
	return nil
}

// CostBasis returns Quantity x PurchasePrice
func (p *Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.PurchasePrice)
}
