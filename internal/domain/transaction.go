package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the type of a ledger transaction
type TransactionKind string

const (
	TransactionKindBuy      TransactionKind = "buy"
	TransactionKindSell     TransactionKind = "sell"
	TransactionKindTransfer TransactionKind = "transfer"
)

// ParseTransactionKind converts a raw string into a TransactionKind
func ParseTransactionKind(raw string) (TransactionKind, error) {
	kind := TransactionKind(raw)
	if !kind.Valid() {
		return "", ErrInvalidKind
	}
	return kind, nil
}

// Valid reports whether k is one of the known kinds
func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindBuy, TransactionKindSell, TransactionKindTransfer:
		return true
	}
	return false
}

// Transaction represents one entry of the append-only transaction log.
// Once recorded a transaction is never rewritten or deleted.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	Kind      TransactionKind `json:"kind"`
	AssetID   string          `json:"assetId"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"` // USD
	Timestamp time.Time       `json:"timestamp"`
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}

	if t.AssetID == "" {
		return errors.New("transaction asset ID cannot be empty")
	}

	// Quantity is an absolute value, direction is carried by Kind
	if t.Quantity.LessThanOrEqual(decimal.Zero) {
		return errors.New("transaction quantity must be positive")
	}

	if t.UnitPrice.IsNegative() {
		return errors.New("transaction unit price cannot be negative")
	}

	return nil
}

// Value returns Quantity x UnitPrice
func (t *Transaction) Value() decimal.Decimal {
	return t.Quantity.Mul(t.UnitPrice)
}
