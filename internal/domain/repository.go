package domain

import (
	"context"
)

// Logical keys of the session-scoped persisted state
const (
	SessionKeyPositions    = "positions"
	SessionKeyTransactions = "transactions"
)

// SessionStore is the key/value backend holding the session state.
// Put fully replaces the stored value (last write wins).
type SessionStore interface {
	// Get returns the raw value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key
	Put(ctx context.Context, key string, value []byte) error

	// Close releases the backend
	Close() error
}

// PositionRepository defines the interface for position persistence operations
type PositionRepository interface {
	// Load returns the stored positions, an empty list when nothing was stored yet
	Load(ctx context.Context) ([]Position, error)

	// Save overwrites the stored positions with the full list
	Save(ctx context.Context, positions []Position) error
}

// TransactionRepository defines the interface for transaction log persistence operations
type TransactionRepository interface {
	// Load returns the stored log in insertion order
	Load(ctx context.Context) ([]Transaction, error)

	// Save overwrites the stored log with the full list
	Save(ctx context.Context, transactions []Transaction) error
}

// AssetSource gives read access to the current market snapshot
type AssetSource interface {
	// Assets returns a copy of the currently cached assets
	Assets() []Asset

	// Lookup returns the cached asset with the given ID, if present
	Lookup(assetID string) (Asset, bool)
}
