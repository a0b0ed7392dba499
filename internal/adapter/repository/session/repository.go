// Package session stores the ledger collections as JSON documents in a domain.SessionStore.
// Each collection lives under its own key and is fully replaced on every save.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/simaogato/cryptodash-backend/internal/domain"
)

// documentRepository reads and writes one JSON list under a fixed key
type documentRepository[T any] struct {
	store domain.SessionStore
	key   string
}

func (r *documentRepository[T]) load(ctx context.Context) ([]T, error) {
	raw, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.key, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptState, r.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *documentRepository[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", r.key, err)
	}
	if err := r.store.Put(ctx, r.key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", r.key, err)
	}
	return nil
}

// positionRepository implements domain.PositionRepository
type positionRepository struct {
	doc documentRepository[domain.Position]
}

// NewPositionRepository creates a position repository over store
func NewPositionRepository(store domain.SessionStore) domain.PositionRepository {
	return &positionRepository{doc: documentRepository[domain.Position]{store: store, key: domain.SessionKeyPositions}}
}

// Load returns the stored positions
func (r *positionRepository) Load(ctx context.Context) ([]domain.Position, error) {
	return r.doc.load(ctx)
}

// Save overwrites the stored positions
func (r *positionRepository) Save(ctx context.Context, positions []domain.Position) error {
	return r.doc.save(ctx, positions)
}

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	doc documentRepository[domain.Transaction]
}

// NewTransactionRepository creates a transaction repository over store
func NewTransactionRepository(store domain.SessionStore) domain.TransactionRepository {
	return &transactionRepository{doc: documentRepository[domain.Transaction]{store: store, key: domain.SessionKeyTransactions}}
}

// Load returns the stored log in insertion order
func (r *transactionRepository) Load(ctx context.Context) ([]domain.Transaction, error) {
	return r.doc.load(ctx)
}

// Save overwrites the stored log
func (r *transactionRepository) Save(ctx context.Context, transactions []domain.Transaction) error {
	return r.doc.save(ctx, transactions)
}
