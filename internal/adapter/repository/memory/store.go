// Package memory is a process-lifetime domain.SessionStore.
package memory

import (
	"context"
	"sync"

	"github.com/simaogato/cryptodash-backend/internal/domain"
)

// Store keeps session values in a map
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Get returns a copy of the value under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put replaces the value under key
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}
