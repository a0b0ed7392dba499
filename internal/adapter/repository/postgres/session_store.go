package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/cryptodash-backend/internal/domain"
)

// sessionStore implements domain.SessionStore on a session_state table
type sessionStore struct {
	db *DB
}

// NewSessionStore creates the session_state table if needed and returns the store.
// Closing the store closes db.
func NewSessionStore(ctx context.Context, db *DB) (domain.SessionStore, error) {
	query := `
		CREATE TABLE IF NOT EXISTS session_state (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create session_state table: %w", err)
	}
	return &sessionStore{db: db}, nil
}

// Get retrieves the value stored under key
func (s *sessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM session_state
		WHERE key = $1
	`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session value: %w", err)
	}
	return value, nil
}

// Put replaces the value stored under key
func (s *sessionStore) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO session_state (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	// JSONB parameters are sent as text
	if _, err := s.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("failed to put session value: %w", err)
	}
	return nil
}

// Close closes the underlying connection
func (s *sessionStore) Close() error {
	return s.db.Close()
}
