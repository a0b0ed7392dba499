//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/simaogato/cryptodash-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getDBConnectionString returns the test database DSN or skips the test
func getDBConnectionString(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("CRYPTODASH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CRYPTODASH_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func TestSessionStore_GetPut(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, getDBConnectionString(t))
	require.NoError(t, err)

	store, err := NewSessionStore(ctx, db)
	require.NoError(t, err)
	defer store.Close()

	_, err = db.ExecContext(ctx, `DELETE FROM session_state WHERE key = $1`, domain.SessionKeyPositions)
	require.NoError(t, err)

	_, err = store.Get(ctx, domain.SessionKeyPositions)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Put(ctx, domain.SessionKeyPositions, []byte(`[{"assetId":"bitcoin","quantity":"0.75"}]`)))
	require.NoError(t, store.Put(ctx, domain.SessionKeyPositions, []byte(`[{"assetId":"ethereum","quantity":"5.2"}]`)))

	got, err := store.Get(ctx, domain.SessionKeyPositions)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"assetId":"ethereum","quantity":"5.2"}]`, string(got))
}
