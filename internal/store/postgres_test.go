package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/aischool/aischool-backend/internal/store"
	"github.com/aischool/aischool-backend/internal/store/storetest"
)

// Set STORE_TEST_POSTGRES_URL to run against a real database.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("STORE_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("STORE_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, store.RunMigrations(ctx, pool))
	// Applying twice is a no-op.
	require.NoError(t, store.RunMigrations(ctx, pool))

	storetest.Run(t, store.NewPostgresStore(pool))
}
