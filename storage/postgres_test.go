package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration test; needs DATABASE_URL pointing at a scratch database.
func getPostgresPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("skipping postgres integration test: DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Postgres not available: %v", err)
	}
	schema, err := os.ReadFile(filepath.Join("..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresStore_SaveLoad(t *testing.T) {
	pool := getPostgresPool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	want := fixtureState()
	require.NoError(t, store.Save(ctx, want))
	defer store.Save(ctx, &State{})

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Items, 3)
	assert.Equal(t, want.Carts[0].Lines, got.Carts[0].Lines)
	require.Len(t, got.Orders, 2)
	assert.Equal(t, "ZZZ999", got.Orders[0].ID)
	assert.NotNil(t, got.Orders[0].CompletedAt)
	assert.Nil(t, got.Orders[1].CompletedAt)
	assert.Equal(t, want.Orders[1].Items, got.Orders[1].Items)
}

func TestPostgresStore_FailedSaveKeepsPrevious(t *testing.T) {
	pool := getPostgresPool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, fixtureState()))
	defer store.Save(ctx, &State{})

	bad := fixtureState()
	bad.Items[0].Price = 0 // violates CHECK (price > 0)
	require.Error(t, store.Save(ctx, bad))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)
	assert.Equal(t, int64(5), got.Items[0].Price)
}
