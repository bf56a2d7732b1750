package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cafe-telegram/db"
	"cafe-telegram/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "cafe.db"))
	require.NoError(t, err)
	store, err := NewSQLiteStore(context.Background(), conn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func fixtureState() *State {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	done := at.Add(15 * time.Minute)
	cola := models.CartLine{ItemID: "cola-1", Category: models.CategoryDrinks, Name: "Cola", Price: 5, Qty: 2}
	return &State{
		Items: []models.MenuItem{
			{ID: "cola-1", Category: models.CategoryDrinks, Name: "Cola", Description: "cold", Price: 5, CreatedAt: at},
			{ID: "tea-1", Category: models.CategoryDrinks, Name: "Tea", Price: 3, PrepTime: "5 min", PhotoRef: "menu_tea.jpg", CreatedAt: at},
			{ID: "soup-1", Category: models.CategoryKitchen, Name: "Soup", Price: 12, CreatedAt: at},
		},
		Carts: []models.Cart{
			{UserID: 7, Lines: []models.CartLine{cola}, CreatedAt: at},
		},
		Orders: []models.Order{
			{ID: "ZZZ999", UserID: 7, Items: []models.CartLine{cola}, SubmittedAt: at, Status: models.OrderStatusDone, CompletedAt: &done},
			{ID: "AAA111", UserID: 8, Username: "kot", Items: []models.CartLine{cola}, SubmittedAt: at, Status: models.OrderStatusNew},
		},
	}
}

func TestSQLiteStore_EmptyLoad(t *testing.T) {
	store := setupSQLite(t)
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Items)
	assert.Empty(t, st.Carts)
	assert.Empty(t, st.Orders)
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()
	want := fixtureState()

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)

	// Items come back grouped by category, insertion order kept inside each.
	require.Len(t, got.Items, 3)
	assert.Equal(t, "cola-1", got.Items[0].ID)
	assert.Equal(t, "tea-1", got.Items[1].ID)
	assert.Equal(t, "soup-1", got.Items[2].ID)
	assert.Equal(t, want.Items[1], got.Items[1])

	assert.Equal(t, want.Carts, got.Carts)
	// Orders keep submission order, not id order.
	assert.Equal(t, want.Orders, got.Orders)
}

func TestSQLiteStore_SaveReplacesState(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, fixtureState()))
	next := fixtureState()
	next.Carts = nil
	next.Items = next.Items[:1]
	require.NoError(t, store.Save(ctx, next))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Empty(t, got.Carts)
	assert.Len(t, got.Orders, 2)
}

func TestSQLiteStore_FailedSaveKeepsPrevious(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, fixtureState()))

	bad := fixtureState()
	bad.Items = append(bad.Items, bad.Items[0]) // duplicate primary key
	require.Error(t, store.Save(ctx, bad))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)
	assert.Len(t, got.Carts, 1)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(nil)
	st := fixtureState()
	require.NoError(t, m.Save(ctx, st))

	// Mutating the caller's copy must not leak into the store.
	st.Carts[0].Lines[0].Qty = 99
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Carts[0].Lines[0].Qty)
	assert.Equal(t, 1, m.Saves())

	m.SetSaveErr(assert.AnError)
	assert.ErrorIs(t, m.Save(ctx, st), assert.AnError)
	assert.Equal(t, 1, m.Saves())
}
