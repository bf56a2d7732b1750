package conversation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store SessionStore, userID int64) {
	ctx := context.Background()

	fresh, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, fresh.State)
	assert.Equal(t, userID, fresh.UserID)

	s := NewSession(userID)
	s.State = StateAwaitingItemPrice
	s.Draft = ItemDraft{Category: "kitchen", Name: "soup", Description: "hot"}
	s.AdminAuthed = true
	s.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Put(ctx, s))

	// the caller's copy is not shared with the store
	s.State = StateIdle

	got, err := store.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingItemPrice, got.State)
	assert.Equal(t, "soup", got.Draft.Name)
	assert.True(t, got.AdminAuthed)
	assert.True(t, got.UpdatedAt.Equal(s.UpdatedAt))
}

func TestMemorySessions(t *testing.T) {
	exerciseStore(t, NewMemorySessions(), 7)
}

func TestSessionResetKeepsLogin(t *testing.T) {
	s := NewSession(1)
	s.AdminAuthed = true
	s.State = StateAwaitingEditValue
	s.Edit = EditTarget{Category: "drinks", ItemID: "x", Field: "price"}
	s.reset(StateAdminIdle)
	assert.Equal(t, Session{UserID: 1, State: StateAdminIdle, AdminAuthed: true}, *s)
}

func TestRedisSessions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	const userID = 987654321
	client.Del(ctx, sessionKey(userID))
	t.Cleanup(func() { client.Del(context.Background(), sessionKey(userID)) })

	store := NewRedisSessions(client, time.Minute)
	exerciseStore(t, store, userID)

	ttl, err := client.TTL(ctx, sessionKey(userID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
