package services

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"cafe-telegram/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderID(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	for i := 0; i < 100; i++ {
		id, err := NewOrderID()
		require.NoError(t, err)
		assert.Regexp(t, re, id)
	}
}

// sequenceIDs yields ids in order, then repeats the last one.
func sequenceIDs(ids ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id, nil
	}
}

func oneLineCart(userID int64) models.Cart {
	return models.Cart{UserID: userID, Lines: []models.CartLine{{ItemID: "a", Name: "A", Price: 5, Qty: 2}}}
}

func TestLedgerRegeneratesOnCollision(t *testing.T) {
	l := NewLedger(nil)
	l.genID = sequenceIDs("AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB")

	first, err := l.Create(oneLineCart(1), "")
	require.NoError(t, err)
	second, err := l.Create(oneLineCart(2), "")
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.ID)
	assert.Equal(t, "BBBBBB", second.ID)
	assert.Len(t, l.All(), 2)
}

func TestLedgerGivesUpAfterBoundedAttempts(t *testing.T) {
	l := NewLedger(nil)
	l.genID = sequenceIDs("AAAAAA")
	_, err := l.Create(oneLineCart(1), "")
	require.NoError(t, err)

	_, err = l.Create(oneLineCart(1), "")
	require.Error(t, err)
	assert.Len(t, l.All(), 1)
}

func TestLedgerGeneratorError(t *testing.T) {
	l := NewLedger(nil)
	l.genID = func() (string, error) { return "", errors.New("entropy gone") }
	_, err := l.Create(oneLineCart(1), "")
	assert.ErrorContains(t, err, "entropy gone")
	assert.Empty(t, l.All())
}

func TestLedgerCreateEmptyCart(t *testing.T) {
	l := NewLedger(nil)
	_, err := l.Create(models.Cart{UserID: 1}, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, l.All())
}

func TestLedgerSnapshotIsImmutable(t *testing.T) {
	l := NewLedger(nil)
	cart := oneLineCart(1)
	o, err := l.Create(cart, "bob")
	require.NoError(t, err)

	cart.Lines[0].Qty = 100
	o.Items[0].Price = 1

	got, err := l.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Qty)
	assert.Equal(t, int64(10), got.Total())
	assert.Equal(t, "bob", got.Username)
}

func TestLedgerMarkDoneOneWay(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l := NewLedger(nil)
	l.now = func() time.Time { return now }

	o, err := l.Create(oneLineCart(1), "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusNew, o.Status)
	assert.Nil(t, o.CompletedAt)

	now = now.Add(time.Hour)
	done, changed, err := l.MarkDone(o.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.OrderStatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, now, *done.CompletedAt)

	now = now.Add(time.Hour)
	again, changed, err := l.MarkDone(o.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.OrderStatusDone, again.Status)
	assert.Equal(t, *done.CompletedAt, *again.CompletedAt, "second call does not re-stamp")

	_, _, err = l.MarkDone("NOPE00")
	assert.True(t, IsNotFound(err))
}

func TestLedgerQueries(t *testing.T) {
	l := NewLedger(nil)
	l.genID = sequenceIDs("A00001", "A00002", "A00003", "A00004")
	for _, u := range []int64{1, 2, 1, 1} {
		_, err := l.Create(oneLineCart(u), "")
		require.NoError(t, err)
	}
	_, _, err := l.MarkDone("A00003")
	require.NoError(t, err)

	mine := l.ByUser(1, 2)
	require.Len(t, mine, 2)
	assert.Equal(t, "A00004", mine[0].ID, "newest first")
	assert.Equal(t, "A00003", mine[1].ID)
	assert.Len(t, l.ByUser(1, 0), 3)
	assert.Empty(t, l.ByUser(9, 0))

	var active []string
	for _, o := range l.Active() {
		active = append(active, o.ID)
	}
	assert.Equal(t, []string{"A00001", "A00002", "A00004"}, active)

	_, err = l.Get("ZZZZZZ")
	assert.True(t, IsNotFound(err))
}

func TestNewLedgerRestoresOrder(t *testing.T) {
	orders := []models.Order{
		{ID: "X1", UserID: 1, Status: models.OrderStatusNew},
		{ID: "X2", UserID: 1, Status: models.OrderStatusDone},
	}
	l := NewLedger(orders)
	all := l.All()
	require.Len(t, all, 2)
	assert.Equal(t, "X1", all[0].ID)
	assert.Len(t, l.Active(), 1)
}
