package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"cafe-telegram/logger"
	"cafe-telegram/models"
	"cafe-telegram/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdmin int64 = 1000
	testUser  int64 = 42
)

type fakePhotos struct {
	mu       sync.Mutex
	released []string
	err      error
}

func (p *fakePhotos) Release(ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, ref)
	return p.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type cafeFixture struct {
	cafe     *Cafe
	store    *storage.MemoryStore
	notifier *fakeNotifier
	photos   *fakePhotos
	events   *fakePublisher
}

func newCafeFixture(t *testing.T, initial *storage.State) *cafeFixture {
	t.Helper()
	f := &cafeFixture{
		store:    storage.NewMemoryStore(initial),
		notifier: &fakeNotifier{},
		photos:   &fakePhotos{},
		events:   &fakePublisher{},
	}
	f.cafe = NewCafe(context.Background(), Deps{
		Store:    f.store,
		Notifier: f.notifier,
		Photos:   f.photos,
		Events:   f.events,
		Log:      logger.Discard(),
		AdminID:  testAdmin,
	})
	return f
}

func (f *cafeFixture) addItem(t *testing.T, category, name string, price int64) models.MenuItem {
	t.Helper()
	it, err := f.cafe.AddItem(context.Background(), NewItem{Category: category, Name: name, Price: price})
	require.NoError(t, err)
	return it
}

func TestCafeColaScenario(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	cola := f.addItem(t, models.CategoryDrinks, "cola", 5)

	_, err := f.cafe.AddToCart(ctx, testUser, models.CategoryDrinks, cola.ID)
	require.NoError(t, err)
	line, err := f.cafe.AddToCart(ctx, testUser, models.CategoryDrinks, cola.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Qty)
	assert.Equal(t, int64(10), ComputeTotal(f.cafe.GetCart(testUser)))

	o, err := f.cafe.Submit(ctx, testUser, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), o.Total())
	assert.Equal(t, models.OrderStatusNew, o.Status)
	assert.True(t, f.cafe.GetCart(testUser).Empty())

	adminMsgs := f.notifier.To(testAdmin)
	require.Len(t, adminMsgs, 1)
	assert.Contains(t, adminMsgs[0].Text, o.ID)
	assert.Contains(t, adminMsgs[0].Text, "10")
	require.Len(t, adminMsgs[0].Choices, 1)
	assert.Equal(t, models.Button{Action: models.ActMarkDone, OrderID: o.ID}, adminMsgs[0].Choices[0][0].Button)

	done, already, err := f.cafe.MarkDone(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, models.OrderStatusDone, done.Status)

	userMsgs := f.notifier.To(testUser)
	require.Len(t, userMsgs, 1)
	assert.Contains(t, userMsgs[0].Text, o.ID)

	_, already, err = f.cafe.MarkDone(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Len(t, f.notifier.To(testUser), 1, "no second notification")

	require.Len(t, f.events.events, 2)
	assert.Equal(t, models.OrderEventSubmitted, f.events.events[0].Type)
	assert.Equal(t, models.OrderEventDone, f.events.events[1].Type)
	assert.Equal(t, int64(10), f.events.events[1].Total)
}

func TestCafeRemoveNeverAdded(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	tea := f.addItem(t, models.CategoryDrinks, "tea", 3)
	_, err := f.cafe.AddToCart(ctx, testUser, models.CategoryDrinks, tea.ID)
	require.NoError(t, err)
	before := f.cafe.GetCart(testUser)
	saves := f.store.Saves()

	_, err = f.cafe.RemoveFromCart(ctx, testUser, "never-added")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, before, f.cafe.GetCart(testUser))
	assert.Equal(t, saves, f.store.Saves(), "failed operation is not persisted")
}

func TestCafeSubmitEmptyCartChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	saves := f.store.Saves()

	_, err := f.cafe.Submit(ctx, testUser, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.cafe.ListOrdersByUser(testUser, 0))
	assert.Equal(t, saves, f.store.Saves())
	assert.Empty(t, f.notifier.To(testAdmin))
}

func TestCafeSubmitIsOneSave(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	cola := f.addItem(t, models.CategoryDrinks, "cola", 5)
	_, err := f.cafe.AddToCart(ctx, testUser, models.CategoryDrinks, cola.ID)
	require.NoError(t, err)

	saves := f.store.Saves()
	o, err := f.cafe.Submit(ctx, testUser, "")
	require.NoError(t, err)
	assert.Equal(t, saves+1, f.store.Saves())

	snap := f.store.Snapshot()
	assert.Empty(t, snap.Carts, "cart cleared in the same save")
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, o.ID, snap.Orders[0].ID)
}

func TestCafeDeleteKeepsSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	cake, err := f.cafe.AddItem(ctx, NewItem{Category: models.CategoryDesserts, Name: "cake", Price: 8, PhotoRef: "cake.jpg"})
	require.NoError(t, err)

	_, err = f.cafe.AddToCart(ctx, 1, models.CategoryDesserts, cake.ID)
	require.NoError(t, err)
	_, err = f.cafe.AddToCart(ctx, 2, models.CategoryDesserts, cake.ID)
	require.NoError(t, err)
	o, err := f.cafe.Submit(ctx, 2, "")
	require.NoError(t, err)

	_, err = f.cafe.DeleteItem(ctx, models.CategoryDesserts, cake.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cake.jpg"}, f.photos.released)

	cart := f.cafe.GetCart(1)
	line, ok := cart.Line(cake.ID)
	require.True(t, ok)
	assert.Equal(t, 1, line.Qty)
	assert.Equal(t, int64(8), line.Price)

	got, err := f.cafe.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Total())

	_, err = f.cafe.AddToCart(ctx, 1, models.CategoryDesserts, cake.ID)
	assert.True(t, IsNotFound(err))
}

func TestCafeDeleteSurvivesPhotoReleaseFailure(t *testing.T) {
	f := newCafeFixture(t, nil)
	f.photos.err = errors.New("disk busy")
	it, err := f.cafe.AddItem(context.Background(), NewItem{Category: models.CategoryKitchen, Name: "soup", Price: 4, PhotoRef: "s.jpg"})
	require.NoError(t, err)

	_, err = f.cafe.DeleteItem(context.Background(), models.CategoryKitchen, it.ID)
	require.NoError(t, err)
	_, err = f.cafe.GetItem(models.CategoryKitchen, it.ID)
	assert.True(t, IsNotFound(err))
}

func TestCafeEditPhotoReleasesOld(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	it, err := f.cafe.AddItem(ctx, NewItem{Category: models.CategoryKitchen, Name: "soup", Price: 4, PhotoRef: "old.jpg"})
	require.NoError(t, err)

	_, err = f.cafe.EditItem(ctx, models.CategoryKitchen, it.ID, FieldName, "borscht")
	require.NoError(t, err)
	assert.Empty(t, f.photos.released)

	after, err := f.cafe.EditItem(ctx, models.CategoryKitchen, it.ID, FieldPhoto, "new.jpg")
	require.NoError(t, err)
	assert.Equal(t, "new.jpg", after.PhotoRef)
	assert.Equal(t, []string{"old.jpg"}, f.photos.released)
}

func TestCafeSaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	f.store.SetSaveErr(errors.New("disk full"))

	it := f.addItem(t, models.CategoryDrinks, "juice", 6)
	_, err := f.cafe.AddToCart(ctx, testUser, models.CategoryDrinks, it.ID)
	require.NoError(t, err)

	items, err := f.cafe.ListItems(models.CategoryDrinks)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.False(t, f.cafe.GetCart(testUser).Empty())
	assert.Empty(t, f.store.Snapshot().Items)
}

func TestCafeLoadFailureStartsEmpty(t *testing.T) {
	store := storage.NewMemoryStore(&storage.State{Items: []models.MenuItem{{ID: "x", Category: models.CategoryDrinks, Name: "x", Price: 1}}})
	store.LoadErr = errors.New("corrupt")
	c := NewCafe(context.Background(), Deps{Store: store, Log: logger.Discard()})

	items, err := c.ListItems(models.CategoryDrinks)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCafeRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	cola := f.addItem(t, models.CategoryDrinks, "cola", 5)
	_, err := f.cafe.AddToCart(ctx, testUser, models.CategoryDrinks, cola.ID)
	require.NoError(t, err)
	_, err = f.cafe.AddToCart(ctx, 7, models.CategoryDrinks, cola.ID)
	require.NoError(t, err)
	o, err := f.cafe.Submit(ctx, 7, "")
	require.NoError(t, err)

	again := NewCafe(ctx, Deps{Store: f.store, Log: logger.Discard()})
	got, err := again.GetItem(models.CategoryDrinks, cola.ID)
	require.NoError(t, err)
	assert.Equal(t, "cola", got.Name)
	assert.Len(t, again.GetCart(testUser).Lines, 1)
	restored, err := again.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), restored.Total())
}

func TestCafeDeliveryFailureDoesNotFailSubmit(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	f.notifier.failN = 100
	cola := f.addItem(t, models.CategoryDrinks, "cola", 5)
	_, err := f.cafe.AddToCart(ctx, testUser, models.CategoryDrinks, cola.ID)
	require.NoError(t, err)

	o, err := f.cafe.Submit(ctx, testUser, "")
	require.NoError(t, err)
	assert.Len(t, f.cafe.ListActiveOrders(), 1)
	assert.Equal(t, o.ID, f.cafe.ListActiveOrders()[0].ID)
}

func TestCafeConcurrentSubmitsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	f := newCafeFixture(t, nil)
	cola := f.addItem(t, models.CategoryDrinks, "cola", 5)

	const users = 50
	var wg sync.WaitGroup
	ids := make(chan string, users)
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			if _, err := f.cafe.AddToCart(ctx, u, models.CategoryDrinks, cola.ID); err != nil {
				return
			}
			if o, err := f.cafe.Submit(ctx, u, ""); err == nil {
				ids <- o.ID
			}
		}(u)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate order id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, users)
}

func TestBuildCards(t *testing.T) {
	o := models.Order{
		ID:       "AB12CD",
		UserID:   testUser,
		Username: "alice",
		Items:    []models.CartLine{{ItemID: "a", Name: "cola", Price: 5, Qty: 2}},
		Status:   models.OrderStatusNew,
	}
	admin := BuildAdminCard(o)
	assert.True(t, strings.Contains(admin.Text, "@alice"))
	assert.Contains(t, admin.Text, "cola ×2 = 10")
	assert.Len(t, admin.Choices, 1)

	o.Status = models.OrderStatusDone
	assert.Empty(t, BuildAdminCard(o).Choices, "no button once done")
	assert.Contains(t, BuildCustomerCard(o).Text, "AB12CD")
}
