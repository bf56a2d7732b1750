package services

import (
	"context"
	"sync"

	"cafe-telegram/logger"
	"cafe-telegram/models"
	"cafe-telegram/storage"
)

// Deps are the collaborators of a Cafe. Photos and Events may be nil.
type Deps struct {
	Store    storage.Store
	Notifier Notifier
	Photos   PhotoReleaser
	Events   EventPublisher
	Log      *logger.Logger
	AdminID  int64
}

// Cafe owns the catalog, the carts and the order ledger. Every mutation
// runs under one mutex and is followed by a full-state save inside the
// same critical section. Notifications go out after the lock is released.
type Cafe struct {
	mu      sync.Mutex
	catalog *Catalog
	carts   *Carts
	ledger  *Ledger

	store    storage.Store
	notifier Notifier
	photos   PhotoReleaser
	events   EventPublisher
	log      *logger.Logger
	adminID  int64
}

// NewCafe loads the persisted state. A failed load is logged and the cafe
// starts empty.
func NewCafe(ctx context.Context, d Deps) *Cafe {
	c := &Cafe{
		store:    d.Store,
		notifier: d.Notifier,
		photos:   d.Photos,
		events:   d.Events,
		log:      d.Log,
		adminID:  d.AdminID,
	}
	if c.photos == nil {
		c.photos = nopReleaser{}
	}
	if c.events == nil {
		c.events = NopPublisher
	}
	if c.log == nil {
		c.log = logger.Discard()
	}

	st, err := d.Store.Load(ctx)
	if err != nil {
		c.log.Error("state_load_failed", "starting from empty state", &PersistenceError{Op: "load", Err: err})
		st = &storage.State{}
	}
	if st == nil {
		st = &storage.State{}
	}
	c.catalog = NewCatalog(st.Items, c.log)
	c.carts = NewCarts(st.Carts)
	c.ledger = NewLedger(st.Orders)
	c.log.Info("state_loaded", "cafe state loaded",
		"items", len(st.Items), "carts", len(st.Carts), "orders", len(st.Orders))
	return c
}

func (c *Cafe) AdminID() int64 { return c.adminID }

func (c *Cafe) IsAdmin(userID int64) bool { return c.adminID != 0 && userID == c.adminID }

// persist must be called with c.mu held. A failed save is logged and the
// in-memory change stands.
func (c *Cafe) persist(ctx context.Context, op string) {
	st := &storage.State{
		Items:  c.catalog.All(),
		Carts:  c.carts.All(),
		Orders: c.ledger.All(),
	}
	if err := c.store.Save(context.WithoutCancel(ctx), st); err != nil {
		c.log.Error("state_save_failed", "in-memory state kept", &PersistenceError{Op: op, Err: err})
	}
}

// Notify delivers msg and logs a failure. It must not be called with c.mu held.
func (c *Cafe) Notify(ctx context.Context, recipient int64, msg models.Message) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Deliver(ctx, recipient, msg); err != nil {
		c.log.Error("notify_failed", "message dropped", err, "recipient", recipient)
	}
}

// NotifyAdmin is Notify addressed to the configured administrator.
func (c *Cafe) NotifyAdmin(ctx context.Context, msg models.Message) {
	if c.adminID == 0 {
		return
	}
	c.Notify(ctx, c.adminID, msg)
}

func (c *Cafe) publish(ctx context.Context, typ string, o models.Order) {
	ev := models.OrderEvent{
		Type:    typ,
		OrderID: o.ID,
		UserID:  o.UserID,
		Total:   o.Total(),
		Items:   o.Items,
		Status:  o.Status,
		At:      o.SubmittedAt,
	}
	if o.CompletedAt != nil {
		ev.At = *o.CompletedAt
	}
	if err := c.events.Publish(ctx, ev); err != nil {
		c.log.Error("event_publish_failed", "order event dropped", err, "order_id", o.ID, "type", typ)
	}
}

func (c *Cafe) releasePhoto(ref string) {
	if ref == "" {
		return
	}
	if err := c.photos.Release(ref); err != nil {
		c.log.Warn("photo_release_failed", err.Error(), "photo", ref)
	}
}

// Catalog

func (c *Cafe) AddItem(ctx context.Context, in NewItem) (models.MenuItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.catalog.Add(in)
	if err != nil {
		return models.MenuItem{}, err
	}
	c.persist(ctx, "add_item")
	c.log.Info("item_added", "menu item added", "category", it.Category, "item_id", it.ID)
	return it, nil
}

// DeleteItem removes the item and then releases its photo. Carts and orders
// holding the item keep their snapshot.
func (c *Cafe) DeleteItem(ctx context.Context, category, id string) (models.MenuItem, error) {
	c.mu.Lock()
	removed, err := c.catalog.Delete(category, id)
	if err != nil {
		c.mu.Unlock()
		return models.MenuItem{}, err
	}
	c.persist(ctx, "delete_item")
	c.mu.Unlock()

	c.log.Info("item_deleted", "menu item deleted", "category", category, "item_id", id)
	c.releasePhoto(removed.PhotoRef)
	return removed, nil
}

// EditItem changes one field. Replacing a photo releases the old one.
func (c *Cafe) EditItem(ctx context.Context, category, id, field, value string) (models.MenuItem, error) {
	c.mu.Lock()
	before, after, err := c.catalog.Edit(category, id, field, value)
	if err != nil {
		c.mu.Unlock()
		return models.MenuItem{}, err
	}
	c.persist(ctx, "edit_item")
	c.mu.Unlock()

	c.log.Info("item_edited", "menu item edited", "category", category, "item_id", id, "field", field)
	if before.PhotoRef != after.PhotoRef {
		c.releasePhoto(before.PhotoRef)
	}
	return after, nil
}

func (c *Cafe) ListItems(category string) ([]models.MenuItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.List(category)
}

func (c *Cafe) GetItem(category, id string) (models.MenuItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Get(category, id)
}

// Cart

func (c *Cafe) AddToCart(ctx context.Context, userID int64, category, itemID string) (models.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, err := c.catalog.Get(category, itemID)
	if err != nil {
		return models.CartLine{}, err
	}
	line := c.carts.Add(userID, it)
	c.persist(ctx, "add_to_cart")
	return line, nil
}

func (c *Cafe) RemoveFromCart(ctx context.Context, userID int64, itemID string) (models.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, err := c.carts.Remove(userID, itemID)
	if err != nil {
		return models.CartLine{}, err
	}
	c.persist(ctx, "remove_from_cart")
	return line, nil
}

// ClearCart returns the number of distinct lines removed; 0 for an empty cart.
func (c *Cafe) ClearCart(ctx context.Context, userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.carts.Clear(userID)
	if n > 0 {
		c.persist(ctx, "clear_cart")
	}
	return n
}

func (c *Cafe) GetCart(userID int64) models.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.carts.Get(userID)
}

// Orders

// Submit turns the user's cart into an order and clears the cart in one
// save, then notifies the administrator.
func (c *Cafe) Submit(ctx context.Context, userID int64, username string) (models.Order, error) {
	c.mu.Lock()
	cart := c.carts.Get(userID)
	o, err := c.ledger.Create(cart, username)
	if err != nil {
		c.mu.Unlock()
		return models.Order{}, err
	}
	c.carts.Clear(userID)
	c.persist(ctx, "submit")
	c.mu.Unlock()

	c.log.Info("order_submitted", "order submitted",
		"order_id", o.ID, "user_id", userID, "total", o.Total())
	c.NotifyAdmin(ctx, BuildAdminCard(o))
	c.publish(ctx, models.OrderEventSubmitted, o)
	return o, nil
}

// MarkDone moves the order to done and notifies its owner. Marking an order
// that is already done changes nothing and reports alreadyDone.
func (c *Cafe) MarkDone(ctx context.Context, orderID string) (o models.Order, alreadyDone bool, err error) {
	c.mu.Lock()
	o, changed, err := c.ledger.MarkDone(orderID)
	if err != nil {
		c.mu.Unlock()
		return models.Order{}, false, err
	}
	if changed {
		c.persist(ctx, "mark_done")
	}
	c.mu.Unlock()

	if !changed {
		return o, true, nil
	}
	c.log.Info("order_done", "order marked done", "order_id", o.ID, "user_id", o.UserID)
	c.Notify(ctx, o.UserID, BuildDoneNotice(o))
	c.publish(ctx, models.OrderEventDone, o)
	return o, false, nil
}

func (c *Cafe) GetOrder(orderID string) (models.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Get(orderID)
}

func (c *Cafe) ListOrdersByUser(userID int64, limit int) []models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.ByUser(userID, limit)
}

func (c *Cafe) ListActiveOrders() []models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Active()
}
