package services

import (
	"time"

	"cafe-telegram/models"
)

// Ledger is the append-only collection of submitted orders.
// Not safe for concurrent use.
type Ledger struct {
	orders map[string]*models.Order
	seq    []string // submission order
	genID  func() (string, error)
	now    func() time.Time
}

func NewLedger(orders []models.Order) *Ledger {
	l := &Ledger{
		orders: make(map[string]*models.Order),
		genID:  NewOrderID,
		now:    time.Now,
	}
	for i := range orders {
		o := orders[i]
		o.Items = models.CloneLines(o.Items)
		l.orders[o.ID] = &o
		l.seq = append(l.seq, o.ID)
	}
	return l
}

// Create appends a new order holding a copy of cart's lines.
func (l *Ledger) Create(cart models.Cart, username string) (models.Order, error) {
	if cart.Empty() {
		return models.Order{}, ErrEmptyCart
	}
	id, err := uniqueOrderID(l.genID, func(id string) bool {
		_, ok := l.orders[id]
		return ok
	})
	if err != nil {
		return models.Order{}, err
	}
	o := &models.Order{
		ID:          id,
		UserID:      cart.UserID,
		Username:    username,
		Items:       models.CloneLines(cart.Lines),
		SubmittedAt: l.now(),
		Status:      models.OrderStatusNew,
	}
	l.orders[id] = o
	l.seq = append(l.seq, id)
	return l.copyOf(o), nil
}

// MarkDone moves the order to done. A second call leaves it untouched and
// reports changed=false.
func (l *Ledger) MarkDone(id string) (order models.Order, changed bool, err error) {
	o, ok := l.orders[id]
	if !ok {
		return models.Order{}, false, notFound("order", id)
	}
	if o.Status == models.OrderStatusDone {
		return l.copyOf(o), false, nil
	}
	now := l.now()
	o.Status = models.OrderStatusDone
	o.CompletedAt = &now
	return l.copyOf(o), true, nil
}

func (l *Ledger) Get(id string) (models.Order, error) {
	o, ok := l.orders[id]
	if !ok {
		return models.Order{}, notFound("order", id)
	}
	return l.copyOf(o), nil
}

// ByUser returns up to limit of the user's orders, newest first. limit <= 0 means all.
func (l *Ledger) ByUser(userID int64, limit int) []models.Order {
	var out []models.Order
	for i := len(l.seq) - 1; i >= 0; i-- {
		o := l.orders[l.seq[i]]
		if o.UserID != userID {
			continue
		}
		out = append(out, l.copyOf(o))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Active returns orders still in status new, oldest first.
func (l *Ledger) Active() []models.Order {
	var out []models.Order
	for _, id := range l.seq {
		if o := l.orders[id]; o.Status == models.OrderStatusNew {
			out = append(out, l.copyOf(o))
		}
	}
	return out
}

// All returns every order in submission order.
func (l *Ledger) All() []models.Order {
	out := make([]models.Order, 0, len(l.seq))
	for _, id := range l.seq {
		out = append(out, l.copyOf(l.orders[id]))
	}
	return out
}

func (l *Ledger) copyOf(o *models.Order) models.Order {
	out := *o
	out.Items = models.CloneLines(o.Items)
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
