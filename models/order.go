package models

import "time"

// CartLine is a snapshot of a menu item taken when it was first added,
// so later catalog edits never change a pending cart or a submitted order.
type CartLine struct {
	ItemID   string `json:"item_id"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Qty      int    `json:"qty"`
}

func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Qty)
}

type Cart struct {
	UserID    int64      `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
}

func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

func (c Cart) Line(itemID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return CartLine{}, false
}

const (
	OrderStatusNew  = "new"
	OrderStatusDone = "done"
)

// Order is an immutable snapshot of a submitted cart. Only Status and
// CompletedAt change, once, on the new -> done transition.
type Order struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"user_id"`
	Username    string     `json:"username,omitempty"`
	Items       []CartLine `json:"items"`
	SubmittedAt time.Time  `json:"submitted_at"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Total is always recomputed from the snapshot.
func (o *Order) Total() int64 {
	return LinesTotal(o.Items)
}

func LinesTotal(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// CloneLines returns a deep copy of lines.
func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return nil
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}

// OrderEvent is published to external consumers when an order changes.
type OrderEvent struct {
	Type    string     `json:"type"` // "submitted" or "done"
	OrderID string     `json:"order_id"`
	UserID  int64      `json:"user_id"`
	Total   int64      `json:"total"`
	Items   []CartLine `json:"items"`
	Status  string     `json:"status"`
	At      time.Time  `json:"at"`
}

const (
	OrderEventSubmitted = "submitted"
	OrderEventDone      = "done"
)
