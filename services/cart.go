package services

import (
	"sort"
	"strconv"
	"time"

	"cafe-telegram/models"
)

// Carts keeps at most one cart per user. Not safe for concurrent use.
type Carts struct {
	carts map[int64]*models.Cart
	now   func() time.Time
}

func NewCarts(carts []models.Cart) *Carts {
	cs := &Carts{carts: make(map[int64]*models.Cart), now: time.Now}
	for i := range carts {
		c := carts[i]
		if c.Empty() {
			continue
		}
		c.Lines = models.CloneLines(c.Lines)
		cs.carts[c.UserID] = &c
	}
	return cs
}

// Add increments the line for item or inserts it with quantity 1. Name and
// price are taken from item only on insert.
func (cs *Carts) Add(userID int64, item models.MenuItem) models.CartLine {
	cart := cs.carts[userID]
	if cart == nil {
		cart = &models.Cart{UserID: userID, CreatedAt: cs.now()}
		cs.carts[userID] = cart
	}
	for i := range cart.Lines {
		if cart.Lines[i].ItemID == item.ID {
			cart.Lines[i].Qty++
			return cart.Lines[i]
		}
	}
	line := models.CartLine{
		ItemID:   item.ID,
		Category: item.Category,
		Name:     item.Name,
		Price:    item.Price,
		Qty:      1,
	}
	cart.Lines = append(cart.Lines, line)
	return line
}

// Remove drops the whole line for itemID.
func (cs *Carts) Remove(userID int64, itemID string) (models.CartLine, error) {
	cart := cs.carts[userID]
	if cart == nil {
		return models.CartLine{}, notFound("cart", strconv.FormatInt(userID, 10))
	}
	for i, l := range cart.Lines {
		if l.ItemID == itemID {
			cart.Lines = append(cart.Lines[:i:i], cart.Lines[i+1:]...)
			if len(cart.Lines) == 0 {
				delete(cs.carts, userID)
			}
			return l, nil
		}
	}
	return models.CartLine{}, notFound("cart line", itemID)
}

// Clear empties the cart and returns how many distinct lines it had.
func (cs *Carts) Clear(userID int64) int {
	cart := cs.carts[userID]
	if cart == nil {
		return 0
	}
	delete(cs.carts, userID)
	return len(cart.Lines)
}

// Get returns a copy of the user's cart; an empty cart if there is none.
func (cs *Carts) Get(userID int64) models.Cart {
	cart := cs.carts[userID]
	if cart == nil {
		return models.Cart{UserID: userID, Lines: []models.CartLine{}}
	}
	out := *cart
	out.Lines = models.CloneLines(cart.Lines)
	return out
}

func (cs *Carts) All() []models.Cart {
	out := make([]models.Cart, 0, len(cs.carts))
	for userID := range cs.carts {
		out = append(out, cs.Get(userID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ComputeTotal is the sum of quantity x price over the cart's lines.
func ComputeTotal(cart models.Cart) int64 {
	return models.LinesTotal(cart.Lines)
}
