package storage

import (
	"context"

	"cafe-telegram/models"
)

// State is everything the core persists. Categories are static and are
// not part of it.
type State struct {
	Items  []models.MenuItem // insertion order within each category
	Carts  []models.Cart
	Orders []models.Order // submission order
}

// Store loads and saves the whole State. Save must be atomic: either the
// full new state is stored or the previous one survives.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
}

// Clone returns a deep copy so a saved snapshot never aliases live data.
func (s *State) Clone() *State {
	if s == nil {
		return &State{}
	}
	out := &State{
		Items:  append([]models.MenuItem(nil), s.Items...),
		Carts:  make([]models.Cart, len(s.Carts)),
		Orders: make([]models.Order, len(s.Orders)),
	}
	for i, c := range s.Carts {
		c.Lines = models.CloneLines(c.Lines)
		out.Carts[i] = c
	}
	for i, o := range s.Orders {
		o.Items = models.CloneLines(o.Items)
		if o.CompletedAt != nil {
			t := *o.CompletedAt
			o.CompletedAt = &t
		}
		out.Orders[i] = o
	}
	return out
}
