package models

import "time"

const (
	MaxNameLen        = 100
	MaxDescriptionLen = 500
	MaxPrepTimeLen    = 50

	// MaxPrice bounds a single item's price so order totals stay far from
	// int64 overflow.
	MaxPrice int64 = 1_000_000
)

// Category is fixed at deployment; items can only be added to editable ones.
// Themed categories carry no items and run a scripted branch instead.
type Category struct {
	ID       string
	Name     string
	Editable bool
	Themed   bool
}

type MenuItem struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	PrepTime    string    `json:"prep_time,omitempty"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	CategoryKitchen  = "kitchen"
	CategoryDrinks   = "drinks"
	CategoryDesserts = "desserts"
	CategorySurprise = "surprise"
	CategoryBanquet  = "banquet"
)

// Categories is the deployment's category set, in display order.
var Categories = []Category{
	{ID: CategoryKitchen, Name: "🍲 Кухня", Editable: true},
	{ID: CategoryDrinks, Name: "🥤 Напитки", Editable: true},
	{ID: CategoryDesserts, Name: "🍰 Десерты", Editable: true},
	{ID: CategorySurprise, Name: "🐾 Сюрприз от кота", Themed: true},
	{ID: CategoryBanquet, Name: "🎉 Банкет", Themed: true},
}

func LookupCategory(id string) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// EditableCategories returns the categories the administrator may stock.
func EditableCategories() []Category {
	var out []Category
	for _, c := range Categories {
		if c.Editable {
			out = append(out, c)
		}
	}
	return out
}
