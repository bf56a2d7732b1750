package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cafe-telegram/logger"
	"cafe-telegram/models"

	"github.com/google/uuid"
)

const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldPrepTime    = "prep_time"
	FieldPhoto       = "photo"
)

// EditFields is the numbered field list offered to the administrator (1-based).
var EditFields = []string{FieldName, FieldDescription, FieldPrice, FieldPrepTime, FieldPhoto}

// NewItem is the input of the add-item wizard.
type NewItem struct {
	Category    string
	Name        string
	Description string
	Price       int64
	PrepTime    string
	PhotoRef    string
}

// Catalog holds menu items per category in insertion order. It is not
// safe for concurrent use; Cafe serializes access.
type Catalog struct {
	items map[string][]*models.MenuItem
	newID func() (string, error)
	now   func() time.Time
}

// NewCatalog restores persisted items. Items of a category that is no
// longer deployed are skipped and logged; the next save drops them.
func NewCatalog(items []models.MenuItem, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Discard()
	}
	c := &Catalog{
		items: make(map[string][]*models.MenuItem),
		newID: newItemID,
		now:   time.Now,
	}
	for i := range items {
		it := items[i]
		if _, ok := models.LookupCategory(it.Category); !ok {
			log.Warn("item_skipped", "persisted item has unknown category",
				"item_id", it.ID, "name", it.Name, "category", it.Category)
			continue
		}
		c.items[it.Category] = append(c.items[it.Category], &it)
	}
	return c
}

// newItemID returns a UUIDv7: time-ordered and monotonic within the process.
func newItemID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate item id: %w", err)
	}
	return id.String(), nil
}

func (c *Catalog) Add(in NewItem) (models.MenuItem, error) {
	cat, ok := models.LookupCategory(in.Category)
	if !ok {
		return models.MenuItem{}, invalid("category", "unknown category %q", in.Category)
	}
	if !cat.Editable {
		return models.MenuItem{}, invalid("category", "%q is not editable", in.Category)
	}
	name, err := validateName(in.Name)
	if err != nil {
		return models.MenuItem{}, err
	}
	desc, err := validateText(FieldDescription, in.Description, models.MaxDescriptionLen)
	if err != nil {
		return models.MenuItem{}, err
	}
	prep, err := validateText(FieldPrepTime, in.PrepTime, models.MaxPrepTimeLen)
	if err != nil {
		return models.MenuItem{}, err
	}
	if err := checkPrice(in.Price); err != nil {
		return models.MenuItem{}, err
	}

	id, err := c.newID()
	if err != nil {
		return models.MenuItem{}, err
	}
	if _, found := c.find(in.Category, id); found {
		return models.MenuItem{}, fmt.Errorf("item id collision in %s: %s", in.Category, id)
	}

	it := &models.MenuItem{
		ID:          id,
		Category:    in.Category,
		Name:        name,
		Description: desc,
		Price:       in.Price,
		PrepTime:    prep,
		PhotoRef:    in.PhotoRef,
		CreatedAt:   c.now(),
	}
	c.items[in.Category] = append(c.items[in.Category], it)
	return *it, nil
}

// Delete removes the item and returns it so the caller can release its photo.
func (c *Catalog) Delete(category, id string) (models.MenuItem, error) {
	idx, ok := c.find(category, id)
	if !ok {
		return models.MenuItem{}, notFound("item", id)
	}
	list := c.items[category]
	removed := *list[idx]
	c.items[category] = append(list[:idx:idx], list[idx+1:]...)
	return removed, nil
}

// Edit changes one field. It returns the item as it was before and after.
func (c *Catalog) Edit(category, id, field, value string) (before, after models.MenuItem, err error) {
	idx, ok := c.find(category, id)
	if !ok {
		return models.MenuItem{}, models.MenuItem{}, notFound("item", id)
	}
	it := c.items[category][idx]
	updated := *it

	switch field {
	case FieldName:
		if updated.Name, err = validateName(value); err != nil {
			return models.MenuItem{}, models.MenuItem{}, err
		}
	case FieldDescription:
		if updated.Description, err = validateText(FieldDescription, value, models.MaxDescriptionLen); err != nil {
			return models.MenuItem{}, models.MenuItem{}, err
		}
	case FieldPrice:
		if updated.Price, err = ParsePrice(value); err != nil {
			return models.MenuItem{}, models.MenuItem{}, err
		}
	case FieldPrepTime:
		if updated.PrepTime, err = validateText(FieldPrepTime, value, models.MaxPrepTimeLen); err != nil {
			return models.MenuItem{}, models.MenuItem{}, err
		}
	case FieldPhoto:
		updated.PhotoRef = value
	default:
		return models.MenuItem{}, models.MenuItem{}, invalid("field", "unknown field %q", field)
	}

	before = *it
	*it = updated
	return before, updated, nil
}

func (c *Catalog) List(category string) ([]models.MenuItem, error) {
	if _, ok := models.LookupCategory(category); !ok {
		return nil, notFound("category", category)
	}
	list := c.items[category]
	out := make([]models.MenuItem, len(list))
	for i, it := range list {
		out[i] = *it
	}
	return out, nil
}

func (c *Catalog) Get(category, id string) (models.MenuItem, error) {
	if _, ok := models.LookupCategory(category); !ok {
		return models.MenuItem{}, notFound("category", category)
	}
	idx, ok := c.find(category, id)
	if !ok {
		return models.MenuItem{}, notFound("item", id)
	}
	return *c.items[category][idx], nil
}

// All returns every item, grouped by category in deployment order.
func (c *Catalog) All() []models.MenuItem {
	var out []models.MenuItem
	for _, cat := range models.Categories {
		for _, it := range c.items[cat.ID] {
			out = append(out, *it)
		}
	}
	return out
}

func (c *Catalog) find(category, id string) (int, bool) {
	for i, it := range c.items[category] {
		if it.ID == id {
			return i, true
		}
	}
	return -1, false
}

// ParsePrice accepts "1500" or "1 500"; the price must be in (0, models.MaxPrice].
func ParsePrice(s string) (int64, error) {
	price, err := strconv.ParseInt(strings.TrimSpace(strings.ReplaceAll(s, " ", "")), 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, invalid(FieldPrice, "цена не может быть больше %d", models.MaxPrice)
		}
		return 0, invalid(FieldPrice, "%q не является числом", s)
	}
	if err := checkPrice(price); err != nil {
		return 0, err
	}
	return price, nil
}

func checkPrice(price int64) error {
	if price <= 0 {
		return invalid(FieldPrice, "цена должна быть больше нуля")
	}
	if price > models.MaxPrice {
		return invalid(FieldPrice, "цена не может быть больше %d", models.MaxPrice)
	}
	return nil
}

func validateName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid(FieldName, "поле не может быть пустым")
	}
	return validateText(FieldName, s, models.MaxNameLen)
}

func validateText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n > max {
		return "", invalid(field, "слишком длинно (%d > %d символов)", n, max)
	}
	return s, nil
}
