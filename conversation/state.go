package conversation

import (
	"time"

	"cafe-telegram/models"
)

// State is the current step of a user's dialogue.
type State string

const (
	StateIdle               State = "idle"
	StateBrowsingCategories State = "browsing-categories"
	StateBrowsingItems      State = "browsing-items"
	StateViewingItem        State = "viewing-item"
	StateViewingCart        State = "viewing-cart"
	StateEditingCart        State = "editing-cart"
	StateConfirmingOrder    State = "confirming-order"

	StateScripted             State = "scripted"
	StateAwaitingGuestCount   State = "awaiting-guest-count"
	StateAwaitingServiceLevel State = "awaiting-service-level"

	StateAdminIdle               State = "admin-idle"
	StateAwaitingAdminPassword   State = "awaiting-admin-password"
	StateAwaitingItemName        State = "awaiting-item-name"
	StateAwaitingItemDesc        State = "awaiting-item-desc"
	StateAwaitingItemPrice       State = "awaiting-item-price"
	StateAwaitingItemTime        State = "awaiting-item-time"
	StateAwaitingItemPhoto       State = "awaiting-item-photo"
	StateAwaitingDeleteSelection State = "awaiting-delete-selection"
	StateAwaitingEditSelection   State = "awaiting-edit-selection"
	StateAwaitingEditField       State = "awaiting-edit-field"
	StateAwaitingEditValue       State = "awaiting-edit-value"
)

// IsAdmin reports whether only the administrator can be in s.
func (s State) IsAdmin() bool {
	switch s {
	case StateAdminIdle, StateAwaitingItemName, StateAwaitingItemDesc, StateAwaitingItemPrice,
		StateAwaitingItemTime, StateAwaitingItemPhoto, StateAwaitingDeleteSelection,
		StateAwaitingEditSelection, StateAwaitingEditField, StateAwaitingEditValue:
		return true
	}
	return false
}

// ItemDraft accumulates the add-item wizard's answers.
type ItemDraft struct {
	Category    string `json:"category"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price,omitempty"`
	PrepTime    string `json:"prep_time,omitempty"`
}

// EditTarget is the item and field chosen in the edit flow.
type EditTarget struct {
	Category string `json:"category"`
	ItemID   string `json:"item_id"`
	Field    string `json:"field,omitempty"`
}

type Reservation struct {
	Guests  int    `json:"guests,omitempty"`
	Service string `json:"service,omitempty"`
}

// Session is everything the controller remembers about one user between
// events. It is stored as JSON.
type Session struct {
	UserID      int64       `json:"user_id"`
	State       State       `json:"state"`
	Category    string      `json:"category,omitempty"`
	ItemID      string      `json:"item_id,omitempty"`
	Draft       ItemDraft   `json:"draft"`
	Edit        EditTarget  `json:"edit"`
	Reservation Reservation `json:"reservation"`
	AdminAuthed bool        `json:"admin_authed,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func NewSession(userID int64) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// reset moves to s and drops all partial input. Admin login survives.
func (s *Session) reset(to State) {
	s.State = to
	s.Category = ""
	s.ItemID = ""
	s.Draft = ItemDraft{}
	s.Edit = EditTarget{}
	s.Reservation = Reservation{}
}

// accepts is the per-state table of button actions. Buttons outside the
// table and outside the global sets are dropped.
var accepts = map[State][]models.Action{
	StateBrowsingCategories:   {models.ActCategory},
	StateBrowsingItems:        {models.ActItem, models.ActCategory},
	StateViewingItem:          {models.ActAdd, models.ActCategory, models.ActItem},
	StateViewingCart:          {models.ActEditCart, models.ActClear, models.ActCheckout},
	StateEditingCart:          {models.ActRemove, models.ActClear, models.ActEditCart},
	StateConfirmingOrder:      {models.ActConfirm},
	StateScripted:             {models.ActScript},
	StateAwaitingServiceLevel: {models.ActService},

	StateAdminIdle:               {models.ActAdminAdd, models.ActAdminList, models.ActAdminEditList, models.ActAdminOrders},
	StateAwaitingItemPhoto:       {models.ActSkipPhoto},
	StateAwaitingDeleteSelection: {models.ActAdminDelete, models.ActAdminList},
	StateAwaitingEditSelection:   {models.ActAdminEdit, models.ActAdminEditList},
}

// Buttons valid in every state.
var (
	userGlobal  = []models.Action{models.ActCancel, models.ActMenu, models.ActCart}
	adminGlobal = []models.Action{models.ActAdminPanel, models.ActMarkDone, models.ActAcknowledge}
)

// textStates accept free-text replies.
var textStates = map[State]bool{
	StateAwaitingGuestCount:    true,
	StateAdminIdle:             true, // "done <id>"
	StateAwaitingAdminPassword: true,
	StateAwaitingItemName:      true,
	StateAwaitingItemDesc:      true,
	StateAwaitingItemPrice:     true,
	StateAwaitingItemTime:      true,
	StateAwaitingEditField:     true,
	StateAwaitingEditValue:     true,
}

var photoStates = map[State]bool{
	StateAwaitingItemPhoto: true,
	StateAwaitingEditValue: true,
}

func contains(list []models.Action, a models.Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

// acceptsButton reports whether a press of a is expected in state s.
func acceptsButton(s State, a models.Action) bool {
	return contains(userGlobal, a) || contains(adminGlobal, a) || contains(accepts[s], a)
}
