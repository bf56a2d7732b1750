package models

import (
	"fmt"
	"net/url"
	"strconv"
)

// Action is the discriminator of a button press.
type Action string

const (
	ActMenu     Action = "menu"  // show categories
	ActCategory Action = "cat"   // open a category
	ActItem     Action = "item"  // view one item
	ActAdd      Action = "add"   // add item to cart
	ActCart     Action = "cart"  // view cart
	ActEditCart Action = "edit"  // cart line removal screen
	ActRemove   Action = "rm"    // remove one cart line
	ActClear    Action = "clear" // empty the cart
	ActCheckout Action = "chk"   // confirmation screen
	ActConfirm  Action = "ok"    // submit the order
	ActCancel   Action = "x"
	ActScript   Action = "scr" // scripted branch choice
	ActService  Action = "svc" // banquet service level

	ActAdminPanel    Action = "ap"
	ActAdminAdd      Action = "aadd"
	ActAdminList     Action = "alist"
	ActAdminDelete   Action = "adel"
	ActAdminEditList Action = "aelist"
	ActAdminEdit     Action = "aedit"
	ActAdminOrders   Action = "aord"
	ActSkipPhoto     Action = "skip"
	ActMarkDone      Action = "done"
	ActAcknowledge   Action = "ack"
)

// IsAdmin reports whether the action is reserved for the administrator.
func (a Action) IsAdmin() bool {
	switch a {
	case ActAdminPanel, ActAdminAdd, ActAdminList, ActAdminDelete, ActAdminEditList,
		ActAdminEdit, ActAdminOrders, ActSkipPhoto, ActMarkDone, ActAcknowledge:
		return true
	}
	return false
}

// Button is the typed payload behind an inline button.
type Button struct {
	Action   Action
	Category string
	ItemID   string
	OrderID  string
	Choice   string
	UserID   int64
}

// MaxCallbackData is Telegram's limit on callback_data length.
const MaxCallbackData = 64

// EncodeButton renders b as a query string. Values are escaped, so
// identifiers may contain any character without confusing the decoder.
func EncodeButton(b Button) (string, error) {
	if b.Action == "" {
		return "", fmt.Errorf("button without action")
	}
	v := url.Values{}
	v.Set("a", string(b.Action))
	if b.Category != "" {
		v.Set("c", b.Category)
	}
	if b.ItemID != "" {
		v.Set("i", b.ItemID)
	}
	if b.OrderID != "" {
		v.Set("o", b.OrderID)
	}
	if b.Choice != "" {
		v.Set("ch", b.Choice)
	}
	if b.UserID != 0 {
		v.Set("u", strconv.FormatInt(b.UserID, 10))
	}
	s := v.Encode()
	if len(s) > MaxCallbackData {
		return "", fmt.Errorf("callback data too long (%d bytes): %s", len(s), s)
	}
	return s, nil
}

func DecodeButton(data string) (Button, error) {
	v, err := url.ParseQuery(data)
	if err != nil {
		return Button{}, fmt.Errorf("decode button: %w", err)
	}
	b := Button{
		Action:   Action(v.Get("a")),
		Category: v.Get("c"),
		ItemID:   v.Get("i"),
		OrderID:  v.Get("o"),
		Choice:   v.Get("ch"),
	}
	if b.Action == "" {
		return Button{}, fmt.Errorf("decode button: missing action in %q", data)
	}
	if u := v.Get("u"); u != "" {
		b.UserID, err = strconv.ParseInt(u, 10, 64)
		if err != nil {
			return Button{}, fmt.Errorf("decode button user: %w", err)
		}
	}
	return b, nil
}

// Choice is one button offered with a message.
type Choice struct {
	Label  string
	Button Button
}

// Message is what the core hands to the notification gateway.
type Message struct {
	Text     string
	PhotoRef string
	Choices  [][]Choice
}

func Row(choices ...Choice) []Choice {
	return choices
}
