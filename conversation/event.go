package conversation

import "cafe-telegram/models"

type Kind string

const (
	KindCommand Kind = "command"
	KindButton  Kind = "button"
	KindText    Kind = "text"
	KindPhoto   Kind = "photo"
)

// Commands understood by the controller, without the leading slash.
const (
	CmdStart  = "start"
	CmdMenu   = "menu"
	CmdCart   = "cart"
	CmdOrders = "orders"
	CmdCancel = "cancel"
	CmdAdmin  = "admin"
)

// Event is one inbound user action, decoded once by the transport.
// PhotoRef carries the platform's file id; the controller fetches it only
// when the current state expects a photo.
type Event struct {
	UserID   int64
	ChatID   int64
	Username string
	Kind     Kind
	Command  string
	Button   models.Button
	Text     string
	PhotoRef string
}
