package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"cafe-telegram/logger"
	"cafe-telegram/models"
	"cafe-telegram/services"
)

// ErrRejected is returned for input the current state does not expect.
// Nothing is sent back and nothing changes.
var ErrRejected = errors.New("input not expected in current state")

// PhotoFetcher turns a platform file id into a stored photo reference.
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, fileID string) (string, error)
}

type Options struct {
	Cafe              *services.Cafe
	Sessions          SessionStore
	Photos            PhotoFetcher
	Pauser            Pauser
	AdminPasswordHash string
	Log               *logger.Logger
}

// Controller runs one state machine per user on top of the cafe.
type Controller struct {
	cafe         *services.Cafe
	sessions     SessionStore
	photos       PhotoFetcher
	pauser       Pauser
	passwordHash []byte
	throttle     *services.LoginThrottle
	log          *logger.Logger
	now          func() time.Time

	userLocks sync.Map // map[userID]*sync.Mutex
	bg        sync.WaitGroup
}

func New(o Options) *Controller {
	c := &Controller{
		cafe:     o.Cafe,
		sessions: o.Sessions,
		photos:   o.Photos,
		pauser:   o.Pauser,
		throttle: services.NewLoginThrottle(),
		log:      o.Log,
		now:      time.Now,
	}
	if o.AdminPasswordHash != "" {
		c.passwordHash = []byte(o.AdminPasswordHash)
	}
	if c.sessions == nil {
		c.sessions = NewMemorySessions()
	}
	if c.pauser == nil {
		c.pauser = ScaledPauser{Scale: 1}
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	return c
}

// lockUser serializes events of one user and returns the unlock function.
func (c *Controller) lockUser(userID int64) func() {
	v, _ := c.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Wait blocks until delayed presentations have been sent.
func (c *Controller) Wait() {
	c.bg.Wait()
}

// Handle processes one event. It returns ErrRejected for unexpected input
// and services.ErrUnauthorized for admin input from anyone else; neither
// changes any state.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	unlock := c.lockUser(ev.UserID)
	defer unlock()

	if ev.ChatID == 0 {
		ev.ChatID = ev.UserID
	}
	sess, err := c.sessions.Get(ctx, ev.UserID)
	if err != nil {
		c.log.Error("session_load_failed", "starting a fresh session", err, "user_id", ev.UserID)
		sess = NewSession(ev.UserID)
	}
	before := *sess

	err = c.dispatch(ctx, sess, ev)
	if *sess == before {
		return err
	}
	sess.UpdatedAt = c.now()
	if perr := c.sessions.Put(ctx, sess); perr != nil {
		c.log.Error("session_save_failed", "session change lost", perr, "user_id", ev.UserID)
	}
	return err
}

func (c *Controller) isAdmin(userID int64) bool {
	return c.cafe.IsAdmin(userID)
}

// adminReady reports whether the administrator may use admin actions now.
func (c *Controller) adminReady(sess *Session) bool {
	return c.isAdmin(sess.UserID) && (len(c.passwordHash) == 0 || sess.AdminAuthed)
}

func (c *Controller) dispatch(ctx context.Context, sess *Session, ev Event) error {
	if ev.Kind != KindCommand && sess.State.IsAdmin() && !c.adminReady(sess) {
		c.log.Warn("unauthorized", "input in admin state without admin rights",
			"user_id", ev.UserID, "state", string(sess.State))
		return services.ErrUnauthorized
	}
	switch ev.Kind {
	case KindCommand:
		return c.onCommand(ctx, sess, ev)
	case KindButton:
		a := ev.Button.Action
		if a.IsAdmin() {
			if !c.isAdmin(ev.UserID) {
				c.log.Warn("unauthorized", "admin button from non-admin", "user_id", ev.UserID, "action", string(a))
				return services.ErrUnauthorized
			}
			if !c.adminReady(sess) {
				c.reply(ctx, ev, text("🔒 Войдите в админ-панель: /admin"))
				return services.ErrUnauthorized
			}
		}
		if !acceptsButton(sess.State, a) {
			return ErrRejected
		}
		return c.onButton(ctx, sess, ev)
	case KindText:
		if !textStates[sess.State] {
			return ErrRejected
		}
		return c.onText(ctx, sess, ev)
	case KindPhoto:
		if !photoStates[sess.State] {
			return ErrRejected
		}
		return c.onPhoto(ctx, sess, ev)
	}
	return ErrRejected
}

func (c *Controller) onCommand(ctx context.Context, sess *Session, ev Event) error {
	switch ev.Command {
	case CmdStart:
		sess.reset(StateIdle)
		c.reply(ctx, ev, welcomeMessage())
	case CmdMenu:
		c.showCategories(ctx, sess, ev)
	case CmdCart:
		c.showCart(ctx, sess, ev)
	case CmdOrders:
		c.showOrders(ctx, sess, ev)
	case CmdCancel:
		c.cancel(ctx, sess, ev)
	case CmdAdmin:
		return c.openAdmin(ctx, sess, ev)
	default:
		return ErrRejected
	}
	return nil
}

func (c *Controller) onButton(ctx context.Context, sess *Session, ev Event) error {
	b := ev.Button
	switch b.Action {
	case models.ActCancel:
		c.cancel(ctx, sess, ev)
	case models.ActMenu:
		c.showCategories(ctx, sess, ev)
	case models.ActCart:
		c.showCart(ctx, sess, ev)
	case models.ActCategory:
		c.openCategory(ctx, sess, ev, b.Category)
	case models.ActItem:
		c.showItem(ctx, sess, ev, b.Category, b.ItemID)
	case models.ActAdd:
		c.addToCart(ctx, sess, ev, b.Category, b.ItemID)
	case models.ActEditCart:
		c.showEditCart(ctx, sess, ev)
	case models.ActRemove:
		c.removeFromCart(ctx, sess, ev, b.ItemID)
	case models.ActClear:
		c.clearCart(ctx, sess, ev)
	case models.ActCheckout:
		c.checkout(ctx, sess, ev)
	case models.ActConfirm:
		c.confirm(ctx, sess, ev)
	case models.ActScript:
		c.scriptChoice(ctx, sess, ev, b.Choice)
	case models.ActService:
		c.serviceChoice(ctx, sess, ev, b.Choice)

	case models.ActAdminPanel:
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, adminPanelMessage())
	case models.ActAdminAdd:
		c.adminStartAdd(ctx, sess, ev, b.Category)
	case models.ActAdminList:
		c.adminListForDelete(ctx, sess, ev, b.Category)
	case models.ActAdminDelete:
		c.adminDelete(ctx, sess, ev, b.Category, b.ItemID)
	case models.ActAdminEditList:
		c.adminListForEdit(ctx, sess, ev, b.Category)
	case models.ActAdminEdit:
		c.adminSelectEdit(ctx, sess, ev, b.Category, b.ItemID)
	case models.ActAdminOrders:
		c.adminActiveOrders(ctx, ev)
	case models.ActSkipPhoto:
		c.adminFinishAdd(ctx, sess, ev, "")
	case models.ActMarkDone:
		c.adminMarkDone(ctx, ev, b.OrderID)
	case models.ActAcknowledge:
		c.adminAcknowledge(ctx, ev, b)
	default:
		return ErrRejected
	}
	return nil
}

func (c *Controller) onText(ctx context.Context, sess *Session, ev Event) error {
	switch sess.State {
	case StateAwaitingGuestCount:
		c.guestCount(ctx, sess, ev)
		return nil
	case StateAwaitingAdminPassword:
		c.adminPassword(ctx, sess, ev)
		return nil
	}
	switch sess.State {
	case StateAdminIdle:
		return c.adminDoneText(ctx, ev)
	case StateAwaitingItemName, StateAwaitingItemDesc, StateAwaitingItemPrice, StateAwaitingItemTime:
		c.adminWizardText(ctx, sess, ev)
	case StateAwaitingEditField:
		c.adminEditField(ctx, sess, ev)
	case StateAwaitingEditValue:
		c.adminEditValue(ctx, sess, ev, ev.Text)
	default:
		return ErrRejected
	}
	return nil
}

func (c *Controller) onPhoto(ctx context.Context, sess *Session, ev Event) error {
	if sess.State == StateAwaitingEditValue && sess.Edit.Field != services.FieldPhoto {
		return ErrRejected
	}
	ref, err := c.fetchPhoto(ctx, ev.PhotoRef)
	if err != nil {
		c.log.Error("photo_fetch_failed", "could not store photo", err, "user_id", ev.UserID)
		c.reply(ctx, ev, text("⚠️ Не удалось сохранить фото, попробуйте ещё раз.", models.Row(cancelBtn)))
		return nil
	}
	switch sess.State {
	case StateAwaitingItemPhoto:
		c.adminFinishAdd(ctx, sess, ev, ref)
	case StateAwaitingEditValue:
		c.adminEditValue(ctx, sess, ev, ref)
	}
	return nil
}

func (c *Controller) fetchPhoto(ctx context.Context, fileID string) (string, error) {
	if c.photos == nil {
		return fileID, nil
	}
	return c.photos.FetchPhoto(ctx, fileID)
}

// cancel drops any flow in progress.
func (c *Controller) cancel(ctx context.Context, sess *Session, ev Event) {
	if c.adminReady(sess) {
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, adminPanelMessage())
		return
	}
	sess.reset(StateIdle)
	c.reply(ctx, ev, text("Действие отменено.", models.Row(menuBtn)))
}

func (c *Controller) reply(ctx context.Context, ev Event, msg models.Message) {
	c.cafe.Notify(ctx, ev.ChatID, msg)
}

// present sends fn's output after the scaled pause. State must already be
// final when present is called: the pause only delays what the user sees.
func (c *Controller) present(ctx context.Context, nominal time.Duration, fn func(ctx context.Context)) {
	d := c.pauser.Delay(nominal)
	if d <= 0 {
		fn(ctx)
		return
	}
	ctx = context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		timer := time.NewTimer(d)
		defer timer.Stop()
		<-timer.C
		fn(ctx)
	}()
}
