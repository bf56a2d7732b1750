package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cafe-telegram/models"
)

type option struct {
	ID    string
	Label string
}

func findOption(opts []option, id string) (option, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return option{}, false
}

// The cat's surprise: intro -> one choice -> pause -> reveal. The
// administrator gets the request with an acknowledge button and the
// acknowledgement is relayed back.
var surpriseOptions = []option{
	{ID: "fish", Label: "🐟 Рыбка"},
	{ID: "yarn", Label: "🧶 Клубок"},
	{ID: "milk", Label: "🥛 Молочко"},
}

// Banquet service levels.
var serviceLevels = []option{
	{ID: "cozy", Label: "🕯 Уютный"},
	{ID: "festive", Label: "🎈 Праздничный"},
	{ID: "royal", Label: "👑 Королевский"},
}

const (
	minGuests = 1
	maxGuests = 200
)

func optionRows(action models.Action, category string, opts []option) [][]models.Choice {
	var rows [][]models.Choice
	for _, o := range opts {
		rows = append(rows, models.Row(btn(o.Label, models.Button{Action: action, Category: category, Choice: o.ID})))
	}
	return append(rows, models.Row(cancelBtn))
}

func (c *Controller) startSurprise(ctx context.Context, sess *Session, ev Event) {
	sess.reset(StateScripted)
	sess.Category = models.CategorySurprise
	c.reply(ctx, ev, text("🐾 Кот Любимки приготовил сюрприз!\nЧто вы ему предложите взамен?",
		optionRows(models.ActScript, models.CategorySurprise, surpriseOptions)...))
}

func (c *Controller) scriptChoice(ctx context.Context, sess *Session, ev Event, choice string) {
	opt, ok := findOption(surpriseOptions, choice)
	if !ok {
		return
	}
	// The dialogue is over before anything is shown.
	sess.reset(StateIdle)

	c.cafe.NotifyAdmin(ctx, text(
		fmt.Sprintf("🐾 Сюрприз от кота для %s: гость предложил %s.", who(ev), opt.Label),
		models.Row(btn("👍 Принято", models.Button{
			Action: models.ActAcknowledge, Category: models.CategorySurprise, Choice: opt.ID, UserID: ev.UserID,
		})),
	))

	c.reply(ctx, ev, text("🐱 Кот задумался..."))
	c.present(ctx, pauseThinking, func(ctx context.Context) {
		c.reply(ctx, ev, text("✨ Кот одобрил ваш выбор! Сюрприз уже готовится, ждите подтверждения."))
		c.present(ctx, pauseReveal, func(ctx context.Context) {
			c.reply(ctx, ev, text("🎁 Мурр!", models.Row(menuBtn)))
		})
	})
}

func (c *Controller) startBanquet(ctx context.Context, sess *Session, ev Event) {
	sess.reset(StateAwaitingGuestCount)
	sess.Category = models.CategoryBanquet
	c.reply(ctx, ev, text(fmt.Sprintf("🎉 Бронирование банкета.\nСколько будет гостей? (от %d до %d)", minGuests, maxGuests),
		models.Row(cancelBtn)))
}

func (c *Controller) guestCount(ctx context.Context, sess *Session, ev Event) {
	n, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil || n < minGuests || n > maxGuests {
		c.reply(ctx, ev, text(fmt.Sprintf("Пожалуйста, введите число от %d до %d:", minGuests, maxGuests),
			models.Row(cancelBtn)))
		return
	}
	sess.Reservation.Guests = n
	sess.State = StateAwaitingServiceLevel
	c.reply(ctx, ev, text("Выберите формат обслуживания:",
		optionRows(models.ActService, models.CategoryBanquet, serviceLevels)...))
}

func (c *Controller) serviceChoice(ctx context.Context, sess *Session, ev Event, choice string) {
	opt, ok := findOption(serviceLevels, choice)
	if !ok {
		return
	}
	guests := sess.Reservation.Guests
	sess.reset(StateIdle)

	c.cafe.NotifyAdmin(ctx, text(
		fmt.Sprintf("🎉 Заявка на банкет от %s\nГостей: %d\nОбслуживание: %s", who(ev), guests, opt.Label),
		models.Row(btn("✅ Подтвердить", models.Button{
			Action: models.ActAcknowledge, Category: models.CategoryBanquet, Choice: opt.ID, UserID: ev.UserID,
		})),
	))
	c.reply(ctx, ev, text(
		fmt.Sprintf("📨 Заявка отправлена: %d гостей, %s. Мы сообщим, когда администратор подтвердит.", guests, opt.Label),
		models.Row(menuBtn)))
}

// adminAcknowledge relays the administrator's confirmation to the guest.
func (c *Controller) adminAcknowledge(ctx context.Context, ev Event, b models.Button) {
	if b.UserID == 0 {
		return
	}
	var relay string
	switch b.Category {
	case models.CategorySurprise:
		relay = "🐾 Кот передаёт: ваш сюрприз подтверждён!"
	case models.CategoryBanquet:
		relay = "🎉 Ваш банкет подтверждён администратором!"
		if opt, ok := findOption(serviceLevels, b.Choice); ok {
			relay += " Формат: " + opt.Label + "."
		}
	default:
		return
	}
	c.cafe.Notify(ctx, b.UserID, text(relay, models.Row(menuBtn)))
	c.reply(ctx, ev, text("Подтверждение отправлено гостю."))
}

func who(ev Event) string {
	if ev.Username != "" {
		return "@" + ev.Username
	}
	return "id " + strconv.FormatInt(ev.UserID, 10)
}
