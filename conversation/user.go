package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cafe-telegram/models"
	"cafe-telegram/services"
)

func (c *Controller) showCategories(ctx context.Context, sess *Session, ev Event) {
	sess.reset(StateBrowsingCategories)
	c.reply(ctx, ev, categoriesMessage())
}

func (c *Controller) openCategory(ctx context.Context, sess *Session, ev Event, categoryID string) {
	cat, ok := models.LookupCategory(categoryID)
	if !ok {
		c.reply(ctx, ev, text("Раздел не найден.", models.Row(menuBtn)))
		return
	}
	switch cat.ID {
	case models.CategorySurprise:
		c.startSurprise(ctx, sess, ev)
		return
	case models.CategoryBanquet:
		c.startBanquet(ctx, sess, ev)
		return
	}
	items, err := c.cafe.ListItems(cat.ID)
	if err != nil {
		c.reply(ctx, ev, text("Раздел не найден.", models.Row(menuBtn)))
		return
	}
	sess.reset(StateBrowsingItems)
	sess.Category = cat.ID
	c.reply(ctx, ev, itemsMessage(cat, items))
}

func (c *Controller) showItem(ctx context.Context, sess *Session, ev Event, category, itemID string) {
	it, err := c.cafe.GetItem(category, itemID)
	if err != nil {
		c.reply(ctx, ev, text("Позиция больше не доступна.", models.Row(menuBtn)))
		return
	}
	sess.reset(StateViewingItem)
	sess.Category = category
	sess.ItemID = itemID
	c.reply(ctx, ev, itemMessage(it))
}

func (c *Controller) addToCart(ctx context.Context, sess *Session, ev Event, category, itemID string) {
	line, err := c.cafe.AddToCart(ctx, ev.UserID, category, itemID)
	if err != nil {
		c.reply(ctx, ev, text("Позиция больше не доступна.", models.Row(menuBtn)))
		return
	}
	sess.reset(StateViewingItem)
	sess.Category = category
	sess.ItemID = itemID
	c.reply(ctx, ev, text(fmt.Sprintf("✅ %s добавлен в заказ (×%d).", line.Name, line.Qty),
		models.Row(
			btn("⬅️ Назад", models.Button{Action: models.ActCategory, Category: category}),
			cartBtn,
		)))
}

func (c *Controller) showCart(ctx context.Context, sess *Session, ev Event) {
	cart := c.cafe.GetCart(ev.UserID)
	if cart.Empty() {
		sess.reset(StateIdle)
	} else {
		sess.reset(StateViewingCart)
	}
	c.reply(ctx, ev, cartMessage(cart))
}

func (c *Controller) showEditCart(ctx context.Context, sess *Session, ev Event) {
	cart := c.cafe.GetCart(ev.UserID)
	if cart.Empty() {
		sess.reset(StateIdle)
		c.reply(ctx, ev, cartMessage(cart))
		return
	}
	sess.reset(StateEditingCart)
	c.reply(ctx, ev, editCartMessage(cart))
}

func (c *Controller) removeFromCart(ctx context.Context, sess *Session, ev Event, itemID string) {
	line, err := c.cafe.RemoveFromCart(ctx, ev.UserID, itemID)
	if err != nil {
		c.reply(ctx, ev, text("Этой позиции уже нет в заказе."))
	} else {
		c.reply(ctx, ev, text(fmt.Sprintf("❌ %s удален из заказа.", line.Name)))
	}
	cart := c.cafe.GetCart(ev.UserID)
	if cart.Empty() {
		sess.reset(StateIdle)
		c.reply(ctx, ev, text("Ваш заказ теперь пуст.", models.Row(menuBtn)))
		return
	}
	sess.reset(StateEditingCart)
	c.reply(ctx, ev, editCartMessage(cart))
}

func (c *Controller) clearCart(ctx context.Context, sess *Session, ev Event) {
	n := c.cafe.ClearCart(ctx, ev.UserID)
	sess.reset(StateIdle)
	if n == 0 {
		c.reply(ctx, ev, text("Ваш заказ уже пуст.", models.Row(menuBtn)))
		return
	}
	c.reply(ctx, ev, text(fmt.Sprintf("🗑 Заказ очищен (позиций: %d).", n), models.Row(menuBtn)))
}

func (c *Controller) checkout(ctx context.Context, sess *Session, ev Event) {
	cart := c.cafe.GetCart(ev.UserID)
	if cart.Empty() {
		sess.reset(StateIdle)
		c.reply(ctx, ev, text("Ваш заказ пуст!", models.Row(menuBtn)))
		return
	}
	sess.reset(StateConfirmingOrder)
	c.reply(ctx, ev, confirmMessage(cart))
}

func (c *Controller) confirm(ctx context.Context, sess *Session, ev Event) {
	sess.reset(StateIdle)
	o, err := c.cafe.Submit(ctx, ev.UserID, ev.Username)
	if errors.Is(err, services.ErrEmptyCart) {
		c.reply(ctx, ev, text("Ваш заказ пуст!", models.Row(menuBtn)))
		return
	}
	if err != nil {
		c.log.Error("submit_failed", "order not created", err, "user_id", ev.UserID)
		c.reply(ctx, ev, text("⚠️ Не удалось оформить заказ, попробуйте ещё раз.", models.Row(cartBtn)))
		return
	}
	c.reply(ctx, ev, text(fmt.Sprintf("🎉 Ваш заказ #%s оформлен! Итого: %d %s.\n"+
		"Спасибо за заказ! Мы уведомим вас о готовности.", o.ID, o.Total(), unit),
		models.Row(menuBtn)))
}

const myOrdersLimit = 5

func (c *Controller) showOrders(ctx context.Context, sess *Session, ev Event) {
	sess.reset(StateIdle)
	orders := c.cafe.ListOrdersByUser(ev.UserID, myOrdersLimit)
	if len(orders) == 0 {
		c.reply(ctx, ev, text("У вас пока нет заказов.", models.Row(menuBtn)))
		return
	}
	cards := make([]string, 0, len(orders))
	for _, o := range orders {
		cards = append(cards, services.BuildCustomerCard(o).Text)
	}
	c.reply(ctx, ev, text("📋 Ваши заказы:\n\n"+strings.Join(cards, "\n\n"), models.Row(menuBtn)))
}
