package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cafe-telegram/models"
	"cafe-telegram/services"

	"golang.org/x/crypto/bcrypt"
)

// openAdmin handles /admin. Anyone but the administrator gets a short
// refusal and nothing else.
func (c *Controller) openAdmin(ctx context.Context, sess *Session, ev Event) error {
	if !c.isAdmin(ev.UserID) {
		c.log.Warn("unauthorized", "/admin from non-admin", "user_id", ev.UserID)
		c.reply(ctx, ev, text("У вас нет прав администратора."))
		return services.ErrUnauthorized
	}
	if !c.adminReady(sess) {
		sess.reset(StateAwaitingAdminPassword)
		c.reply(ctx, ev, text("🔒 Введите пароль администратора:", models.Row(cancelBtn)))
		return nil
	}
	sess.reset(StateAdminIdle)
	c.reply(ctx, ev, adminPanelMessage())
	return nil
}

func (c *Controller) adminPassword(ctx context.Context, sess *Session, ev Event) {
	if wait := c.throttle.WaitSeconds(ev.UserID); wait > 0 {
		c.reply(ctx, ev, text(fmt.Sprintf("⏳ Слишком много попыток. Подождите %d сек.", wait), models.Row(cancelBtn)))
		return
	}
	if err := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(strings.TrimSpace(ev.Text))); err != nil {
		c.throttle.RecordFailed(ev.UserID)
		c.log.Warn("admin_login_failed", "wrong admin password", "user_id", ev.UserID)
		c.reply(ctx, ev, text("❌ Неверный пароль.", models.Row(cancelBtn)))
		return
	}
	c.throttle.RecordSuccess(ev.UserID)
	sess.AdminAuthed = true
	sess.reset(StateAdminIdle)
	c.log.Info("admin_login", "administrator logged in", "user_id", ev.UserID)
	c.reply(ctx, ev, adminPanelMessage())
}

// Add-item wizard: category -> name -> description -> price -> prep time -> photo.

func (c *Controller) adminStartAdd(ctx context.Context, sess *Session, ev Event, category string) {
	if category == "" {
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, adminCategoriesMessage(models.ActAdminAdd))
		return
	}
	cat, ok := models.LookupCategory(category)
	if !ok || !cat.Editable {
		c.reply(ctx, ev, text("В этот раздел нельзя добавлять позиции.", models.Row(panelBtn)))
		return
	}
	sess.reset(StateAwaitingItemName)
	sess.Draft.Category = category
	c.reply(ctx, ev, text(promptName, models.Row(cancelBtn)))
}

const (
	promptName     = "Введите название новой позиции:"
	promptDesc     = "Введите описание позиции:"
	promptPrice    = "Введите стоимость позиции (в условных единицах):"
	promptPrepTime = "Введите время приготовления (например, '10-15 минут'):"
	promptPhoto    = "Отправьте фото для позиции:"
)

// adminWizardText validates each answer as it arrives so that a bad value
// re-prompts for the same step.
func (c *Controller) adminWizardText(ctx context.Context, sess *Session, ev Event) {
	value := strings.TrimSpace(ev.Text)
	switch sess.State {
	case StateAwaitingItemName:
		if err := checkText(services.FieldName, value, models.MaxNameLen, true); err != nil {
			c.reply(ctx, ev, validationMessage(err, promptName))
			return
		}
		sess.Draft.Name = value
		sess.State = StateAwaitingItemDesc
		c.reply(ctx, ev, text(promptDesc, models.Row(cancelBtn)))
	case StateAwaitingItemDesc:
		if err := checkText(services.FieldDescription, value, models.MaxDescriptionLen, false); err != nil {
			c.reply(ctx, ev, validationMessage(err, promptDesc))
			return
		}
		sess.Draft.Description = value
		sess.State = StateAwaitingItemPrice
		c.reply(ctx, ev, text(promptPrice, models.Row(cancelBtn)))
	case StateAwaitingItemPrice:
		price, err := services.ParsePrice(value)
		if err != nil {
			c.reply(ctx, ev, validationMessage(err, "Пожалуйста, введите положительное число:"))
			return
		}
		sess.Draft.Price = price
		sess.State = StateAwaitingItemTime
		c.reply(ctx, ev, text(promptPrepTime, models.Row(cancelBtn)))
	case StateAwaitingItemTime:
		if err := checkText(services.FieldPrepTime, value, models.MaxPrepTimeLen, false); err != nil {
			c.reply(ctx, ev, validationMessage(err, promptPrepTime))
			return
		}
		sess.Draft.PrepTime = value
		sess.State = StateAwaitingItemPhoto
		c.reply(ctx, ev, text(promptPhoto,
			models.Row(btn("⏭ Без фото", models.Button{Action: models.ActSkipPhoto}), cancelBtn)))
	}
}

func checkText(field, value string, max int, required bool) error {
	if required && value == "" {
		return &services.ValidationError{Field: field, Reason: "поле не может быть пустым"}
	}
	if n := len([]rune(value)); n > max {
		return &services.ValidationError{Field: field, Reason: fmt.Sprintf("слишком длинно (%d > %d символов)", n, max)}
	}
	return nil
}

func (c *Controller) adminFinishAdd(ctx context.Context, sess *Session, ev Event, photoRef string) {
	d := sess.Draft
	it, err := c.cafe.AddItem(ctx, services.NewItem{
		Category:    d.Category,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		PrepTime:    d.PrepTime,
		PhotoRef:    photoRef,
	})
	sess.reset(StateAdminIdle)
	if err != nil {
		c.log.Error("add_item_failed", "wizard discarded", err, "category", d.Category)
		c.reply(ctx, ev, text("⚠️ Не удалось добавить позицию: "+err.Error(), models.Row(panelBtn)))
		return
	}
	c.reply(ctx, ev, text(fmt.Sprintf("Позиция '%s' успешно добавлена в меню!", it.Name)))
	c.reply(ctx, ev, adminPanelMessage())
}

// Delete flow.

func (c *Controller) adminListForDelete(ctx context.Context, sess *Session, ev Event, category string) {
	if category == "" {
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, adminCategoriesMessage(models.ActAdminList))
		return
	}
	items, err := c.cafe.ListItems(category)
	if err != nil || len(items) == 0 {
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, text("В этом разделе нет позиций.", models.Row(panelBtn)))
		return
	}
	sess.reset(StateAwaitingDeleteSelection)
	sess.Category = category
	c.reply(ctx, ev, adminItemsMessage("Выберите позицию для удаления:", models.ActAdminDelete, items))
}

func (c *Controller) adminDelete(ctx context.Context, sess *Session, ev Event, category, itemID string) {
	removed, err := c.cafe.DeleteItem(ctx, category, itemID)
	sess.reset(StateAdminIdle)
	if err != nil {
		c.reply(ctx, ev, text("Позиция не найдена.", models.Row(panelBtn)))
		return
	}
	c.reply(ctx, ev, text(fmt.Sprintf("🗑 Позиция '%s' удалена.", removed.Name)))
	c.reply(ctx, ev, adminPanelMessage())
}

// Edit flow: item -> field number 1..5 -> value.

func (c *Controller) adminListForEdit(ctx context.Context, sess *Session, ev Event, category string) {
	if category == "" {
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, adminCategoriesMessage(models.ActAdminEditList))
		return
	}
	items, err := c.cafe.ListItems(category)
	if err != nil || len(items) == 0 {
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, text("Меню пустое, нечего редактировать.", models.Row(panelBtn)))
		return
	}
	sess.reset(StateAwaitingEditSelection)
	c.reply(ctx, ev, adminItemsMessage("Выберите позицию для редактирования:", models.ActAdminEdit, items))
}

func (c *Controller) adminSelectEdit(ctx context.Context, sess *Session, ev Event, category, itemID string) {
	it, err := c.cafe.GetItem(category, itemID)
	if err != nil {
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, text("Позиция не найдена.", models.Row(panelBtn)))
		return
	}
	sess.reset(StateAwaitingEditField)
	sess.Edit = EditTarget{Category: category, ItemID: itemID}
	c.reply(ctx, ev, editFieldsMessage(it))
}

func (c *Controller) adminEditField(ctx context.Context, sess *Session, ev Event) {
	n, err := strconv.Atoi(strings.TrimSpace(ev.Text))
	if err != nil || n < 1 || n > len(services.EditFields) {
		c.reply(ctx, ev, text(fmt.Sprintf("Пожалуйста, введите число от 1 до %d:", len(services.EditFields)), models.Row(cancelBtn)))
		return
	}
	sess.Edit.Field = services.EditFields[n-1]
	sess.State = StateAwaitingEditValue
	if sess.Edit.Field == services.FieldPhoto {
		c.reply(ctx, ev, text("Отправьте новое фото:", models.Row(cancelBtn)))
		return
	}
	c.reply(ctx, ev, text("Введите новое значение:", models.Row(cancelBtn)))
}

// adminEditValue applies value (text, or a stored photo reference for the
// photo field). A validation failure keeps the step.
func (c *Controller) adminEditValue(ctx context.Context, sess *Session, ev Event, value string) {
	t := sess.Edit
	if t.Field == services.FieldPhoto && ev.Kind != KindPhoto {
		c.reply(ctx, ev, text("Отправьте новое фото:", models.Row(cancelBtn)))
		return
	}
	_, err := c.cafe.EditItem(ctx, t.Category, t.ItemID, t.Field, value)
	switch {
	case services.IsValidation(err):
		c.reply(ctx, ev, validationMessage(err, "Введите новое значение:"))
		return
	case err != nil:
		sess.reset(StateAdminIdle)
		c.reply(ctx, ev, text("Позиция не найдена.", models.Row(panelBtn)))
		return
	}
	sess.reset(StateAdminIdle)
	c.reply(ctx, ev, text("Изменения сохранены!"))
	c.reply(ctx, ev, adminPanelMessage())
}

// Orders.

func (c *Controller) adminActiveOrders(ctx context.Context, ev Event) {
	active := c.cafe.ListActiveOrders()
	if len(active) == 0 {
		c.reply(ctx, ev, text("Нет активных заказов", models.Row(panelBtn)))
		return
	}
	c.reply(ctx, ev, text(fmt.Sprintf("📊 Активные заказы: %d", len(active))))
	for _, o := range active {
		c.reply(ctx, ev, services.BuildAdminCard(o))
	}
}

// adminDoneText accepts "Готово <id>" or "done <id>" typed on the panel.
func (c *Controller) adminDoneText(ctx context.Context, ev Event) error {
	fields := strings.Fields(ev.Text)
	if len(fields) != 2 {
		return ErrRejected
	}
	if !strings.EqualFold(fields[0], "готово") && !strings.EqualFold(fields[0], "done") {
		return ErrRejected
	}
	c.adminMarkDone(ctx, ev, strings.ToUpper(fields[1]))
	return nil
}

func (c *Controller) adminMarkDone(ctx context.Context, ev Event, orderID string) {
	o, already, err := c.cafe.MarkDone(ctx, orderID)
	var nf *services.NotFoundError
	switch {
	case errors.As(err, &nf):
		c.reply(ctx, ev, text("Заказ не найден"))
	case err != nil:
		c.log.Error("mark_done_failed", "order unchanged", err, "order_id", orderID)
	case already:
		c.reply(ctx, ev, text(fmt.Sprintf("Заказ #%s уже отмечен как готовый.", o.ID)))
	default:
		c.reply(ctx, ev, text(fmt.Sprintf("Уведомление отправлено для заказа #%s", o.ID)))
	}
}
