package conversation

import (
	"errors"
	"fmt"
	"strings"

	"cafe-telegram/models"
	"cafe-telegram/services"
)

const unit = "усл. ед."

func text(s string, rows ...[]models.Choice) models.Message {
	return models.Message{Text: s, Choices: rows}
}

func btn(label string, b models.Button) models.Choice {
	return models.Choice{Label: label, Button: b}
}

var (
	menuBtn   = btn("🍽 Меню", models.Button{Action: models.ActMenu})
	cartBtn   = btn("🛒 Мой заказ", models.Button{Action: models.ActCart})
	cancelBtn = btn("✖️ Отмена", models.Button{Action: models.ActCancel})
	panelBtn  = btn("⬅️ Админ-панель", models.Button{Action: models.ActAdminPanel})
)

func welcomeMessage() models.Message {
	return text("🍕 Добро пожаловать в наше шуточное кафе 'Любимка'! 🐾\n\n"+
		"Здесь вы можете заказать самые необычные блюда за условные единицы хорошего настроения!\n"+
		"Нажмите кнопку 'Меню' ниже, чтобы начать.",
		models.Row(menuBtn))
}

func categoriesMessage() models.Message {
	var rows [][]models.Choice
	for _, cat := range models.Categories {
		rows = append(rows, models.Row(btn(cat.Name, models.Button{Action: models.ActCategory, Category: cat.ID})))
	}
	rows = append(rows, models.Row(cartBtn))
	return text("Выберите раздел меню:", rows...)
}

func itemsMessage(cat models.Category, items []models.MenuItem) models.Message {
	if len(items) == 0 {
		return text(cat.Name+"\n\nЗдесь пока пусто.", models.Row(menuBtn, cartBtn))
	}
	var rows [][]models.Choice
	for _, it := range items {
		label := fmt.Sprintf("%s — %d %s", it.Name, it.Price, unit)
		rows = append(rows, models.Row(btn(label, models.Button{Action: models.ActItem, Category: it.Category, ItemID: it.ID})))
	}
	rows = append(rows, models.Row(menuBtn, cartBtn))
	return text(cat.Name, rows...)
}

func itemMessage(it models.MenuItem) models.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🍽 %s\n\n", it.Name)
	if it.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", it.Description)
	}
	fmt.Fprintf(&sb, "💵 Цена: %d %s", it.Price, unit)
	if it.PrepTime != "" {
		fmt.Fprintf(&sb, "\n⏱ Время приготовления: %s", it.PrepTime)
	}
	msg := text(sb.String(),
		models.Row(btn("➕ Добавить в заказ", models.Button{Action: models.ActAdd, Category: it.Category, ItemID: it.ID})),
		models.Row(btn("⬅️ Назад", models.Button{Action: models.ActCategory, Category: it.Category}), cartBtn),
	)
	msg.PhotoRef = it.PhotoRef
	return msg
}

func cartMessage(cart models.Cart) models.Message {
	if cart.Empty() {
		return text("Ваш заказ пуст.", models.Row(menuBtn))
	}
	var sb strings.Builder
	sb.WriteString("🛒 Ваш заказ:\n\n")
	for _, l := range cart.Lines {
		fmt.Fprintf(&sb, "• %s ×%d = %d %s\n", l.Name, l.Qty, l.Subtotal(), unit)
	}
	fmt.Fprintf(&sb, "\n💵 Итого: %d %s", services.ComputeTotal(cart), unit)
	return text(sb.String(),
		models.Row(btn("✅ Оформить заказ", models.Button{Action: models.ActCheckout})),
		models.Row(
			btn("✏️ Изменить", models.Button{Action: models.ActEditCart}),
			btn("🗑 Очистить", models.Button{Action: models.ActClear}),
		),
		models.Row(menuBtn),
	)
}

func editCartMessage(cart models.Cart) models.Message {
	var rows [][]models.Choice
	for _, l := range cart.Lines {
		label := fmt.Sprintf("❌ %s ×%d", l.Name, l.Qty)
		rows = append(rows, models.Row(btn(label, models.Button{Action: models.ActRemove, ItemID: l.ItemID})))
	}
	rows = append(rows, models.Row(btn("⬅️ Назад", models.Button{Action: models.ActCart})))
	return text("Нажмите на позицию, чтобы удалить её из заказа:", rows...)
}

func confirmMessage(cart models.Cart) models.Message {
	return text(fmt.Sprintf("Оформить заказ на %d %s?", services.ComputeTotal(cart), unit),
		models.Row(
			btn("✅ Подтвердить", models.Button{Action: models.ActConfirm}),
			btn("⬅️ Назад", models.Button{Action: models.ActCart}),
		),
	)
}

func adminPanelMessage() models.Message {
	return text("Админ-панель:",
		models.Row(btn("➕ Добавить позицию", models.Button{Action: models.ActAdminAdd})),
		models.Row(btn("✏️ Редактировать позицию", models.Button{Action: models.ActAdminEditList})),
		models.Row(btn("🗑 Удалить позицию", models.Button{Action: models.ActAdminList})),
		models.Row(btn("📊 Активные заказы", models.Button{Action: models.ActAdminOrders})),
	)
}

// adminCategoriesMessage asks which editable category the action applies to.
func adminCategoriesMessage(action models.Action) models.Message {
	var rows [][]models.Choice
	for _, cat := range models.EditableCategories() {
		rows = append(rows, models.Row(btn(cat.Name, models.Button{Action: action, Category: cat.ID})))
	}
	rows = append(rows, models.Row(panelBtn))
	return text("Выберите раздел:", rows...)
}

// adminItemsMessage lists items with one button per item for action.
func adminItemsMessage(title string, action models.Action, items []models.MenuItem) models.Message {
	var rows [][]models.Choice
	for _, it := range items {
		rows = append(rows, models.Row(btn(it.Name, models.Button{Action: action, Category: it.Category, ItemID: it.ID})))
	}
	rows = append(rows, models.Row(panelBtn))
	return text(title, rows...)
}

func editFieldsMessage(it models.MenuItem) models.Message {
	photo := it.PhotoRef
	if photo == "" {
		photo = "нет"
	}
	return text(fmt.Sprintf("Редактирование: %s\n\n"+
		"1. Название: %s\n"+
		"2. Описание: %s\n"+
		"3. Цена: %d\n"+
		"4. Время приготовления: %s\n"+
		"5. Фото: %s\n\n"+
		"Введите номер поля для редактирования:",
		it.Name, it.Name, it.Description, it.Price, it.PrepTime, photo),
		models.Row(cancelBtn))
}

func validationMessage(err error, prompt string) models.Message {
	reason := "некорректное значение"
	var v *services.ValidationError
	if errors.As(err, &v) {
		reason = v.Reason
	}
	return text(fmt.Sprintf("⚠️ %s\n%s", reason, prompt), models.Row(cancelBtn))
}
