package services

import (
	"fmt"
	"strings"

	"cafe-telegram/models"
)

const timeLayout = "02.01 15:04"

func statusLabel(status string) string {
	switch status {
	case models.OrderStatusNew:
		return "🆕 новый"
	case models.OrderStatusDone:
		return "✅ готов"
	default:
		return status
	}
}

func writeLines(sb *strings.Builder, lines []models.CartLine) {
	for _, l := range lines {
		fmt.Fprintf(sb, "• %s ×%d = %d усл. ед.\n", l.Name, l.Qty, l.Subtotal())
	}
}

// BuildAdminCard renders an order for the administrator. A new order
// carries the "mark done" button.
func BuildAdminCard(o models.Order) models.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 Заказ #%s\n", o.ID)
	who := fmt.Sprintf("id %d", o.UserID)
	if o.Username != "" {
		who = "@" + o.Username + " (" + who + ")"
	}
	fmt.Fprintf(&sb, "От: %s\n", who)
	fmt.Fprintf(&sb, "Время: %s\n\n", o.SubmittedAt.Format(timeLayout))
	writeLines(&sb, o.Items)
	fmt.Fprintf(&sb, "\nИтого: %d усл. ед.\n", o.Total())
	fmt.Fprintf(&sb, "Статус: %s", statusLabel(o.Status))

	msg := models.Message{Text: sb.String()}
	if o.Status == models.OrderStatusNew {
		msg.Choices = [][]models.Choice{
			models.Row(models.Choice{
				Label:  "✅ Готово",
				Button: models.Button{Action: models.ActMarkDone, OrderID: o.ID},
			}),
		}
	}
	return msg
}

// BuildCustomerCard renders an order for the user who placed it.
func BuildCustomerCard(o models.Order) models.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Заказ #%s\n\n", o.ID)
	writeLines(&sb, o.Items)
	fmt.Fprintf(&sb, "\nИтого: %d усл. ед.\n", o.Total())
	fmt.Fprintf(&sb, "Статус: %s", statusLabel(o.Status))
	if o.CompletedAt != nil {
		fmt.Fprintf(&sb, " (%s)", o.CompletedAt.Format(timeLayout))
	}
	return models.Message{Text: sb.String()}
}

// BuildDoneNotice is what the user receives when the order is marked done.
func BuildDoneNotice(o models.Order) models.Message {
	return models.Message{
		Text: fmt.Sprintf("🎉 Ваш заказ #%s готов! Приятного аппетита! 😊", o.ID),
	}
}
