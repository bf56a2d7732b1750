package bot

import (
	"context"
	"errors"

	"cafe-telegram/conversation"
	"cafe-telegram/logger"
	"cafe-telegram/models"
	"cafe-telegram/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler consumes decoded events.
type Handler interface {
	Handle(ctx context.Context, ev conversation.Event) error
}

// Bot long-polls Telegram and feeds each update to the handler.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler Handler
	log     *logger.Logger
}

func New(api *tgbotapi.BotAPI, h Handler, log *logger.Logger) *Bot {
	return &Bot{api: api, handler: h, log: log}
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: conversation.CmdStart, Description: "Начать"},
		tgbotapi.BotCommand{Command: conversation.CmdMenu, Description: "Меню"},
		tgbotapi.BotCommand{Command: conversation.CmdCart, Description: "Мой заказ"},
		tgbotapi.BotCommand{Command: conversation.CmdOrders, Description: "Мои заказы"},
		tgbotapi.BotCommand{Command: conversation.CmdCancel, Description: "Отмена"},
	)
	_, err := b.api.Request(cfg)
	return err
}

// Run processes updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.setBotCommands(); err != nil {
		b.log.Warn("set_commands_failed", err.Error())
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.log.Info("bot_started", "polling for updates", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			b.log.Debug("callback_answer_failed", err.Error())
		}
	}
	ev, ok, err := toEvent(update)
	if err != nil {
		b.log.Warn("bad_update", err.Error(), "update_id", update.UpdateID)
		return
	}
	if !ok {
		return
	}
	err = b.handler.Handle(ctx, ev)
	switch {
	case err == nil, errors.Is(err, conversation.ErrRejected):
	case errors.Is(err, services.ErrUnauthorized):
		b.log.Warn("unauthorized", "admin input ignored", "user_id", ev.UserID)
	default:
		b.log.Error("handle_failed", "event not processed", err, "user_id", ev.UserID, "kind", string(ev.Kind))
	}
}

// toEvent decodes the parts of an update the cafe understands. ok is false
// for updates that carry nothing relevant.
func toEvent(update tgbotapi.Update) (ev conversation.Event, ok bool, err error) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil {
			return ev, false, nil
		}
		btn, err := models.DecodeButton(cq.Data)
		if err != nil {
			return ev, false, err
		}
		return conversation.Event{
			UserID:   cq.From.ID,
			ChatID:   cq.Message.Chat.ID,
			Username: cq.From.UserName,
			Kind:     conversation.KindButton,
			Button:   btn,
		}, true, nil
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return ev, false, nil
	}
	ev = conversation.Event{
		UserID:   msg.From.ID,
		ChatID:   msg.Chat.ID,
		Username: msg.From.UserName,
	}
	switch {
	case msg.IsCommand():
		ev.Kind = conversation.KindCommand
		ev.Command = msg.Command()
	case len(msg.Photo) > 0:
		// sizes come smallest first
		ev.Kind = conversation.KindPhoto
		ev.PhotoRef = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Text != "":
		ev.Kind = conversation.KindText
		ev.Text = msg.Text
	default:
		return ev, false, nil
	}
	return ev, true, nil
}
