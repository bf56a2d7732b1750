package bot

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"unicode/utf8"

	"cafe-telegram/logger"
	"cafe-telegram/models"
	"cafe-telegram/photos"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects longer photo captions; such messages go out as a photo
// followed by the text.
const maxCaption = 1024

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Gateway delivers core messages through the Bot API and downloads photos
// the administrator uploads.
type Gateway struct {
	api    *tgbotapi.BotAPI
	send   sender
	photos *photos.Store
	client *http.Client
	log    *logger.Logger
}

func NewGateway(api *tgbotapi.BotAPI, store *photos.Store, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.Discard()
	}
	return &Gateway{api: api, send: api, photos: store, client: http.DefaultClient, log: log}
}

// markup converts message choices to an inline keyboard.
func markup(rows [][]models.Choice) (*tgbotapi.InlineKeyboardMarkup, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	var kbRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var btns []tgbotapi.InlineKeyboardButton
		for _, ch := range row {
			data, err := models.EncodeButton(ch.Button)
			if err != nil {
				return nil, fmt.Errorf("button %q: %w", ch.Label, err)
			}
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(ch.Label, data))
		}
		kbRows = append(kbRows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	return &kb, nil
}

// Deliver implements services.Notifier.
func (g *Gateway) Deliver(ctx context.Context, chatID int64, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kb, err := markup(msg.Choices)
	if err != nil {
		return err
	}

	if msg.PhotoRef != "" {
		fits := utf8.RuneCountInString(msg.Text) <= maxCaption
		err := g.sendPhoto(chatID, msg, fits, kb)
		if err == nil && fits {
			return nil
		}
		if err != nil {
			// The text and its buttons still go out without the picture.
			g.log.Warn("photo_send_failed", "sending message without photo",
				"chat_id", chatID, "photo", msg.PhotoRef, "error", err.Error())
		}
	}

	m := tgbotapi.NewMessage(chatID, msg.Text)
	if kb != nil {
		m.ReplyMarkup = kb
	}
	_, err = g.send.Send(m)
	return err
}

func (g *Gateway) sendPhoto(chatID int64, msg models.Message, withCaption bool, kb *tgbotapi.InlineKeyboardMarkup) error {
	p, err := g.photos.Path(msg.PhotoRef)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("photo %s: %w", msg.PhotoRef, err)
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(p))
	if withCaption {
		photo.Caption = msg.Text
		if kb != nil {
			photo.ReplyMarkup = kb
		}
	}
	_, err = g.send.Send(photo)
	return err
}

// FetchPhoto downloads a Telegram file into the photo store.
func (g *Gateway) FetchPhoto(ctx context.Context, fileID string) (string, error) {
	url, err := g.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file %s: status %s", fileID, resp.Status)
	}
	return g.photos.Save(path.Ext(url), resp.Body)
}
