package delivery

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/harunnryd/trendsniffer/internal/errors"
)

// Telegram sends digests to a single chat. Web page previews are disabled
// so multi-link digests stay compact.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram builds the adapter. An empty token or chat id yields an
// unconfigured adapter rather than an error.
func NewTelegram(token string, chatID int64) *Telegram {
	if token == "" || chatID == 0 {
		return &Telegram{}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Warn("Telegram bot init failed", "error", err)
		return &Telegram{}
	}
	slog.Info("Telegram adapter ready", "bot", bot.Self.UserName, "chat_id", chatID)
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Configured() bool { return t.bot != nil }

func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return errors.Collaborator(nil, "telegram is not configured")
	}
	if err := ctx.Err(); err != nil {
		return errors.Collaborator(err, "telegram send cancelled")
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return errors.Collaborator(err, "telegram send failed")
	}
	return nil
}
