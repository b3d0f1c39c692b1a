// Package notify delivers batch summaries. Notification is best-effort and
// at-least-once: a failure is logged, never fatal to a batch.
package notify

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// plain text: summaries carry raw links and reply subjects, which are
	// not valid Telegram HTML
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// LogOnly is the notifier used when Telegram is disabled.
type LogOnly struct{}

func (LogOnly) Notify(_ context.Context, text string) error {
	log.Printf("[notify] %s", text)
	return nil
}
