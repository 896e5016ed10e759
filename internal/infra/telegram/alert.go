// internal/infra/telegram/alert.go
package telegram

import (
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the alert.Client interface using the
// gopkg.in/telebot.v3 library, pushing ops alerts to a single admin chat.
type TelebotAdapter struct {
	bot    *telebot.Bot
	chatID int64
}

func NewTelebotAdapter(b *telebot.Bot, chatID int64) *TelebotAdapter {
	return &TelebotAdapter{bot: b, chatID: chatID}
}

// Notify sends a plain text alert to the configured admin chat.
func (tba *TelebotAdapter) Notify(text string) error {
	recipient := &telebot.User{ID: tba.chatID}
	_, err := tba.bot.Send(recipient, text)
	return err
}
