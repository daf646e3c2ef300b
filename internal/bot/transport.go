package bot

import (
	"context"

	"gopkg.in/telebot.v4"
)

// Transport adapts the telebot client to the sender.Transport contract used
// by the scheduler and the outbound queue consumer.
type Transport struct {
	tbot      *telebot.Bot
	parseMode string
}

func NewTransport(tbot *telebot.Bot, parseMode string) *Transport {
	return &Transport{tbot: tbot, parseMode: parseMode}
}

func (t *Transport) SendMessage(_ context.Context, chatID int64, text string) error {
	_, err := t.tbot.Send(&telebot.Chat{ID: chatID}, text, &telebot.SendOptions{
		ParseMode: t.parseMode,
	})
	return err
}
