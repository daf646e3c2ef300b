package bot

import (
	"context"
	"strings"

	"jester-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

// handleJokeCommand serves /joke in any chat, with the same recency
// avoidance as the private keyboard button.
func (b *Bot) handleJokeCommand(c telebot.Context) error {
	return b.handleRandomJoke(c)
}

func (b *Bot) handleSubscribeGroup(c telebot.Context) error {
	if !isGroupChat(c.Chat()) {
		return b.send(c, "This command only works in group chats.", nil)
	}
	if !b.isGroupAdmin(c) {
		return b.send(c, "❌ Only group administrators can manage the subscription.", nil)
	}

	name := c.Chat().Title
	if err := b.repo.SubscribeGroup(context.Background(), c.Chat().ID, name); err != nil {
		logger.Error("Failed to subscribe group", logger.Int64("chat_id", c.Chat().ID), logger.Err(err))
		return b.send(c, "⚠️ Subscription failed, try again later.", nil)
	}
	return b.send(c,
		"✅ Group '"+name+"' subscribed to scheduled jokes!\n"+
			"Use /unsubscribe_group to stop them.", nil)
}

func (b *Bot) handleUnsubscribeGroup(c telebot.Context) error {
	if !isGroupChat(c.Chat()) {
		return b.send(c, "This command only works in group chats.", nil)
	}
	if !b.isGroupAdmin(c) {
		return b.send(c, "❌ Only group administrators can manage the subscription.", nil)
	}

	name := c.Chat().Title
	if err := b.repo.UnsubscribeGroup(context.Background(), c.Chat().ID); err != nil {
		logger.Error("Failed to unsubscribe group", logger.Int64("chat_id", c.Chat().ID), logger.Err(err))
		return b.send(c, "⚠️ Unsubscribe failed, try again later.", nil)
	}
	return b.send(c,
		"❌ Group '"+name+"' unsubscribed from scheduled jokes.\n"+
			"Use /subscribe_group to bring them back.", nil)
}

// handleGroupText answers trigger words with a joke; everything else in a
// group is ignored.
func (b *Bot) handleGroupText(c telebot.Context) error {
	text := strings.ToLower(c.Text())
	if strings.HasPrefix(text, "/") {
		return nil
	}
	for _, word := range b.cfg.TriggerWords {
		if word != "" && strings.Contains(text, strings.ToLower(word)) {
			return b.handleRandomJoke(c)
		}
	}
	return nil
}

func (b *Bot) handleGroupHelp(c telebot.Context) error {
	help := "🤖 *Group commands*\n\n" +
		"*/joke* - get a random joke\n" +
		"*/subscribe_group* - subscribe this group to scheduled jokes\n" +
		"*/unsubscribe_group* - unsubscribe this group\n" +
		"*/help* - show this message\n\n" +
		"Subscription commands are limited to group administrators."
	return b.send(c, help, nil)
}

// isGroupAdmin checks the sender against the group's administrator list;
// lookup failures deny.
func (b *Bot) isGroupAdmin(c telebot.Context) bool {
	admins, err := b.tbot.AdminsOf(c.Chat())
	if err != nil {
		logger.Error("Failed to fetch group admins",
			logger.Int64("chat_id", c.Chat().ID),
			logger.Err(err),
		)
		return false
	}
	for _, member := range admins {
		if member.User != nil && member.User.ID == c.Sender().ID {
			return true
		}
	}
	return false
}
