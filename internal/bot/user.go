package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"jester-bot/internal/jokes"
	"jester-bot/internal/models"
	"jester-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

func (b *Bot) handleStart(c telebot.Context) error {
	if isGroupChat(c.Chat()) {
		return b.handleGroupHelp(c)
	}

	welcome := "*Welcome to Jester Bot!*\n\n" +
		"A crowd-sourced joke collection: read jokes, submit your own, and " +
		"subscribe to scheduled deliveries.\n\n" +
		"Everything works through the keyboard below."
	return b.send(c, welcome, mainKeyboard(b.cfg.IsAdmin(c.Sender().ID)))
}

func (b *Bot) handleHelp(c telebot.Context) error {
	if isGroupChat(c.Chat()) {
		return b.handleGroupHelp(c)
	}

	help := "*Help*\n\n" +
		"- " + btnRandomJoke + " - get a random approved joke\n" +
		"- " + btnAddJoke + " - submit a joke for moderation\n" +
		"- " + btnMyJokes + " - list your approved jokes\n" +
		"- " + btnDeleteMine + " - delete one of your jokes\n" +
		"- " + btnSubscribe + " - receive a scheduled joke\n" +
		"- " + btnUnsubscribe + " - stop scheduled jokes"
	return b.send(c, help, mainKeyboard(b.cfg.IsAdmin(c.Sender().ID)))
}

// handleRandomJoke serves an approved joke, avoiding this chat's previous
// one.
func (b *Bot) handleRandomJoke(c telebot.Context) error {
	ctx := context.Background()
	chatID := c.Chat().ID

	var exclude *int64
	if last, ok := b.cache.Last(chatID); ok {
		exclude = &last
	}

	joke, err := b.repo.PickRandom(ctx, exclude)
	if err != nil {
		return b.send(c, "😢 No jokes in the database yet!", nil)
	}
	if joke.PublicID != nil {
		b.cache.Remember(chatID, *joke.PublicID)
	}
	return b.send(c, formatJoke(joke), nil)
}

func (b *Bot) handleSubmitStart(c telebot.Context) error {
	b.setSubmitFlow(c.Sender().ID, true)
	prompt := fmt.Sprintf("✍️ Send the joke text (at least %d characters):", b.jokesCfg.MinLength)
	return b.send(c, prompt, cancelKeyboard())
}

func (b *Bot) handleSubmitText(c telebot.Context, text string) error {
	userID := c.Sender().ID

	if text == btnCancel {
		b.setSubmitFlow(userID, false)
		return b.send(c, "❌ Cancelled", mainKeyboard(b.cfg.IsAdmin(userID)))
	}

	if utf8.RuneCountInString(text) < b.jokesCfg.MinLength {
		msg := fmt.Sprintf("⚠️ That's too short! At least %d characters, please.", b.jokesCfg.MinLength)
		return b.send(c, msg, nil)
	}

	ctx := context.Background()
	key, err := b.repo.Submit(ctx, text, userID)
	if err != nil {
		if errors.Is(err, jokes.ErrDuplicate) {
			return b.send(c, "❌ That joke is already in the database!", nil)
		}
		logger.Error("Failed to submit joke", logger.Int64("user_id", userID), logger.Err(err))
		return b.send(c, "❌ Something went wrong, try again later.", nil)
	}

	b.setSubmitFlow(userID, false)
	if err := b.send(c, "✅ Joke submitted for moderation!", mainKeyboard(b.cfg.IsAdmin(userID))); err != nil {
		return err
	}

	b.notifyAdmins(ctx, key)
	return nil
}

// notifyAdmins tells every admin about a fresh submission, with an inline
// shortcut into moderation.
func (b *Bot) notifyAdmins(ctx context.Context, jokeKey string) {
	pending := b.repo.CountUnapproved(ctx)
	text := fmt.Sprintf("⚠️ *New joke awaiting moderation!*\n\nPending total: %d", pending)

	kb := &telebot.ReplyMarkup{}
	kb.Inline(kb.Row(kb.Data("👮 Go to moderation", btnModerateInline.Unique, jokeKey)))

	for _, adminID := range b.cfg.AdminIDs {
		_, err := b.tbot.Send(&telebot.Chat{ID: adminID}, text, &telebot.SendOptions{
			ParseMode:   b.cfg.ParseMode,
			ReplyMarkup: kb,
		})
		if err != nil {
			logger.Error("Failed to notify admin",
				logger.Int64("admin_id", adminID),
				logger.Err(err),
			)
		}
	}
}

func (b *Bot) handleMyJokes(c telebot.Context) error {
	userID := c.Sender().ID
	list := b.repo.ListByUser(context.Background(), userID, true)
	if len(list) == 0 {
		return b.send(c, "📭 You have no approved jokes yet.", nil)
	}

	var sb strings.Builder
	sb.WriteString("📚 *Your approved jokes:*\n\n")
	for _, uj := range list {
		sb.WriteString(fmt.Sprintf("🔹 *#%d*\n%s\n\n", derefID(uj.Joke), preview(uj.Joke.Text)))
	}
	return b.send(c, sb.String(), nil)
}

func (b *Bot) handleDeleteMineStart(c telebot.Context) error {
	userID := c.Sender().ID
	list := b.repo.ListByUser(context.Background(), userID, true)
	if len(list) == 0 {
		return b.send(c, "📭 You have no approved jokes to delete.", nil)
	}

	kb := &telebot.ReplyMarkup{}
	var rows []telebot.Row
	for _, uj := range list {
		label := fmt.Sprintf("❌ #%d", derefID(uj.Joke))
		rows = append(rows, kb.Row(kb.Data(label, btnDeleteInline.Unique, uj.Key)))
	}
	kb.Inline(rows...)
	return b.send(c, "🗑 Pick a joke to delete:", kb)
}

// handleDeleteCallback deletes a joke picked from the inline list. The
// payload is the storage key; ownership is rechecked because the list may be
// stale.
func (b *Bot) handleDeleteCallback(c telebot.Context) error {
	userID := c.Sender().ID
	key := c.Data()

	joke := b.repo.FindByKey(context.Background(), key)
	if joke == nil {
		return c.Respond(&telebot.CallbackResponse{Text: "❌ Joke not found"})
	}
	if joke.SubmitterID != userID && !b.cfg.IsAdmin(userID) {
		return c.Respond(&telebot.CallbackResponse{Text: "❌ Not your joke"})
	}

	if err := b.repo.Delete(context.Background(), key); err != nil {
		logger.Error("Failed to delete joke", logger.String("key", key), logger.Err(err))
		return c.Respond(&telebot.CallbackResponse{Text: "❌ Delete failed"})
	}

	logger.Info("User deleted joke", logger.Int64("user_id", userID), logger.String("key", key))
	if err := c.Edit("✅ Joke deleted!"); err != nil {
		logger.Warn("Failed to edit message after delete", logger.Err(err))
	}
	return c.Respond(&telebot.CallbackResponse{})
}

func (b *Bot) handleSubscribe(c telebot.Context) error {
	userID := c.Sender().ID
	if err := b.repo.SubscribeUser(context.Background(), userID); err != nil {
		logger.Error("Failed to subscribe user", logger.Int64("user_id", userID), logger.Err(err))
		return b.send(c, "⚠️ Subscription failed, try again later.", nil)
	}
	return b.send(c,
		"✅ Subscribed! You'll receive a scheduled joke.",
		mainKeyboard(b.cfg.IsAdmin(userID)))
}

func (b *Bot) handleUnsubscribe(c telebot.Context) error {
	userID := c.Sender().ID
	if err := b.repo.UnsubscribeUser(context.Background(), userID); err != nil {
		logger.Error("Failed to unsubscribe user", logger.Int64("user_id", userID), logger.Err(err))
		return b.send(c, "⚠️ Unsubscribe failed, try again later.", nil)
	}
	return b.send(c,
		"❌ Unsubscribed from scheduled jokes.\nPress "+btnSubscribe+" to re-subscribe.",
		mainKeyboard(b.cfg.IsAdmin(userID)))
}

func formatJoke(j *models.Joke) string {
	return fmt.Sprintf("📜 *Joke #%d*\n\n%s", derefID(j), j.Text)
}

func preview(text string) string {
	const limit = 50
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func derefID(j *models.Joke) int64 {
	if j.PublicID == nil {
		return 0
	}
	return *j.PublicID
}
