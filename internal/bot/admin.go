package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"jester-bot/internal/moderation"
	"jester-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

func (b *Bot) handleAdminPanel(c telebot.Context) error {
	if !b.cfg.IsAdmin(c.Sender().ID) {
		return nil
	}
	return b.send(c, "⚙️ *Admin panel*", adminKeyboard())
}

func (b *Bot) handleStats(c telebot.Context) error {
	if !b.cfg.IsAdmin(c.Sender().ID) {
		return nil
	}

	ctx := context.Background()
	stats := fmt.Sprintf(
		"📈 *Bot statistics*\n\n"+
			"• Approved jokes: *%d*\n"+
			"• Awaiting moderation: *%d*\n"+
			"• Total stored: *%d*\n"+
			"• Last assigned id: *%d*",
		b.repo.CountApproved(ctx),
		b.repo.CountUnapproved(ctx),
		b.repo.CountTotal(ctx),
		b.repo.LastAssignedID(ctx),
	)
	return b.send(c, stats, adminKeyboard())
}

func (b *Bot) handleDeleteByIDStart(c telebot.Context) error {
	adminID := c.Sender().ID
	if !b.cfg.IsAdmin(adminID) {
		return nil
	}
	b.mod.BeginDelete(adminID)
	return b.send(c, "🔢 Enter the public id of the joke to delete:", cancelKeyboard())
}

func (b *Bot) handleDeleteByID(c telebot.Context, text string) error {
	adminID := c.Sender().ID

	if text == btnCancel {
		b.mod.Clear(adminID)
		return b.send(c, "❌ Cancelled", adminKeyboard())
	}

	publicID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return b.send(c, "❌ That's not a number. Enter the joke id:", nil)
	}

	ctx := context.Background()
	key, joke := b.repo.FindByID(ctx, publicID)
	if joke == nil {
		return b.send(c, "🔍 No joke with that id.", nil)
	}

	if err := b.repo.Delete(ctx, key); err != nil {
		logger.Error("Admin delete failed",
			logger.Int64("admin_id", adminID),
			logger.Int64("joke_id", publicID),
			logger.Err(err),
		)
		return b.send(c, "❌ Delete failed, try again.", nil)
	}

	b.mod.Clear(adminID)
	logger.Info("Admin deleted joke",
		logger.Int64("admin_id", adminID),
		logger.Int64("joke_id", publicID),
		logger.String("key", key),
	)
	return b.send(c, fmt.Sprintf("✅ Joke #%d deleted!", publicID), adminKeyboard())
}

func (b *Bot) handleModerationStart(c telebot.Context) error {
	adminID := c.Sender().ID
	if !b.cfg.IsAdmin(adminID) {
		return nil
	}

	item := b.mod.Start(context.Background(), adminID)
	if item == nil {
		return b.send(c, "🎉 All jokes reviewed! Nothing pending.", adminKeyboard())
	}

	text := fmt.Sprintf(
		"📜 *Joke under moderation (id assigned on approval):*\n\n%s\n\nPick an action:",
		item.Joke.Text,
	)
	return b.send(c, text, moderationKeyboard())
}

func (b *Bot) handleModerationAction(c telebot.Context, action moderation.Action) error {
	adminID := c.Sender().ID

	outcome, err := b.mod.Act(context.Background(), adminID, action)
	if err != nil {
		switch {
		case errors.Is(err, moderation.ErrStaleSession):
			return b.send(c, "❌ That joke was already handled by someone else. Session closed.", adminKeyboard())
		case errors.Is(err, moderation.ErrNoActiveSession):
			return b.send(c, "❌ No moderation in progress. Press "+btnModeration+" to start.", adminKeyboard())
		default:
			logger.Error("Moderation action failed", logger.Int64("admin_id", adminID), logger.Err(err))
			return b.send(c, "⚠️ Action failed, try again.", nil)
		}
	}

	if outcome.Ended {
		return b.send(c, "🚫 Moderation finished", adminKeyboard())
	}

	var result string
	switch {
	case outcome.ApprovedID != 0:
		result = fmt.Sprintf("✅ Joke approved as #%d!", outcome.ApprovedID)
	case outcome.Rejected:
		result = "❌ Joke rejected and removed."
	case outcome.Skipped:
		result = "➡️ Skipped for now."
	}

	if outcome.QueueEmpty {
		return b.send(c, result+"\n\n🎉 All jokes reviewed!", adminKeyboard())
	}

	text := fmt.Sprintf("%s\n\n📜 *Next joke under moderation:*\n\n%s", result, outcome.Next.Joke.Text)
	return b.send(c, text, moderationKeyboard())
}

// handleModerateCallback jumps an admin straight to the joke referenced in a
// submission notification.
func (b *Bot) handleModerateCallback(c telebot.Context) error {
	adminID := c.Sender().ID
	if !b.cfg.IsAdmin(adminID) {
		return c.Respond(&telebot.CallbackResponse{Text: "❌ Admins only"})
	}

	key := c.Data()
	joke := b.repo.FindByKey(context.Background(), key)
	if joke == nil {
		return c.Respond(&telebot.CallbackResponse{Text: "❌ Already moderated or deleted"})
	}
	if joke.Approved {
		return c.Respond(&telebot.CallbackResponse{Text: "✅ Already approved"})
	}

	b.mod.Resume(adminID, key, joke)

	text := fmt.Sprintf("📜 *Joke under moderation (id assigned on approval):*\n\n%s", joke.Text)
	if err := c.Edit(text, &telebot.SendOptions{ParseMode: b.cfg.ParseMode}); err != nil {
		logger.Warn("Failed to edit notification message", logger.Err(err))
	}
	if err := b.send(c, "Pick an action for this joke:", moderationKeyboard()); err != nil {
		return err
	}
	return c.Respond(&telebot.CallbackResponse{})
}

func moderationAction(text string) (moderation.Action, bool) {
	switch text {
	case btnApprove:
		return moderation.ActionApprove, true
	case btnReject:
		return moderation.ActionReject, true
	case btnSkip:
		return moderation.ActionSkip, true
	case btnFinish:
		return moderation.ActionEnd, true
	}
	return 0, false
}
