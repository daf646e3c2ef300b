package bot

import "gopkg.in/telebot.v4"

const (
	btnRandomJoke  = "🎲 Random joke"
	btnAddJoke     = "➕ Add joke"
	btnMyJokes     = "📜 My jokes"
	btnDeleteMine  = "🗑 Delete my joke"
	btnSubscribe   = "🔔 Subscribe"
	btnUnsubscribe = "🔕 Unsubscribe"
	btnAdminPanel  = "🛠 Admin panel"

	btnCancel = "❌ Cancel"

	btnModeration = "👮 Moderation"
	btnStats      = "📊 Stats"
	btnDeleteByID = "🔢 Delete by ID"

	btnApprove = "✅ Approve"
	btnReject  = "❌ Reject"
	btnSkip    = "➡️ Skip"
	btnFinish  = "🚫 Finish"
)

// Inline button handles; payload carries the joke storage key.
var (
	btnModerateInline = telebot.Btn{Unique: "moderate"}
	btnDeleteInline   = telebot.Btn{Unique: "delete_joke"}
)

func mainKeyboard(isAdmin bool) *telebot.ReplyMarkup {
	kb := &telebot.ReplyMarkup{ResizeKeyboard: true}
	rows := []telebot.Row{
		kb.Row(kb.Text(btnRandomJoke), kb.Text(btnAddJoke)),
		kb.Row(kb.Text(btnMyJokes), kb.Text(btnDeleteMine)),
		kb.Row(kb.Text(btnSubscribe), kb.Text(btnUnsubscribe)),
	}
	if isAdmin {
		rows = append(rows, kb.Row(kb.Text(btnAdminPanel)))
	}
	kb.Reply(rows...)
	return kb
}

func adminKeyboard() *telebot.ReplyMarkup {
	kb := &telebot.ReplyMarkup{ResizeKeyboard: true}
	kb.Reply(
		kb.Row(kb.Text(btnModeration), kb.Text(btnStats)),
		kb.Row(kb.Text(btnDeleteByID)),
		kb.Row(kb.Text(btnRandomJoke), kb.Text(btnAddJoke)),
	)
	return kb
}

func cancelKeyboard() *telebot.ReplyMarkup {
	kb := &telebot.ReplyMarkup{ResizeKeyboard: true}
	kb.Reply(kb.Row(kb.Text(btnCancel)))
	return kb
}

func moderationKeyboard() *telebot.ReplyMarkup {
	kb := &telebot.ReplyMarkup{ResizeKeyboard: true}
	kb.Reply(
		kb.Row(kb.Text(btnApprove), kb.Text(btnReject)),
		kb.Row(kb.Text(btnSkip), kb.Text(btnFinish)),
	)
	return kb
}
