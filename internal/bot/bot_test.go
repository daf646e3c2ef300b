package bot

import (
	"testing"

	"jester-bot/internal/config"
	"jester-bot/internal/moderation"
	"jester-bot/internal/models"

	"gopkg.in/telebot.v4"
)

func TestNewBot(t *testing.T) {
	cfg := config.BotConfig{
		Token:     "test-token",
		ParseMode: "Markdown",
	}

	_, err := New(cfg, config.JokesConfig{MinLength: 10}, nil, nil, nil, nil)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestNewBotNoToken(t *testing.T) {
	cfg := config.BotConfig{
		Token:     "",
		ParseMode: "Markdown",
	}

	_, err := New(cfg, config.JokesConfig{}, nil, nil, nil, nil)
	if err == nil {
		t.Error("Expected error when token is empty")
	}
}

func TestModerationAction(t *testing.T) {
	tests := []struct {
		text   string
		action moderation.Action
		ok     bool
	}{
		{btnApprove, moderation.ActionApprove, true},
		{btnReject, moderation.ActionReject, true},
		{btnSkip, moderation.ActionSkip, true},
		{btnFinish, moderation.ActionEnd, true},
		{"random text", 0, false},
	}

	for _, tt := range tests {
		action, ok := moderationAction(tt.text)
		if ok != tt.ok {
			t.Errorf("moderationAction(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			continue
		}
		if ok && action != tt.action {
			t.Errorf("moderationAction(%q) = %v, want %v", tt.text, action, tt.action)
		}
	}
}

func TestIsGroupChat(t *testing.T) {
	tests := []struct {
		chatType telebot.ChatType
		want     bool
	}{
		{telebot.ChatPrivate, false},
		{telebot.ChatGroup, true},
		{telebot.ChatSuperGroup, true},
		{telebot.ChatChannel, false},
	}

	for _, tt := range tests {
		if got := isGroupChat(&telebot.Chat{Type: tt.chatType}); got != tt.want {
			t.Errorf("isGroupChat(%s) = %v, want %v", tt.chatType, got, tt.want)
		}
	}
}

func TestSubmitFlowTracking(t *testing.T) {
	b, err := New(config.BotConfig{Token: "t"}, config.JokesConfig{}, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if b.inSubmitFlow(1) {
		t.Error("Fresh bot should have no pending submissions")
	}
	b.setSubmitFlow(1, true)
	if !b.inSubmitFlow(1) {
		t.Error("User 1 should be in the submit flow")
	}
	if b.inSubmitFlow(2) {
		t.Error("User 2 should not be in the submit flow")
	}
	b.setSubmitFlow(1, false)
	if b.inSubmitFlow(1) {
		t.Error("Submit flow should be cleared")
	}
}

func TestFormatJoke(t *testing.T) {
	id := int64(7)
	got := formatJoke(&models.Joke{Text: "A formatted joke.", PublicID: &id})
	want := "📜 *Joke #7*\n\nA formatted joke."
	if got != want {
		t.Errorf("formatJoke = %q, want %q", got, want)
	}
}

func TestPreview(t *testing.T) {
	short := "A short joke."
	if got := preview(short); got != short {
		t.Errorf("preview(%q) = %q, want unchanged", short, got)
	}

	long := "This is a deliberately long joke text that keeps going well past the cutoff point."
	got := preview(long)
	if len([]rune(got)) != 53 {
		t.Errorf("preview length = %d runes, want 53", len([]rune(got)))
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("preview should end with ellipsis, got %q", got)
	}
}

func TestDerefID(t *testing.T) {
	if derefID(&models.Joke{}) != 0 {
		t.Error("Nil public id should deref to 0")
	}
	id := int64(3)
	if derefID(&models.Joke{PublicID: &id}) != 3 {
		t.Error("Public id should deref to its value")
	}
}
