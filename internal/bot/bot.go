package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"jester-bot/internal/config"
	"jester-bot/internal/jokes"
	"jester-bot/internal/moderation"
	"jester-bot/internal/queue"
	"jester-bot/internal/recency"
	"jester-bot/internal/sender"
	"jester-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

type Bot struct {
	cfg      config.BotConfig
	jokesCfg config.JokesConfig
	repo     *jokes.Repository
	mod      *moderation.Manager
	cache    *recency.Cache
	q        *queue.NATS
	tbot     *telebot.Bot
	settings telebot.Settings

	// pendingSubmit tracks users mid add-joke flow; admin flows live in the
	// moderation manager.
	mu            sync.Mutex
	pendingSubmit map[int64]bool
}

func New(cfg config.BotConfig, jokesCfg config.JokesConfig, repo *jokes.Repository, mod *moderation.Manager, cache *recency.Cache, q *queue.NATS) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	return &Bot{
		cfg:           cfg,
		jokesCfg:      jokesCfg,
		repo:          repo,
		mod:           mod,
		cache:         cache,
		q:             q,
		pendingSubmit: make(map[int64]bool),
		settings: telebot.Settings{
			Token:  cfg.Token,
			Poller: &telebot.LongPoller{Timeout: 10},
		},
	}, nil
}

func (b *Bot) Start() (*telebot.Bot, error) {
	tbot, err := telebot.NewBot(b.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.tbot = tbot
	b.setupHandlers(tbot)

	go tbot.Start()

	return tbot, nil
}

func (b *Bot) setupHandlers(bot *telebot.Bot) {
	bot.Handle("/start", b.handleStart)
	bot.Handle("/help", b.handleHelp)
	bot.Handle("/joke", b.handleJokeCommand)
	bot.Handle("/subscribe_group", b.handleSubscribeGroup)
	bot.Handle("/unsubscribe_group", b.handleUnsubscribeGroup)

	bot.Handle(telebot.OnText, func(c telebot.Context) error {
		logger.Info("Incoming text message",
			logger.Int64("user_id", c.Sender().ID),
			logger.String("username", c.Sender().Username),
			logger.String("text", c.Text()),
		)
		return b.handleText(c)
	})

	bot.Handle(&btnModerateInline, b.handleModerateCallback)
	bot.Handle(&btnDeleteInline, b.handleDeleteCallback)

	if err := bot.SetCommands([]telebot.Command{
		{Text: "joke", Description: "Get a random joke"},
		{Text: "subscribe_group", Description: "Subscribe this group to scheduled jokes"},
		{Text: "unsubscribe_group", Description: "Unsubscribe this group"},
		{Text: "help", Description: "Show help"},
	}); err != nil {
		logger.Warn("Failed to register bot commands", logger.Err(err))
	}
}

// handleText routes free-form text: group trigger words, stateful admin
// flows, then the private-chat keyboard buttons.
func (b *Bot) handleText(c telebot.Context) error {
	if isGroupChat(c.Chat()) {
		return b.handleGroupText(c)
	}

	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	if b.cfg.IsAdmin(userID) {
		switch b.mod.Mode(userID) {
		case moderation.ModeModerating:
			if action, ok := moderationAction(text); ok {
				return b.handleModerationAction(c, action)
			}
		case moderation.ModeAwaitingDeleteID:
			return b.handleDeleteByID(c, text)
		}
	}

	if b.inSubmitFlow(userID) {
		return b.handleSubmitText(c, text)
	}

	switch text {
	case btnRandomJoke:
		return b.handleRandomJoke(c)
	case btnAddJoke:
		return b.handleSubmitStart(c)
	case btnMyJokes:
		return b.handleMyJokes(c)
	case btnDeleteMine:
		return b.handleDeleteMineStart(c)
	case btnSubscribe:
		return b.handleSubscribe(c)
	case btnUnsubscribe:
		return b.handleUnsubscribe(c)
	case btnAdminPanel:
		return b.handleAdminPanel(c)
	case btnModeration:
		return b.handleModerationStart(c)
	case btnStats:
		return b.handleStats(c)
	case btnDeleteByID:
		return b.handleDeleteByIDStart(c)
	}

	return b.send(c, "Use the keyboard buttons, or /help for a list of commands.", nil)
}

// send queues plain replies through NATS when available; anything carrying a
// keyboard goes out directly, the queue transports text only.
func (b *Bot) send(c telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	chatID := c.Chat().ID
	if markup == nil && b.q != nil {
		err := b.q.PublishOutbound(context.Background(), &queue.OutboundMessage{
			ChatID: chatID,
			Text:   text,
		})
		if err == nil {
			return nil
		}
		logger.Error("Failed to queue outbound message", logger.Err(err))
	}

	opts := &telebot.SendOptions{ParseMode: b.cfg.ParseMode}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	_, err := b.tbot.Send(&telebot.Chat{ID: chatID}, text, opts)
	return err
}

// ConsumeOutbound drains the outbound queue through the retry sender until
// ctx is cancelled. Messages the sender gives up on go back to the stream
// for redelivery.
func (b *Bot) ConsumeOutbound(ctx context.Context, snd *sender.Sender) {
	if b.q == nil {
		return
	}
	err := b.q.ConsumeOutbound(ctx, func(msg *queue.OutboundMessage) error {
		if !snd.Send(ctx, msg.ChatID, msg.Text) {
			return fmt.Errorf("delivery failed for chat %d", msg.ChatID)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Outbound consumer error", logger.Err(err))
	}
}

func (b *Bot) inSubmitFlow(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pendingSubmit[userID]
}

func (b *Bot) setSubmitFlow(userID int64, active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if active {
		b.pendingSubmit[userID] = true
	} else {
		delete(b.pendingSubmit, userID)
	}
}

func isGroupChat(chat *telebot.Chat) bool {
	return chat.Type == telebot.ChatGroup || chat.Type == telebot.ChatSuperGroup
}
