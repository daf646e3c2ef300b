package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jester-bot/internal/bot"
	"jester-bot/internal/config"
	"jester-bot/internal/jokes"
	"jester-bot/internal/moderation"
	"jester-bot/internal/queue"
	"jester-bot/internal/recency"
	"jester-bot/internal/scheduler"
	"jester-bot/internal/sender"
	"jester-bot/internal/store"
	"jester-bot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrEmptyBotToken) {
			fmt.Fprintln(os.Stderr, "Error: BOT_TOKEN environment variable is required")
		} else if errors.Is(err, config.ErrEmptyDBPassword) {
			fmt.Fprintln(os.Stderr, "Error: DB_PASSWORD environment variable is required")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		}
		os.Exit(1)
	}

	logger.Init(cfg.App.LogLevel, nil)
	logger.Info("Starting jester-bot",
		logger.String("app", cfg.App.Name),
		logger.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.NewPostgres(ctx, cfg.Database)
	if err != nil {
		var connErr *store.ConnectionError
		if errors.As(err, &connErr) {
			logger.Error("Failed to connect to database",
				logger.Err(connErr),
				logger.String("host", cfg.Database.Host),
				logger.Int("port", cfg.Database.Port),
			)
		} else {
			logger.Error("Failed to connect to database", logger.Err(err))
		}
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("Connected to database")

	var q *queue.NATS
	if cfg.NATS.URL != "" {
		q, err = queue.New(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", logger.Err(err))
			os.Exit(1)
		}
		defer q.Close()
		logger.Info("Connected to NATS", logger.String("url", cfg.NATS.URL))
	} else {
		logger.Info("NATS not configured, sending messages directly")
	}

	repo := jokes.NewRepository(st)
	cache := recency.NewCache()
	mod := moderation.NewManager(repo)

	telegramBot, err := bot.New(cfg.Bot, cfg.Jokes, repo, mod, cache, q)
	if err != nil {
		logger.Error("Failed to create bot", logger.Err(err))
		os.Exit(1)
	}

	tbot, err := telegramBot.Start()
	if err != nil {
		logger.Error("Failed to start bot", logger.Err(err))
		os.Exit(1)
	}
	logger.Info("Telegram bot started")

	snd := sender.New(bot.NewTransport(tbot, cfg.Bot.ParseMode), cfg.Sender)
	go telegramBot.ConsumeOutbound(ctx, snd)

	var sched *scheduler.Scheduler
	if cfg.Broadcast.Enabled {
		sched = scheduler.New(cfg.Broadcast, repo, cache, snd)
		sched.Start(ctx)
	} else {
		logger.Info("Broadcast scheduler disabled")
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc(cfg.Health.Endpoint, func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: healthMux,
	}

	go func() {
		logger.Info("Health server starting", logger.Int("port", cfg.Health.Port))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", logger.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	if sched != nil {
		sched.Stop()
	}
	cancel()
	tbot.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", logger.Err(err))
	}

	logger.Info("Bot stopped gracefully")
}
