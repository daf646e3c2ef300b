// Package sender is the single send primitive shared by the broadcast
// scheduler, the outbound queue consumer, and interactive handlers: one
// message, a fixed number of attempts, a fixed delay between them.
package sender

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"jester-bot/internal/config"
	"jester-bot/pkg/logger"
)

// Transport delivers a single message to a chat.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Sender struct {
	transport   Transport
	maxAttempts int
	delay       time.Duration

	// sleep is swapped in tests for a fake clock.
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(transport Transport, cfg config.SenderConfig) *Sender {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Sender{
		transport:   transport,
		maxAttempts: maxAttempts,
		delay:       cfg.RetryDelay,
		sleep:       sleepCtx,
	}
}

// Send transmits text to chatID and reports whether delivery was confirmed.
// Transient failures are retried up to the attempt limit; any other failure
// aborts immediately. After exhaustion the message is dropped, there is no
// dead-letter queue.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) bool {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.transport.SendMessage(ctx, chatID, text)
		if err == nil {
			logger.Debug("Message sent",
				logger.Int64("chat_id", chatID),
				logger.Int("attempt", attempt),
			)
			return true
		}

		if !transient(err) {
			logger.Error("Send failed with non-retryable error",
				logger.Int64("chat_id", chatID),
				logger.Err(err),
			)
			return false
		}

		logger.Warn("Transient send failure",
			logger.Int64("chat_id", chatID),
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", s.maxAttempts),
			logger.Err(err),
		)
		if attempt < s.maxAttempts {
			if !s.sleep(ctx, s.delay) {
				return false
			}
		}
	}

	logger.Error("Message dropped after retries",
		logger.Int64("chat_id", chatID),
		logger.Int("attempts", s.maxAttempts),
	)
	return false
}

// transient reports whether err looks like a network hiccup or rate limit
// worth retrying.
func transient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"timeout",
		"connection refused",
		"connection reset",
		"Too Many Requests",
		"retry after",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
