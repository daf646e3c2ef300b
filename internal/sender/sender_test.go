package sender

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"jester-bot/internal/config"
	"jester-bot/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("error", io.Discard)
	m.Run()
}

type fakeTransport struct {
	errs  []error
	calls int
}

func (f *fakeTransport) SendMessage(_ context.Context, _ int64, _ string) error {
	f.calls++
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func newTestSender(transport Transport) (*Sender, *[]time.Duration) {
	s := New(transport, config.SenderConfig{MaxAttempts: 3, RetryDelay: 2 * time.Second})
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) bool {
		slept = append(slept, d)
		return true
	}
	return s, &slept
}

func TestSendFirstAttempt(t *testing.T) {
	transport := &fakeTransport{}
	s, slept := newTestSender(transport)

	if !s.Send(context.Background(), 1, "hello") {
		t.Error("Send should succeed")
	}
	if transport.calls != 1 {
		t.Errorf("Transport called %d times, want 1", transport.calls)
	}
	if len(*slept) != 0 {
		t.Errorf("Slept %d times, want 0", len(*slept))
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	transport := &fakeTransport{errs: []error{
		errors.New("dial tcp: i/o timeout"),
		errors.New("connection reset by peer"),
	}}
	s, slept := newTestSender(transport)

	if !s.Send(context.Background(), 1, "hello") {
		t.Error("Send should succeed on the third attempt")
	}
	if transport.calls != 3 {
		t.Errorf("Transport called %d times, want 3", transport.calls)
	}
	if len(*slept) != 2 || (*slept)[0] != 2*time.Second || (*slept)[1] != 2*time.Second {
		t.Errorf("Sleeps = %v, want two of 2s", *slept)
	}
}

func TestSendGivesUpAfterMaxAttempts(t *testing.T) {
	transport := &fakeTransport{errs: []error{
		errors.New("timeout"),
		errors.New("timeout"),
		errors.New("timeout"),
	}}
	s, slept := newTestSender(transport)

	if s.Send(context.Background(), 1, "hello") {
		t.Error("Send should report failure after exhausting attempts")
	}
	if transport.calls != 3 {
		t.Errorf("Transport called %d times, want 3", transport.calls)
	}
	if len(*slept) != 2 {
		t.Errorf("Slept %d times, want 2 (no sleep after the last attempt)", len(*slept))
	}
}

func TestSendAbortsOnPermanentError(t *testing.T) {
	transport := &fakeTransport{errs: []error{
		errors.New("Forbidden: bot was blocked by the user"),
	}}
	s, slept := newTestSender(transport)

	if s.Send(context.Background(), 1, "hello") {
		t.Error("Send should fail immediately on a permanent error")
	}
	if transport.calls != 1 {
		t.Errorf("Transport called %d times, want 1", transport.calls)
	}
	if len(*slept) != 0 {
		t.Error("Permanent errors must not be retried")
	}
}

func TestSendStopsWhenContextCanceled(t *testing.T) {
	transport := &fakeTransport{errs: []error{
		errors.New("timeout"),
		errors.New("timeout"),
	}}
	s := New(transport, config.SenderConfig{MaxAttempts: 3, RetryDelay: 2 * time.Second})
	s.sleep = func(_ context.Context, _ time.Duration) bool { return false }

	if s.Send(context.Background(), 1, "hello") {
		t.Error("Send should stop when the retry sleep is interrupted")
	}
	if transport.calls != 1 {
		t.Errorf("Transport called %d times, want 1", transport.calls)
	}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("dial tcp: i/o timeout"), true},
		{errors.New("connection refused"), true},
		{errors.New("telegram: Too Many Requests: retry after 5"), true},
		{errors.New("Forbidden: bot was blocked by the user"), false},
		{errors.New("Bad Request: chat not found"), false},
	}
	for _, tt := range tests {
		if got := transient(tt.err); got != tt.want {
			t.Errorf("transient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestSleepCtxCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Hour) {
		t.Error("sleepCtx should return false on a canceled context")
	}
}
