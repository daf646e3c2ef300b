// Package scheduler runs the two periodic broadcast tracks: one for user
// subscribers, one for group chats, each on its own interval. Picks avoid
// each recipient's last-delivered joke, sends go through a bounded worker
// pool, and the group track enforces a persisted per-group rate gate on top
// of its own cadence.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jester-bot/internal/config"
	"jester-bot/internal/models"
	"jester-bot/internal/recency"
	"jester-bot/pkg/logger"
)

// Repo is the slice of the joke repository the scheduler consumes.
type Repo interface {
	PickRandom(ctx context.Context, excludeID *int64) (*models.Joke, error)
	Subscribers(ctx context.Context) []int64
	SubscribedGroups(ctx context.Context) map[int64]models.Group
	TouchGroupBroadcast(ctx context.Context, chatID int64, at time.Time) error
}

// Sender delivers one message, retries included, reporting confirmation.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) bool
}

type job struct {
	chatID int64
	text   string

	// onSent runs after a confirmed delivery; the group track uses it to
	// persist the rate-gate timestamp.
	onSent func(ctx context.Context)
}

type Scheduler struct {
	cfg    config.BroadcastConfig
	repo   Repo
	cache  *recency.Cache
	sender Sender
	now    func() time.Time

	jobs     chan job
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(cfg config.BroadcastConfig, repo Repo, cache *recency.Cache, sender Sender) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Scheduler{
		cfg:    cfg,
		repo:   repo,
		cache:  cache,
		sender: sender,
		now:    time.Now,
		jobs:   make(chan job, cfg.Workers*2),
		stopCh: make(chan struct{}),
	}
}

// Start launches the send workers and both track loops. The loops run until
// Stop or ctx cancellation; a failed batch never terminates them.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	s.wg.Add(2)
	go s.track(ctx, "user", s.cfg.UserInterval, s.userBatch)
	go s.track(ctx, "group", s.cfg.GroupInterval, s.groupBatch)

	logger.Info("Broadcast scheduler started",
		logger.Duration("user_interval", s.cfg.UserInterval),
		logger.Duration("group_interval", s.cfg.GroupInterval),
		logger.Int("workers", s.cfg.Workers),
	)
}

// Stop is idempotent. It prevents new batches from starting and waits for
// in-flight sends to drain; queued-but-unstarted jobs are discarded.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	logger.Info("Broadcast scheduler stopped")
}

// track sleeps for the interval, then runs one batch. The next sleep starts
// only after the batch finishes, so the effective period is sleep plus batch
// duration; drift is accepted.
func (s *Scheduler) track(ctx context.Context, name string, interval time.Duration, batch func(ctx context.Context) error) {
	defer s.wg.Done()
	for {
		logger.Info("Next broadcast batch scheduled",
			logger.String("track", name),
			logger.Duration("in", interval),
		)
		if !s.sleep(ctx, interval) {
			return
		}
		if err := s.runBatch(ctx, batch); err != nil {
			logger.Error("Broadcast batch failed",
				logger.String("track", name),
				logger.Err(err),
			)
			if !s.sleep(ctx, s.cfg.ErrorBackoff) {
				return
			}
		}
	}
}

func (s *Scheduler) runBatch(ctx context.Context, batch func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch panic: %v", r)
		}
	}()
	return batch(ctx)
}

func (s *Scheduler) userBatch(ctx context.Context) error {
	subscribers := s.repo.Subscribers(ctx)
	if len(subscribers) == 0 {
		logger.Info("No subscribers for broadcast")
		return nil
	}
	logger.Info("Broadcasting jokes to users", logger.Int("count", len(subscribers)))

	for _, userID := range subscribers {
		joke := s.pickFor(ctx, userID)
		if joke == nil {
			continue
		}
		if !s.dispatch(ctx, job{chatID: userID, text: formatUserBroadcast(joke)}) {
			return nil
		}
	}
	return nil
}

func (s *Scheduler) groupBatch(ctx context.Context) error {
	groups := s.repo.SubscribedGroups(ctx)
	if len(groups) == 0 {
		logger.Info("No groups subscribed for broadcast")
		return nil
	}
	now := s.now()
	logger.Info("Broadcasting jokes to groups", logger.Int("count", len(groups)))

	for chatID, group := range groups {
		// Persisted gate, independent of this loop's own cadence: a group
		// served recently is skipped before any pick happens.
		if group.LastBroadcastAt != nil && now.Sub(*group.LastBroadcastAt) < s.cfg.GroupInterval {
			logger.Debug("Skipping group inside rate gate", logger.Int64("chat_id", chatID))
			continue
		}

		joke := s.pickFor(ctx, chatID)
		if joke == nil {
			continue
		}

		chatID := chatID
		sent := job{
			chatID: chatID,
			text:   formatGroupBroadcast(joke),
			onSent: func(ctx context.Context) {
				if err := s.repo.TouchGroupBroadcast(ctx, chatID, now); err != nil {
					logger.Error("Failed to persist group broadcast time",
						logger.Int64("chat_id", chatID),
						logger.Err(err),
					)
				}
			},
		}
		if !s.dispatch(ctx, sent) {
			return nil
		}
	}
	return nil
}

// pickFor chooses a joke for one recipient, excluding their last-delivered
// id. The cache is updated before the send is confirmed; it is a hint, and
// inconsistency after a failed send is tolerated.
func (s *Scheduler) pickFor(ctx context.Context, chatID int64) *models.Joke {
	var exclude *int64
	if last, ok := s.cache.Last(chatID); ok {
		exclude = &last
	}
	joke, err := s.repo.PickRandom(ctx, exclude)
	if err != nil {
		logger.Warn("No jokes available for broadcast", logger.Int64("chat_id", chatID))
		return nil
	}
	if joke.PublicID != nil {
		s.cache.Remember(chatID, *joke.PublicID)
	}
	return joke
}

// dispatch hands a job to the worker pool. Blocks while the pool is
// saturated; returns false when a stop arrived instead.
func (s *Scheduler) dispatch(ctx context.Context, j job) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	case s.jobs <- j:
		return true
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		// fast-exit so stop wins over queued work
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case j := <-s.jobs:
			if s.sender.Send(ctx, j.chatID, j.text) && j.onSent != nil {
				j.onSent(ctx)
			}
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	case <-t.C:
		return true
	}
}

func formatUserBroadcast(j *models.Joke) string {
	return fmt.Sprintf("🎲 *Random joke of the day!*\n\n📜 Joke #%d\n\n%s", publicID(j), j.Text)
}

func formatGroupBroadcast(j *models.Joke) string {
	return fmt.Sprintf("🎲 *Random joke!*\n\n📜 Joke #%d\n\n%s", publicID(j), j.Text)
}

func publicID(j *models.Joke) int64 {
	if j.PublicID == nil {
		return 0
	}
	return *j.PublicID
}
