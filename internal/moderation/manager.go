// Package moderation drives per-admin review sessions over the pending joke
// queue: one item on screen at a time, approve/reject/skip/end actions, and
// automatic advance to the next pending item.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"jester-bot/internal/jokes"
	"jester-bot/internal/models"
)

var (
	// ErrNoActiveSession is returned when an action arrives for an admin
	// with no moderation in progress; nothing is mutated.
	ErrNoActiveSession = errors.New("no active moderation session")

	// ErrStaleSession is returned when the item on screen was removed
	// out-of-band, typically by another admin. The session is cleared.
	ErrStaleSession = errors.New("moderation session is stale")
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeAwaitingDeleteID
	ModeModerating
)

type Action int

const (
	ActionApprove Action = iota
	ActionReject
	ActionSkip
	ActionEnd
)

// Repo is the slice of the joke repository the state machine needs.
type Repo interface {
	NextUnapproved(ctx context.Context, skip map[string]bool) (string, *models.Joke)
	Approve(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Item is a pending joke as shown to an admin.
type Item struct {
	Key  string
	Joke *models.Joke
}

// Outcome reports what an action did and what is on screen next. Next is nil
// when the queue drained (QueueEmpty) or the session ended.
type Outcome struct {
	ApprovedID int64
	Rejected   bool
	Skipped    bool
	Ended      bool
	QueueEmpty bool
	Next       *Item
}

type session struct {
	mode        Mode
	currentKey  string
	currentJoke *models.Joke

	// skipped rotates items to the back of this session's queue only; no
	// durable skip marker exists, so a later session sees them again.
	skipped map[string]bool
}

// Manager holds one session per admin id. Sessions for different admins are
// independent; two admins may be shown the same pending item, and the loser
// of that race gets ErrStaleSession.
type Manager struct {
	mu       sync.Mutex
	repo     Repo
	sessions map[int64]*session
}

func NewManager(repo Repo) *Manager {
	return &Manager{
		repo:     repo,
		sessions: make(map[int64]*session),
	}
}

// Start begins (or restarts) a moderation session. A nil item means the
// queue is clear and no session was opened.
func (m *Manager) Start(ctx context.Context, adminID int64) *Item {
	key, joke := m.repo.NextUnapproved(ctx, nil)

	m.mu.Lock()
	defer m.mu.Unlock()
	if key == "" {
		delete(m.sessions, adminID)
		return nil
	}
	m.sessions[adminID] = &session{
		mode:        ModeModerating,
		currentKey:  key,
		currentJoke: joke,
		skipped:     make(map[string]bool),
	}
	return &Item{Key: key, Joke: joke}
}

// Resume points an existing or new session at a specific pending item, used
// when an admin jumps in from a submission notification.
func (m *Manager) Resume(adminID int64, key string, joke *models.Joke) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[adminID] = &session{
		mode:        ModeModerating,
		currentKey:  key,
		currentJoke: joke,
		skipped:     make(map[string]bool),
	}
}

// Act applies one moderation action to the admin's current item and, except
// for End, advances to the next pending item.
func (m *Manager) Act(ctx context.Context, adminID int64, action Action) (*Outcome, error) {
	m.mu.Lock()
	sess := m.sessions[adminID]
	if sess == nil || sess.mode != ModeModerating {
		m.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	currentKey := sess.currentKey
	m.mu.Unlock()

	outcome := &Outcome{}

	switch action {
	case ActionEnd:
		m.clear(adminID)
		outcome.Ended = true
		return outcome, nil

	case ActionApprove:
		id, err := m.repo.Approve(ctx, currentKey)
		if err != nil {
			return nil, m.actionFailed(adminID, err)
		}
		outcome.ApprovedID = id

	case ActionReject:
		if err := m.repo.Delete(ctx, currentKey); err != nil {
			return nil, m.actionFailed(adminID, err)
		}
		outcome.Rejected = true

	case ActionSkip:
		m.mu.Lock()
		sess.skipped[currentKey] = true
		m.mu.Unlock()
		outcome.Skipped = true

	default:
		return nil, fmt.Errorf("unknown moderation action %d", action)
	}

	m.advance(ctx, adminID, sess, outcome)
	return outcome, nil
}

// advance fetches the next pending item for the session, wrapping the
// skip rotation when only skipped items remain.
func (m *Manager) advance(ctx context.Context, adminID int64, sess *session, outcome *Outcome) {
	m.mu.Lock()
	skipped := make(map[string]bool, len(sess.skipped))
	for k := range sess.skipped {
		skipped[k] = true
	}
	m.mu.Unlock()

	key, joke := m.repo.NextUnapproved(ctx, skipped)
	if key == "" && len(skipped) > 0 {
		m.mu.Lock()
		sess.skipped = make(map[string]bool)
		m.mu.Unlock()
		key, joke = m.repo.NextUnapproved(ctx, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if key == "" {
		delete(m.sessions, adminID)
		outcome.QueueEmpty = true
		return
	}
	sess.currentKey = key
	sess.currentJoke = joke
	outcome.Next = &Item{Key: key, Joke: joke}
}

// actionFailed maps a mutation failure: a vanished item clears the session
// and becomes ErrStaleSession, anything else keeps the session so the admin
// can retry.
func (m *Manager) actionFailed(adminID int64, err error) error {
	if errors.Is(err, jokes.ErrNotFound) {
		m.clear(adminID)
		return ErrStaleSession
	}
	return err
}

// BeginDelete puts the admin into the delete-by-id flow, replacing any
// moderation in progress.
func (m *Manager) BeginDelete(adminID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[adminID] = &session{mode: ModeAwaitingDeleteID}
}

// Mode reports the admin's current session mode.
func (m *Manager) Mode(adminID int64) Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.sessions[adminID]
	if sess == nil {
		return ModeIdle
	}
	return sess.mode
}

// Clear drops the admin's session, whatever its mode.
func (m *Manager) Clear(adminID int64) {
	m.clear(adminID)
}

func (m *Manager) clear(adminID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, adminID)
}
