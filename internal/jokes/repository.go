package jokes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"jester-bot/internal/models"
	"jester-bot/internal/store"
	"jester-bot/pkg/logger"
)

const (
	jokesPath   = "jokes"
	counterPath = "approved_counter"
)

var (
	ErrNotFound  = errors.New("joke not found")
	ErrDuplicate = errors.New("joke already exists")
	ErrNoJokes   = errors.New("no approved jokes available")
)

// Repository implements the joke domain over a tree store. Read paths
// degrade to empty results when the store is unreachable; mutations surface
// their errors.
type Repository struct {
	st store.Store

	// approveMu serializes the counter-read, counter-write, record-update
	// sequence. The store has no atomic increment, so without this two
	// concurrent approvals could assign the same public id.
	approveMu sync.Mutex

	now  func() time.Time
	intN func(n int) int
}

func NewRepository(st store.Store) *Repository {
	return &Repository{
		st:   st,
		now:  time.Now,
		intN: rand.IntN,
	}
}

// Normalize lowercases text and collapses runs of whitespace, the form used
// for duplicate detection.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Submit stores a new unapproved joke and returns its storage key. Returns
// ErrDuplicate when another joke normalizes to the same text. Length checks
// belong to the caller.
func (r *Repository) Submit(ctx context.Context, text string, submitterID int64) (string, error) {
	text = strings.TrimSpace(text)
	normalized := Normalize(text)

	all, err := r.st.Children(ctx, jokesPath)
	if err != nil {
		return "", fmt.Errorf("scan for duplicates: %w", err)
	}
	for key, raw := range all {
		existing, ok := decodeJoke(key, raw)
		if !ok {
			continue
		}
		if Normalize(existing.Text) == normalized {
			return "", ErrDuplicate
		}
	}

	key, err := r.st.Push(ctx, jokesPath, models.Joke{
		Text:        text,
		SubmitterID: submitterID,
		Approved:    false,
		PublicID:    nil,
		CreatedAt:   r.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("add joke: %w", err)
	}
	return key, nil
}

// Approve assigns the next public id to the joke at key and marks it
// approved. The id comes from the shared counter; assignments are strictly
// increasing in approval order.
func (r *Repository) Approve(ctx context.Context, key string) (int64, error) {
	r.approveMu.Lock()
	defer r.approveMu.Unlock()

	raw, err := r.st.Get(ctx, jokesPath+"/"+key)
	if err != nil {
		return 0, fmt.Errorf("approve %s: %w", key, err)
	}
	if raw == nil {
		return 0, ErrNotFound
	}

	current, err := r.counter(ctx)
	if err != nil {
		return 0, fmt.Errorf("approve %s: %w", key, err)
	}
	next := current + 1
	if err := r.st.Set(ctx, counterPath, next); err != nil {
		return 0, fmt.Errorf("approve %s: %w", key, err)
	}

	err = r.st.Update(ctx, jokesPath+"/"+key, map[string]any{
		"approved":    true,
		"joke_id":     next,
		"approved_at": r.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("approve %s: %w", key, err)
	}
	return next, nil
}

// Delete removes the joke at key, approved or not. Used for both moderation
// rejects and admin hard deletes.
func (r *Repository) Delete(ctx context.Context, key string) error {
	raw, err := r.st.Get(ctx, jokesPath+"/"+key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if raw == nil {
		return ErrNotFound
	}
	if err := r.st.Delete(ctx, jokesPath+"/"+key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PickRandom returns a uniformly random approved joke. When excludeID is
// non-nil, that joke is filtered out first; if the filter would empty the
// candidate set the exclusion is dropped so a lone approved joke can still
// be served. Returns ErrNoJokes when no approved joke exists or the store is
// unreachable.
func (r *Repository) PickRandom(ctx context.Context, excludeID *int64) (*models.Joke, error) {
	all, err := r.st.Children(ctx, jokesPath)
	if err != nil {
		logger.Error("Failed to list jokes for random pick", logger.Err(err))
		return nil, ErrNoJokes
	}

	var approved []*models.Joke
	for key, raw := range all {
		j, ok := decodeJoke(key, raw)
		if !ok || !j.Approved {
			continue
		}
		approved = append(approved, j)
	}
	if len(approved) == 0 {
		return nil, ErrNoJokes
	}

	candidates := approved
	if excludeID != nil {
		var filtered []*models.Joke
		for _, j := range approved {
			if j.PublicID != nil && *j.PublicID == *excludeID {
				continue
			}
			filtered = append(filtered, j)
		}
		if len(filtered) > 0 {
			candidates = filtered
		} else {
			logger.Warn("No jokes left after exclusion, picking from full set",
				logger.Int64("exclude_id", *excludeID),
			)
		}
	}

	return candidates[r.intN(len(candidates))], nil
}

// NextUnapproved returns the oldest pending joke not listed in skip, or
// ("", nil) when the queue is drained. Store failures degrade to an empty
// queue.
func (r *Repository) NextUnapproved(ctx context.Context, skip map[string]bool) (string, *models.Joke) {
	all, err := r.st.Children(ctx, jokesPath)
	if err != nil {
		logger.Error("Failed to list jokes for moderation", logger.Err(err))
		return "", nil
	}

	type pending struct {
		key  string
		joke *models.Joke
	}
	var queue []pending
	for key, raw := range all {
		if skip[key] {
			continue
		}
		j, ok := decodeJoke(key, raw)
		if !ok || j.Approved {
			continue
		}
		queue = append(queue, pending{key: key, joke: j})
	}
	if len(queue) == 0 {
		return "", nil
	}
	sort.Slice(queue, func(i, k int) bool {
		if queue[i].joke.CreatedAt.Equal(queue[k].joke.CreatedAt) {
			return queue[i].key < queue[k].key
		}
		return queue[i].joke.CreatedAt.Before(queue[k].joke.CreatedAt)
	})
	return queue[0].key, queue[0].joke
}

// FindByID locates an approved joke by its public id.
func (r *Repository) FindByID(ctx context.Context, publicID int64) (string, *models.Joke) {
	all, err := r.st.Children(ctx, jokesPath)
	if err != nil {
		logger.Error("Failed to list jokes for id lookup", logger.Err(err))
		return "", nil
	}
	for key, raw := range all {
		j, ok := decodeJoke(key, raw)
		if !ok {
			continue
		}
		if j.PublicID != nil && *j.PublicID == publicID {
			return key, j
		}
	}
	return "", nil
}

// FindByKey returns the joke at a storage key, or nil when absent.
func (r *Repository) FindByKey(ctx context.Context, key string) *models.Joke {
	raw, err := r.st.Get(ctx, jokesPath+"/"+key)
	if err != nil {
		logger.Error("Failed to get joke by key", logger.String("key", key), logger.Err(err))
		return nil
	}
	if raw == nil {
		return nil
	}
	j, ok := decodeJoke(key, raw)
	if !ok {
		return nil
	}
	return j
}

type UserJoke struct {
	Key  string
	Joke *models.Joke
}

// ListByUser returns a user's jokes ordered by submission time.
func (r *Repository) ListByUser(ctx context.Context, userID int64, onlyApproved bool) []UserJoke {
	all, err := r.st.Children(ctx, jokesPath)
	if err != nil {
		logger.Error("Failed to list user jokes", logger.Int64("user_id", userID), logger.Err(err))
		return nil
	}
	var out []UserJoke
	for key, raw := range all {
		j, ok := decodeJoke(key, raw)
		if !ok || j.SubmitterID != userID {
			continue
		}
		if onlyApproved && !j.Approved {
			continue
		}
		out = append(out, UserJoke{Key: key, Joke: j})
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].Joke.CreatedAt.Before(out[k].Joke.CreatedAt)
	})
	return out
}

// CountApproved counts jokes that passed moderation.
func (r *Repository) CountApproved(ctx context.Context) int {
	approved, _, _ := r.countJokes(ctx)
	return approved
}

// CountTotal counts all jokes including pending ones.
func (r *Repository) CountTotal(ctx context.Context) int {
	_, total, _ := r.countJokes(ctx)
	return total
}

// CountUnapproved counts jokes waiting for moderation.
func (r *Repository) CountUnapproved(ctx context.Context) int {
	approved, total, _ := r.countJokes(ctx)
	return total - approved
}

// LastAssignedID reads the approval counter; ids never outlive it, so this
// is also the highest public id ever assigned.
func (r *Repository) LastAssignedID(ctx context.Context) int64 {
	id, err := r.counter(ctx)
	if err != nil {
		logger.Error("Failed to read approval counter", logger.Err(err))
		return 0
	}
	return id
}

func (r *Repository) countJokes(ctx context.Context) (approved, total int, err error) {
	all, err := r.st.Children(ctx, jokesPath)
	if err != nil {
		logger.Error("Failed to count jokes", logger.Err(err))
		return 0, 0, err
	}
	for key, raw := range all {
		j, ok := decodeJoke(key, raw)
		if !ok {
			continue
		}
		total++
		if j.Approved {
			approved++
		}
	}
	return approved, total, nil
}

func (r *Repository) counter(ctx context.Context) (int64, error) {
	raw, err := r.st.Get(ctx, counterPath)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	var value int64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("decode approval counter: %w", err)
	}
	return value, nil
}

func decodeJoke(key string, raw json.RawMessage) (*models.Joke, bool) {
	var j models.Joke
	if err := json.Unmarshal(raw, &j); err != nil {
		logger.Warn("Skipping malformed joke record",
			logger.String("key", key),
			logger.Err(err),
		)
		return nil, false
	}
	return &j, true
}
