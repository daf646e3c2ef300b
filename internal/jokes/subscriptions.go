package jokes

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"jester-bot/internal/models"
	"jester-bot/pkg/logger"
)

const (
	subscribersPath = "subscribers"
	groupsPath      = "groups"
)

// SubscribeUser adds userID to the broadcast recipient set. Subscribing an
// already-subscribed user is a no-op.
func (r *Repository) SubscribeUser(ctx context.Context, userID int64) error {
	path := subscribersPath + "/" + strconv.FormatInt(userID, 10)
	if err := r.st.Set(ctx, path, true); err != nil {
		return fmt.Errorf("subscribe user %d: %w", userID, err)
	}
	return nil
}

func (r *Repository) UnsubscribeUser(ctx context.Context, userID int64) error {
	path := subscribersPath + "/" + strconv.FormatInt(userID, 10)
	if err := r.st.Delete(ctx, path); err != nil {
		return fmt.Errorf("unsubscribe user %d: %w", userID, err)
	}
	return nil
}

// Subscribers returns the current user recipient set. Store failures degrade
// to an empty list so a broadcast tick simply sends nothing.
func (r *Repository) Subscribers(ctx context.Context) []int64 {
	children, err := r.st.Children(ctx, subscribersPath)
	if err != nil {
		logger.Error("Failed to list subscribers", logger.Err(err))
		return nil
	}
	ids := make([]int64, 0, len(children))
	for key := range children {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warn("Skipping malformed subscriber key", logger.String("key", key))
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })
	return ids
}

// SubscribeGroup records a group subscription. Re-subscribing resets the
// record, including the broadcast gate.
func (r *Repository) SubscribeGroup(ctx context.Context, chatID int64, name string) error {
	if name == "" {
		name = fmt.Sprintf("Group %d", chatID)
	}
	path := groupsPath + "/" + strconv.FormatInt(chatID, 10)
	group := models.Group{
		Subscribed:      true,
		Name:            name,
		LastBroadcastAt: nil,
	}
	if err := r.st.Set(ctx, path, group); err != nil {
		return fmt.Errorf("subscribe group %d: %w", chatID, err)
	}
	return nil
}

func (r *Repository) UnsubscribeGroup(ctx context.Context, chatID int64) error {
	path := groupsPath + "/" + strconv.FormatInt(chatID, 10)
	if err := r.st.Delete(ctx, path); err != nil {
		return fmt.Errorf("unsubscribe group %d: %w", chatID, err)
	}
	return nil
}

// SubscribedGroups returns all groups with an active subscription, keyed by
// chat id. Degrades to empty on store failure.
func (r *Repository) SubscribedGroups(ctx context.Context) map[int64]models.Group {
	children, err := r.st.Children(ctx, groupsPath)
	if err != nil {
		logger.Error("Failed to list subscribed groups", logger.Err(err))
		return nil
	}
	groups := make(map[int64]models.Group)
	for key, raw := range children {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warn("Skipping malformed group key", logger.String("key", key))
			continue
		}
		var group models.Group
		if err := json.Unmarshal(raw, &group); err != nil {
			logger.Warn("Skipping malformed group record",
				logger.String("key", key),
				logger.Err(err),
			)
			continue
		}
		if !group.Subscribed {
			continue
		}
		groups[chatID] = group
	}
	return groups
}

// TouchGroupBroadcast persists the time of a confirmed group delivery, the
// gate the group track checks before sending again.
func (r *Repository) TouchGroupBroadcast(ctx context.Context, chatID int64, at time.Time) error {
	path := groupsPath + "/" + strconv.FormatInt(chatID, 10)
	err := r.st.Update(ctx, path, map[string]any{
		"last_joke_time": at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("touch group %d: %w", chatID, err)
	}
	return nil
}
