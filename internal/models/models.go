package models

import "time"

// Joke is a single submission as stored under jokes/<key>. PublicID is nil
// until the joke passes moderation; the two fields change together exactly
// once, when an admin approves the record.
type Joke struct {
	Text        string     `json:"text"`
	SubmitterID int64      `json:"user_id"`
	Approved    bool       `json:"approved"`
	PublicID    *int64     `json:"joke_id"`
	CreatedAt   time.Time  `json:"created_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

// Group is a group-chat subscription record stored under groups/<chat_id>.
// LastBroadcastAt gates scheduled sends independently of the scheduler's own
// cadence.
type Group struct {
	Subscribed      bool       `json:"subscribed"`
	Name            string     `json:"name"`
	LastBroadcastAt *time.Time `json:"last_joke_time"`
}
