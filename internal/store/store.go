package store

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable marks any store operation that failed to reach the
	// backend. Callers are expected to treat every call as independently
	// fallible.
	ErrUnavailable = errors.New("content store unavailable")

	// ErrNotFound is returned by Update when the addressed node does not
	// exist.
	ErrNotFound = errors.New("node not found")
)

// Store is a tree-shaped key-value collaborator addressed by slash-separated
// paths (jokes/<key>, approved_counter, subscribers/<id>, groups/<id>).
// Individual operations are atomic in isolation; multi-step sequences are
// not, and the store offers no read-modify-write primitive.
type Store interface {
	// Get returns the raw value at path, or nil when the node is absent.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Children returns the direct children of path keyed by child name.
	Children(ctx context.Context, path string) (map[string]json.RawMessage, error)
	// Set writes value at path, creating or replacing the node.
	Set(ctx context.Context, path string, value any) error
	// Update merges fields into the object stored at path.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Delete removes the node at path; deleting an absent node is a no-op.
	Delete(ctx context.Context, path string) error
	// Push creates a child of path under a fresh generated key.
	Push(ctx context.Context, path string, value any) (string, error)
}

// newKey generates push keys that sort by creation time, with a random
// suffix to keep collisions out of tight loops.
func newKey() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		binary.BigEndian.PutUint64(b[:], uint64(time.Now().UnixNano()))
	}
	return fmt.Sprintf("%012x-%016x", time.Now().UnixMilli(), binary.BigEndian.Uint64(b[:]))
}

func unavailable(op, path string, err error) error {
	return fmt.Errorf("store %s %q: %w: %w", op, path, ErrUnavailable, err)
}
