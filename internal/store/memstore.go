package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Mem is an in-process Store used by tests and store-less development runs.
// It honors the same contract as Postgres, including merge-on-update and
// idempotent deletes.
type Mem struct {
	mu      sync.RWMutex
	nodes   map[string]json.RawMessage
	failErr error
}

func NewMem() *Mem {
	return &Mem{nodes: make(map[string]json.RawMessage)}
}

// Fail makes every subsequent operation return err; Fail(nil) restores
// normal behavior.
func (m *Mem) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

func (m *Mem) failing() error {
	if m.failErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, m.failErr)
}

func (m *Mem) Get(_ context.Context, path string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failing(); err != nil {
		return nil, err
	}
	value, ok := m.nodes[path]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), value...), nil
}

func (m *Mem) Children(_ context.Context, path string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failing(); err != nil {
		return nil, err
	}
	prefix := path + "/"
	children := make(map[string]json.RawMessage)
	for nodePath, value := range m.nodes {
		if !strings.HasPrefix(nodePath, prefix) {
			continue
		}
		key := strings.TrimPrefix(nodePath, prefix)
		if strings.Contains(key, "/") {
			continue
		}
		children[key] = append(json.RawMessage(nil), value...)
	}
	return children, nil
}

func (m *Mem) Set(_ context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %q: %w", path, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing(); err != nil {
		return err
	}
	m.nodes[path] = data
	return nil
}

func (m *Mem) Update(_ context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing(); err != nil {
		return err
	}
	current, ok := m.nodes[path]
	if !ok {
		return fmt.Errorf("update %q: %w", path, ErrNotFound)
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(current, &merged); err != nil {
		return fmt.Errorf("update %q: existing node is not an object: %w", path, err)
	}
	for name, value := range fields {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal field %q for %q: %w", name, path, err)
		}
		merged[name] = data
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("update %q: %w", path, err)
	}
	m.nodes[path] = data
	return nil
}

func (m *Mem) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing(); err != nil {
		return err
	}
	delete(m.nodes, path)
	return nil
}

func (m *Mem) Push(ctx context.Context, path string, value any) (string, error) {
	key := newKey()
	if err := m.Set(ctx, path+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}
