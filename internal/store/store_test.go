package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMemGetAbsent(t *testing.T) {
	m := NewMem()
	value, err := m.Get(context.Background(), "jokes/missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != nil {
		t.Errorf("Expected nil for absent node, got %s", value)
	}
}

func TestMemSetGet(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	if err := m.Set(ctx, "approved_counter", 42); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, err := m.Get(ctx, "approved_counter")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var value int64
	if err := json.Unmarshal(raw, &value); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if value != 42 {
		t.Errorf("value = %d, want 42", value)
	}
}

func TestMemUpdateMergesFields(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	if err := m.Set(ctx, "jokes/k1", map[string]any{"text": "hi", "approved": false}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.Update(ctx, "jokes/k1", map[string]any{"approved": true, "joke_id": 7}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	raw, err := m.Get(ctx, "jokes/k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var node map[string]any
	if err := json.Unmarshal(raw, &node); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if node["text"] != "hi" {
		t.Errorf("text = %v, want hi (merge must keep untouched fields)", node["text"])
	}
	if node["approved"] != true {
		t.Errorf("approved = %v, want true", node["approved"])
	}
	if node["joke_id"] != float64(7) {
		t.Errorf("joke_id = %v, want 7", node["joke_id"])
	}
}

func TestMemUpdateAbsentNode(t *testing.T) {
	m := NewMem()
	err := m.Update(context.Background(), "jokes/nope", map[string]any{"approved": true})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemDeleteIdempotent(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	if err := m.Set(ctx, "subscribers/1", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.Delete(ctx, "subscribers/1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := m.Delete(ctx, "subscribers/1"); err != nil {
		t.Errorf("Second delete should be a no-op, got %v", err)
	}
}

func TestMemChildren(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	m.Set(ctx, "jokes/a", map[string]any{"text": "one"})
	m.Set(ctx, "jokes/b", map[string]any{"text": "two"})
	m.Set(ctx, "groups/1", map[string]any{"subscribed": true})

	children, err := m.Children(ctx, "jokes")
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(children))
	}
	if _, ok := children["a"]; !ok {
		t.Error("Missing child 'a'")
	}
	if _, ok := children["b"]; !ok {
		t.Error("Missing child 'b'")
	}
}

func TestMemPushGeneratesUniqueKeys(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := m.Push(ctx, "jokes", map[string]any{"n": i})
		if err != nil {
			t.Fatalf("Push failed: %v", err)
		}
		if key == "" {
			t.Fatal("Push returned empty key")
		}
		if seen[key] {
			t.Fatalf("Duplicate push key %q", key)
		}
		seen[key] = true
	}

	children, err := m.Children(ctx, "jokes")
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(children) != 100 {
		t.Errorf("Expected 100 children, got %d", len(children))
	}
}

func TestMemFail(t *testing.T) {
	m := NewMem()
	ctx := context.Background()
	m.Set(ctx, "jokes/a", map[string]any{"text": "one"})

	m.Fail(errors.New("network down"))
	if _, err := m.Get(ctx, "jokes/a"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	if _, err := m.Children(ctx, "jokes"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}

	m.Fail(nil)
	if _, err := m.Get(ctx, "jokes/a"); err != nil {
		t.Errorf("Expected recovery after Fail(nil), got %v", err)
	}
}

func TestConnectionError(t *testing.T) {
	baseErr := errors.New("connection refused")
	err := &ConnectionError{
		Host: "localhost",
		Port: 5432,
		Err:  baseErr,
	}

	if err.Error() == "" {
		t.Error("Expected error message")
	}
	if !errors.Is(err, baseErr) {
		t.Error("Expected underlying error to be unwrapped")
	}
}
