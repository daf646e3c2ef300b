package jokes

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubscribeUser(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	if err := repo.SubscribeUser(ctx, 100); err != nil {
		t.Fatalf("SubscribeUser failed: %v", err)
	}
	if err := repo.SubscribeUser(ctx, 200); err != nil {
		t.Fatalf("SubscribeUser failed: %v", err)
	}
	// already subscribed, must be a no-op
	if err := repo.SubscribeUser(ctx, 100); err != nil {
		t.Fatalf("Repeated SubscribeUser failed: %v", err)
	}

	subs := repo.Subscribers(ctx)
	if len(subs) != 2 || subs[0] != 100 || subs[1] != 200 {
		t.Errorf("Subscribers = %v, want [100 200]", subs)
	}
}

func TestUnsubscribeUser(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	repo.SubscribeUser(ctx, 100)
	if err := repo.UnsubscribeUser(ctx, 100); err != nil {
		t.Fatalf("UnsubscribeUser failed: %v", err)
	}
	if err := repo.UnsubscribeUser(ctx, 100); err != nil {
		t.Fatalf("Unsubscribing twice should be a no-op: %v", err)
	}
	if subs := repo.Subscribers(ctx); len(subs) != 0 {
		t.Errorf("Subscribers = %v, want empty", subs)
	}
}

func TestSubscribeGroup(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	if err := repo.SubscribeGroup(ctx, -100, "Joke Fans"); err != nil {
		t.Fatalf("SubscribeGroup failed: %v", err)
	}
	if err := repo.SubscribeGroup(ctx, -200, ""); err != nil {
		t.Fatalf("SubscribeGroup failed: %v", err)
	}

	groups := repo.SubscribedGroups(ctx)
	if len(groups) != 2 {
		t.Fatalf("SubscribedGroups = %d entries, want 2", len(groups))
	}
	if groups[-100].Name != "Joke Fans" {
		t.Errorf("Group name = %q, want %q", groups[-100].Name, "Joke Fans")
	}
	if groups[-200].Name != "Group -200" {
		t.Errorf("Fallback group name = %q, want %q", groups[-200].Name, "Group -200")
	}
	if groups[-100].LastBroadcastAt != nil {
		t.Error("Fresh subscription should have no broadcast time")
	}
}

func TestResubscribeGroupResetsGate(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	repo.SubscribeGroup(ctx, -100, "Joke Fans")
	if err := repo.TouchGroupBroadcast(ctx, -100, time.Now()); err != nil {
		t.Fatalf("TouchGroupBroadcast failed: %v", err)
	}
	if repo.SubscribedGroups(ctx)[-100].LastBroadcastAt == nil {
		t.Fatal("Touch should set the broadcast time")
	}

	repo.SubscribeGroup(ctx, -100, "Joke Fans")
	if repo.SubscribedGroups(ctx)[-100].LastBroadcastAt != nil {
		t.Error("Re-subscribing should reset the broadcast gate")
	}
}

func TestUnsubscribeGroup(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	repo.SubscribeGroup(ctx, -100, "Joke Fans")
	if err := repo.UnsubscribeGroup(ctx, -100); err != nil {
		t.Fatalf("UnsubscribeGroup failed: %v", err)
	}
	if len(repo.SubscribedGroups(ctx)) != 0 {
		t.Error("Unsubscribed group should not be listed")
	}
}

func TestTouchGroupBroadcast(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	repo.SubscribeGroup(ctx, -100, "Joke Fans")
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.TouchGroupBroadcast(ctx, -100, at); err != nil {
		t.Fatalf("TouchGroupBroadcast failed: %v", err)
	}

	group := repo.SubscribedGroups(ctx)[-100]
	if group.LastBroadcastAt == nil || !group.LastBroadcastAt.Equal(at) {
		t.Errorf("LastBroadcastAt = %v, want %v", group.LastBroadcastAt, at)
	}
	if !group.Subscribed || group.Name != "Joke Fans" {
		t.Error("Touch must not clobber the rest of the group record")
	}

	if err := repo.TouchGroupBroadcast(ctx, -999, at); err == nil {
		t.Error("Touching an unknown group should fail")
	}
}

func TestSubscriptionMutationsSurfaceStoreErrors(t *testing.T) {
	repo, st := newTestRepo()
	ctx := context.Background()
	st.Fail(errors.New("offline"))

	if err := repo.SubscribeUser(ctx, 100); err == nil {
		t.Error("SubscribeUser should surface store errors")
	}
	if err := repo.SubscribeGroup(ctx, -100, "x"); err == nil {
		t.Error("SubscribeGroup should surface store errors")
	}
	if groups := repo.SubscribedGroups(ctx); len(groups) != 0 {
		t.Errorf("SubscribedGroups during outage = %v, want empty", groups)
	}
}
