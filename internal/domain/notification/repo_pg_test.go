package notification

import (
	"context"
	"testing"

	"github.com/pharmagarde/pharmagarde/internal/platform/db/dbtest"
)

func TestSubscriptionRepoPG_UpsertIsIdempotent(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewSubscriptionRepoPG(pool)
	ctx := context.Background()

	first := &Subscription{Endpoint: "https://fcm.googleapis.com/fcm/send/abc", P256dh: "BNcR", Auth: "tBHI"}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	again := &Subscription{Endpoint: first.Endpoint, P256dh: "other", Auth: "other"}
	if err := repo.Upsert(ctx, again); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM push_subscriptions WHERE endpoint = $1`, first.Endpoint).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected exactly one row, got %d", rows)
	}

	subs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 1 || subs[0].P256dh != "BNcR" || subs[0].Auth != "tBHI" {
		t.Errorf("expected the first registration to be kept, got %+v", subs)
	}
	if subs[0].ID == 0 || subs[0].CreatedAt.IsZero() {
		t.Errorf("expected id and created_at, got %+v", subs[0])
	}
}

func TestSubscriptionRepoPG_ListOrderedByID(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewSubscriptionRepoPG(pool)
	ctx := context.Background()

	endpoints := []string{"https://push.example/c", "https://push.example/a", "https://push.example/b"}
	for _, ep := range endpoints {
		if err := repo.Upsert(ctx, &Subscription{Endpoint: ep, P256dh: "p", Auth: "a"}); err != nil {
			t.Fatalf("Upsert(%s): %v", ep, err)
		}
	}

	subs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != len(endpoints) {
		t.Fatalf("got %d subscriptions, want %d", len(subs), len(endpoints))
	}
	for i, ep := range endpoints {
		if subs[i].Endpoint != ep {
			t.Errorf("position %d: %s, want %s", i, subs[i].Endpoint, ep)
		}
	}
}

func TestSubscriptionRepoPG_DeleteByEndpoint(t *testing.T) {
	pool := dbtest.NewPool(t)
	repo := NewSubscriptionRepoPG(pool)
	ctx := context.Background()

	if err := repo.Upsert(ctx, &Subscription{Endpoint: "https://push.example/a", P256dh: "p", Auth: "a"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	deleted, err := repo.DeleteByEndpoint(ctx, "https://push.example/a")
	if err != nil || !deleted {
		t.Fatalf("DeleteByEndpoint = %v, %v; want true, nil", deleted, err)
	}
	deleted, err = repo.DeleteByEndpoint(ctx, "https://push.example/a")
	if err != nil || deleted {
		t.Errorf("second DeleteByEndpoint = %v, %v; want false, nil", deleted, err)
	}

	subs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected no subscriptions, got %+v", subs)
	}
}

// Subscribing twice through the service leaves one row in the table.
func TestService_SubscribeTwice_PG(t *testing.T) {
	pool := dbtest.NewPool(t)
	svc := NewService(NewSubscriptionRepoPG(pool), "k")
	ctx := context.Background()

	req := &SubscribeRequest{Endpoint: " https://push.example/a "}
	req.Keys.P256dh = "p"
	req.Keys.Auth = "a"
	for i := 0; i < 2; i++ {
		sub, err := req.Validate()
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if err := svc.Subscribe(ctx, sub); err != nil {
			t.Fatalf("Subscribe #%d: %v", i+1, err)
		}
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM push_subscriptions`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected one row, got %d", rows)
	}

	if err := svc.Unsubscribe(ctx, "https://push.example/a\n"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM push_subscriptions`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Errorf("expected the subscription removed, %d row(s) left", rows)
	}
}
