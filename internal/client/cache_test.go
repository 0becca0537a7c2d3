package client

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotStore_EmptyLoad(t *testing.T) {
	s, err := OpenSnapshotStore(context.Background(), filepath.Join(t.TempDir(), "garde.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Errorf("expected no snapshot, got %+v", snap)
	}
}

func TestSnapshotStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "garde.db")
	s, err := OpenSnapshotStore(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	first := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	if err := s.Save(ctx, []byte(`[{"id":1}]`), first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, []byte(`[{"id":2}]`), second); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	reopened, err := OpenSnapshotStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	snap, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(snap.Payload) != `[{"id":2}]` {
		t.Errorf("expected latest payload, got %s", snap.Payload)
	}
	if !snap.LastUpdated.Equal(second) {
		t.Errorf("expected %v, got %v", second, snap.LastUpdated)
	}
}
