package client

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pharmagarde/pharmagarde/internal/domain/establishment"
	"github.com/pharmagarde/pharmagarde/internal/geo"
)

type fakeFetcher struct {
	raw    []byte
	err    error
	calls  int
	params []ListParams
}

func (f *fakeFetcher) ListEstablishments(_ context.Context, p ListParams) ([]byte, []*establishment.Establishment, error) {
	f.calls++
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, nil, f.err
	}
	items, err := DecodeEstablishments(f.raw)
	return f.raw, items, err
}

type memorySlot struct {
	snap    *Snapshot
	saveErr error
	saves   int
}

func (m *memorySlot) Save(_ context.Context, payload []byte, at time.Time) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = &Snapshot{Payload: payload, LastUpdated: at}
	return nil
}

func (m *memorySlot) Load(context.Context) (*Snapshot, error) { return m.snap, nil }

const listPayload = `[{"id":1,"name":"Pharmacie du Centre","type":"pharmacy","reviews":[],"avgRating":0,"distance":null},
	{"id":2,"name":"Hôpital Général","type":"hospital","reviews":[{"id":9,"establishmentId":2,"rating":4}],"avgRating":4,"distance":null}]`

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestController(f Fetcher, slot SnapshotSlot, online bool) *Controller {
	c := NewController(f, slot, Static(online), 5)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestDecide(t *testing.T) {
	fetchErr := &ConnectivityError{Err: errors.New("dial tcp: refused")}
	tests := []struct {
		name        string
		online      bool
		err         error
		hasSnapshot bool
		source      Source
		persist     bool
		wantErr     error
	}{
		{"online success", true, nil, false, SourceLive, true, nil},
		{"offline success", false, nil, true, SourceLive, false, nil},
		{"offline with snapshot", false, fetchErr, true, SourceSnapshot, false, nil},
		{"offline without snapshot", false, fetchErr, false, SourceNone, false, ErrNoCachedData},
		{"online failure", true, fetchErr, true, SourceNone, false, fetchErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.online, tt.err, tt.hasSnapshot)
			if d.Source != tt.source || d.Persist != tt.persist {
				t.Errorf("got %+v", d)
			}
			if tt.wantErr == nil && d.Err != nil {
				t.Errorf("unexpected error %v", d.Err)
			}
			if tt.wantErr != nil && !errors.Is(d.Err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, d.Err)
			}
		})
	}
}

func TestController_OnlineReloadPersists(t *testing.T) {
	f := &fakeFetcher{raw: []byte(listPayload)}
	slot := &memorySlot{}
	c := newTestController(f, slot, true)

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := c.View()
	if v.State != StateLoaded || v.Stale || len(v.Items) != 2 {
		t.Errorf("unexpected view %+v", v)
	}
	if slot.saves != 1 || string(slot.snap.Payload) != listPayload {
		t.Error("expected raw payload saved")
	}
	if !v.LastUpdated.Equal(fixedNow) {
		t.Errorf("expected last updated %v, got %v", fixedNow, v.LastUpdated)
	}
}

func TestController_OfflineUsesSnapshot(t *testing.T) {
	saved := fixedNow.Add(-2 * time.Hour)
	slot := &memorySlot{snap: &Snapshot{Payload: []byte(listPayload), LastUpdated: saved}}
	c := newTestController(&fakeFetcher{err: &ConnectivityError{Err: errors.New("no route")}}, slot, false)

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := c.View()
	if v.State != StateLoaded || !v.Stale || len(v.Items) != 2 {
		t.Errorf("unexpected view %+v", v)
	}
	if !v.LastUpdated.Equal(saved) {
		t.Errorf("expected snapshot time, got %v", v.LastUpdated)
	}
	if slot.saves != 0 {
		t.Error("snapshot must not be rewritten while offline")
	}
}

func TestController_OfflineWithoutSnapshot(t *testing.T) {
	c := newTestController(&fakeFetcher{err: &ConnectivityError{Err: errors.New("no route")}}, &memorySlot{}, false)

	err := c.Reload(context.Background())
	if !errors.Is(err, ErrNoCachedData) {
		t.Fatalf("expected ErrNoCachedData, got %v", err)
	}
	if v := c.View(); v.State != StateError || !errors.Is(v.Err, ErrNoCachedData) {
		t.Errorf("unexpected view %+v", v)
	}
}

func TestController_OnlineFailureSkipsCache(t *testing.T) {
	slot := &memorySlot{snap: &Snapshot{Payload: []byte(listPayload)}}
	serverErr := &ServerError{Status: 500, Message: "internal server error"}
	c := newTestController(&fakeFetcher{err: serverErr}, slot, true)

	err := c.Reload(context.Background())
	var se *ServerError
	if !errors.As(err, &se) || se.Status != 500 {
		t.Fatalf("expected server error, got %v", err)
	}
	if v := c.View(); v.State != StateError || len(v.Items) != 0 {
		t.Errorf("expected error state without cached items, got %+v", v)
	}
}

func TestController_PersistFailureStillLoads(t *testing.T) {
	var reported error
	c := newTestController(&fakeFetcher{raw: []byte(listPayload)}, &memorySlot{saveErr: errors.New("disk full")}, true)
	c.OnPersistError(func(err error) { reported = err })

	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.View().State != StateLoaded {
		t.Error("expected loaded state")
	}
	if reported == nil {
		t.Error("expected persist error to be reported")
	}
}

func TestController_SetCoordinatesAndRadius(t *testing.T) {
	f := &fakeFetcher{raw: []byte(listPayload)}
	c := newTestController(f, &memorySlot{}, true)
	ctx := context.Background()

	p := geo.Coordinates{Lat: 4.05, Lon: 9.7}
	c.SetCoordinates(ctx, &p)
	c.SetCoordinates(ctx, &geo.Coordinates{Lat: 4.05, Lon: 9.7})
	if f.calls != 1 {
		t.Fatalf("expected one reload for unchanged coordinates, got %d", f.calls)
	}
	if got := f.params[0]; got.Near == nil || *got.Near != p || got.RadiusKm != 5 {
		t.Errorf("unexpected params %+v", got)
	}

	c.SetRadius(ctx, 5)
	c.SetRadius(ctx, 10)
	if f.calls != 2 || f.params[1].RadiusKm != 10 {
		t.Errorf("expected reload with radius 10, got %d calls", f.calls)
	}
}

func TestController_PendingReviewReplacedOnReload(t *testing.T) {
	f := &fakeFetcher{raw: []byte(listPayload)}
	c := newTestController(f, &memorySlot{}, true)
	ctx := context.Background()
	c.Reload(ctx)

	if !c.AddPendingReview(&establishment.Review{EstablishmentID: 2, Rating: 2, UserName: "Awa"}) {
		t.Fatal("expected establishment 2 to be found")
	}
	e := c.View().Items[1]
	if len(e.Reviews) != 2 || e.Reviews[0].UserName != "Awa" || e.AvgRating != 3 {
		t.Errorf("unexpected optimistic state: %d reviews avg %v", len(e.Reviews), e.AvgRating)
	}
	if c.AddPendingReview(&establishment.Review{EstablishmentID: 42, Rating: 5}) {
		t.Error("expected unknown establishment to be reported")
	}

	c.Reload(ctx)
	if e := c.View().Items[1]; len(e.Reviews) != 1 {
		t.Errorf("expected server list to replace pending review, got %d reviews", len(e.Reviews))
	}
}

func TestController_WithSQLiteSnapshot(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSnapshotStore(ctx, filepath.Join(t.TempDir(), "cache", "garde.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	online := newTestController(&fakeFetcher{raw: []byte(listPayload)}, store, true)
	if err := online.Reload(ctx); err != nil {
		t.Fatalf("online reload: %v", err)
	}

	offline := newTestController(&fakeFetcher{err: &ConnectivityError{Err: errors.New("down")}}, store, false)
	if err := offline.Reload(ctx); err != nil {
		t.Fatalf("offline reload: %v", err)
	}
	v := offline.View()
	if !v.Stale || len(v.Items) != 2 || !v.LastUpdated.Equal(fixedNow) {
		t.Errorf("unexpected offline view %+v", v)
	}
}
