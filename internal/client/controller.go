package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pharmagarde/pharmagarde/internal/domain/establishment"
	"github.com/pharmagarde/pharmagarde/internal/geo"
)

// ErrNoCachedData is reported when the client is offline and no snapshot
// was ever saved.
var ErrNoCachedData = errors.New("offline and no cached data")

type State int

const (
	StateLoading State = iota
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Source int

const (
	SourceLive Source = iota
	SourceSnapshot
	SourceNone
)

// Decision is the outcome of a fetch attempt.
type Decision struct {
	Source Source
	// Persist is set when a live result must replace the snapshot.
	Persist bool
	Err     error
}

// Decide picks where the list comes from after a fetch. Only an offline
// client falls back to the snapshot; an online failure is surfaced as is.
func Decide(online bool, fetchErr error, hasSnapshot bool) Decision {
	switch {
	case fetchErr == nil:
		return Decision{Source: SourceLive, Persist: online}
	case !online && hasSnapshot:
		return Decision{Source: SourceSnapshot}
	case !online:
		return Decision{Source: SourceNone, Err: ErrNoCachedData}
	default:
		return Decision{Source: SourceNone, Err: fmt.Errorf("communication error: %w", fetchErr)}
	}
}

// Fetcher loads the establishment list from the server.
type Fetcher interface {
	ListEstablishments(ctx context.Context, p ListParams) ([]byte, []*establishment.Establishment, error)
}

// SnapshotSlot persists the last good list.
type SnapshotSlot interface {
	Save(ctx context.Context, payload []byte, at time.Time) error
	Load(ctx context.Context) (*Snapshot, error)
}

// View is a consistent copy of the controller state.
type View struct {
	State       State
	Items       []*establishment.Establishment
	Stale       bool
	LastUpdated time.Time
	Err         error
}

type Controller struct {
	api   Fetcher
	slot  SnapshotSlot
	conn  Connectivity
	now   func() time.Time
	onErr func(error)

	mu          sync.Mutex
	state       State
	items       []*establishment.Establishment
	stale       bool
	lastUpdated time.Time
	err         error
	near        *geo.Coordinates
	radiusKm    float64
}

// NewController starts in the Loading state with no coordinates.
func NewController(api Fetcher, slot SnapshotSlot, conn Connectivity, radiusKm float64) *Controller {
	return &Controller{
		api:      api,
		slot:     slot,
		conn:     conn,
		now:      time.Now,
		onErr:    func(error) {},
		state:    StateLoading,
		radiusKm: radiusKm,
	}
}

// OnPersistError installs a callback for snapshot write failures, which
// never fail a reload.
func (c *Controller) OnPersistError(fn func(error)) {
	c.onErr = fn
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]*establishment.Establishment, len(c.items))
	copy(items, c.items)
	return View{State: c.state, Items: items, Stale: c.stale, LastUpdated: c.lastUpdated, Err: c.err}
}

// Reload fetches the list and applies Decide. The returned error is the
// one stored in the view.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.err = nil
	params := ListParams{Near: c.near, RadiusKm: c.radiusKm}
	c.mu.Unlock()

	raw, items, fetchErr := c.api.ListEstablishments(ctx, params)
	online := c.conn.Online(ctx)

	var snap *Snapshot
	if fetchErr != nil && !online {
		var err error
		if snap, err = c.slot.Load(ctx); err != nil {
			return c.fail(fmt.Errorf("read cache: %w", err))
		}
	}

	d := Decide(online, fetchErr, snap != nil)
	switch d.Source {
	case SourceLive:
		var saved time.Time
		if d.Persist {
			at := c.now()
			if err := c.slot.Save(ctx, raw, at); err != nil {
				c.onErr(err)
			} else {
				saved = at
			}
		}
		c.mu.Lock()
		c.items = items
		c.stale = false
		if !saved.IsZero() {
			c.lastUpdated = saved
		}
		c.state = StateLoaded
		c.mu.Unlock()
		return nil

	case SourceSnapshot:
		cached, err := DecodeEstablishments(snap.Payload)
		if err != nil {
			return c.fail(fmt.Errorf("read cache: %w", err))
		}
		c.mu.Lock()
		c.items = cached
		c.stale = true
		c.lastUpdated = snap.LastUpdated
		c.state = StateLoaded
		c.mu.Unlock()
		return nil
	}
	return c.fail(d.Err)
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateError
	c.err = err
	return err
}

// SetCoordinates reloads when the requester position changes. nil clears it.
func (c *Controller) SetCoordinates(ctx context.Context, near *geo.Coordinates) error {
	c.mu.Lock()
	same := (near == nil && c.near == nil) || (near != nil && c.near != nil && *near == *c.near)
	if !same {
		if near != nil {
			p := *near
			c.near = &p
		} else {
			c.near = nil
		}
	}
	c.mu.Unlock()
	if same {
		return nil
	}
	return c.Reload(ctx)
}

// SetRadius reloads when the search radius changes.
func (c *Controller) SetRadius(ctx context.Context, km float64) error {
	c.mu.Lock()
	changed := c.radiusKm != km
	c.radiusKm = km
	c.mu.Unlock()
	if !changed {
		return nil
	}
	return c.Reload(ctx)
}

// AddPendingReview shows rv on its establishment before the server has
// confirmed it. The next successful reload replaces it with server data.
// It reports false when the establishment is not in the current list.
func (c *Controller) AddPendingReview(rv *establishment.Review) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.items {
		if e.ID != rv.EstablishmentID {
			continue
		}
		cp := *e
		cp.Reviews = append([]*establishment.Review{rv}, e.Reviews...)
		sum := 0
		for _, r := range cp.Reviews {
			sum += r.Rating
		}
		cp.AvgRating = float64(sum) / float64(len(cp.Reviews))
		c.items[i] = &cp
		return true
	}
	return false
}
