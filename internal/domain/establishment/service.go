package establishment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pharmagarde/pharmagarde/internal/geo"
)

// Notifier delivers a status payload to every subscriber.
type Notifier interface {
	NotifyAll(ctx context.Context, payload []byte) error
}

// Scheduler runs work detached from the calling request.
type Scheduler interface {
	Go(name string, fn func(ctx context.Context) error) error
}

// ListQuery narrows and orders the establishment list. Every field is
// optional. RadiusKm is only honored together with Near.
type ListQuery struct {
	Near     *geo.Coordinates
	RadiusKm *float64
	Type     *Type
	OnDuty   *bool
	Open24h  *bool
}

func (q ListQuery) matches(e *Establishment) bool {
	if q.Type != nil && e.Type != *q.Type {
		return false
	}
	if q.OnDuty != nil && e.OnDuty != *q.OnDuty {
		return false
	}
	if q.Open24h != nil && e.Open24h != *q.Open24h {
		return false
	}
	return true
}

type Service struct {
	establishments EstablishmentRepository
	reviews        ReviewRepository
	notifier       Notifier
	scheduler      Scheduler
	logger         zerolog.Logger
}

func NewService(establishments EstablishmentRepository, reviews ReviewRepository, notifier Notifier, scheduler Scheduler) *Service {
	return &Service{
		establishments: establishments,
		reviews:        reviews,
		notifier:       notifier,
		scheduler:      scheduler,
		logger:         zerolog.Nop(),
	}
}

// WithLogger sets the logger used for notifications that could not be
// scheduled.
func (s *Service) WithLogger(logger zerolog.Logger) *Service {
	s.logger = logger.With().Str("component", "establishment").Logger()
	return s
}

// ListEstablishments returns every establishment with its reviews and
// average rating. When q.Near is set each entry carries its distance, the
// result is filtered to q.RadiusKm and sorted nearest first; otherwise the
// store order is kept.
func (s *Service) ListEstablishments(ctx context.Context, q ListQuery) ([]*Establishment, error) {
	items, err := s.establishments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list establishments: %w", err)
	}
	all, err := s.reviews.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	byEst, avg := AggregateReviews(all)

	out := make([]*Establishment, 0, len(items))
	for _, e := range items {
		if !q.matches(e) {
			continue
		}
		attachReviews(e, byEst[e.ID], avg[e.ID])
		if q.Near != nil {
			d := q.Near.DistanceTo(e.Coordinates())
			if q.RadiusKm != nil && d > *q.RadiusKm {
				continue
			}
			e.Distance = &d
		}
		out = append(out, e)
	}

	if q.Near != nil {
		SortByDistance(out)
	}
	return out, nil
}

// GetEstablishment returns one establishment with its reviews. Distance is
// set only when near is given.
func (s *Service) GetEstablishment(ctx context.Context, id int64, near *geo.Coordinates) (*Establishment, error) {
	e, err := s.establishments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByEstablishment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	_, avg := AggregateReviews(reviews)
	attachReviews(e, reviews, avg[id])
	if near != nil {
		d := near.DistanceTo(e.Coordinates())
		e.Distance = &d
	}
	return e, nil
}

func attachReviews(e *Establishment, reviews []*Review, avg float64) {
	if reviews == nil {
		reviews = []*Review{}
	}
	e.Reviews = reviews
	e.AvgRating = avg
}

func (s *Service) CreateEstablishment(ctx context.Context, e *Establishment) error {
	if err := s.establishments.Create(ctx, e); err != nil {
		return err
	}
	attachReviews(e, nil, 0)
	e.Distance = nil
	return nil
}

// SetOnDuty persists the duty flag and schedules a notification to every
// subscriber. It returns before delivery starts; delivery failures are only
// logged by the scheduler.
func (s *Service) SetOnDuty(ctx context.Context, id int64, onDuty bool) error {
	e, err := s.establishments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.establishments.SetOnDuty(ctx, id, onDuty); err != nil {
		return err
	}

	payload, err := json.Marshal(NewStatusEvent(e, onDuty))
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}
	if s.notifier == nil || s.scheduler == nil {
		return nil
	}
	// Go only fails once the server is shutting down. The new status is
	// already stored at that point.
	err = s.scheduler.Go(fmt.Sprintf("notify establishment %d status", id), func(ctx context.Context) error {
		return s.notifier.NotifyAll(ctx, payload)
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Int64("establishment_id", id).
			Bool("on_duty", onDuty).
			Msg("status notification dropped")
	}
	return nil
}

// AddReview stores a review written by user on the establishment id.
func (s *Service) AddReview(ctx context.Context, rv *Review) error {
	if _, err := s.establishments.GetByID(ctx, rv.EstablishmentID); err != nil {
		return err
	}
	return s.reviews.Create(ctx, rv)
}
