package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 16

// FanOut delivers a payload to every stored push subscription.
type FanOut struct {
	subs        SubscriptionRepository
	sender      Sender
	logger      zerolog.Logger
	concurrency int
}

func NewFanOut(subs SubscriptionRepository, sender Sender, logger zerolog.Logger, concurrency int) *FanOut {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &FanOut{
		subs:        subs,
		sender:      sender,
		logger:      logger.With().Str("component", "push").Logger(),
		concurrency: concurrency,
	}
}

// NotifyAll runs Deliver and drops the report.
func (f *FanOut) NotifyAll(ctx context.Context, payload []byte) error {
	_, err := f.Deliver(ctx, payload)
	return err
}

// Deliver sends payload to all subscriptions concurrently and waits for
// every attempt. Gone subscriptions are deleted. Individual failures are
// logged and counted; only a failure to load the subscriptions is returned.
func (f *FanOut) Deliver(ctx context.Context, payload []byte) (*Report, error) {
	subs, err := f.subs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load push subscriptions: %w", err)
	}

	var (
		mu     sync.Mutex
		report = &Report{Total: len(subs)}
	)
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for _, s := range subs {
		s := s
		g.Go(func() error {
			err := f.sender.Send(ctx, s, payload)
			switch {
			case err == nil:
				count(&report.Delivered)
			case errors.Is(err, ErrSubscriptionGone):
				if _, derr := f.subs.DeleteByEndpoint(ctx, s.Endpoint); derr != nil {
					f.logger.Error().Err(derr).Str("endpoint", s.Endpoint).Msg("failed to prune push subscription")
				}
				count(&report.Pruned)
			default:
				f.logger.Warn().Err(err).Str("endpoint", s.Endpoint).Msg("push delivery failed")
				count(&report.Failed)
			}
			return nil
		})
	}
	_ = g.Wait()

	f.logger.Info().
		Int("total", report.Total).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Int("pruned", report.Pruned).
		Msg("push fan-out finished")
	return report, nil
}

// Notifier is anything that can broadcast a status payload.
type Notifier interface {
	NotifyAll(ctx context.Context, payload []byte) error
}

type multi []Notifier

// Multi broadcasts to every notifier concurrently and waits for all of them.
// Their errors are joined.
func Multi(notifiers ...Notifier) Notifier {
	var m multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multi) NotifyAll(ctx context.Context, payload []byte) error {
	errs := make([]error, len(m))
	var wg sync.WaitGroup
	for i, n := range m {
		wg.Add(1)
		go func(i int, n Notifier) {
			defer wg.Done()
			errs[i] = n.NotifyAll(ctx, payload)
		}(i, n)
	}
	wg.Wait()
	return errors.Join(errs...)
}
