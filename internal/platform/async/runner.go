// Package async runs detached background tasks with bounded concurrency.
package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Go after Shutdown has been called.
var ErrClosed = errors.New("runner is shut down")

// Runner executes tasks on their own goroutines. At most workers tasks run
// at once; Go never blocks the caller. Task contexts are detached from the
// submitter and cancelled only when Shutdown gives up waiting.
type Runner struct {
	logger  zerolog.Logger
	sem     chan struct{}
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Runner. A zero timeout means tasks run until they return or
// the runner is shut down.
func New(logger zerolog.Logger, workers int, timeout time.Duration) *Runner {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		logger:  logger.With().Str("component", "async").Logger(),
		sem:     make(chan struct{}, workers),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Go schedules fn. Errors and panics are logged under name.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn().Str("task", name).Msg("task rejected, runner is shut down")
		return ErrClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()

		select {
		case r.sem <- struct{}{}:
		case <-r.ctx.Done():
			r.logger.Warn().Str("task", name).Msg("task dropped before start")
			return
		}
		defer func() { <-r.sem }()

		r.run(name, fn)
	}()
	return nil
}

func (r *Runner) run(name string, fn func(ctx context.Context) error) {
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().Str("task", name).Str("panic", fmt.Sprintf("%v", rec)).Msg("task panicked")
		}
	}()

	if err := fn(ctx); err != nil {
		r.logger.Warn().Err(err).Str("task", name).Dur("elapsed", time.Since(start)).Msg("task failed")
		return
	}
	r.logger.Debug().Str("task", name).Dur("elapsed", time.Since(start)).Msg("task done")
}

// Shutdown stops accepting tasks and waits for running ones. If ctx expires
// first, outstanding tasks are cancelled and ctx's error is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
