// Package pacing provides fixed-interval pacing for sequential chains of
// outbound requests. The sleeper is injectable so tests can observe waits
// without real delays.
package pacing

import (
	"context"
	"time"
)

// Sleeper blocks for d or until ctx is cancelled.
type Sleeper func(ctx context.Context, d time.Duration) error

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer enforces a fixed delay between consecutive Wait calls. The first
// call returns immediately. Pacer is used from a single goroutine per
// chain and is not safe for concurrent use.
type Pacer struct {
	interval time.Duration
	sleep    Sleeper
	started  bool
}

// Option adjusts Pacer construction.
type Option func(*Pacer)

// WithSleeper substitutes the blocking function, used by tests.
func WithSleeper(s Sleeper) Option {
	return func(p *Pacer) { p.sleep = s }
}

// New builds a pacer with the given inter-call interval.
func New(interval time.Duration, opts ...Option) *Pacer {
	p := &Pacer{interval: interval, sleep: realSleep}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait blocks for the configured interval, except on the first call of the
// chain. Cancellation is returned as the context error.
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.started {
		p.started = true
		return nil
	}
	if p.interval <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, p.interval)
}

// Reset starts a new chain; the next Wait returns immediately.
func (p *Pacer) Reset() {
	p.started = false
}
