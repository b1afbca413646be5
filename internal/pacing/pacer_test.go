package pacing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitSkipsFirstCall(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	p := New(300*time.Millisecond, WithSleeper(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}

	if len(slept) != 3 {
		t.Fatalf("expected 3 sleeps, got %d", len(slept))
	}
	for _, d := range slept {
		if d != 300*time.Millisecond {
			t.Fatalf("unexpected sleep duration %v", d)
		}
	}
}

func TestResetStartsNewChain(t *testing.T) {
	t.Parallel()

	calls := 0
	p := New(time.Second, WithSleeper(func(_ context.Context, _ time.Duration) error {
		calls++
		return nil
	}))

	ctx := context.Background()
	_ = p.Wait(ctx)
	_ = p.Wait(ctx)
	p.Reset()
	_ = p.Wait(ctx)

	if calls != 1 {
		t.Fatalf("expected 1 sleep across reset boundary, got %d", calls)
	}
}

func TestWaitPropagatesCancellation(t *testing.T) {
	t.Parallel()

	p := New(time.Second, WithSleeper(func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = p.Wait(ctx) // first call is free
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
