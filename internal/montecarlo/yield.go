package montecarlo

import (
	"context"
	"runtime"
	"time"
)

// Yielder suspends the batch goroutine at a suspension point.
type Yielder interface {
	Yield(ctx context.Context, d time.Duration) error
}

// YieldFunc adapts a function to Yielder.
type YieldFunc func(ctx context.Context, d time.Duration) error

func (f YieldFunc) Yield(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// SchedulerYielder gives up the processor for a zero delay and sleeps otherwise. It returns
// early with the context error when ctx ends.
type SchedulerYielder struct{}

func (SchedulerYielder) Yield(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
