// Package clock provides the time source shared by the recorder, replay engine,
// activity monitor and alarm scheduler. Every wait goes through Sleep so that a
// cancelled context is honoured immediately and tests can run on virtual time.
package clock

import (
	"context"
	"time"
)

// Clock reports the current time and performs interruptible sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

// Now returns time.Now.
func (Real) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done, whichever comes first.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OrReal returns c, or the wall clock when c is nil.
func OrReal(c Clock) Clock {
	if c == nil {
		return Real{}
	}
	return c
}

// SleepChunked sleeps for total in slices of at most chunk, calling tick with
// the remaining duration before each slice. A non-positive chunk sleeps in one go.
func SleepChunked(ctx context.Context, c Clock, total, chunk time.Duration, tick func(remaining time.Duration)) error {
	remaining := total
	for remaining > 0 {
		if tick != nil {
			tick(remaining)
		}
		step := remaining
		if chunk > 0 && step > chunk {
			step = chunk
		}
		if err := c.Sleep(ctx, step); err != nil {
			return err
		}
		remaining -= step
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}
