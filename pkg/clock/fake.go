package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a virtual clock whose Sleep advances time instantly.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	slept   time.Duration
	onSleep []func(now time.Time)
}

// NewFake returns a fake clock positioned at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the virtual time by d and runs the registered hooks.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	if d > 0 {
		f.now = f.now.Add(d)
		f.slept += d
	}
	now := f.now
	hooks := append([]func(time.Time){}, f.onSleep...)
	f.mu.Unlock()

	for _, hook := range hooks {
		hook(now)
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}

// Advance moves the virtual time forward without running hooks.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Slept reports the total virtual time spent sleeping.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}

// OnSleep registers a hook invoked after every Sleep with the new time.
func (f *Fake) OnSleep(hook func(now time.Time)) {
	f.mu.Lock()
	f.onSleep = append(f.onSleep, hook)
	f.mu.Unlock()
}
