// Package alarm fires a notification on a fixed cadence, independently of the
// replay loop.
package alarm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/clock"
)

// MaxSleepChunk bounds how long the scheduler sleeps before re-checking for
// cancellation.
const MaxSleepChunk = time.Minute

// Notifier performs the "alert now" action.
type Notifier interface {
	Notify(ctx context.Context) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context) error {
	if f == nil {
		return errors.New("alarm notifier not configured")
	}
	return f(ctx)
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	// Countdown logs the minutes left before each alarm.
	Countdown bool
	Clock     clock.Clock
	Logger    zerolog.Logger
	// OnFire is called after every notification attempt with its error, if any.
	OnFire func(err error)
}

// Scheduler owns the alarm state: interval, last-fired time and the
// notification action.
type Scheduler struct {
	notifier Notifier
	opts     Options
	clock    clock.Clock

	mu        sync.Mutex
	lastFired time.Time
	fired     int
}

// New builds a scheduler. It does nothing when run with a non-positive interval.
func New(notifier Notifier, opts Options) *Scheduler {
	return &Scheduler{notifier: notifier, opts: opts, clock: clock.OrReal(opts.Clock)}
}

// Enabled reports whether the scheduler has an interval to run on.
func (s *Scheduler) Enabled() bool { return s.opts.Interval > 0 }

// Run fires the notifier at every interval boundary until ctx is done.
// Notification failures are logged and never stop the loop. Run returns nil
// on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	interval := s.opts.Interval
	logger := s.opts.Logger
	logger.Info().Dur("interval", interval).Msg("alarm scheduler started")

	next := s.clock.Now().Add(interval)
	for {
		wait := next.Sub(s.clock.Now())
		if err := clock.SleepChunked(ctx, s.clock, wait, MaxSleepChunk, s.countdown); err != nil {
			logger.Debug().Msg("alarm scheduler stopped")
			return nil
		}

		err := s.notifier.Notify(ctx)
		if err != nil && ctx.Err() != nil {
			return nil
		}
		s.record(err)
		if ctx.Err() != nil {
			return nil
		}

		// Boundaries stay on the original cadence. A slow notification skips
		// boundaries that already passed instead of firing back to back.
		next = next.Add(interval)
		for now := s.clock.Now(); !next.After(now); {
			next = next.Add(interval)
		}
	}
}

func (s *Scheduler) countdown(remaining time.Duration) {
	if !s.opts.Countdown || remaining < time.Minute {
		return
	}
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	s.opts.Logger.Info().Int("minutes", minutes).Msg("alarm countdown")
}

func (s *Scheduler) record(err error) {
	now := s.clock.Now()
	s.mu.Lock()
	s.lastFired = now
	s.fired++
	s.mu.Unlock()

	if err != nil {
		s.opts.Logger.Warn().Err(err).Msg("alarm notification failed")
	} else {
		s.opts.Logger.Info().Time("at", now).Msg("alarm fired")
	}
	if s.opts.OnFire != nil {
		s.opts.OnFire(err)
	}
}

// LastFired returns when the notifier was last invoked.
func (s *Scheduler) LastFired() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFired
}

// Fired returns how many times the notifier was invoked.
func (s *Scheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
