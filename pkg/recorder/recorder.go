// Package recorder captures a live input pattern into an event log, using the
// push listener when it works and a position poller when it does not.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/clock"
	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/events"
)

// DefaultPollInterval samples at 50 Hz.
const DefaultPollInterval = 20 * time.Millisecond

// Strategy names how a recording was captured.
type Strategy string

const (
	StrategyPush Strategy = "push"
	StrategyPoll Strategy = "poll"
)

// Options configures a Recorder.
type Options struct {
	Duration     time.Duration
	Countdown    time.Duration
	TrackKeys    bool
	PollInterval time.Duration
	Clock        clock.Clock
	Logger       zerolog.Logger
	// OnCountdown is called once per second of countdown with the seconds left.
	OnCountdown func(secondsLeft int)
}

// Result is a finished recording.
type Result struct {
	Log      *eventlog.Log
	Strategy Strategy
	// Fallback explains why polling was used, empty for push captures.
	Fallback string
}

// Recorder captures patterns from a push source, falling back to polling dev.
type Recorder struct {
	source events.Source
	dev    device.Output
	opts   Options
	clock  clock.Clock
}

// New builds a recorder. source may be nil, in which case polling is used.
func New(source events.Source, dev device.Output, opts Options) *Recorder {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Recorder{source: source, dev: dev, opts: opts, clock: clock.OrReal(opts.Clock)}
}

// Record counts down, then captures for the configured duration. A recording
// with no events returns an empty log and no error; callers treat that as
// "no pattern available".
func (r *Recorder) Record(ctx context.Context) (Result, error) {
	if r.opts.Duration <= 0 {
		return Result{}, errors.New("record duration must be positive")
	}
	logger := r.opts.Logger
	if err := r.countdown(ctx); err != nil {
		return Result{}, err
	}

	logger.Info().Dur("duration", r.opts.Duration).Bool("keys", r.opts.TrackKeys).Msg("recording pattern")

	var fallback string
	if r.source != nil {
		captured, err := r.capturePush(ctx)
		switch {
		case ctx.Err() != nil:
			return Result{}, ctx.Err()
		case err != nil:
			fallback = err.Error()
			logger.Warn().Err(err).Msg("push capture failed; falling back to polling")
		case captured.Empty():
			fallback = "push capture recorded no events"
			logger.Warn().Msg("push capture recorded no events; falling back to polling")
		default:
			logger.Info().Int("events", captured.Len()).Msg("recording complete")
			return Result{Log: captured, Strategy: StrategyPush}, nil
		}
	} else {
		fallback = "no push source"
	}

	if r.dev == nil {
		return Result{}, fmt.Errorf("polling fallback: %w", events.ErrCaptureUnavailable)
	}
	if _, ok := r.dev.(device.ButtonStater); !ok {
		logger.Warn().Msg("button state polling unsupported; only pointer moves are recorded")
	}
	if r.opts.TrackKeys {
		logger.Warn().Msg("key capture unavailable while polling; keys are not recorded")
	}
	polled, err := r.capturePoll(ctx)
	if err != nil {
		return Result{}, err
	}
	logger.Info().Int("events", polled.Len()).Msg("recording complete")
	return Result{Log: polled, Strategy: StrategyPoll, Fallback: fallback}, nil
}

func (r *Recorder) countdown(ctx context.Context) error {
	seconds := int(r.opts.Countdown / time.Second)
	for left := seconds; left > 0; left-- {
		if r.opts.OnCountdown != nil {
			r.opts.OnCountdown(left)
		}
		r.opts.Logger.Info().Int("seconds", left).Msg("recording starts soon")
		if err := r.clock.Sleep(ctx, time.Second); err != nil {
			return err
		}
	}
	return nil
}

// capturePush streams the source until the duration passes, the source ends
// or an event stamped past the duration arrives.
func (r *Recorder) capturePush(ctx context.Context) (*eventlog.Log, error) {
	pushCtx, cancel := context.WithTimeout(ctx, r.opts.Duration)
	defer cancel()

	b := newBuilder(r.clock.Now(), r.opts.TrackKeys)
	errDone := errors.New("recording window elapsed")
	err := r.source.Stream(pushCtx, func(raw events.Raw) error {
		if raw.When.Sub(b.start) > r.opts.Duration {
			return errDone
		}
		b.add(raw)
		return nil
	})
	switch {
	case err == nil, errors.Is(err, errDone):
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
	default:
		return nil, err
	}
	return b.log()
}

// capturePoll samples the pointer and, when supported, the button state.
func (r *Recorder) capturePoll(ctx context.Context) (*eventlog.Log, error) {
	start := r.clock.Now()
	b := newBuilder(start, false)

	// The first sample is the baseline; only later changes are recorded.
	lastX, lastY := r.dev.Position()
	lastButtons, trackButtons := device.ButtonsOf(r.dev)
	for {
		now := r.clock.Now()
		if now.Sub(start) >= r.opts.Duration {
			break
		}
		x, y := r.dev.Position()
		if x != lastX || y != lastY {
			b.add(events.Raw{Kind: events.KindMove, X: x, Y: y, When: now})
			lastX, lastY = x, y
		}
		if trackButtons {
			if buttons, ok := device.ButtonsOf(r.dev); ok {
				for _, button := range eventlog.Buttons {
					if buttons[button] == lastButtons[button] {
						continue
					}
					kind := events.KindButtonUp
					if buttons[button] {
						kind = events.KindButtonDown
					}
					b.add(events.Raw{Kind: kind, X: x, Y: y, Button: button, When: now})
				}
				lastButtons = buttons
			}
		}
		if err := r.clock.Sleep(ctx, r.opts.PollInterval); err != nil {
			return nil, err
		}
	}
	return b.log()
}

// builder turns raw edges into log events with start-relative, non-decreasing
// timestamps, dropping repeated key presses from auto-repeat.
type builder struct {
	start     time.Time
	trackKeys bool
	pressed   map[eventlog.Key]bool
	events    []eventlog.Event
	lastT     float64
}

func newBuilder(start time.Time, trackKeys bool) *builder {
	return &builder{start: start, trackKeys: trackKeys, pressed: map[eventlog.Key]bool{}}
}

func (b *builder) add(raw events.Raw) {
	t := raw.When.Sub(b.start).Seconds()
	if t < b.lastT {
		t = b.lastT
	}

	var ev eventlog.Event
	switch raw.Kind {
	case events.KindMove:
		ev = eventlog.Move(raw.X, raw.Y, t)
	case events.KindButtonDown, events.KindButtonUp:
		ev = eventlog.Click(raw.X, raw.Y, raw.Button, raw.Kind == events.KindButtonDown, t)
	case events.KindKeyDown:
		if !b.trackKeys || raw.Key.IsZero() || b.pressed[raw.Key] {
			return
		}
		b.pressed[raw.Key] = true
		ev = eventlog.KeyEdge(raw.Key, true, t)
	case events.KindKeyUp:
		if !b.trackKeys || raw.Key.IsZero() {
			return
		}
		delete(b.pressed, raw.Key)
		ev = eventlog.KeyEdge(raw.Key, false, t)
	default:
		return
	}
	b.lastT = t
	b.events = append(b.events, ev)
}

func (b *builder) log() (*eventlog.Log, error) {
	return eventlog.New(b.events)
}
