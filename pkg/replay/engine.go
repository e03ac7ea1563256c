// Package replay drives a recorded pattern through an output device with
// randomised timing and geometry, and stops as soon as someone else moves
// the pointer.
package replay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/clock"
	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

// Status is how a replay ended.
type Status int

const (
	Completed Status = iota
	Interrupted
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Interference describes the position mismatch that interrupted a replay.
type Interference struct {
	IntendedX, IntendedY int
	ActualX, ActualY     int
}

// Outcome summarises one replay.
type Outcome struct {
	SessionID string
	Status    Status
	Selected  int
	Total     int
	Transform Transform
	Steps     int
	Started   time.Time
	Finished  time.Time

	// Interference is set when Status is Interrupted.
	Interference *Interference
	// HeldModifiers lists modifier keys pressed during the replay and not
	// yet released. The caller releases them.
	HeldModifiers []eventlog.Key
}

// Engine replays patterns. It is safe to reuse across replays but not for
// concurrent replays on the same device.
type Engine struct {
	opts   Options
	out    device.Output
	clock  clock.Clock
	rand   Rand
	logger zerolog.Logger
}

// Config wires an Engine.
type Config struct {
	Options Options
	Output  device.Output
	Clock   clock.Clock
	Rand    Rand
	Logger  zerolog.Logger
}

// NewEngine validates cfg and builds an engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Output == nil {
		return nil, errors.New("replay: output device is required")
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	r := cfg.Rand
	if r == nil {
		r = NewRand(0)
	}
	return &Engine{
		opts:   cfg.Options,
		out:    cfg.Output,
		clock:  clock.OrReal(cfg.Clock),
		rand:   r,
		logger: cfg.Logger,
	}, nil
}

// Options returns the engine's settings.
func (e *Engine) Options() Options { return e.opts }

// Replay runs one pass over log. Interference checks are skipped while grace
// is active; a nil grace never suppresses them. Cancellation of ctx takes
// priority over every other outcome.
func (e *Engine) Replay(ctx context.Context, log *eventlog.Log, grace *GracePeriod) Outcome {
	s := &session{
		engine: e,
		grace:  grace,
		held:   map[string]eventlog.Key{},
		outcome: Outcome{
			SessionID: uuid.NewString(),
			Total:     log.Len(),
			Transform: Identity,
			Started:   e.clock.Now(),
		},
	}
	s.logger = e.logger.With().Str("session", s.outcome.SessionID).Logger()

	status := s.run(ctx, log)
	if ctx.Err() != nil {
		status = Cancelled
		s.outcome.Interference = nil
	}
	s.outcome.Status = status
	s.outcome.Finished = e.clock.Now()
	s.outcome.HeldModifiers = s.heldModifiers()

	switch status {
	case Completed:
		s.logger.Info().Int("events", s.outcome.Selected).Msg("pattern replay complete")
	case Interrupted:
		s.logger.Warn().Msg("user activity detected; stopping replay")
	case Cancelled:
		s.logger.Info().Msg("replay cancelled")
	}
	return s.outcome
}

type session struct {
	engine  *Engine
	grace   *GracePeriod
	held    map[string]eventlog.Key
	logger  zerolog.Logger
	outcome Outcome
}

// run returns Completed, Interrupted or Cancelled. The ctx check happens
// before each event and inside every sleep.
func (s *session) run(ctx context.Context, log *eventlog.Log) Status {
	if log.Empty() {
		return Completed
	}
	e := s.engine
	selected := SelectPoints(log, e.opts.KeepProbability, e.rand)
	transform := NewTransform(log.Centroid(), e.opts, e.rand)
	s.outcome.Selected = len(selected)
	s.outcome.Transform = transform

	s.logger.Info().
		Int("selected", len(selected)).
		Int("total", log.Len()).
		Bool("transformed", !transform.IsIdentity()).
		Msg("replaying pattern")

	prev := 0.0
	for _, idx := range selected {
		if ctx.Err() != nil {
			return Cancelled
		}
		ev := log.At(idx)

		gap := ev.T - prev
		if gap > 0 {
			gap *= uniform(e.rand, 1-e.opts.TimingJitter, 1+e.opts.TimingJitter)
		}
		wait := time.Duration(gap * float64(time.Second))

		if ev.HasCoords() {
			tx, ty := e.opts.Bounds.Clamp(transform.Apply(ev.X, ev.Y))
			if wait > 0 {
				if status := s.glide(ctx, tx, ty, wait); status != Completed {
					return status
				}
			} else {
				e.out.Move(tx, ty)
			}
		} else if wait > 0 {
			if err := e.clock.Sleep(ctx, wait); err != nil {
				return Cancelled
			}
		}

		switch ev.Kind {
		case eventlog.KindClick:
			s.click(ev)
		case eventlog.KindKey:
			if err := s.key(ctx, ev); err != nil {
				return Cancelled
			}
		}
		prev = ev.T

		if err := s.microPause(ctx); err != nil {
			return Cancelled
		}
	}
	return Completed
}

// glide moves from the current position to (tx, ty) over d along an eased
// path, checking for interference after every step. Completed means the
// glide finished.
func (s *session) glide(ctx context.Context, tx, ty int, d time.Duration) Status {
	e := s.engine
	sx, sy := e.out.Position()
	dx, dy := float64(tx-sx), float64(ty-sy)
	steps := stepCount(math.Hypot(dx, dy), e.opts.PixelsPerStep, e.opts.MinSteps)
	base := d / time.Duration(steps)

	for step := 1; step <= steps; step++ {
		p := ease(float64(step) / float64(steps))
		ix := float64(sx) + dx*p
		iy := float64(sy) + dy*p
		if e.opts.TremorPx > 0 {
			ix += float64(intBetween(e.rand, -e.opts.TremorPx, e.opts.TremorPx))
			iy += float64(intBetween(e.rand, -e.opts.TremorPx, e.opts.TremorPx))
		}
		ax, ay := e.opts.Bounds.Clamp(ix, iy)
		e.out.Move(ax, ay)
		s.outcome.Steps++

		pause := time.Duration(float64(base) * uniform(e.rand, 1-e.opts.StepJitter, 1+e.opts.StepJitter))
		if err := e.clock.Sleep(ctx, pause); err != nil {
			return Cancelled
		}

		if s.grace.Active(e.clock.Now()) {
			continue
		}
		px, py := e.out.Position()
		if ctx.Err() != nil {
			return Cancelled
		}
		threshold := e.opts.InterferenceThresholdPx
		if absInt(px-ax) > threshold || absInt(py-ay) > threshold {
			s.outcome.Interference = &Interference{IntendedX: ax, IntendedY: ay, ActualX: px, ActualY: py}
			s.logger.Debug().
				Int("intended_x", ax).Int("intended_y", ay).
				Int("actual_x", px).Int("actual_y", py).
				Msg("pointer diverged from replay path")
			return Interrupted
		}
	}
	return Completed
}

func (s *session) click(ev eventlog.Event) {
	out := s.engine.out
	var err error
	if ev.Pressed {
		err = out.Press(ev.Button)
	} else {
		err = out.Release(ev.Button)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("button", string(ev.Button)).Bool("pressed", ev.Pressed).Msg("button action failed")
	}
}

// key plays a key edge. Modifiers and named keys are pressed and released
// as recorded; printable characters are typed as a short tap on their press
// edge and may be skipped entirely.
func (s *session) key(ctx context.Context, ev eventlog.Event) error {
	e := s.engine
	k := ev.Key
	switch k.Kind {
	case eventlog.KeyModifier:
		if ev.Pressed {
			s.pressKey(k)
			s.held[k.Name] = k
		} else {
			s.releaseKey(k)
			delete(s.held, k.Name)
		}
		return nil
	case eventlog.KeySpecial:
		if ev.Pressed {
			s.pressKey(k)
		} else {
			s.releaseKey(k)
		}
		return nil
	}

	if !ev.Pressed {
		return nil
	}
	if chance(e.rand, e.opts.KeySkipProbability) {
		s.logger.Debug().Str("key", k.Name).Msg("skipping key")
		return nil
	}
	if err := e.clock.Sleep(ctx, uniformDuration(e.rand, e.opts.KeyPreDelayMin, e.opts.KeyPreDelayMax)); err != nil {
		return err
	}
	s.pressKey(k)
	if err := e.clock.Sleep(ctx, uniformDuration(e.rand, e.opts.KeyHoldMin, e.opts.KeyHoldMax)); err != nil {
		s.releaseKey(k)
		return err
	}
	s.releaseKey(k)
	return nil
}

func (s *session) pressKey(k eventlog.Key) {
	if err := s.engine.out.PressKey(k); err != nil {
		s.logger.Warn().Err(err).Str("key", k.Name).Msg("key press failed")
	}
}

func (s *session) releaseKey(k eventlog.Key) {
	if err := s.engine.out.ReleaseKey(k); err != nil {
		s.logger.Warn().Err(err).Str("key", k.Name).Msg("key release failed")
	}
}

func (s *session) microPause(ctx context.Context) error {
	e := s.engine
	var d time.Duration
	switch {
	case chance(e.rand, e.opts.LongPauseProbability):
		d = uniformDuration(e.rand, e.opts.LongPauseMin, e.opts.LongPauseMax)
	case chance(e.rand, e.opts.ShortPauseProbability):
		d = uniformDuration(e.rand, e.opts.ShortPauseMin, e.opts.ShortPauseMax)
	default:
		return nil
	}
	return e.clock.Sleep(ctx, d)
}

func (s *session) heldModifiers() []eventlog.Key {
	if len(s.held) == 0 {
		return nil
	}
	keys := make([]eventlog.Key, 0, len(s.held))
	for _, k := range s.held {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys
}

// ReleaseModifiers releases every key in keys, logging failures.
func ReleaseModifiers(out device.Output, keys []eventlog.Key, logger zerolog.Logger) {
	for _, k := range keys {
		if err := out.ReleaseKey(k); err != nil {
			logger.Warn().Err(err).Str("key", k.Name).Msg("could not release held modifier")
			continue
		}
		logger.Debug().Str("key", k.Name).Msg("released held modifier")
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
