// Package supervisor runs the replay loop next to the alarm scheduler until
// the stop controller fires or the optional duration runs out.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/offlinefirst/pattern-replay/pkg/alarm"
	"github.com/offlinefirst/pattern-replay/pkg/clock"
	"github.com/offlinefirst/pattern-replay/pkg/control"
	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/metrics"
	"github.com/offlinefirst/pattern-replay/pkg/monitor"
	"github.com/offlinefirst/pattern-replay/pkg/replay"
	"github.com/offlinefirst/pattern-replay/pkg/runmanifest"
)

// WaitChunk bounds every coarse sleep so a stop is honoured within a second.
const WaitChunk = time.Second

// Termination reasons recorded by the loop itself.
const (
	ReasonDurationReached = "duration limit reached"
	ReasonNoPattern       = "no pattern available"
	ReasonLoopFinished    = "replay loop finished"
)

// Options wires the supervisory loop.
type Options struct {
	Log    *eventlog.Log
	Engine *replay.Engine
	Output device.Output
	Grace  *replay.GracePeriod

	Interval       time.Duration
	IntervalJitter float64
	// Duration caps the whole run. Zero runs until stopped.
	Duration   time.Duration
	StartDelay time.Duration

	QuietGate bool
	Quiet     monitor.Options

	// Alarm runs concurrently with the loop when enabled.
	Alarm *alarm.Scheduler

	Control *control.Controller
	Clock   clock.Clock
	Rand    replay.Rand
	Metrics *metrics.Metrics
	Logger  zerolog.Logger

	// OnCountdown is called once per second of the start delay.
	OnCountdown func(secondsLeft int)
	// OnIteration is called after every replay with its record.
	OnIteration func(runmanifest.Iteration)
}

// Summary reports what the loop did.
type Summary struct {
	Iterations  []runmanifest.Iteration
	Completed   int
	Interrupted int
	Termination string
}

// Run blocks until the controller stops, the duration elapses or a
// component fails. An empty log returns immediately without replaying.
func Run(opts Options) (Summary, error) {
	if opts.Control == nil {
		return Summary{}, errors.New("supervisor: controller is required")
	}
	if opts.Engine == nil || opts.Output == nil {
		return Summary{}, errors.New("supervisor: engine and output device are required")
	}
	if opts.Interval <= 0 {
		return Summary{}, errors.New("supervisor: interval must be positive")
	}
	if opts.Log == nil || opts.Log.Empty() {
		opts.Logger.Warn().Msg("no pattern available; nothing to replay")
		return Summary{Termination: ReasonNoPattern}, nil
	}
	if opts.Rand == nil {
		opts.Rand = replay.NewRand(0)
	}

	l := &loop{opts: opts, clock: clock.OrReal(opts.Clock), logger: opts.Logger}
	ctrl := opts.Control

	g, ctx := errgroup.WithContext(ctrl.Context())
	if opts.Alarm != nil && opts.Alarm.Enabled() {
		g.Go(func() error {
			return opts.Alarm.Run(ctx)
		})
	}
	g.Go(func() error {
		defer ctrl.Stop(ReasonLoopFinished)
		return l.run(ctx)
	})

	err := g.Wait()
	l.summary.Termination = ctrl.Reason()
	return l.summary, err
}

type loop struct {
	opts    Options
	clock   clock.Clock
	logger  zerolog.Logger
	summary Summary
}

func (l *loop) run(ctx context.Context) error {
	opts := l.opts
	ctrl := opts.Control

	if err := l.startDelay(ctx); err != nil {
		return nil
	}

	var deadline time.Time
	if opts.Duration > 0 {
		deadline = l.clock.Now().Add(opts.Duration)
		l.logger.Info().Time("until", deadline).Msg("running for a limited duration")
	} else {
		l.logger.Info().Msg("running until stopped")
	}
	l.logger.Info().Dur("interval", opts.Interval).Msg("replaying pattern periodically")

	opts.Grace.Restart(l.clock.Now())
	l.logger.Info().Dur("grace", opts.Grace.Duration()).Msg("grace period active")

	for ctrl.Running() && ctx.Err() == nil {
		if !deadline.IsZero() && !l.clock.Now().Before(deadline) {
			l.logger.Info().Msg("duration limit reached; stopping")
			ctrl.Stop(ReasonDurationReached)
			return nil
		}

		postponements := 0
		if opts.QuietGate {
			quiet := opts.Quiet
			quiet.Clock = l.clock
			quiet.Logger = l.logger
			onActivity := quiet.OnActivity
			quiet.OnActivity = func(reason string) {
				postponements++
				opts.Metrics.ObservePostponement(reason)
				if onActivity != nil {
					onActivity(reason)
				}
			}
			if !monitor.WaitForQuiet(ctx, opts.Output, quiet) {
				return nil
			}
		}

		l.logger.Info().Int("iteration", len(l.summary.Iterations)+1).Msg("starting replay")
		outcome := opts.Engine.Replay(ctx, opts.Log, opts.Grace)
		if len(outcome.HeldModifiers) > 0 {
			replay.ReleaseModifiers(opts.Output, outcome.HeldModifiers, l.logger)
		}
		opts.Metrics.ObserveReplay(outcome.Status.String(), outcome.Finished.Sub(outcome.Started))

		it := iterationRecord(outcome, postponements)
		switch outcome.Status {
		case replay.Cancelled:
			l.emit(it)
			return nil
		case replay.Interrupted:
			l.summary.Interrupted++
			opts.Grace.Restart(l.clock.Now())
			l.logger.Info().Dur("grace", opts.Grace.Duration()).Msg("interval timer reset; grace period restarted")
		case replay.Completed:
			l.summary.Completed++
		}

		wait := l.nextWait(deadline)
		it.NextWaitMillis = wait.Milliseconds()
		l.emit(it)

		l.logger.Info().Str("wait", fmt.Sprintf("%.1fm", wait.Minutes())).Msg("waiting until next replay")
		if err := clock.SleepChunked(ctx, l.clock, wait, WaitChunk, nil); err != nil {
			return nil
		}
	}
	return nil
}

func (l *loop) startDelay(ctx context.Context) error {
	if l.opts.StartDelay <= 0 {
		return nil
	}
	return clock.SleepChunked(ctx, l.clock, l.opts.StartDelay, WaitChunk, func(remaining time.Duration) {
		left := int((remaining + time.Second - 1) / time.Second)
		l.logger.Info().Int("seconds", left).Msg("starting soon")
		if l.opts.OnCountdown != nil {
			l.opts.OnCountdown(left)
		}
	})
}

// nextWait is the interval scaled by a uniform factor in [1-jitter, 1+jitter],
// capped at the time left before deadline.
func (l *loop) nextWait(deadline time.Time) time.Duration {
	jitter := l.opts.IntervalJitter
	factor := 1 - jitter + 2*jitter*l.opts.Rand.Float64()
	wait := time.Duration(float64(l.opts.Interval) * factor)
	if !deadline.IsZero() {
		if left := deadline.Sub(l.clock.Now()); wait > left {
			wait = left
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (l *loop) emit(it runmanifest.Iteration) {
	it.Index = len(l.summary.Iterations) + 1
	l.summary.Iterations = append(l.summary.Iterations, it)
	if l.opts.OnIteration != nil {
		l.opts.OnIteration(it)
	}
}

func iterationRecord(o replay.Outcome, postponements int) runmanifest.Iteration {
	it := runmanifest.Iteration{
		SessionID:     o.SessionID,
		Outcome:       o.Status.String(),
		Selected:      o.Selected,
		Total:         o.Total,
		Steps:         o.Steps,
		Transformed:   !o.Transform.IsIdentity(),
		Postponements: postponements,
		StartedAt:     o.Started.UTC(),
		FinishedAt:    o.Finished.UTC(),
	}
	if o.Interference != nil {
		it.Interference = &runmanifest.Interference{
			IntendedX: o.Interference.IntendedX,
			IntendedY: o.Interference.IntendedY,
			ActualX:   o.Interference.ActualX,
			ActualY:   o.Interference.ActualY,
		}
	}
	for _, k := range o.HeldModifiers {
		it.HeldModifiers = append(it.HeldModifiers, k.String())
	}
	return it
}
