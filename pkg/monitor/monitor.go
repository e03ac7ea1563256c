// Package monitor waits for a stretch of time in which nobody touches the
// pointer before a replay is allowed to start.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/clock"
	"github.com/offlinefirst/pattern-replay/pkg/device"
)

// DefaultPollInterval is how often the pointer is sampled.
const DefaultPollInterval = 100 * time.Millisecond

// Options configures WaitForQuiet.
type Options struct {
	Window    time.Duration
	Postpone  time.Duration
	Threshold int
	Poll      time.Duration
	Clock     clock.Clock
	Logger    zerolog.Logger
	// OnActivity, when set, is called every time activity postpones the window.
	OnActivity func(reason string)
}

// WaitForQuiet blocks until the pointer has stayed within Threshold pixels of
// where it was at the start of a window, with no button change, for a whole
// Window. Every time activity is seen it waits Postpone and starts over.
// It returns true once a quiet window completes and false if ctx ends first.
func WaitForQuiet(ctx context.Context, in device.Output, opts Options) bool {
	clk := clock.OrReal(opts.Clock)
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	for ctx.Err() == nil {
		reason, quiet := observeWindow(ctx, in, clk, opts.Window, poll, opts.Threshold)
		if ctx.Err() != nil {
			return false
		}
		if quiet {
			return true
		}
		opts.Logger.Info().
			Str("reason", reason).
			Dur("postpone", opts.Postpone).
			Msg("user activity detected; postponing replay")
		if opts.OnActivity != nil {
			opts.OnActivity(reason)
		}
		if err := clk.Sleep(ctx, opts.Postpone); err != nil {
			return false
		}
	}
	return false
}

// observeWindow samples the device for one window and reports whether it
// stayed quiet, or why not.
func observeWindow(ctx context.Context, in device.Output, clk clock.Clock, window, poll time.Duration, threshold int) (string, bool) {
	bx, by := in.Position()
	baseButtons, trackButtons := device.ButtonsOf(in)
	deadline := clk.Now().Add(window)

	for clk.Now().Before(deadline) {
		if err := clk.Sleep(ctx, poll); err != nil {
			return "cancelled", false
		}
		x, y := in.Position()
		if abs(x-bx) > threshold || abs(y-by) > threshold {
			return "pointer moved", false
		}
		if trackButtons {
			if buttons, ok := device.ButtonsOf(in); ok && !buttons.Equal(baseButtons) {
				return "button state changed", false
			}
		}
	}
	return "", true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
