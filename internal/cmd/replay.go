package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/offlinefirst/pattern-replay/pkg/clock"
	"github.com/offlinefirst/pattern-replay/pkg/control"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/events"
	"github.com/offlinefirst/pattern-replay/pkg/replay"
	"github.com/offlinefirst/pattern-replay/pkg/supervisor"
)

func newReplayCommand(rc *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the saved pattern once",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return rc.bindFlags(cmd, map[string]string{
				"pattern": "pattern.file",
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			return rc.replayOnce(cmd, app)
		},
	}
	cmd.Flags().String("pattern", "", "Pattern file (default from config)")
	return cmd
}

func (rc *RootCommand) replayOnce(cmd *cobra.Command, app *AppContext) error {
	cfg := app.Config
	logger := app.Logger

	log, err := eventlog.Load(cfg.Pattern.File)
	if err != nil {
		return fmt.Errorf("load pattern: %w", err)
	}
	if log.Empty() {
		return fmt.Errorf("load pattern: %w", eventlog.ErrEmptyLog)
	}
	dev, err := openDevice()
	if err != nil {
		return fmt.Errorf("open output device: %w", err)
	}

	clk := newClock()
	maxX, maxY := screenBounds(cfg, dev)
	engine, err := replay.NewEngine(replay.Config{
		Options: replayOptions(cfg, maxX, maxY),
		Output:  dev,
		Clock:   clk,
		Rand:    newRand(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctrl := control.New(cmd.Context(), clk.Now)
	detach := watchSignals(ctrl, logger)
	defer detach()
	source := openSource(logger)

	var stopKey eventlog.Key
	if cfg.Stop.Key != "" {
		stopKey = eventlog.MustParseKey(cfg.Stop.Key)
	}

	var (
		g       errgroup.Group
		outcome replay.Outcome
	)
	ctx := ctrl.Context()
	g.Go(func() error {
		return events.WatchStopKey(ctx, source, stopKey, ctrl.Stop, logger)
	})
	g.Go(func() error {
		defer ctrl.Stop("replay finished")
		countdown := countdownPrinter(rc.stdout, "Replaying")
		err := clock.SleepChunked(ctx, clk, seconds(cfg.Replay.StartDelaySeconds), supervisor.WaitChunk, func(remaining time.Duration) {
			countdown(int((remaining + time.Second - 1) / time.Second))
		})
		if err != nil {
			outcome.Status = replay.Cancelled
			return nil
		}
		grace := replay.NewGracePeriod(seconds(cfg.Replay.GraceSeconds), logger)
		grace.Restart(clk.Now())
		outcome = engine.Replay(ctx, log, grace)
		if len(outcome.HeldModifiers) > 0 {
			replay.ReleaseModifiers(dev, outcome.HeldModifiers, logger)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(rc.stdout, "Replay %s: %d of %d events, %d steps\n", outcome.Status, outcome.Selected, outcome.Total, outcome.Steps)
	if in := outcome.Interference; in != nil {
		fmt.Fprintf(rc.stdout, "Pointer expected at (%d,%d) but found at (%d,%d)\n", in.IntendedX, in.IntendedY, in.ActualX, in.ActualY)
	}
	if len(outcome.HeldModifiers) > 0 {
		names := make([]string, 0, len(outcome.HeldModifiers))
		for _, k := range outcome.HeldModifiers {
			names = append(names, k.Name)
		}
		fmt.Fprintf(rc.stdout, "Released held modifiers: %s\n", strings.Join(names, ", "))
	}
	return nil
}
