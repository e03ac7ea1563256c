package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/offlinefirst/pattern-replay/internal/buildinfo"
	"github.com/offlinefirst/pattern-replay/pkg/alarm"
	"github.com/offlinefirst/pattern-replay/pkg/control"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/events"
	"github.com/offlinefirst/pattern-replay/pkg/metrics"
	"github.com/offlinefirst/pattern-replay/pkg/permissions"
	"github.com/offlinefirst/pattern-replay/pkg/replay"
	"github.com/offlinefirst/pattern-replay/pkg/runmanifest"
	"github.com/offlinefirst/pattern-replay/pkg/supervisor"
)

type runFlags struct {
	reuse    bool
	record   bool
	planOnly bool
}

func newRunCommand(rc *RootCommand) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay the pattern every interval until stopped",
		Long: "Loads the saved pattern (or records one), then replays it every interval with random variation.\n" +
			"Moving the pointer during a replay stops it and restarts the interval. Press the stop key or Ctrl+C to quit.",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return rc.bindFlags(cmd, map[string]string{
				"interval":       "replay.interval_minutes",
				"duration":       "replay.duration_minutes",
				"alarm":          "alarm.interval_minutes",
				"track-keys":     "pattern.track_keys",
				"pattern":        "pattern.file",
				"quiet-gate":     "quiet.enabled",
				"stop-key":       "stop.key",
				"metrics-listen": "metrics.listen",
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			return rc.runReplayLoop(cmd, app, flags)
		},
	}

	f := cmd.Flags()
	f.Float64P("interval", "i", 5, "Minutes between replays")
	f.Float64P("duration", "d", 0, "Total minutes to run (0 runs until stopped)")
	f.Float64P("alarm", "a", 0, "Minutes between alarms (0 disables the alarm)")
	f.BoolP("track-keys", "k", false, "Record and replay keyboard input")
	f.String("pattern", "", "Pattern file (default from config)")
	f.Bool("quiet-gate", true, "Wait for a quiet period before each replay")
	f.String("stop-key", "", "Key that stops everything (default f10)")
	f.String("metrics-listen", "", "Serve prometheus metrics on this address")
	f.BoolVar(&flags.reuse, "reuse", false, "Reuse the saved pattern without asking")
	f.BoolVar(&flags.record, "record", false, "Record a new pattern without asking")
	f.BoolVar(&flags.planOnly, "plan-only", false, "Print the resolved configuration without starting")
	return cmd
}

func (rc *RootCommand) runReplayLoop(cmd *cobra.Command, app *AppContext, flags runFlags) error {
	cfg := app.Config
	logger := app.Logger
	stdout := rc.stdout

	if flags.planOnly {
		printRunPlan(app, stdout)
		return nil
	}
	mode, err := resolvePatternMode(flags.reuse, flags.record)
	if err != nil {
		return err
	}

	dev, devErr := openDevice()
	env := events.DetectEnvironment(hookAvailable(), permissions.DefaultLookupEnv)
	if devErr != nil {
		return fmt.Errorf("open output device: %w", devErr)
	}
	if !env.Available {
		logger.Warn().Str("provider", env.Provider).Str("guidance", env.Guidance).Msg(env.Message)
	}
	source := openSource(logger)
	clk := newClock()
	m := metrics.New()

	ctrl := control.New(cmd.Context(), clk.Now)
	detach := watchSignals(ctrl, logger)
	defer detach()

	pattern, err := acquirePattern(ctrl.Context(), patternDeps{
		app: app, dev: dev, source: source, clock: clk, metrics: m, in: rc.stdin, out: stdout,
	}, mode)
	if err != nil {
		if !ctrl.Running() {
			warn(stdout, "Stopped before a pattern was available.")
			return nil
		}
		return err
	}
	if pattern.Log.Empty() {
		warn(stdout, "No pattern available. Exiting.")
		return nil
	}

	graceSeconds := cfg.Replay.GraceSeconds
	if pattern.Origin == runmanifest.OriginRecorded {
		graceSeconds = cfg.Replay.FreshGraceSeconds
	}
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

	host, err := hostname()
	if err != nil {
		host = "unknown"
	}
	runID := newRunID()
	manifestPath := runmanifest.PathFor(cfg.Paths.RunsDir, runID)
	manifest := runmanifest.New(runmanifest.Options{
		RunID:      runID,
		CreatedAt:  timeNow(),
		Hostname:   host,
		AppVersion: buildinfo.Version(),
		Config:     cfg,
	})
	manifest.Settings.ScreenMaxX, manifest.Settings.ScreenMaxY = maxX, maxY
	manifest.Pattern = pattern.manifest()
	manifest.Status.Subsystems = subsystemStatuses(cfg, env)
	manifest.MarkStarted(clk.Now())
	if err := manifestSave(manifest, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	scheduler := alarm.New(buildNotifier(cfg, logger), alarm.Options{
		Interval:  minutes(cfg.Alarm.IntervalMinutes),
		Countdown: cfg.Alarm.Countdown,
		Clock:     clk,
		Logger:    logger,
		OnFire:    m.ObserveAlarm,
	})

	printRunBanner(stdout, app, graceSeconds)

	var stopKey eventlog.Key
	if cfg.Stop.Key != "" {
		stopKey = eventlog.MustParseKey(cfg.Stop.Key)
	}

	var (
		g       errgroup.Group
		summary supervisor.Summary
	)
	ctx := ctrl.Context()
	g.Go(func() error {
		return events.WatchStopKey(ctx, source, stopKey, ctrl.Stop, logger)
	})
	if cfg.Metrics.Listen != "" {
		g.Go(func() error {
			if err := m.Serve(ctx, cfg.Metrics.Listen, logger); err != nil {
				logger.Warn().Err(err).Str("addr", cfg.Metrics.Listen).Msg("metrics server failed")
			}
			return nil
		})
	}
	g.Go(func() error {
		defer ctrl.Stop(supervisor.ReasonLoopFinished)
		var err error
		summary, err = supervisor.Run(supervisor.Options{
			Log:            pattern.Log,
			Engine:         engine,
			Output:         dev,
			Grace:          replay.NewGracePeriod(seconds(graceSeconds), logger),
			Interval:       minutes(cfg.Replay.IntervalMinutes),
			IntervalJitter: cfg.Replay.IntervalJitter,
			Duration:       minutes(cfg.Replay.DurationMinutes),
			StartDelay:     seconds(cfg.Replay.StartDelaySeconds),
			QuietGate:      cfg.Quiet.Enabled,
			Quiet:          quietOptions(cfg),
			Alarm:          scheduler,
			Control:        ctrl,
			Clock:          clk,
			Rand:           newRand(),
			Metrics:        m,
			Logger:         logger,
			OnCountdown:    countdownPrinter(stdout, "Starting"),
			OnIteration: func(it runmanifest.Iteration) {
				manifest.AddIteration(it)
				if err := manifestSave(manifest, manifestPath); err != nil {
					logger.Warn().Err(err).Msg("could not update manifest")
				}
			},
		})
		return err
	})
	runErr := g.Wait()

	manifest.RecordTimeline(ctrl.Timeline())
	manifest.MarkFinished(clk.Now(), summary.Termination, runErr)
	if err := manifestSave(manifest, manifestPath); err != nil {
		if runErr != nil {
			return fmt.Errorf("run replay loop: %v (additionally failed to persist manifest: %w)", runErr, err)
		}
		return fmt.Errorf("finalise manifest: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, control.ErrStopped) {
		logger.Error().Err(runErr).Msg("replay loop failed")
		return fmt.Errorf("run replay loop: %w", runErr)
	}

	printRunSummary(stdout, manifest, manifestPath, scheduler)
	return nil
}

func printRunBanner(out io.Writer, app *AppContext, graceSeconds float64) {
	cfg := app.Config
	if cfg.Replay.DurationMinutes > 0 {
		fmt.Fprintf(out, "Running for %g minute(s).\n", cfg.Replay.DurationMinutes)
	} else {
		fmt.Fprintln(out, "Running until stopped.")
	}
	fmt.Fprintf(out, "Replaying every ~%g minute(s).\n", cfg.Replay.IntervalMinutes)
	if cfg.Alarm.IntervalMinutes > 0 {
		fmt.Fprintf(out, "Alarm every %g minute(s).\n", cfg.Alarm.IntervalMinutes)
	}
	if cfg.Stop.Key != "" {
		fmt.Fprintf(out, "Press %s or Ctrl+C at any time to stop.\n", cfg.Stop.Key)
	}
	fmt.Fprintln(out, "Move the mouse during a replay to take control and reset the timer.")
	fmt.Fprintf(out, "(%gs grace period before user detection starts)\n", graceSeconds)
}

func printRunSummary(out io.Writer, man runmanifest.Manifest, path string, scheduler *alarm.Scheduler) {
	notice(out, "Stopped: %s", man.Status.Termination)
	fmt.Fprintf(out, "Summary: %s\n", man.Status.Summary)
	if scheduler.Enabled() {
		fmt.Fprintf(out, "Alarms fired: %d\n", scheduler.Fired())
	}
	fmt.Fprintf(out, "Manifest: %s\n", path)
	if len(man.Status.Controller) > 0 {
		fmt.Fprintln(out, "Controller timeline:")
		for _, entry := range man.Status.Controller {
			fmt.Fprintf(out, "  - %s -> %s", entry.Timestamp.Format(time.RFC3339), entry.State)
			if entry.Reason != "" {
				fmt.Fprintf(out, " (%s)", entry.Reason)
			}
			fmt.Fprintln(out)
		}
	}
}

func printRunPlan(app *AppContext, out io.Writer) {
	cfg := app.Config
	fmt.Fprintf(out, "Resolved configuration (source: %s)\n", cfg.Source)
	fmt.Fprintf(out, "  pattern.file: %s\n", cfg.Pattern.File)
	fmt.Fprintf(out, "  pattern.track_keys: %t\n", cfg.Pattern.TrackKeys)
	fmt.Fprintf(out, "  replay.interval_minutes: %g\n", cfg.Replay.IntervalMinutes)
	fmt.Fprintf(out, "  replay.duration_minutes: %g\n", cfg.Replay.DurationMinutes)
	fmt.Fprintf(out, "  replay.interference_threshold_px: %d\n", cfg.Replay.InterferenceThresholdPx)
	fmt.Fprintf(out, "  quiet.enabled: %t\n", cfg.Quiet.Enabled)
	fmt.Fprintf(out, "  alarm.interval_minutes: %g\n", cfg.Alarm.IntervalMinutes)
	fmt.Fprintf(out, "  alarm.webhook_url: %s\n", cfg.Alarm.WebhookURL)
	fmt.Fprintf(out, "  stop.key: %s\n", cfg.Stop.Key)
	fmt.Fprintf(out, "  metrics.listen: %s\n", cfg.Metrics.Listen)
	fmt.Fprintf(out, "  paths.runs_dir: %s\n", cfg.Paths.RunsDir)
	fmt.Fprintf(out, "  logging.level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  logging.format: %s\n", cfg.Logging.Format)
}
