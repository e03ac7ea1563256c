package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/pattern-replay/pkg/control"
	"github.com/offlinefirst/pattern-replay/pkg/metrics"
)

func newRecordCommand(rc *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a new pattern and save it",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return rc.bindFlags(cmd, map[string]string{
				"pattern":    "pattern.file",
				"seconds":    "pattern.record_seconds",
				"countdown":  "pattern.countdown_seconds",
				"track-keys": "pattern.track_keys",
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rc.ensureAppContext()
			if err != nil {
				return err
			}
			return rc.recordOnly(cmd, app)
		},
	}

	f := cmd.Flags()
	f.String("pattern", "", "Pattern file (default from config)")
	f.Int("seconds", 5, "Recording length in seconds")
	f.Int("countdown", 3, "Countdown before recording starts, in seconds")
	f.BoolP("track-keys", "k", false, "Record keyboard input too")
	return cmd
}

func (rc *RootCommand) recordOnly(cmd *cobra.Command, app *AppContext) error {
	logger := app.Logger

	// The device is only needed for the polling fallback.
	dev, devErr := openDevice()
	if devErr != nil {
		logger.Warn().Err(devErr).Msg("output device unavailable; polling fallback disabled")
		dev = nil
	}
	clk := newClock()
	ctrl := control.New(cmd.Context(), clk.Now)
	detach := watchSignals(ctrl, logger)
	defer detach()

	pattern, err := recordPattern(ctrl.Context(), patternDeps{
		app:     app,
		dev:     dev,
		source:  openSource(logger),
		clock:   clk,
		metrics: metrics.New(),
		in:      rc.stdin,
		out:     rc.stdout,
	})
	if err != nil {
		if !ctrl.Running() {
			warn(rc.stdout, "Recording cancelled.")
			return nil
		}
		return err
	}
	if pattern.Log.Empty() {
		return fmt.Errorf("no events were recorded; check `replayer doctor`")
	}
	if pattern.Fallback != "" {
		fmt.Fprintf(rc.stdout, "Used polling capture: %s\n", pattern.Fallback)
	}
	return nil
}
