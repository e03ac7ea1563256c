package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/events"
	"github.com/offlinefirst/pattern-replay/pkg/permissions"
)

// lookupEnv feeds the permission probes; tests replace it to force results.
var lookupEnv permissions.LookupEnvFunc = permissions.DefaultLookupEnv

func newDoctorCommand(rc *RootCommand) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check input capture, pointer control and permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok := runDoctor(rc.stdout)
			if strict && !ok {
				return fmt.Errorf("one or more capabilities are unusable")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when a capability is unusable")
	return cmd
}

// runDoctor prints every probe and reports whether the required ones are
// usable. Input capture has a polling fallback so it is optional.
func runDoctor(out io.Writer) bool {
	probes := []struct {
		name     string
		result   permissions.ProbeResult
		optional bool
	}{
		{"accessibility", permissions.ProbeAccessibility(lookupEnv), false},
		{"display", permissions.ProbeDisplay(lookupEnv), false},
		{"input capture", permissions.ProbeInputCapture(lookupEnv), true},
		{"button state", permissions.ProbeButtonState(lookupEnv), true},
	}

	healthy := true
	fmt.Fprintln(out, "Permissions:")
	for _, p := range probes {
		printProbe(out, p.name, p.result.StatusString(), p.result.Message, p.result.Guidance, p.result.Usable())
		if !p.optional {
			healthy = healthy && p.result.Usable()
		}
	}

	env := events.DetectEnvironment(hookAvailable(), lookupEnv)
	fmt.Fprintln(out, "Input capture:")
	strategy := "push (" + env.Provider + ")"
	if !env.Available {
		strategy = "polling fallback"
	}
	printProbe(out, "strategy", strategy, env.Message, env.Guidance, env.Available)

	fmt.Fprintln(out, "Pointer control:")
	dev, err := openDevice()
	switch {
	case err != nil:
		printProbe(out, "output", "unavailable", err.Error(), "", false)
		healthy = false
	default:
		x, y := dev.Position()
		detail := fmt.Sprintf("pointer at (%d,%d)", x, y)
		if sizer, ok := dev.(device.ScreenSizer); ok {
			w, h := sizer.ScreenSize()
			detail = fmt.Sprintf("screen %dx%d, %s", w, h, detail)
		}
		printProbe(out, "output", "ready", detail, "", true)
	}
	return healthy
}

func printProbe(out io.Writer, name, status, message, guidance string, usable bool) {
	mark := noticeColor
	if !usable {
		mark = warnColor
	}
	mark.Fprintf(out, "  %-14s %s", name, status)
	if message != "" {
		fmt.Fprintf(out, ": %s", message)
	}
	fmt.Fprintln(out)
	if guidance != "" && !usable {
		fmt.Fprintf(out, "  %-14s hint: %s\n", "", guidance)
	}
}
