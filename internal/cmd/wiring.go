package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/alarm"
	"github.com/offlinefirst/pattern-replay/pkg/clock"
	"github.com/offlinefirst/pattern-replay/pkg/config"
	"github.com/offlinefirst/pattern-replay/pkg/control"
	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/events"
	"github.com/offlinefirst/pattern-replay/pkg/monitor"
	"github.com/offlinefirst/pattern-replay/pkg/native"
	"github.com/offlinefirst/pattern-replay/pkg/replay"
	"github.com/offlinefirst/pattern-replay/pkg/runmanifest"
)

// Fallback bounds when neither the config nor the device knows the screen.
const (
	fallbackMaxX = 1919
	fallbackMaxY = 1079
)

// Collaborators are package variables so tests can swap in virtual devices,
// scripted sources and fake clocks.
var (
	timeNow      = time.Now
	hostname     = os.Hostname
	manifestSave = runmanifest.Save
	newRunID     = runmanifest.NewRunID
	newClock     = func() clock.Clock { return clock.Real{} }
	newRand      = func() replay.Rand { return replay.NewRand(0) }
	openDevice   = func() (device.Output, error) {
		dev, err := native.NewDevice()
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
	openSource = func(logger zerolog.Logger) events.Source {
		return native.NewSource(logger)
	}
	hookAvailable = func() bool { return native.Available }
	notifySignals = func(ch chan<- os.Signal) {
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	}
	stopSignals = signal.Stop
)

// watchSignals stops ctrl on SIGINT or SIGTERM. The returned func detaches it.
func watchSignals(ctrl *control.Controller, logger zerolog.Logger) func() {
	ch := make(chan os.Signal, 1)
	notifySignals(ch)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			logger.Info().Str("signal", sig.String()).Msg("signal received; stopping")
			ctrl.Stop("signal " + sig.String())
		case <-done:
		}
	}()
	return func() {
		stopSignals(ch)
		close(done)
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func minutes(v float64) time.Duration {
	return time.Duration(v * float64(time.Minute))
}

// screenBounds returns the largest valid coordinates: the configured ones,
// else the device's screen size, else a 1920x1080 screen.
func screenBounds(cfg config.Config, dev device.Output) (int, int) {
	maxX, maxY := cfg.Screen.MaxX, cfg.Screen.MaxY
	if maxX > 0 && maxY > 0 {
		return maxX, maxY
	}
	if sizer, ok := dev.(device.ScreenSizer); ok {
		if w, h := sizer.ScreenSize(); w > 0 && h > 0 {
			if maxX <= 0 {
				maxX = w - 1
			}
			if maxY <= 0 {
				maxY = h - 1
			}
			return maxX, maxY
		}
	}
	if maxX <= 0 {
		maxX = fallbackMaxX
	}
	if maxY <= 0 {
		maxY = fallbackMaxY
	}
	return maxX, maxY
}

func replayOptions(cfg config.Config, maxX, maxY int) replay.Options {
	opts := replay.DefaultOptions(maxX, maxY)
	opts.KeepProbability = cfg.Replay.KeepProbability
	opts.TransformProbability = cfg.Replay.TransformProbability
	opts.TremorPx = cfg.Replay.TremorPx
	opts.KeySkipProbability = cfg.Replay.KeySkipProbability
	opts.InterferenceThresholdPx = cfg.Replay.InterferenceThresholdPx
	return opts
}

func quietOptions(cfg config.Config) monitor.Options {
	return monitor.Options{
		Window:    seconds(cfg.Quiet.WindowSeconds),
		Postpone:  seconds(cfg.Quiet.PostponeSeconds),
		Threshold: cfg.Quiet.ThresholdPx,
	}
}

// buildNotifier picks the alarm action: a tone (falling back to the terminal
// bell) or the bell alone, plus the webhook when one is configured.
func buildNotifier(cfg config.Config, logger zerolog.Logger) alarm.Notifier {
	var local alarm.Notifier = alarm.Bell{}
	if cfg.Alarm.Tone {
		local = alarm.Tone{Logger: logger}
	}
	if cfg.Alarm.WebhookURL == "" {
		return local
	}
	return alarm.Multi{local, alarm.NewWebhook(cfg.Alarm.WebhookURL, 0)}
}

// subsystemStatuses describes the subsystems of a run that has an open
// output device; runs without one fail before a manifest exists.
func subsystemStatuses(cfg config.Config, env events.Environment) []runmanifest.SubsystemStatus {
	output := runmanifest.SubsystemStatus{Name: "output", Enabled: true, Available: true, Provider: "robotgo"}
	alarmProvider := "bell"
	if cfg.Alarm.Tone {
		alarmProvider = "tone"
	}
	if cfg.Alarm.WebhookURL != "" {
		alarmProvider += "+webhook"
	}
	return []runmanifest.SubsystemStatus{
		{
			Name:       "input_capture",
			Enabled:    true,
			Available:  env.Available,
			Provider:   env.Provider,
			Permission: env.Permission,
			Message:    env.Message,
		},
		output,
		{
			Name:      "alarm",
			Enabled:   cfg.Alarm.IntervalMinutes > 0,
			Available: true,
			Provider:  alarmProvider,
		},
	}
}
