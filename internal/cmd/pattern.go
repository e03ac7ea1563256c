package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/offlinefirst/pattern-replay/pkg/clock"
	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/events"
	"github.com/offlinefirst/pattern-replay/pkg/metrics"
	"github.com/offlinefirst/pattern-replay/pkg/recorder"
	"github.com/offlinefirst/pattern-replay/pkg/runmanifest"
)

// patternMode forces the prompt's answer when --reuse or --record is given.
type patternMode int

const (
	modePrompt patternMode = iota
	modeReuse
	modeRecord
)

func resolvePatternMode(reuse, record bool) (patternMode, error) {
	switch {
	case reuse && record:
		return modePrompt, errors.New("--reuse and --record are mutually exclusive")
	case reuse:
		return modeReuse, nil
	case record:
		return modeRecord, nil
	default:
		return modePrompt, nil
	}
}

// acquiredPattern is the log the loop will replay and where it came from.
type acquiredPattern struct {
	Log      *eventlog.Log
	Origin   string
	Strategy recorder.Strategy
	Fallback string
}

func (p acquiredPattern) manifest() runmanifest.Pattern {
	return runmanifest.Pattern{
		Origin:   p.Origin,
		Events:   p.Log.Len(),
		Strategy: string(p.Strategy),
		Fallback: p.Fallback,
	}
}

type patternDeps struct {
	app     *AppContext
	dev     device.Output
	source  events.Source
	clock   clock.Clock
	metrics *metrics.Metrics
	in      io.Reader
	out     io.Writer
}

// acquirePattern loads the saved pattern or records a new one, following
// mode or the user's answer to the prompt.
func acquirePattern(ctx context.Context, deps patternDeps, mode patternMode) (acquiredPattern, error) {
	cfg := deps.app.Config
	logger := deps.app.Logger
	path := cfg.Pattern.File

	if eventlog.Exists(path) {
		choice := choiceRecord
		switch mode {
		case modeReuse:
			choice = choiceReuse
		case modeRecord:
			choice = choiceRecord
		default:
			var err error
			if choice, err = promptPatternChoice(deps.in, deps.out); err != nil {
				return acquiredPattern{}, err
			}
		}
		logger.Debug().Str("choice", choice.String()).Str("path", path).Msg("saved pattern found")

		switch choice {
		case choiceReuse:
			log, err := eventlog.Load(path)
			switch {
			case err != nil:
				logger.Warn().Err(err).Str("path", path).Msg("saved pattern unreadable; recording a new one")
				warn(deps.out, "Saved pattern could not be loaded: %v", err)
			case log.Empty():
				logger.Warn().Str("path", path).Msg("saved pattern is empty")
				return acquiredPattern{Log: log, Origin: runmanifest.OriginLoaded}, nil
			default:
				logger.Info().Int("events", log.Len()).Str("path", path).Msg("loaded saved pattern")
				notice(deps.out, "Loaded %d events from %s", log.Len(), path)
				return acquiredPattern{Log: log, Origin: runmanifest.OriginLoaded}, nil
			}
		case choiceReset:
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return acquiredPattern{}, fmt.Errorf("reset saved pattern: %w", err)
			}
			logger.Info().Str("path", path).Msg("saved pattern deleted")
			notice(deps.out, "Saved pattern deleted.")
		}
	} else if mode == modeReuse {
		logger.Warn().Str("path", path).Msg("no saved pattern to reuse; recording a new one")
	}

	return recordPattern(ctx, deps)
}

// recordPattern records and saves a new pattern. An empty recording is
// returned as-is and is not saved.
func recordPattern(ctx context.Context, deps patternDeps) (acquiredPattern, error) {
	cfg := deps.app.Config
	logger := deps.app.Logger

	notice(deps.out, "Recording for %d seconds. Move the mouse%s after the countdown.", cfg.Pattern.RecordSeconds, keysHint(cfg.Pattern.TrackKeys))
	rec := recorder.New(deps.source, deps.dev, recorder.Options{
		Duration:    time.Duration(cfg.Pattern.RecordSeconds) * time.Second,
		Countdown:   time.Duration(cfg.Pattern.CountdownSeconds) * time.Second,
		TrackKeys:   cfg.Pattern.TrackKeys,
		Clock:       deps.clock,
		Logger:      logger,
		OnCountdown: countdownPrinter(deps.out, "Recording starts"),
	})
	res, err := rec.Record(ctx)
	if err != nil {
		return acquiredPattern{}, fmt.Errorf("record pattern: %w", err)
	}
	deps.metrics.ObserveRecording(string(res.Strategy), res.Log.Len())

	acquired := acquiredPattern{
		Log:      res.Log,
		Origin:   runmanifest.OriginRecorded,
		Strategy: res.Strategy,
		Fallback: res.Fallback,
	}
	if res.Log.Empty() {
		warn(deps.out, "No events were recorded.")
		return acquired, nil
	}
	if err := eventlog.Save(res.Log, cfg.Pattern.File); err != nil {
		return acquired, fmt.Errorf("save pattern: %w", err)
	}
	notice(deps.out, "Recorded %d events (%s capture), saved to %s", res.Log.Len(), res.Strategy, cfg.Pattern.File)
	return acquired, nil
}

func keysHint(trackKeys bool) string {
	if trackKeys {
		return " and type"
	}
	return ""
}
