package events

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

// WatchStopKey listens on src until key is pressed, then calls stop once.
// It returns nil when the key fired, when ctx ends, or when the source is
// unavailable (the process can still be stopped with a signal).
func WatchStopKey(ctx context.Context, src Source, key eventlog.Key, stop func(reason string), logger zerolog.Logger) error {
	if src == nil || key.IsZero() {
		return nil
	}
	errFired := errors.New("stop key pressed")
	err := src.Stream(ctx, func(raw Raw) error {
		if raw.Kind == KindKeyDown && raw.Key == key {
			return errFired
		}
		return nil
	})

	switch {
	case errors.Is(err, errFired):
		logger.Info().Str("key", key.Name).Msg("stop key pressed")
		stop("stop key " + key.Name)
		return nil
	case errors.Is(err, ErrCaptureUnavailable):
		logger.Warn().Str("key", key.Name).Msg("stop key listener unavailable; use Ctrl+C to stop")
		return nil
	case err == nil, ctx.Err() != nil:
		return nil
	default:
		return err
	}
}
