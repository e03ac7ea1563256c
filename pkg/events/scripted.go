package events

import (
	"context"
	"time"

	"github.com/offlinefirst/pattern-replay/pkg/clock"
)

// Step is one scripted edge delivered After the previous one.
type Step struct {
	After time.Duration
	Raw   Raw
}

// Scripted is a deterministic Source that plays back a fixed timeline. With
// Hold set it keeps the stream open after the last step until ctx is done,
// like a real listener.
type Scripted struct {
	Steps []Step
	Clock clock.Clock
	Hold  bool
}

// Stream emits each step at its scheduled time, stamping When from the clock.
func (s Scripted) Stream(ctx context.Context, emit func(Raw) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	clk := clock.OrReal(s.Clock)
	for _, step := range s.Steps {
		if err := clk.Sleep(ctx, step.After); err != nil {
			return err
		}
		raw := step.Raw
		raw.When = clk.Now()
		if err := emit(raw); err != nil {
			return err
		}
	}
	if !s.Hold {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}
