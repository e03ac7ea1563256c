package events

import (
	"context"
	"fmt"
	"time"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

// Kind enumerates raw input edges.
type Kind uint8

const (
	KindMove Kind = iota + 1
	KindButtonDown
	KindButtonUp
	KindKeyDown
	KindKeyUp
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindButtonDown:
		return "button_down"
	case KindButtonUp:
		return "button_up"
	case KindKeyDown:
		return "key_down"
	case KindKeyUp:
		return "key_up"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Raw is one input edge as delivered by a Source, stamped with wall time.
type Raw struct {
	Kind   Kind
	X, Y   int
	Button eventlog.Button
	Key    eventlog.Key
	When   time.Time
}

// IsKey reports whether the edge belongs to the keyboard.
func (r Raw) IsKey() bool { return r.Kind == KindKeyDown || r.Kind == KindKeyUp }

// Source emits input edges until ctx is done or emit returns an error.
// Stream returns ErrCaptureUnavailable when the listener cannot start, and
// ctx.Err() when it was stopped by cancellation.
type Source interface {
	Stream(ctx context.Context, emit func(Raw) error) error
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func(ctx context.Context, emit func(Raw) error) error

// Stream calls the underlying function.
func (f SourceFunc) Stream(ctx context.Context, emit func(Raw) error) error {
	return f(ctx, emit)
}

// Unavailable is a Source that never starts.
var Unavailable Source = SourceFunc(func(context.Context, func(Raw) error) error {
	return ErrCaptureUnavailable
})
