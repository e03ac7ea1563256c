//go:build !cgo

package native

import (
	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/events"
)

// Available reports whether this binary carries the native backend.
const Available = false

// Device is unusable without cgo.
type Device struct{}

// NewDevice always fails without cgo.
func NewDevice() (*Device, error) { return nil, ErrUnavailable }

func (*Device) Position() (int, int)               { return 0, 0 }
func (*Device) Move(int, int)                      {}
func (*Device) Press(eventlog.Button) error        { return ErrUnavailable }
func (*Device) Release(eventlog.Button) error      { return ErrUnavailable }
func (*Device) PressKey(eventlog.Key) error        { return ErrUnavailable }
func (*Device) ReleaseKey(eventlog.Key) error      { return ErrUnavailable }
func (*Device) ScreenSize() (width int, height int) { return 0, 0 }

// NewSource returns a source that reports capture as unavailable.
func NewSource(zerolog.Logger) events.Source {
	return events.Unavailable
}
