// Package device defines the output device the replay engine drives and the
// activity monitor observes.
package device

import (
	"errors"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

// ErrUnsupported is returned when a device cannot perform a requested action.
var ErrUnsupported = errors.New("device action unsupported")

// Output is the pointer and keyboard surface. Position must reflect changes
// made by anything other than this process, otherwise interference cannot be seen.
type Output interface {
	Position() (x, y int)
	Move(x, y int)
	Press(b eventlog.Button) error
	Release(b eventlog.Button) error
	PressKey(k eventlog.Key) error
	ReleaseKey(k eventlog.Key) error
}

// ButtonSet is a snapshot of which buttons are held.
type ButtonSet map[eventlog.Button]bool

// Equal reports whether both snapshots hold the same buttons.
func (s ButtonSet) Equal(other ButtonSet) bool {
	for _, b := range eventlog.Buttons {
		if s[b] != other[b] {
			return false
		}
	}
	return true
}

// ButtonStater is implemented by devices that can synchronously report which
// buttons are currently held. Not every platform offers this.
type ButtonStater interface {
	Buttons() (ButtonSet, error)
}

// ScreenSizer is implemented by devices that know the screen extent.
type ScreenSizer interface {
	ScreenSize() (width, height int)
}

// ButtonsOf queries out for a button snapshot when it supports one.
func ButtonsOf(out Output) (ButtonSet, bool) {
	stater, ok := out.(ButtonStater)
	if !ok {
		return nil, false
	}
	set, err := stater.Buttons()
	if err != nil {
		return nil, false
	}
	return set, true
}
