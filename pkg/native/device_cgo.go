//go:build cgo

package native

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/permissions"
)

// Available reports whether this binary carries the native backend.
const Available = true

// Device drives the real pointer and keyboard through robotgo. Position
// reads the live cursor, so movement by a person shows up as interference.
type Device struct {
	mu sync.Mutex
}

// NewDevice checks that a display is reachable and returns the device.
func NewDevice() (*Device, error) {
	if display := permissions.ProbeDisplay(nil); !display.Usable() {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, display.Message)
	}
	return &Device{}, nil
}

func (d *Device) Position() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return robotgo.Location()
}

func (d *Device) Move(x, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	robotgo.Move(x, y)
}

func (d *Device) Press(b eventlog.Button) error {
	return d.toggle(b, "down")
}

func (d *Device) Release(b eventlog.Button) error {
	return d.toggle(b, "up")
}

func (d *Device) toggle(b eventlog.Button, edge string) error {
	name, err := outputButton(b)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := robotgo.Toggle(name, edge); err != nil {
		return fmt.Errorf("toggle %s %s: %w", name, edge, err)
	}
	return nil
}

func (d *Device) PressKey(k eventlog.Key) error {
	return d.keyToggle(k, "down")
}

func (d *Device) ReleaseKey(k eventlog.Key) error {
	return d.keyToggle(k, "up")
}

func (d *Device) keyToggle(k eventlog.Key, edge string) error {
	name, err := outputKey(k)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := robotgo.KeyToggle(name, edge); err != nil {
		return fmt.Errorf("key %s %s: %w", name, edge, err)
	}
	return nil
}

// ScreenSize implements device.ScreenSizer.
func (d *Device) ScreenSize() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return robotgo.GetScreenSize()
}
