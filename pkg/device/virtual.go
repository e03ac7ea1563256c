package device

import (
	"fmt"
	"sync"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

// Action is one call recorded by the Virtual device.
type Action struct {
	Op     string
	X, Y   int
	Button eventlog.Button
	Key    eventlog.Key
}

func (a Action) String() string {
	switch a.Op {
	case "move":
		return fmt.Sprintf("move(%d,%d)", a.X, a.Y)
	case "press", "release":
		return fmt.Sprintf("%s(%s)", a.Op, a.Button)
	default:
		return fmt.Sprintf("%s(%s)", a.Op, a.Key)
	}
}

// Virtual is an in-memory device. External activity is simulated with Nudge
// and SetButton, which change the observable state without being recorded as actions.
type Virtual struct {
	mu      sync.Mutex
	x, y    int
	width   int
	height  int
	buttons ButtonSet
	actions []Action

	// BeforePosition, when set, runs before every Position read.
	BeforePosition func(v *Virtual)
}

// NewVirtual returns a device with the pointer at (x, y) on a width×height screen.
func NewVirtual(x, y, width, height int) *Virtual {
	return &Virtual{x: x, y: y, width: width, height: height, buttons: ButtonSet{}}
}

func (v *Virtual) Position() (int, int) {
	if hook := v.BeforePosition; hook != nil {
		hook(v)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.x, v.y
}

func (v *Virtual) Move(x, y int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.x, v.y = x, y
	v.actions = append(v.actions, Action{Op: "move", X: x, Y: y})
}

func (v *Virtual) Press(b eventlog.Button) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buttons[b] = true
	v.actions = append(v.actions, Action{Op: "press", Button: b})
	return nil
}

func (v *Virtual) Release(b eventlog.Button) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.buttons, b)
	v.actions = append(v.actions, Action{Op: "release", Button: b})
	return nil
}

func (v *Virtual) PressKey(k eventlog.Key) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.actions = append(v.actions, Action{Op: "key_down", Key: k})
	return nil
}

func (v *Virtual) ReleaseKey(k eventlog.Key) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.actions = append(v.actions, Action{Op: "key_up", Key: k})
	return nil
}

// Buttons implements ButtonStater.
func (v *Virtual) Buttons() (ButtonSet, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(ButtonSet, len(v.buttons))
	for b, held := range v.buttons {
		out[b] = held
	}
	return out, nil
}

// ScreenSize implements ScreenSizer.
func (v *Virtual) ScreenSize() (int, int) { return v.width, v.height }

// Nudge moves the pointer as if a person had moved it.
func (v *Virtual) Nudge(x, y int) {
	v.mu.Lock()
	v.x, v.y = x, y
	v.mu.Unlock()
}

// SetButton changes a button state as if a person had clicked.
func (v *Virtual) SetButton(b eventlog.Button, held bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if held {
		v.buttons[b] = true
		return
	}
	delete(v.buttons, b)
}

// Actions returns a copy of every recorded call.
func (v *Virtual) Actions() []Action {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Action(nil), v.actions...)
}

// ResetActions clears the recorded calls.
func (v *Virtual) ResetActions() {
	v.mu.Lock()
	v.actions = nil
	v.mu.Unlock()
}
