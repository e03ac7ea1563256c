// Package native binds the replayer to the host desktop: robotgo drives the
// pointer and keyboard, and gohook feeds global input edges. Both need cgo;
// builds without it get stubs that report ErrUnavailable.
package native

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/events"
)

// ErrUnavailable is returned when the native backend cannot be used.
var ErrUnavailable = errors.New("native input backend unavailable")

// robotgo key names for named keys.
var keyNames = map[string]string{
	"shift":        "shift",
	"shift_r":      "rshift",
	"ctrl":         "ctrl",
	"ctrl_r":       "rctrl",
	"alt":          "alt",
	"alt_r":        "ralt",
	"cmd":          "cmd",
	"cmd_r":        "rcmd",
	"enter":        "enter",
	"esc":          "esc",
	"tab":          "tab",
	"space":        "space",
	"backspace":    "backspace",
	"delete":       "delete",
	"insert":       "insert",
	"home":         "home",
	"end":          "end",
	"page_up":      "pageup",
	"page_down":    "pagedown",
	"up":           "up",
	"down":         "down",
	"left":         "left",
	"right":        "right",
	"caps_lock":    "capslock",
	"print_screen": "printscreen",
	"menu":         "menu",
}

func init() {
	for i := 1; i <= 24; i++ {
		name := fmt.Sprintf("f%d", i)
		keyNames[name] = name
	}
}

// outputKey resolves the robotgo name for k.
func outputKey(k eventlog.Key) (string, error) {
	if k.Kind == eventlog.KeyChar {
		return k.Name, nil
	}
	name, ok := keyNames[k.Name]
	if !ok {
		return "", fmt.Errorf("key %s: %w", k.Name, device.ErrUnsupported)
	}
	return name, nil
}

// outputButton resolves the robotgo name for b.
func outputButton(b eventlog.Button) (string, error) {
	switch b {
	case eventlog.ButtonLeft:
		return "left", nil
	case eventlog.ButtonRight:
		return "right", nil
	case eventlog.ButtonMiddle:
		return "center", nil
	default:
		return "", fmt.Errorf("button %s: %w", b, device.ErrUnsupported)
	}
}

// gohook event kinds. The library names MouseHold for the press edge and
// MouseDown for the release edge.
const (
	hookKeyDown   = 3
	hookKeyHold   = 4
	hookKeyUp     = 5
	hookMouseHold = 7
	hookMouseDown = 8
	hookMouseMove = 9
	hookMouseDrag = 10

	charUndefined = 0xFFFF
)

// hookEdge is the subset of a gohook event the conversion needs.
type hookEdge struct {
	Kind    uint8
	X, Y    int16
	Button  uint16
	Keychar rune
	Rawcode uint16
	KeyName string
	When    time.Time
}

// convertHook maps a gohook event to a raw edge. Typed-character events
// (KeyDown) duplicate the press and are dropped.
func convertHook(e hookEdge) (events.Raw, bool) {
	raw := events.Raw{X: int(e.X), Y: int(e.Y), When: e.When}
	switch e.Kind {
	case hookMouseMove, hookMouseDrag:
		raw.Kind = events.KindMove
	case hookMouseHold, hookMouseDown:
		b, ok := hookButton(e.Button)
		if !ok {
			return events.Raw{}, false
		}
		raw.Button = b
		raw.Kind = events.KindButtonDown
		if e.Kind == hookMouseDown {
			raw.Kind = events.KindButtonUp
		}
	case hookKeyHold, hookKeyUp:
		k, ok := hookKey(e.Keychar, e.Rawcode, e.KeyName)
		if !ok {
			return events.Raw{}, false
		}
		raw.Key = k
		raw.Kind = events.KindKeyDown
		if e.Kind == hookKeyUp {
			raw.Kind = events.KindKeyUp
		}
	default:
		return events.Raw{}, false
	}
	return raw, true
}

func hookButton(code uint16) (eventlog.Button, bool) {
	switch code {
	case 1:
		return eventlog.ButtonLeft, true
	case 2:
		return eventlog.ButtonRight, true
	case 3:
		return eventlog.ButtonMiddle, true
	case 4:
		return eventlog.ButtonX1, true
	case 5:
		return eventlog.ButtonX2, true
	default:
		return "", false
	}
}

// x11Keysyms names the X11 keysyms libuiohook reports as rawcodes on Linux.
var x11Keysyms = map[uint16]string{
	0xff08: "backspace",
	0xff09: "tab",
	0xff0d: "enter",
	0xff13: "pause",
	0xff14: "scroll_lock",
	0xff1b: "esc",
	0xff50: "home",
	0xff51: "left",
	0xff52: "up",
	0xff53: "right",
	0xff54: "down",
	0xff55: "page_up",
	0xff56: "page_down",
	0xff57: "end",
	0xff61: "print_screen",
	0xff63: "insert",
	0xff67: "menu",
	0xff7f: "num_lock",
	0xffe1: "shift",
	0xffe2: "shift_r",
	0xffe3: "ctrl",
	0xffe4: "ctrl_r",
	0xffe5: "caps_lock",
	0xffe9: "alt",
	0xffea: "alt_r",
	0xffeb: "cmd",
	0xffec: "cmd_r",
	0xffff: "delete",
}

func init() {
	for i := 0; i < 24; i++ {
		x11Keysyms[uint16(0xffbe+i)] = fmt.Sprintf("f%d", i+1)
	}
}

// hookKey resolves a key edge. Named keys come from the X11 keysym table or
// the library's rawcode name so modifiers resolve to the same Key whatever
// character they produce; printable characters fall back to the keychar.
func hookKey(keychar rune, rawcode uint16, name string) (eventlog.Key, bool) {
	if sym, ok := x11Keysyms[rawcode]; ok {
		return eventlog.MustParseKey(sym), true
	}
	if name != "" {
		name = strings.TrimSuffix(strings.ToLower(name), " arrow")
		name = strings.TrimSuffix(name, "/break")
		name = strings.ReplaceAll(name, " ", "_")
		if k, err := eventlog.ParseKey(name); err == nil {
			return k, true
		}
	}
	if keychar != charUndefined && keychar != 0 && unicode.IsPrint(keychar) {
		k, err := eventlog.ParseKey(string(keychar))
		return k, err == nil
	}
	return eventlog.Key{}, false
}
