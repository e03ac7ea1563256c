package native

import (
	"errors"
	"testing"
	"time"

	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/events"
)

func TestConvertHookPointerEdges(t *testing.T) {
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		in     hookEdge
		kind   events.Kind
		button eventlog.Button
	}{
		{"move", hookEdge{Kind: hookMouseMove, X: 10, Y: 20}, events.KindMove, ""},
		{"drag", hookEdge{Kind: hookMouseDrag, X: 10, Y: 20}, events.KindMove, ""},
		{"press", hookEdge{Kind: hookMouseHold, Button: 2}, events.KindButtonDown, eventlog.ButtonRight},
		{"release", hookEdge{Kind: hookMouseDown, Button: 3}, events.KindButtonUp, eventlog.ButtonMiddle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.When = when
			raw, ok := convertHook(tc.in)
			if !ok {
				t.Fatalf("expected conversion")
			}
			if raw.Kind != tc.kind || raw.Button != tc.button || !raw.When.Equal(when) {
				t.Fatalf("unexpected raw %+v", raw)
			}
		})
	}

	if _, ok := convertHook(hookEdge{Kind: hookKeyDown, Keychar: 'a'}); ok {
		t.Fatalf("typed-character events must be dropped")
	}
	if _, ok := convertHook(hookEdge{Kind: hookMouseHold, Button: 9}); ok {
		t.Fatalf("unknown buttons must be dropped")
	}
}

func TestConvertHookKeys(t *testing.T) {
	cases := []struct {
		name string
		in   hookEdge
		want string
		kind events.Kind
	}{
		{"x11 f10", hookEdge{Kind: hookKeyHold, Rawcode: 0xffc7}, "f10", events.KindKeyDown},
		{"x11 right shift", hookEdge{Kind: hookKeyUp, Rawcode: 0xffe2}, "shift_r", events.KindKeyUp},
		{"named arrow", hookEdge{Kind: hookKeyHold, KeyName: "left arrow"}, "left", events.KindKeyDown},
		{"named caps", hookEdge{Kind: hookKeyHold, KeyName: "caps lock"}, "caps_lock", events.KindKeyDown},
		{"character", hookEdge{Kind: hookKeyHold, Keychar: 'q', Rawcode: 0x71}, "q", events.KindKeyDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, ok := convertHook(tc.in)
			if !ok {
				t.Fatalf("expected conversion")
			}
			if raw.Kind != tc.kind || raw.Key.Name != tc.want {
				t.Fatalf("expected %s %s, got %+v", tc.kind, tc.want, raw)
			}
		})
	}
	if _, ok := convertHook(hookEdge{Kind: hookKeyHold, Keychar: charUndefined}); ok {
		t.Fatalf("unnamed non-printable keys must be dropped")
	}
}

func TestOutputNames(t *testing.T) {
	if name, err := outputKey(eventlog.MustParseKey("shift_r")); err != nil || name != "rshift" {
		t.Fatalf("unexpected modifier mapping %q %v", name, err)
	}
	if name, err := outputKey(eventlog.MustParseKey("page_down")); err != nil || name != "pagedown" {
		t.Fatalf("unexpected special mapping %q %v", name, err)
	}
	if name, err := outputKey(eventlog.Char('z')); err != nil || name != "z" {
		t.Fatalf("unexpected char mapping %q %v", name, err)
	}
	if _, err := outputKey(eventlog.MustParseKey("scroll_lock")); !errors.Is(err, device.ErrUnsupported) {
		t.Fatalf("expected unsupported key, got %v", err)
	}
	if _, err := outputButton(eventlog.ButtonX1); !errors.Is(err, device.ErrUnsupported) {
		t.Fatalf("expected unsupported button, got %v", err)
	}
	if name, _ := outputButton(eventlog.ButtonMiddle); name != "center" {
		t.Fatalf("unexpected middle mapping %q", name)
	}
}
