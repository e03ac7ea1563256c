package device

import (
	"testing"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

func TestVirtualRecordsActionsButNotNudges(t *testing.T) {
	v := NewVirtual(0, 0, 800, 600)
	v.Move(10, 20)
	v.Nudge(300, 300)
	if err := v.Press(eventlog.ButtonLeft); err != nil {
		t.Fatalf("press: %v", err)
	}

	if x, y := v.Position(); x != 300 || y != 300 {
		t.Fatalf("expected nudged position, got (%d,%d)", x, y)
	}
	actions := v.Actions()
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %v", actions)
	}
	if actions[0].String() != "move(10,20)" || actions[1].String() != "press(left)" {
		t.Fatalf("unexpected actions %v", actions)
	}
}

func TestButtonsOfUsesOptionalCapability(t *testing.T) {
	v := NewVirtual(0, 0, 800, 600)
	v.SetButton(eventlog.ButtonRight, true)

	set, ok := ButtonsOf(v)
	if !ok {
		t.Fatalf("expected virtual device to report buttons")
	}
	if !set[eventlog.ButtonRight] || set[eventlog.ButtonLeft] {
		t.Fatalf("unexpected snapshot %v", set)
	}
	if set.Equal(ButtonSet{}) {
		t.Fatalf("expected snapshots to differ")
	}

	var plain Output = struct{ Output }{v}
	if _, ok := ButtonsOf(plain); ok {
		t.Fatalf("expected wrapped device without capability to report unsupported")
	}
}
