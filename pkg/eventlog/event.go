// Package eventlog models a recorded pattern: an ordered sequence of pointer
// and key events with timestamps relative to the start of capture.
package eventlog

import (
	"fmt"
	"strings"
)

// Kind tags the event variant.
type Kind string

const (
	KindMove  Kind = "move"
	KindClick Kind = "click"
	KindKey   Kind = "key"
)

// Button identifies a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
	ButtonX1     Button = "x1"
	ButtonX2     Button = "x2"
)

// Buttons lists every known button in a stable order.
var Buttons = []Button{ButtonLeft, ButtonRight, ButtonMiddle, ButtonX1, ButtonX2}

// ParseButton accepts canonical names as well as forms like "Button.right".
// Unrecognised names resolve to the left button.
func ParseButton(raw string) Button {
	name := strings.ToLower(raw)
	switch {
	case strings.Contains(name, "right"):
		return ButtonRight
	case strings.Contains(name, "middle"), strings.Contains(name, "center"):
		return ButtonMiddle
	case strings.Contains(name, "x1"):
		return ButtonX1
	case strings.Contains(name, "x2"):
		return ButtonX2
	default:
		return ButtonLeft
	}
}

// Event is one recorded input edge or pointer sample.
//
// X and Y are meaningful for move and click events, Button for clicks,
// Key for key events and Pressed for clicks and keys. T is seconds since capture start.
type Event struct {
	Kind    Kind
	X, Y    int
	Button  Button
	Key     Key
	Pressed bool
	T       float64
}

// Move builds a pointer move event.
func Move(x, y int, t float64) Event {
	return Event{Kind: KindMove, X: x, Y: y, T: t}
}

// Click builds a button edge event.
func Click(x, y int, button Button, pressed bool, t float64) Event {
	return Event{Kind: KindClick, X: x, Y: y, Button: button, Pressed: pressed, T: t}
}

// KeyEdge builds a key edge event.
func KeyEdge(key Key, pressed bool, t float64) Event {
	return Event{Kind: KindKey, Key: key, Pressed: pressed, T: t}
}

// HasCoords reports whether the event carries a pointer position.
func (e Event) HasCoords() bool {
	return e.Kind == KindMove || e.Kind == KindClick
}

// IsEdge reports whether the event is a click or key edge.
func (e Event) IsEdge() bool {
	return e.Kind == KindClick || e.Kind == KindKey
}

func (e Event) String() string {
	switch e.Kind {
	case KindMove:
		return fmt.Sprintf("move(%d,%d @%.3f)", e.X, e.Y, e.T)
	case KindClick:
		return fmt.Sprintf("click(%d,%d %s pressed=%t @%.3f)", e.X, e.Y, e.Button, e.Pressed, e.T)
	case KindKey:
		return fmt.Sprintf("key(%s pressed=%t @%.3f)", e.Key, e.Pressed, e.T)
	default:
		return fmt.Sprintf("event(%s @%.3f)", e.Kind, e.T)
	}
}
