package eventlog

import (
	"errors"
	"fmt"
)

// ErrEmptyLog marks a recording or file that holds no usable events.
var ErrEmptyLog = errors.New("event log is empty")

// Point is an integer screen coordinate.
type Point struct {
	X, Y int
}

// Centroid is the mean position of all coordinate-bearing events.
type Centroid struct {
	X, Y float64
	// Valid is false when the log has no coordinate-bearing events.
	Valid bool
}

// Log is an immutable, time-ordered sequence of events.
type Log struct {
	events   []Event
	centroid Centroid
}

// New validates ordering and returns a log owning a copy of events.
func New(events []Event) (*Log, error) {
	copied := make([]Event, len(events))
	copy(copied, events)

	for i, e := range copied {
		switch e.Kind {
		case KindMove, KindClick, KindKey:
		default:
			return nil, fmt.Errorf("event %d: unknown kind %q", i, e.Kind)
		}
		if e.T < 0 {
			return nil, fmt.Errorf("event %d: negative timestamp %.3f", i, e.T)
		}
		if i > 0 && e.T < copied[i-1].T {
			return nil, fmt.Errorf("event %d: timestamp %.3f precedes %.3f", i, e.T, copied[i-1].T)
		}
		if e.Kind == KindKey && e.Key.IsZero() {
			return nil, fmt.Errorf("event %d: key event without key", i)
		}
	}

	return &Log{events: copied, centroid: centroidOf(copied)}, nil
}

func centroidOf(events []Event) Centroid {
	var sumX, sumY float64
	n := 0
	for _, e := range events {
		if !e.HasCoords() {
			continue
		}
		sumX += float64(e.X)
		sumY += float64(e.Y)
		n++
	}
	if n == 0 {
		return Centroid{}
	}
	return Centroid{X: sumX / float64(n), Y: sumY / float64(n), Valid: true}
}

// Len returns the number of events.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.events)
}

// Empty reports whether the log has no events.
func (l *Log) Empty() bool { return l.Len() == 0 }

// At returns the i-th event.
func (l *Log) At(i int) Event { return l.events[i] }

// Events returns a copy of the events.
func (l *Log) Events() []Event {
	if l == nil {
		return nil
	}
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Centroid returns the mean coordinate of the log.
func (l *Log) Centroid() Centroid {
	if l == nil {
		return Centroid{}
	}
	return l.centroid
}

// Duration returns the timestamp of the last event.
func (l *Log) Duration() float64 {
	if l.Len() == 0 {
		return 0
	}
	return l.events[len(l.events)-1].T
}

// Counts tallies events per kind.
func (l *Log) Counts() map[Kind]int {
	counts := make(map[Kind]int, 3)
	if l == nil {
		return counts
	}
	for _, e := range l.events {
		counts[e.Kind]++
	}
	return counts
}
