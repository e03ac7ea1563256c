package replay

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

func TestSelectPointsKeepsEdgesAndEndpoints(t *testing.T) {
	var events []eventlog.Event
	for i := 0; i < 200; i++ {
		ts := float64(i) * 0.02
		switch i % 17 {
		case 5:
			events = append(events, eventlog.Click(i, i, eventlog.ButtonLeft, true, ts))
		case 9:
			events = append(events, eventlog.KeyEdge(eventlog.Char('k'), true, ts))
		default:
			events = append(events, eventlog.Move(i, i, ts))
		}
	}
	log, err := eventlog.New(events)
	if err != nil {
		t.Fatalf("build log: %v", err)
	}

	for seed := int64(1); seed <= 50; seed++ {
		selected := SelectPoints(log, 0.85, rand.New(rand.NewSource(seed)))
		if len(selected) > log.Len() {
			t.Fatalf("seed %d: selected more than recorded", seed)
		}
		if selected[0] != 0 || selected[len(selected)-1] != log.Len()-1 {
			t.Fatalf("seed %d: endpoints dropped", seed)
		}
		kept := map[int]bool{}
		for i, idx := range selected {
			if i > 0 && idx <= selected[i-1] {
				t.Fatalf("seed %d: selection out of order", seed)
			}
			kept[idx] = true
		}
		for i := 0; i < log.Len(); i++ {
			if log.At(i).IsEdge() && !kept[i] {
				t.Fatalf("seed %d: edge %d dropped", seed, i)
			}
		}
	}
}

func TestSelectPointsEmpty(t *testing.T) {
	log, _ := eventlog.New(nil)
	if got := SelectPoints(log, 0.85, constRand(0.99)); len(got) != 0 {
		t.Fatalf("expected empty selection, got %v", got)
	}
}

func TestTransformScalesAroundCentroid(t *testing.T) {
	tr := Transform{Scale: 2, CenterX: 100, CenterY: 100, OffsetX: 10, OffsetY: -10}
	x, y := tr.Apply(150, 50)
	if x != 210 || y != -10 {
		t.Fatalf("unexpected transform result (%v,%v)", x, y)
	}
	cx, cy := Bounds{MaxX: 1919, MaxY: 1079}.Clamp(x, y)
	if cx != 210 || cy != 0 {
		t.Fatalf("expected clamp to (210,0), got (%d,%d)", cx, cy)
	}
}

func TestNewTransformRanges(t *testing.T) {
	opts := DefaultOptions(1919, 1079)
	c := eventlog.Centroid{X: 500, Y: 400, Valid: true}
	for seed := int64(1); seed <= 100; seed++ {
		tr := NewTransform(c, opts, rand.New(rand.NewSource(seed)))
		if tr.IsIdentity() {
			continue
		}
		if tr.Scale < 0.94 || tr.Scale > 1.06 {
			t.Fatalf("seed %d: scale %v out of range", seed, tr.Scale)
		}
		if tr.OffsetX < -80 || tr.OffsetX > 80 || tr.OffsetY < -60 || tr.OffsetY > 60 {
			t.Fatalf("seed %d: offset (%v,%v) out of range", seed, tr.OffsetX, tr.OffsetY)
		}
	}
	if tr := NewTransform(eventlog.Centroid{}, opts, constRand(0)); !tr.IsIdentity() {
		t.Fatalf("expected identity without a centroid")
	}
}

func TestStepCount(t *testing.T) {
	cases := map[float64]int{0: 5, 100: 5, 300: 10, 1000: 33}
	for distance, want := range cases {
		if got := stepCount(distance, 30, 5); got != want {
			t.Fatalf("distance %v: expected %d steps, got %d", distance, want, got)
		}
	}
}

func TestGracePeriodExpires(t *testing.T) {
	g := NewGracePeriod(500*time.Millisecond, zerolog.Nop())
	if g.Active(epoch) {
		t.Fatalf("expected inactive before restart")
	}
	g.Restart(epoch)
	if !g.Active(epoch.Add(400 * time.Millisecond)) {
		t.Fatalf("expected active inside window")
	}
	if g.Active(epoch.Add(600 * time.Millisecond)) {
		t.Fatalf("expected expired after window")
	}
	if g.Active(epoch.Add(100 * time.Millisecond)) {
		t.Fatalf("expected expiry to stick until restart")
	}
	g.Restart(epoch.Add(time.Second))
	if !g.Active(epoch.Add(1100 * time.Millisecond)) {
		t.Fatalf("expected restart to reopen the window")
	}

	var nilGrace *GracePeriod
	if nilGrace.Active(epoch) {
		t.Fatalf("nil grace must never be active")
	}
}
