package replay

import (
	"math"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

// SelectPoints returns the indices of the events replayed this time. Clicks,
// keys and both endpoints are always kept; every other event survives with
// probability keep.
func SelectPoints(log *eventlog.Log, keep float64, r Rand) []int {
	n := log.Len()
	selected := make([]int, 0, n)
	for i := 0; i < n; i++ {
		e := log.At(i)
		if e.IsEdge() || i == 0 || i == n-1 || chance(r, keep) {
			selected = append(selected, i)
		}
	}
	return selected
}

// Transform is the per-replay spatial change: a uniform scale around the
// log centroid followed by a planar offset.
type Transform struct {
	OffsetX, OffsetY float64
	Scale            float64
	CenterX, CenterY float64
}

// Identity leaves coordinates unchanged.
var Identity = Transform{Scale: 1}

// IsIdentity reports whether the transform changes nothing.
func (t Transform) IsIdentity() bool {
	return t.Scale == 1 && t.OffsetX == 0 && t.OffsetY == 0
}

// NewTransform draws the transform for one replay.
func NewTransform(c eventlog.Centroid, opts Options, r Rand) Transform {
	if !c.Valid || !chance(r, opts.TransformProbability) {
		return Identity
	}
	return Transform{
		OffsetX: uniform(r, -opts.MaxOffsetX, opts.MaxOffsetX),
		OffsetY: uniform(r, -opts.MaxOffsetY, opts.MaxOffsetY),
		Scale:   uniform(r, opts.MinScale, opts.MaxScale),
		CenterX: c.X,
		CenterY: c.Y,
	}
}

// Apply maps a recorded coordinate to its transformed position.
func (t Transform) Apply(x, y int) (float64, float64) {
	if t.IsIdentity() {
		return float64(x), float64(y)
	}
	tx := t.CenterX + (float64(x)-t.CenterX)*t.Scale + t.OffsetX
	ty := t.CenterY + (float64(y)-t.CenterY)*t.Scale + t.OffsetY
	return tx, ty
}

// Bounds is the inclusive screen extent, 0..MaxX and 0..MaxY.
type Bounds struct {
	MaxX, MaxY int
}

// Clamp rounds and confines a position to the bounds.
func (b Bounds) Clamp(x, y float64) (int, int) {
	return clampInt(int(math.Round(x)), b.MaxX), clampInt(int(math.Round(y)), b.MaxY)
}

func clampInt(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// ease is the smoothstep curve p²(3−2p).
func ease(p float64) float64 {
	return p * p * (3 - 2*p)
}

// stepCount is the number of interpolation steps for a glide of distance pixels.
func stepCount(distance, pixelsPerStep float64, minSteps int) int {
	steps := int(math.Round(distance / pixelsPerStep))
	if steps < minSteps {
		steps = minSteps
	}
	return steps
}
