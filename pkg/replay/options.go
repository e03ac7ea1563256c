package replay

import (
	"fmt"
	"time"
)

// Options tunes the humanisation applied to every replay.
type Options struct {
	Bounds Bounds

	KeepProbability      float64
	TransformProbability float64
	MaxOffsetX           float64
	MaxOffsetY           float64
	MinScale             float64
	MaxScale             float64

	// TimingJitter scales each inter-event gap by uniform(1-j, 1+j).
	TimingJitter float64
	// StepJitter scales each interpolation step sleep by uniform(1-j, 1+j).
	StepJitter    float64
	PixelsPerStep float64
	MinSteps      int
	TremorPx      int

	InterferenceThresholdPx int

	KeySkipProbability float64
	KeyPreDelayMin     time.Duration
	KeyPreDelayMax     time.Duration
	KeyHoldMin         time.Duration
	KeyHoldMax         time.Duration

	LongPauseProbability  float64
	LongPauseMin          time.Duration
	LongPauseMax          time.Duration
	ShortPauseProbability float64
	ShortPauseMin         time.Duration
	ShortPauseMax         time.Duration
}

// DefaultOptions returns the stock humanisation profile for a screen whose
// largest coordinates are maxX and maxY.
func DefaultOptions(maxX, maxY int) Options {
	return Options{
		Bounds:                  Bounds{MaxX: maxX, MaxY: maxY},
		KeepProbability:         0.85,
		TransformProbability:    0.92,
		MaxOffsetX:              80,
		MaxOffsetY:              60,
		MinScale:                0.94,
		MaxScale:                1.06,
		TimingJitter:            0.15,
		StepJitter:              0.2,
		PixelsPerStep:           30,
		MinSteps:                5,
		TremorPx:                2,
		InterferenceThresholdPx: 20,
		KeySkipProbability:      0.18,
		KeyPreDelayMin:          45 * time.Millisecond,
		KeyPreDelayMax:          220 * time.Millisecond,
		KeyHoldMin:              10 * time.Millisecond,
		KeyHoldMax:              40 * time.Millisecond,
		LongPauseProbability:    0.15,
		LongPauseMin:            20 * time.Millisecond,
		LongPauseMax:            150 * time.Millisecond,
		ShortPauseProbability:   0.30,
		ShortPauseMin:           5 * time.Millisecond,
		ShortPauseMax:           25 * time.Millisecond,
	}
}

// Validate reports the first inconsistent setting.
func (o Options) Validate() error {
	if o.Bounds.MaxX <= 0 || o.Bounds.MaxY <= 0 {
		return fmt.Errorf("screen bounds must be positive, got %dx%d", o.Bounds.MaxX, o.Bounds.MaxY)
	}
	probabilities := []struct {
		name string
		p    float64
	}{
		{"keep", o.KeepProbability},
		{"transform", o.TransformProbability},
		{"key skip", o.KeySkipProbability},
		{"long pause", o.LongPauseProbability},
		{"short pause", o.ShortPauseProbability},
	}
	for _, prob := range probabilities {
		if prob.p < 0 || prob.p > 1 {
			return fmt.Errorf("%s probability must be within [0,1], got %v", prob.name, prob.p)
		}
	}
	if o.MinScale <= 0 || o.MaxScale < o.MinScale {
		return fmt.Errorf("scale range [%v,%v] is invalid", o.MinScale, o.MaxScale)
	}
	if o.TimingJitter < 0 || o.TimingJitter >= 1 || o.StepJitter < 0 || o.StepJitter >= 1 {
		return fmt.Errorf("jitter must be within [0,1)")
	}
	if o.PixelsPerStep <= 0 || o.MinSteps < 1 {
		return fmt.Errorf("interpolation needs positive pixels per step and at least one step")
	}
	if o.TremorPx < 0 || o.InterferenceThresholdPx < 0 {
		return fmt.Errorf("tremor and interference threshold must not be negative")
	}
	return nil
}
