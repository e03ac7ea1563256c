package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRealSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Real{}.Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("sleep did not return promptly")
	}
}

func TestSleepChunkedTicksEverySlice(t *testing.T) {
	fake := NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var ticks []time.Duration
	err := SleepChunked(context.Background(), fake, 150*time.Second, time.Minute, func(remaining time.Duration) {
		ticks = append(ticks, remaining)
	})
	if err != nil {
		t.Fatalf("sleep chunked: %v", err)
	}
	want := []time.Duration{150 * time.Second, 90 * time.Second, 30 * time.Second}
	if len(ticks) != len(want) {
		t.Fatalf("expected %d ticks, got %v", len(want), ticks)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Fatalf("tick %d: want %s got %s", i, want[i], ticks[i])
		}
	}
	if fake.Slept() != 150*time.Second {
		t.Fatalf("expected 150s slept, got %s", fake.Slept())
	}
}

func TestSleepChunkedStopsWhenCancelledMidway(t *testing.T) {
	fake := NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	fake.OnSleep(func(now time.Time) {
		if fake.Slept() >= 2*time.Second {
			cancel()
		}
	})

	err := SleepChunked(ctx, fake, time.Minute, time.Second, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if fake.Slept() != 2*time.Second {
		t.Fatalf("expected cancellation honoured within one chunk, slept %s", fake.Slept())
	}
}
