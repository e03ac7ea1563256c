package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/offlinefirst/pattern-replay/pkg/clock"
	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestWaitForQuietRestartsAfterMovement(t *testing.T) {
	clk := clock.NewFake(epoch)
	dev := device.NewVirtual(500, 500, 1920, 1080)
	moved := false
	clk.OnSleep(func(now time.Time) {
		if !moved && now.Sub(epoch) >= 2*time.Second {
			moved = true
			dev.Nudge(600, 500)
		}
	})

	var reasons []string
	postpone := 3 * time.Second
	ok := WaitForQuiet(context.Background(), dev, Options{
		Window:     5 * time.Second,
		Postpone:   postpone,
		Threshold:  20,
		Clock:      clk,
		OnActivity: func(reason string) { reasons = append(reasons, reason) },
	})
	if !ok {
		t.Fatalf("expected quiet window to complete")
	}
	if elapsed, min := clk.Now().Sub(epoch), 2*time.Second+postpone+5*time.Second; elapsed < min {
		t.Fatalf("returned after %s, expected at least %s", elapsed, min)
	}
	if len(reasons) != 1 || reasons[0] != "pointer moved" {
		t.Fatalf("expected one movement postponement, got %v", reasons)
	}
}

func TestWaitForQuietToleratesJitterBelowThreshold(t *testing.T) {
	clk := clock.NewFake(epoch)
	dev := device.NewVirtual(500, 500, 1920, 1080)
	clk.OnSleep(func(now time.Time) {
		dev.Nudge(500+int(now.Sub(epoch)/time.Second)%5, 500)
	})

	ok := WaitForQuiet(context.Background(), dev, Options{Window: 5 * time.Second, Postpone: time.Second, Threshold: 20, Clock: clk})
	if !ok {
		t.Fatalf("expected quiet")
	}
	if elapsed := clk.Now().Sub(epoch); elapsed > 6*time.Second {
		t.Fatalf("small jitter restarted the window, took %s", elapsed)
	}
}

func TestWaitForQuietDetectsButtonChange(t *testing.T) {
	clk := clock.NewFake(epoch)
	dev := device.NewVirtual(500, 500, 1920, 1080)
	pressed := false
	clk.OnSleep(func(now time.Time) {
		if !pressed && now.Sub(epoch) >= time.Second {
			pressed = true
			dev.SetButton(eventlog.ButtonLeft, true)
		}
	})

	var reasons []string
	ok := WaitForQuiet(context.Background(), dev, Options{
		Window:     2 * time.Second,
		Postpone:   time.Second,
		Threshold:  20,
		Clock:      clk,
		OnActivity: func(reason string) { reasons = append(reasons, reason) },
	})
	if !ok || len(reasons) != 1 || reasons[0] != "button state changed" {
		t.Fatalf("expected one button postponement, got ok=%v reasons=%v", ok, reasons)
	}
}

func TestWaitForQuietCancelled(t *testing.T) {
	clk := clock.NewFake(epoch)
	dev := device.NewVirtual(500, 500, 1920, 1080)
	ctx, cancel := context.WithCancel(context.Background())
	step := 0
	clk.OnSleep(func(time.Time) {
		step++
		dev.Nudge(500+step*50, 500)
		if step == 30 {
			cancel()
		}
	})

	if WaitForQuiet(ctx, dev, Options{Window: 5 * time.Second, Postpone: time.Second, Threshold: 20, Clock: clk}) {
		t.Fatalf("expected false on cancellation")
	}
}
