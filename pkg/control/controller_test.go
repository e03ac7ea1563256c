package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStopIsMonotonicAndRecordsFirstReason(t *testing.T) {
	c := New(context.Background(), nil)
	if !c.Running() || c.State() != "running" {
		t.Fatalf("expected running controller")
	}

	c.Stop("stop key")
	c.Stop("signal")

	if c.Running() {
		t.Fatalf("expected controller to stay stopped")
	}
	if c.Reason() != "stop key" {
		t.Fatalf("expected first reason kept, got %q", c.Reason())
	}
	if !errors.Is(context.Cause(c.Context()), ErrStopped) {
		t.Fatalf("expected ErrStopped cause, got %v", context.Cause(c.Context()))
	}
	timeline := c.Timeline()
	if len(timeline) != 2 || timeline[1].State != "stopping" {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
}

func TestStopUnblocksWaiters(t *testing.T) {
	c := New(context.Background(), nil)

	done := make(chan struct{})
	go func() {
		<-c.Context().Done()
		close(done)
	}()

	c.Stop("test")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("context not cancelled after stop")
	}
}

func TestConcurrentStopIsSafe(t *testing.T) {
	c := New(context.Background(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Running()
			c.Stop("race")
		}()
	}
	wg.Wait()
	if c.Running() {
		t.Fatalf("expected stopped")
	}
	if n := len(c.Timeline()); n != 2 {
		t.Fatalf("expected a single stopping transition, got %d entries", n)
	}
}

func TestParentCancellationStopsController(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	c := New(parent, nil)
	cancel()

	if c.Running() {
		t.Fatalf("expected parent cancellation to be observed")
	}
	if c.Reason() == "" {
		t.Fatalf("expected cancellation cause as reason")
	}
}
