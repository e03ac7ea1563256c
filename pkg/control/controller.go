// Package control holds the process-wide stop signal shared by the supervisory
// loop, the alarm scheduler and the stop-key listener.
package control

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is the cancellation cause recorded when Stop is called.
var ErrStopped = errors.New("stop requested")

// Transition records a controller state change for diagnostics.
type Transition struct {
	State     string
	Reason    string
	Timestamp time.Time
}

// Controller owns a running flag that only ever moves from true to false and
// the context every blocking wait in the process derives from.
type Controller struct {
	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelCauseFunc
	clock   func() time.Time

	mu       sync.Mutex
	reason   string
	timeline []Transition
}

// New returns a running controller whose context is derived from parent.
func New(parent context.Context, clock func() time.Time) *Controller {
	if parent == nil {
		parent = context.Background()
	}
	if clock == nil {
		clock = time.Now
	}
	ctx, cancel := context.WithCancelCause(parent)
	c := &Controller{ctx: ctx, cancel: cancel, clock: clock}
	c.running.Store(true)
	c.timeline = append(c.timeline, Transition{State: "running", Reason: "started", Timestamp: clock().UTC()})
	return c
}

// Context is cancelled once the controller stops or the parent is cancelled.
func (c *Controller) Context() context.Context { return c.ctx }

// Running reports whether Stop has not yet been called. Safe from any goroutine.
func (c *Controller) Running() bool {
	return c.running.Load() && c.ctx.Err() == nil
}

// Stop transitions to stopped. Only the first call records its reason.
func (c *Controller) Stop(reason string) {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	c.reason = reason
	c.timeline = append(c.timeline, Transition{State: "stopping", Reason: reason, Timestamp: c.clock().UTC()})
	c.mu.Unlock()
	c.cancel(ErrStopped)
}

// Note appends an informational transition without changing state.
func (c *Controller) Note(state, reason string) {
	c.mu.Lock()
	c.timeline = append(c.timeline, Transition{State: state, Reason: reason, Timestamp: c.clock().UTC()})
	c.mu.Unlock()
}

// Reason returns the reason passed to the first Stop call, or the parent's
// cancellation cause when the controller was stopped from outside.
func (c *Controller) Reason() string {
	c.mu.Lock()
	reason := c.reason
	c.mu.Unlock()
	if reason != "" {
		return reason
	}
	if cause := context.Cause(c.ctx); cause != nil {
		return cause.Error()
	}
	return ""
}

// Timeline returns a copy of the recorded transitions.
func (c *Controller) Timeline() []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Transition(nil), c.timeline...)
}

// State reports the textual state for diagnostics.
func (c *Controller) State() string {
	if c.Running() {
		return "running"
	}
	return "stopping"
}
