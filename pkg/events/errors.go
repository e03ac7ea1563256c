package events

import "errors"

// ErrCaptureUnavailable indicates the push listener cannot be started on this
// host. Callers fall back to polling.
var ErrCaptureUnavailable = errors.New("event-driven input capture unavailable")
