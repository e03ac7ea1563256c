// Package permissions probes the platform capabilities pointer replay and
// input capture depend on. Every probe can be forced with a REPLAYER_* env
// variable so behaviour can be exercised on hosts without the capability.
package permissions

import (
	"os"
	"runtime"
	"strings"
)

// Status enumerates coarse permission results.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that the capability is usable.
	StatusGranted Status = "granted"
	// StatusDenied indicates access is blocked.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// ProbeResult represents the coarse state for a capability.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// Usable reports whether the capability can be attempted.
func (p ProbeResult) Usable() bool {
	return p.Status == StatusGranted || p.Status == StatusPromptRequired
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// DefaultLookupEnv is the standard environment resolver.
func DefaultLookupEnv(key string) (string, bool) {
	return lookupEnv(key)
}

// lookupEnv and goos are declared for swapping in tests.
var (
	lookupEnv = os.LookupEnv
	goos      = runtime.GOOS
)

// ProbeAccessibility reports whether the process may inject and observe input.
func ProbeAccessibility(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("REPLAYER_ACCESSIBILITY"); ok {
		return interpretPermissionFlag("accessibility", value)
	}
	if goos == "darwin" {
		return ProbeResult{
			Status:   StatusPromptRequired,
			Message:  "accessibility trust required to move the pointer and listen for input",
			Guidance: "grant access in System Settings > Privacy & Security > Accessibility",
		}
	}
	return ProbeResult{Status: StatusGranted, Message: "no accessibility prompt on " + goos}
}

// ProbeDisplay reports whether a display server accepting synthetic input is reachable.
func ProbeDisplay(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("REPLAYER_DISPLAY"); ok {
		return interpretPermissionFlag("display", value)
	}
	if goos != "linux" && goos != "freebsd" {
		return ProbeResult{Status: StatusGranted, Message: "native window server"}
	}
	if display, ok := lookup("DISPLAY"); ok && display != "" {
		return ProbeResult{Status: StatusGranted, Message: "X11 display " + display}
	}
	if wayland, ok := lookup("WAYLAND_DISPLAY"); ok && wayland != "" {
		return ProbeResult{
			Status:   StatusDenied,
			Message:  "wayland session " + wayland + " blocks global input injection",
			Guidance: "log in to an X11 session or export DISPLAY for XWayland",
		}
	}
	return ProbeResult{
		Status:   StatusUnavailable,
		Message:  "no display server found",
		Guidance: "set DISPLAY to the X11 display to drive",
	}
}

// ProbeInputCapture reports whether the push-based input listener can start.
func ProbeInputCapture(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("REPLAYER_INPUT_CAPTURE"); ok {
		return interpretPermissionFlag("input capture", value)
	}
	if display := ProbeDisplay(lookup); !display.Usable() {
		return ProbeResult{
			Status:   display.Status,
			Message:  "input listener needs a display: " + display.Message,
			Guidance: display.Guidance,
		}
	}
	access := ProbeAccessibility(lookup)
	if !access.Usable() {
		return ProbeResult{Status: access.Status, Message: "input listener blocked: " + access.Message, Guidance: access.Guidance}
	}
	return ProbeResult{Status: access.Status, Message: "global input hook available"}
}

// ProbeButtonState reports whether button state can be queried synchronously,
// which the polling recorder needs to derive click edges.
func ProbeButtonState(lookup LookupEnvFunc) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("REPLAYER_BUTTON_STATE"); ok {
		return interpretPermissionFlag("button state", value)
	}
	return ProbeResult{
		Status:   StatusUnavailable,
		Message:  "synchronous button state queries unsupported; polling records pointer moves only",
		Guidance: "keep the push listener available to capture clicks",
	}
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "update REPLAYER_* env to re-test"}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// StatusString returns the string representation for manifest integration.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
