package events

import (
	"github.com/offlinefirst/pattern-replay/pkg/permissions"
)

// Environment summarises which capture strategy the host supports.
type Environment struct {
	Provider   string
	Available  bool
	Permission string
	Message    string
	Guidance   string
}

const (
	providerHook    = "global_hook"
	providerPolling = "polling"
)

// DetectEnvironment reports whether the push listener can be used. hookBuilt
// tells whether the binary carries the native hook at all.
func DetectEnvironment(hookBuilt bool, lookup permissions.LookupEnvFunc) Environment {
	capture := permissions.ProbeInputCapture(lookup)
	env := Environment{
		Provider:   providerHook,
		Permission: capture.StatusString(),
		Message:    capture.Message,
		Guidance:   capture.Guidance,
		Available:  hookBuilt && capture.Usable(),
	}
	if !hookBuilt {
		env.Message = "binary built without the native input hook"
		env.Guidance = "rebuild with CGO_ENABLED=1"
	}
	if !env.Available {
		env.Provider = providerPolling
	}
	return env
}
