package events

import "testing"

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDetectEnvironmentSetsFields(t *testing.T) {
	env := DetectEnvironment(true, lookupFrom(map[string]string{"REPLAYER_INPUT_CAPTURE": "granted"}))
	if env.Provider != providerHook || !env.Available {
		t.Fatalf("expected hook provider, got %+v", env)
	}
	if env.Permission == "" || env.Message == "" {
		t.Fatalf("expected permission and message, got %+v", env)
	}
}

func TestDetectEnvironmentFallsBackToPolling(t *testing.T) {
	env := DetectEnvironment(true, lookupFrom(map[string]string{"REPLAYER_INPUT_CAPTURE": "denied"}))
	if env.Available || env.Provider != providerPolling {
		t.Fatalf("expected polling fallback, got %+v", env)
	}

	env = DetectEnvironment(false, lookupFrom(map[string]string{"REPLAYER_INPUT_CAPTURE": "granted"}))
	if env.Available || env.Guidance == "" {
		t.Fatalf("expected missing hook to be reported, got %+v", env)
	}
}
