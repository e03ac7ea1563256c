package permissions

import "testing"

type fakeLookup map[string]string

func (f fakeLookup) get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func withGOOS(t *testing.T, value string) {
	t.Helper()
	orig := goos
	goos = value
	t.Cleanup(func() { goos = orig })
}

func TestInterpretPermissionFlag(t *testing.T) {
	cases := map[string]struct {
		value    string
		expected Status
	}{
		"granted":     {"granted", StatusGranted},
		"denied":      {"denied", StatusDenied},
		"prompt":      {"prompt", StatusPromptRequired},
		"unsupported": {"unsupported", StatusUnavailable},
		"unknown":     {"", StatusUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := interpretPermissionFlag("test", tc.value)
			if res.Status != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, res.Status)
			}
		})
	}
}

func TestProbeDisplayLinux(t *testing.T) {
	withGOOS(t, "linux")

	cases := map[string]struct {
		env      fakeLookup
		expected Status
	}{
		"x11":      {fakeLookup{"DISPLAY": ":0"}, StatusGranted},
		"wayland":  {fakeLookup{"WAYLAND_DISPLAY": "wayland-0"}, StatusDenied},
		"headless": {fakeLookup{}, StatusUnavailable},
		"override": {fakeLookup{"REPLAYER_DISPLAY": "granted"}, StatusGranted},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := ProbeDisplay(tc.env.get)
			if res.Status != tc.expected {
				t.Fatalf("expected %s, got %s (%s)", tc.expected, res.Status, res.Message)
			}
		})
	}
}

func TestProbeInputCaptureFollowsDisplay(t *testing.T) {
	withGOOS(t, "linux")

	res := ProbeInputCapture(fakeLookup{"WAYLAND_DISPLAY": "wayland-0"}.get)
	if res.Usable() {
		t.Fatalf("expected wayland to block input capture")
	}
	if res.Guidance == "" {
		t.Fatalf("expected guidance when blocked")
	}

	res = ProbeInputCapture(fakeLookup{"DISPLAY": ":1"}.get)
	if !res.Usable() {
		t.Fatalf("expected X11 to allow input capture, got %s", res.Status)
	}
}

func TestProbeAccessibilityDarwinPrompts(t *testing.T) {
	withGOOS(t, "darwin")
	res := ProbeAccessibility(fakeLookup{}.get)
	if res.Status != StatusPromptRequired || !res.Usable() {
		t.Fatalf("expected prompt on darwin, got %s", res.Status)
	}

	res = ProbeAccessibility(fakeLookup{"REPLAYER_ACCESSIBILITY": "denied"}.get)
	if res.Status != StatusDenied || res.Guidance == "" {
		t.Fatalf("expected env override to deny with guidance, got %+v", res)
	}
}

func TestProbeButtonStateDefaultsUnavailable(t *testing.T) {
	if res := ProbeButtonState(fakeLookup{}.get); res.Status != StatusUnavailable {
		t.Fatalf("expected unavailable, got %s", res.Status)
	}
	if res := ProbeButtonState(fakeLookup{"REPLAYER_BUTTON_STATE": "yes"}.get); res.Status != StatusGranted {
		t.Fatalf("expected override, got %s", res.Status)
	}
}
