package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/offlinefirst/pattern-replay/pkg/device"
	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
	"github.com/offlinefirst/pattern-replay/pkg/events"
)

func TestRecordCommandSavesPattern(t *testing.T) {
	env := newTestEnv(t)
	cfgPath := env.writeConfig(t, runConfig(env))
	env.src = events.Scripted{Clock: env.clk, Steps: []events.Step{
		{After: 100 * time.Millisecond, Raw: events.Raw{Kind: events.KindMove, X: 1, Y: 2}},
		{After: 100 * time.Millisecond, Raw: events.Raw{Kind: events.KindKeyDown, Key: eventlog.Char('q')}},
		{After: 100 * time.Millisecond, Raw: events.Raw{Kind: events.KindKeyUp, Key: eventlog.Char('q')}},
		{After: 100 * time.Millisecond, Raw: events.Raw{Kind: events.KindMove, X: 3, Y: 4}},
	}}
	target := env.path("custom.json")

	stdout, _, err := execute(t, "", "--config", cfgPath, "record", "--pattern", target, "--seconds", "2", "--countdown", "0", "-k")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if strings.Contains(stdout, "Recording starts in") {
		t.Fatalf("expected no countdown:\n%s", stdout)
	}
	log, err := eventlog.Load(target)
	if err != nil {
		t.Fatalf("load recorded pattern: %v", err)
	}
	if log.Len() != 4 {
		t.Fatalf("expected moves and key edges, got %v", log.Events())
	}
	if eventlog.Exists(env.path("pattern.json")) {
		t.Fatalf("--pattern should override the configured file")
	}
}

func TestRecordCommandFailsOnEmptyRecording(t *testing.T) {
	env := newTestEnv(t)
	cfgPath := env.writeConfig(t, runConfig(env))
	env.src = events.Scripted{Clock: env.clk}
	openDevice = func() (device.Output, error) { return nil, errors.New("no display") }

	_, _, err := execute(t, "", "--config", cfgPath, "record", "--seconds", "1", "--countdown", "0")
	if err == nil {
		t.Fatalf("expected an error without events or a polling device")
	}
}

func TestReplayCommandReplaysOnce(t *testing.T) {
	env := newTestEnv(t)
	cfgPath := env.writeConfig(t, runConfig(env))
	savePattern(t, env.path("pattern.json"))

	stdout, _, err := execute(t, "", "--config", cfgPath, "replay")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(stdout, "Replay completed: 2 of 2 events") {
		t.Fatalf("unexpected output:\n%s", stdout)
	}
	if x, y := env.dev.Position(); x != 400 || y != 250 {
		t.Fatalf("expected pointer at (400,250), got (%d,%d)", x, y)
	}
}

func TestReplayCommandRequiresPattern(t *testing.T) {
	env := newTestEnv(t)
	cfgPath := env.writeConfig(t, runConfig(env))

	_, _, err := execute(t, "", "--config", cfgPath, "replay")
	if err == nil || !strings.Contains(err.Error(), "load pattern") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestDoctorReportsProbes(t *testing.T) {
	newTestEnv(t)
	lookupEnv = func(key string) (string, bool) {
		switch key {
		case "REPLAYER_ACCESSIBILITY", "REPLAYER_DISPLAY", "REPLAYER_INPUT_CAPTURE":
			return "granted", true
		}
		return "", false
	}

	stdout, _, err := execute(t, "", "doctor", "--strict")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}
	for _, want := range []string{"accessibility", "granted", "push (", "screen 1920x1080"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in doctor output:\n%s", want, stdout)
		}
	}
}

func TestDoctorStrictFailsWithoutDevice(t *testing.T) {
	newTestEnv(t)
	openDevice = func() (device.Output, error) { return nil, errors.New("virtual device offline") }

	stdout, _, err := execute(t, "", "doctor", "--strict")
	if err == nil {
		t.Fatalf("expected strict doctor to fail")
	}
	if !strings.Contains(stdout, "virtual device offline") {
		t.Fatalf("expected device error in output:\n%s", stdout)
	}
}

func TestVersionCommand(t *testing.T) {
	newTestEnv(t)
	origVersion, origGOOS := runtimeVersion, runtimeGOOS
	t.Cleanup(func() { runtimeVersion, runtimeGOOS = origVersion, origGOOS })
	runtimeVersion = func() string { return "go1.22.1" }
	runtimeGOOS = func() string { return "plan9" }

	stdout, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(stdout), "(go1.22.1/plan9)") {
		t.Fatalf("unexpected version output %q", stdout)
	}
}
