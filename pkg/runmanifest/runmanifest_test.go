package runmanifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/offlinefirst/pattern-replay/pkg/config"
	"github.com/offlinefirst/pattern-replay/pkg/control"
)

func TestNewManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Source = "replayer.yaml"
	cfg.Replay.DurationMinutes = 60
	now := time.Date(2024, 5, 12, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	man := New(Options{
		RunID:      "run",
		CreatedAt:  now,
		Hostname:   "host",
		AppVersion: "test",
		Config:     cfg,
	})

	if man.SchemaVersion != SchemaVersion {
		t.Fatalf("unexpected schema version: %d", man.SchemaVersion)
	}
	if man.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected CreatedAt in UTC, got %s", man.CreatedAt.Location())
	}
	if man.Settings.DurationMinutes != 60 || man.Settings.PatternFile != "mouse_pattern.json" {
		t.Fatalf("settings not copied: %+v", man.Settings)
	}
	if man.Status.State != StatePending {
		t.Fatalf("expected pending state, got %q", man.Status.State)
	}
}

func TestNewRunIDUsesUUID(t *testing.T) {
	original := newUUID
	t.Cleanup(func() { newUUID = original })
	newUUID = func() string { return "fixed-id" }

	if got := NewRunID(); got != "fixed-id" {
		t.Fatalf("expected swapped generator, got %q", got)
	}
	if got := PathFor("runs", "fixed-id"); got != filepath.Join("runs", "fixed-id.json") {
		t.Fatalf("unexpected manifest path %q", got)
	}
}

func TestLifecycleAndSummary(t *testing.T) {
	man := New(Options{RunID: "run", CreatedAt: time.Now(), Config: config.Default()})
	start := time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC)

	man.MarkStarted(start)
	man.AddIteration(Iteration{Outcome: "completed"})
	man.AddIteration(Iteration{Outcome: "interrupted", Interference: &Interference{IntendedX: 10, ActualX: 80}})
	man.AddIteration(Iteration{Outcome: "completed"})

	ctrl := control.New(nil, func() time.Time { return start })
	ctrl.Stop("duration limit reached")
	man.RecordTimeline(ctrl.Timeline())
	man.MarkFinished(start.Add(time.Hour), ctrl.Reason(), nil)

	if man.Iterations[2].Index != 3 {
		t.Fatalf("expected iterations numbered from 1, got %d", man.Iterations[2].Index)
	}
	if man.Status.State != StateCompleted || man.Status.Termination != "duration limit reached" {
		t.Fatalf("unexpected status %+v", man.Status)
	}
	if man.Status.Summary != "3 replays: 2 completed, 1 interrupted" {
		t.Fatalf("unexpected summary %q", man.Status.Summary)
	}
	if len(man.Status.Controller) != 2 || man.Status.Controller[1].State != "stopping" {
		t.Fatalf("unexpected controller timeline %+v", man.Status.Controller)
	}

	man.MarkFinished(start.Add(time.Hour), "", errors.New("output device lost"))
	if man.Status.State != StateErrored || man.Status.Summary != "output device lost" {
		t.Fatalf("expected errored status, got %+v", man.Status)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source = "explicit"
	now := time.Now().UTC().Round(time.Second)

	man := New(Options{
		RunID:      "run",
		CreatedAt:  now,
		Hostname:   "host",
		AppVersion: "version",
		Config:     cfg,
	})
	man.Pattern = Pattern{Origin: OriginRecorded, Events: 12, Strategy: "push"}
	man.AddIteration(Iteration{Outcome: "completed", Selected: 10, Total: 12, HeldModifiers: []string{"shift"}})

	path := PathFor(filepath.Join(dir, "runs"), man.RunID)
	if err := Save(man, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, got %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.RunID != man.RunID || !loaded.CreatedAt.Equal(now) {
		t.Fatalf("expected RunID %s at %s, got %s at %s", man.RunID, now, loaded.RunID, loaded.CreatedAt)
	}
	if loaded.Pattern.Origin != OriginRecorded || len(loaded.Iterations) != 1 || loaded.Iterations[0].HeldModifiers[0] != "shift" {
		t.Fatalf("round trip lost data: %+v", loaded)
	}
}

func TestLoadRejectsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "other.json")
	if err := os.WriteFile(path, []byte(`{"schema_version": 9, "run_id": "x"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "schema version") {
		t.Fatalf("expected schema version error, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing manifest")
	}
}
