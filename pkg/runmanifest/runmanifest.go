package runmanifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/pattern-replay/pkg/config"
	"github.com/offlinefirst/pattern-replay/pkg/control"
)

// SchemaVersion captures the manifest version for compatibility checks.
const SchemaVersion = 1

var newUUID = uuid.NewString

// Settings records the effective knobs the run was started with.
type Settings struct {
	PatternFile             string  `json:"pattern_file"`
	IntervalMinutes         float64 `json:"interval_minutes"`
	IntervalJitter          float64 `json:"interval_jitter"`
	DurationMinutes         float64 `json:"duration_minutes,omitempty"`
	AlarmMinutes            float64 `json:"alarm_minutes,omitempty"`
	TrackKeys               bool    `json:"track_keys"`
	QuietGate               bool    `json:"quiet_gate"`
	InterferenceThresholdPx int     `json:"interference_threshold_px"`
	StopKey                 string  `json:"stop_key,omitempty"`
	ScreenMaxX              int     `json:"screen_max_x"`
	ScreenMaxY              int     `json:"screen_max_y"`
}

// Pattern describes where the replayed event log came from.
type Pattern struct {
	Origin   string `json:"origin"`
	Events   int    `json:"events"`
	Strategy string `json:"strategy,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// Pattern origins.
const (
	OriginLoaded   = "loaded"
	OriginRecorded = "recorded"
)

// Status summarises the lifecycle of a run.
type Status struct {
	State       string                    `json:"state"`
	Summary     string                    `json:"summary,omitempty"`
	StartedAt   *time.Time                `json:"started_at,omitempty"`
	EndedAt     *time.Time                `json:"ended_at,omitempty"`
	Termination string                    `json:"termination,omitempty"`
	Controller  []ControllerTimelineEntry `json:"controller_timeline,omitempty"`
	Subsystems  []SubsystemStatus         `json:"subsystems,omitempty"`
}

// Run states.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateErrored   = "error"
)

// ControllerTimelineEntry records controller state transitions for diagnostics.
type ControllerTimelineEntry struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SubsystemStatus captures availability details for input capture, the
// output device and the alarm notifier.
type SubsystemStatus struct {
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	Available  bool   `json:"available"`
	Provider   string `json:"provider,omitempty"`
	Permission string `json:"permission,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Interference is the pointer position the replay expected and the one it found.
type Interference struct {
	IntendedX int `json:"intended_x"`
	IntendedY int `json:"intended_y"`
	ActualX   int `json:"actual_x"`
	ActualY   int `json:"actual_y"`
}

// Iteration is one pass of the supervisory loop.
type Iteration struct {
	Index          int           `json:"index"`
	SessionID      string        `json:"session_id,omitempty"`
	Outcome        string        `json:"outcome"`
	Selected       int           `json:"selected"`
	Total          int           `json:"total"`
	Steps          int           `json:"steps"`
	Transformed    bool          `json:"transformed"`
	Postponements  int           `json:"postponements,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Interference   *Interference `json:"interference,omitempty"`
	HeldModifiers  []string      `json:"held_modifiers,omitempty"`
	NextWaitMillis int64         `json:"next_wait_ms,omitempty"`
}

// Manifest is the durable metadata describing a replay run.
type Manifest struct {
	SchemaVersion int         `json:"schema_version"`
	RunID         string      `json:"run_id"`
	CreatedAt     time.Time   `json:"created_at"`
	Hostname      string      `json:"hostname"`
	AppVersion    string      `json:"app_version"`
	ConfigSource  string      `json:"config_source"`
	Settings      Settings    `json:"settings"`
	Pattern       Pattern     `json:"pattern"`
	Status        Status      `json:"status"`
	Iterations    []Iteration `json:"iterations,omitempty"`
}

// Options captures the knobs for creating a new manifest.
type Options struct {
	RunID      string
	CreatedAt  time.Time
	Hostname   string
	AppVersion string
	Config     config.Config
}

// New constructs a manifest using the supplied options.
func New(opts Options) Manifest {
	cfg := opts.Config
	return Manifest{
		SchemaVersion: SchemaVersion,
		RunID:         opts.RunID,
		CreatedAt:     opts.CreatedAt.UTC(),
		Hostname:      opts.Hostname,
		AppVersion:    opts.AppVersion,
		ConfigSource:  cfg.Source,
		Settings: Settings{
			PatternFile:             cfg.Pattern.File,
			IntervalMinutes:         cfg.Replay.IntervalMinutes,
			IntervalJitter:          cfg.Replay.IntervalJitter,
			DurationMinutes:         cfg.Replay.DurationMinutes,
			AlarmMinutes:            cfg.Alarm.IntervalMinutes,
			TrackKeys:               cfg.Pattern.TrackKeys,
			QuietGate:               cfg.Quiet.Enabled,
			InterferenceThresholdPx: cfg.Replay.InterferenceThresholdPx,
			StopKey:                 cfg.Stop.Key,
			ScreenMaxX:              cfg.Screen.MaxX,
			ScreenMaxY:              cfg.Screen.MaxY,
		},
		Status: Status{State: StatePending},
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return newUUID()
}

// PathFor returns where a run's manifest lives.
func PathFor(runsDir, runID string) string {
	return filepath.Join(runsDir, runID+".json")
}

// MarkStarted flips the manifest into the running state.
func (m *Manifest) MarkStarted(at time.Time) {
	started := at.UTC()
	m.Status.State = StateRunning
	m.Status.StartedAt = &started
}

// MarkFinished records the end of the run. A non-nil runErr marks it errored.
func (m *Manifest) MarkFinished(at time.Time, termination string, runErr error) {
	ended := at.UTC()
	m.Status.EndedAt = &ended
	m.Status.Termination = termination
	if runErr != nil {
		m.Status.State = StateErrored
		m.Status.Summary = runErr.Error()
		return
	}
	m.Status.State = StateCompleted
	m.Status.Summary = summarise(m.Iterations)
}

// RecordTimeline copies the controller transitions into the manifest.
func (m *Manifest) RecordTimeline(timeline []control.Transition) {
	m.Status.Controller = m.Status.Controller[:0]
	for _, tr := range timeline {
		m.Status.Controller = append(m.Status.Controller, ControllerTimelineEntry{
			State:     tr.State,
			Reason:    tr.Reason,
			Timestamp: tr.Timestamp.UTC(),
		})
	}
}

// AddIteration appends an iteration record, numbering it from 1.
func (m *Manifest) AddIteration(it Iteration) {
	it.Index = len(m.Iterations) + 1
	m.Iterations = append(m.Iterations, it)
}

func summarise(iterations []Iteration) string {
	counts := map[string]int{}
	for _, it := range iterations {
		counts[it.Outcome]++
	}
	if len(iterations) == 0 {
		return "no replays ran"
	}
	parts := make([]string, 0, len(counts))
	for _, outcome := range []string{"completed", "interrupted", "cancelled"} {
		if n := counts[outcome]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, outcome))
		}
	}
	return fmt.Sprintf("%d replays: %s", len(iterations), strings.Join(parts, ", "))
}

// Save writes the manifest JSON to disk with indentation for readability.
func Save(man Manifest, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create runs directory: %w", err)
	}
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest JSON file from disk.
func Load(path string) (Manifest, error) {
	var man Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return man, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("decode manifest: %w", err)
	}
	if man.SchemaVersion != SchemaVersion {
		return man, fmt.Errorf("unsupported manifest schema version %d", man.SchemaVersion)
	}
	if strings.TrimSpace(man.RunID) == "" {
		return man, errors.New("manifest has no run id")
	}
	return man, nil
}
