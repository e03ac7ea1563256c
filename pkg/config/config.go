package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/offlinefirst/pattern-replay/pkg/eventlog"
)

const DefaultFileName = "replayer.yaml"

// Config captures the user-adjustable knobs for recording and replay.
type Config struct {
	Pattern PatternConfig `yaml:"pattern"`
	Screen  ScreenConfig  `yaml:"screen"`
	Replay  ReplayConfig  `yaml:"replay"`
	Quiet   QuietConfig   `yaml:"quiet"`
	Alarm   AlarmConfig   `yaml:"alarm"`
	Stop    StopConfig    `yaml:"stop"`
	Metrics MetricsConfig `yaml:"metrics"`
	Paths   PathsConfig   `yaml:"paths"`
	Logging LoggingConfig `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// PatternConfig controls where the pattern lives and how it is recorded.
type PatternConfig struct {
	File             string `yaml:"file"`
	RecordSeconds    int    `yaml:"record_seconds"`
	CountdownSeconds int    `yaml:"countdown_seconds"`
	TrackKeys        bool   `yaml:"track_keys"`
}

// ScreenConfig bounds replayed coordinates. Zero values are detected from
// the output device.
type ScreenConfig struct {
	MaxX int `yaml:"max_x"`
	MaxY int `yaml:"max_y"`
}

// ReplayConfig drives the supervisory loop and the humanisation profile.
type ReplayConfig struct {
	IntervalMinutes         float64 `yaml:"interval_minutes"`
	IntervalJitter          float64 `yaml:"interval_jitter"`
	DurationMinutes         float64 `yaml:"duration_minutes"`
	StartDelaySeconds       float64 `yaml:"start_delay_seconds"`
	InterferenceThresholdPx int     `yaml:"interference_threshold_px"`
	GraceSeconds            float64 `yaml:"grace_seconds"`
	FreshGraceSeconds       float64 `yaml:"fresh_grace_seconds"`
	KeepProbability         float64 `yaml:"keep_probability"`
	TransformProbability    float64 `yaml:"transform_probability"`
	TremorPx                int     `yaml:"tremor_px"`
	KeySkipProbability      float64 `yaml:"key_skip_probability"`
}

// QuietConfig configures the pre-replay quiet-period gate.
type QuietConfig struct {
	Enabled         bool    `yaml:"enabled"`
	WindowSeconds   float64 `yaml:"window_seconds"`
	PostponeSeconds float64 `yaml:"postpone_seconds"`
	ThresholdPx     int     `yaml:"threshold_px"`
}

// AlarmConfig configures the independent alarm. A zero interval disables it.
type AlarmConfig struct {
	IntervalMinutes float64 `yaml:"interval_minutes"`
	Countdown       bool    `yaml:"countdown"`
	WebhookURL      string  `yaml:"webhook_url"`
	Tone            bool    `yaml:"tone"`
}

// StopConfig names the key that stops everything.
type StopConfig struct {
	Key string `yaml:"key"`
}

// MetricsConfig enables the prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	RunsDir string `yaml:"runs_dir"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Pattern: PatternConfig{
			File:             "mouse_pattern.json",
			RecordSeconds:    5,
			CountdownSeconds: 3,
		},
		Replay: ReplayConfig{
			IntervalMinutes:         5,
			IntervalJitter:          0.15,
			StartDelaySeconds:       3,
			InterferenceThresholdPx: 20,
			GraceSeconds:            0.5,
			FreshGraceSeconds:       5,
			KeepProbability:         0.85,
			TransformProbability:    0.92,
			TremorPx:                2,
			KeySkipProbability:      0.18,
		},
		Quiet: QuietConfig{
			Enabled:         true,
			WindowSeconds:   5,
			PostponeSeconds: 10,
			ThresholdPx:     20,
		},
		Alarm: AlarmConfig{
			Countdown: true,
			Tone:      true,
		},
		Stop: StopConfig{
			Key: "f10",
		},
		Paths: PathsConfig{
			RunsDir: "runs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./replayer.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			cfg.normalize()
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}

	if err := decodeYAML(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeYAML expands ${VAR} references and decodes strictly on top of cfg,
// so keys missing from the file keep their defaults.
func decodeYAML(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Pattern.File) == "" {
		return errors.New("pattern.file must not be empty")
	}
	if c.Pattern.RecordSeconds <= 0 {
		return errors.New("pattern.record_seconds must be positive")
	}
	if c.Pattern.CountdownSeconds < 0 {
		return errors.New("pattern.countdown_seconds must not be negative")
	}
	if c.Screen.MaxX < 0 || c.Screen.MaxY < 0 {
		return errors.New("screen.max_x and screen.max_y must not be negative")
	}

	r := c.Replay
	if r.IntervalMinutes <= 0 {
		return errors.New("replay.interval_minutes must be positive")
	}
	if r.DurationMinutes < 0 {
		return errors.New("replay.duration_minutes must not be negative")
	}
	if r.IntervalJitter < 0 || r.IntervalJitter >= 1 {
		return errors.New("replay.interval_jitter must be within [0,1)")
	}
	if r.StartDelaySeconds < 0 || r.GraceSeconds < 0 || r.FreshGraceSeconds < 0 {
		return errors.New("replay delays and grace periods must not be negative")
	}
	if r.InterferenceThresholdPx <= 0 {
		return errors.New("replay.interference_threshold_px must be positive")
	}
	if r.TremorPx < 0 {
		return errors.New("replay.tremor_px must not be negative")
	}
	for name, p := range map[string]float64{
		"replay.keep_probability":      r.KeepProbability,
		"replay.transform_probability": r.TransformProbability,
		"replay.key_skip_probability":  r.KeySkipProbability,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0,1]", name)
		}
	}

	if c.Quiet.Enabled {
		if c.Quiet.WindowSeconds <= 0 {
			return errors.New("quiet.window_seconds must be positive")
		}
		if c.Quiet.PostponeSeconds < 0 {
			return errors.New("quiet.postpone_seconds must not be negative")
		}
		if c.Quiet.ThresholdPx < 0 {
			return errors.New("quiet.threshold_px must not be negative")
		}
	}

	if c.Alarm.IntervalMinutes < 0 {
		return errors.New("alarm.interval_minutes must not be negative")
	}
	if c.Alarm.WebhookURL != "" {
		u, err := url.Parse(c.Alarm.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("alarm.webhook_url %q must be an http(s) URL", c.Alarm.WebhookURL)
		}
	}

	if c.Stop.Key != "" {
		if _, err := eventlog.ParseKey(c.Stop.Key); err != nil {
			return fmt.Errorf("stop.key: %w", err)
		}
	}

	if strings.TrimSpace(c.Paths.RunsDir) == "" {
		return errors.New("paths.runs_dir must not be empty")
	}
	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalize() {
	defaults := Default()

	c.Pattern.File = strings.TrimSpace(c.Pattern.File)
	if c.Pattern.File == "" {
		c.Pattern.File = defaults.Pattern.File
	}
	c.Paths.RunsDir = filepath.Clean(strings.TrimSpace(c.Paths.RunsDir))
	if c.Paths.RunsDir == "." || c.Paths.RunsDir == "" {
		c.Paths.RunsDir = defaults.Paths.RunsDir
	}
	c.Stop.Key = strings.TrimSpace(c.Stop.Key)
	c.Alarm.WebhookURL = strings.TrimSpace(c.Alarm.WebhookURL)
	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)

	if level, err := NormalizeLogLevel(c.Logging.Level); err == nil {
		c.Logging.Level = level
	}
	if format, err := NormalizeFormat(c.Logging.Format); err == nil {
		c.Logging.Format = format
	}
}

// Normalize canonicalises values after flag or environment overrides.
func (c *Config) Normalize() { c.normalize() }

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
