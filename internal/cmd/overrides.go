package cmd

import (
	"github.com/spf13/viper"

	"github.com/offlinefirst/pattern-replay/pkg/config"
)

// override copies one viper key onto the loaded config when a flag or
// REPLAYER_* variable supplied it.
type override struct {
	key   string
	apply func(v *viper.Viper, key string, cfg *config.Config)
}

func floatOverride(key string, field func(*config.Config) *float64) override {
	return override{key: key, apply: func(v *viper.Viper, key string, cfg *config.Config) {
		*field(cfg) = v.GetFloat64(key)
	}}
}

func intOverride(key string, field func(*config.Config) *int) override {
	return override{key: key, apply: func(v *viper.Viper, key string, cfg *config.Config) {
		*field(cfg) = v.GetInt(key)
	}}
}

func boolOverride(key string, field func(*config.Config) *bool) override {
	return override{key: key, apply: func(v *viper.Viper, key string, cfg *config.Config) {
		*field(cfg) = v.GetBool(key)
	}}
}

func stringOverride(key string, field func(*config.Config) *string) override {
	return override{key: key, apply: func(v *viper.Viper, key string, cfg *config.Config) {
		*field(cfg) = v.GetString(key)
	}}
}

var overrides = []override{
	stringOverride("pattern.file", func(c *config.Config) *string { return &c.Pattern.File }),
	intOverride("pattern.record_seconds", func(c *config.Config) *int { return &c.Pattern.RecordSeconds }),
	intOverride("pattern.countdown_seconds", func(c *config.Config) *int { return &c.Pattern.CountdownSeconds }),
	boolOverride("pattern.track_keys", func(c *config.Config) *bool { return &c.Pattern.TrackKeys }),

	intOverride("screen.max_x", func(c *config.Config) *int { return &c.Screen.MaxX }),
	intOverride("screen.max_y", func(c *config.Config) *int { return &c.Screen.MaxY }),

	floatOverride("replay.interval_minutes", func(c *config.Config) *float64 { return &c.Replay.IntervalMinutes }),
	floatOverride("replay.interval_jitter", func(c *config.Config) *float64 { return &c.Replay.IntervalJitter }),
	floatOverride("replay.duration_minutes", func(c *config.Config) *float64 { return &c.Replay.DurationMinutes }),
	floatOverride("replay.start_delay_seconds", func(c *config.Config) *float64 { return &c.Replay.StartDelaySeconds }),
	intOverride("replay.interference_threshold_px", func(c *config.Config) *int { return &c.Replay.InterferenceThresholdPx }),
	floatOverride("replay.grace_seconds", func(c *config.Config) *float64 { return &c.Replay.GraceSeconds }),
	floatOverride("replay.fresh_grace_seconds", func(c *config.Config) *float64 { return &c.Replay.FreshGraceSeconds }),
	floatOverride("replay.keep_probability", func(c *config.Config) *float64 { return &c.Replay.KeepProbability }),
	floatOverride("replay.transform_probability", func(c *config.Config) *float64 { return &c.Replay.TransformProbability }),
	intOverride("replay.tremor_px", func(c *config.Config) *int { return &c.Replay.TremorPx }),
	floatOverride("replay.key_skip_probability", func(c *config.Config) *float64 { return &c.Replay.KeySkipProbability }),

	boolOverride("quiet.enabled", func(c *config.Config) *bool { return &c.Quiet.Enabled }),
	floatOverride("quiet.window_seconds", func(c *config.Config) *float64 { return &c.Quiet.WindowSeconds }),
	floatOverride("quiet.postpone_seconds", func(c *config.Config) *float64 { return &c.Quiet.PostponeSeconds }),
	intOverride("quiet.threshold_px", func(c *config.Config) *int { return &c.Quiet.ThresholdPx }),

	floatOverride("alarm.interval_minutes", func(c *config.Config) *float64 { return &c.Alarm.IntervalMinutes }),
	boolOverride("alarm.countdown", func(c *config.Config) *bool { return &c.Alarm.Countdown }),
	stringOverride("alarm.webhook_url", func(c *config.Config) *string { return &c.Alarm.WebhookURL }),
	boolOverride("alarm.tone", func(c *config.Config) *bool { return &c.Alarm.Tone }),

	stringOverride("stop.key", func(c *config.Config) *string { return &c.Stop.Key }),
	stringOverride("metrics.listen", func(c *config.Config) *string { return &c.Metrics.Listen }),
	stringOverride("paths.runs_dir", func(c *config.Config) *string { return &c.Paths.RunsDir }),
	stringOverride("logging.level", func(c *config.Config) *string { return &c.Logging.Level }),
	stringOverride("logging.format", func(c *config.Config) *string { return &c.Logging.Format }),
}

// applyOverrides layers flags and environment variables over the file config.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(v, o.key, cfg)
		}
	}
}
