// Package config provides configuration loading for fieldmem.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FIELDMEM_INDEX_DEFAULT_RADIUS, ...)
//  2. YAML config file
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration with text (un)marshaling so intervals can
// be written as "5m" in YAML and env vars.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config holds the complete engine configuration.
type Config struct {
	Index       IndexConfig       `koanf:"index" yaml:"index"`
	Field       FieldConfig       `koanf:"field" yaml:"field"`
	Performance PerformanceConfig `koanf:"performance" yaml:"performance"`
	Emergent    EmergentConfig    `koanf:"emergent" yaml:"emergent"`
	Logging     LoggingConfig     `koanf:"logging" yaml:"logging"`
}

// IndexConfig tunes the deterministic store path.
type IndexConfig struct {
	Enabled          bool    `koanf:"enabled" yaml:"enabled"`
	DefaultRadius    float64 `koanf:"default_radius" yaml:"default_radius"`
	QualityThreshold float64 `koanf:"quality_threshold" yaml:"quality_threshold"`
}

// FieldConfig tunes the probabilistic field path.
type FieldConfig struct {
	Enabled               bool    `koanf:"enabled" yaml:"enabled"`
	DefaultRadius         float64 `koanf:"default_radius" yaml:"default_radius"`
	MinProbability        float64 `koanf:"min_probability" yaml:"min_probability"`
	InterferenceThreshold float64 `koanf:"interference_threshold" yaml:"interference_threshold"`
}

// PerformanceConfig bounds resource use.
type PerformanceConfig struct {
	MaxMemories          int `koanf:"max_memories" yaml:"max_memories"`
	MaxSuperpositionSize int `koanf:"max_superposition_size" yaml:"max_superposition_size"`
}

// EmergentConfig tunes background discovery.
type EmergentConfig struct {
	Enabled          bool     `koanf:"enabled" yaml:"enabled"`
	Interval         Duration `koanf:"interval" yaml:"interval"`
	InsightRetention Duration `koanf:"insight_retention" yaml:"insight_retention"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// Default returns the reference configuration. The tuning constants
// (radius 0.35, thresholds 0.7, 5-minute scheduler, 7-day retention) are
// defaults, not correctness constraints; deployments retune them per
// dataset.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Enabled:          true,
			DefaultRadius:    0.35,
			QualityThreshold: 0,
		},
		Field: FieldConfig{
			Enabled:               true,
			DefaultRadius:         0.35,
			MinProbability:        0.1,
			InterferenceThreshold: 0.7,
		},
		Performance: PerformanceConfig{
			MaxMemories:          10000,
			MaxSuperpositionSize: 64,
		},
		Emergent: EmergentConfig{
			Enabled:          true,
			Interval:         Duration(5 * time.Minute),
			InsightRetention: Duration(7 * 24 * time.Hour),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks ranges across the whole configuration.
func (c *Config) Validate() error {
	if c.Index.DefaultRadius <= 0 {
		return fmt.Errorf("index.default_radius must be positive, got %v", c.Index.DefaultRadius)
	}
	if c.Index.QualityThreshold < 0 || c.Index.QualityThreshold > 1 {
		return fmt.Errorf("index.quality_threshold must be in [0,1], got %v", c.Index.QualityThreshold)
	}
	if c.Field.DefaultRadius <= 0 {
		return fmt.Errorf("field.default_radius must be positive, got %v", c.Field.DefaultRadius)
	}
	if c.Field.MinProbability < 0 || c.Field.MinProbability >= 1 {
		return fmt.Errorf("field.min_probability must be in [0,1), got %v", c.Field.MinProbability)
	}
	if c.Field.InterferenceThreshold < 0 || c.Field.InterferenceThreshold > 1 {
		return fmt.Errorf("field.interference_threshold must be in [0,1], got %v", c.Field.InterferenceThreshold)
	}
	if c.Performance.MaxMemories < 0 {
		return fmt.Errorf("performance.max_memories cannot be negative, got %d", c.Performance.MaxMemories)
	}
	if c.Performance.MaxSuperpositionSize <= 0 {
		return fmt.Errorf("performance.max_superposition_size must be positive, got %d", c.Performance.MaxSuperpositionSize)
	}
	if c.Emergent.Enabled && c.Emergent.Interval.Duration() <= 0 {
		return fmt.Errorf("emergent.interval must be positive when emergent discovery is enabled")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// Update is a partial configuration change; nil fields keep their current
// value. It covers every runtime-tunable key.
type Update struct {
	IndexEnabled          *bool    `json:"index_enabled,omitempty"`
	IndexDefaultRadius    *float64 `json:"index_default_radius,omitempty"`
	IndexQualityThreshold *float64 `json:"index_quality_threshold,omitempty"`

	FieldEnabled               *bool    `json:"field_enabled,omitempty"`
	FieldDefaultRadius         *float64 `json:"field_default_radius,omitempty"`
	FieldMinProbability        *float64 `json:"field_min_probability,omitempty"`
	FieldInterferenceThreshold *float64 `json:"field_interference_threshold,omitempty"`

	MaxMemories          *int `json:"max_memories,omitempty"`
	MaxSuperpositionSize *int `json:"max_superposition_size,omitempty"`
}

// Apply merges the update into a copy of c, validates the result, and
// returns it. The receiver is never mutated; callers swap in the returned
// config on success.
func (c *Config) Apply(u Update) (*Config, error) {
	out := c.Clone()
	if u.IndexEnabled != nil {
		out.Index.Enabled = *u.IndexEnabled
	}
	if u.IndexDefaultRadius != nil {
		out.Index.DefaultRadius = *u.IndexDefaultRadius
	}
	if u.IndexQualityThreshold != nil {
		out.Index.QualityThreshold = *u.IndexQualityThreshold
	}
	if u.FieldEnabled != nil {
		out.Field.Enabled = *u.FieldEnabled
	}
	if u.FieldDefaultRadius != nil {
		out.Field.DefaultRadius = *u.FieldDefaultRadius
	}
	if u.FieldMinProbability != nil {
		out.Field.MinProbability = *u.FieldMinProbability
	}
	if u.FieldInterferenceThreshold != nil {
		out.Field.InterferenceThreshold = *u.FieldInterferenceThreshold
	}
	if u.MaxMemories != nil {
		out.Performance.MaxMemories = *u.MaxMemories
	}
	if u.MaxSuperpositionSize != nil {
		out.Performance.MaxSuperpositionSize = *u.MaxSuperpositionSize
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
