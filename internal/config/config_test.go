package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-positive index radius", func(c *Config) { c.Index.DefaultRadius = 0 }},
		{"quality threshold above one", func(c *Config) { c.Index.QualityThreshold = 1.5 }},
		{"non-positive field radius", func(c *Config) { c.Field.DefaultRadius = -0.1 }},
		{"min probability at one", func(c *Config) { c.Field.MinProbability = 1 }},
		{"interference threshold above one", func(c *Config) { c.Field.InterferenceThreshold = 1.1 }},
		{"negative max memories", func(c *Config) { c.Performance.MaxMemories = -1 }},
		{"zero superposition", func(c *Config) { c.Performance.MaxSuperpositionSize = 0 }},
		{"enabled emergent without interval", func(c *Config) { c.Emergent.Interval = 0 }},
		{"bad logging format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationText(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
	assert.Error(t, d.UnmarshalText([]byte("-5m")))
}

func TestApplyPartialUpdate(t *testing.T) {
	t.Parallel()

	base := Default()
	radius := 0.5
	maxMem := 42
	next, err := base.Apply(Update{
		FieldDefaultRadius: &radius,
		MaxMemories:        &maxMem,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.5, next.Field.DefaultRadius)
	assert.Equal(t, 42, next.Performance.MaxMemories)
	// Untouched keys keep their values; the receiver is never mutated.
	assert.Equal(t, base.Index.DefaultRadius, next.Index.DefaultRadius)
	assert.Equal(t, 0.35, base.Field.DefaultRadius)
}

func TestApplyRejectsInvalidUpdate(t *testing.T) {
	t.Parallel()

	base := Default()
	bad := -1.0
	_, err := base.Apply(Update{FieldDefaultRadius: &bad})
	require.Error(t, err)
	assert.Equal(t, 0.35, base.Field.DefaultRadius)
}
