package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesEnvOverrides(t *testing.T) {
	t.Setenv("STREAM_NAME", "other_stream")
	t.Setenv("RETENTION_HIGH_WATER", "200")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "other_stream", cfg.Stream.Name)
	assert.EqualValues(t, 200, cfg.Producer.Retention.HighWater)
}

// On failure New returns a nil config; callers must exit rather than use it.
func TestNewMalformedEnvReturnsNilConfig(t *testing.T) {
	t.Setenv("REDIS_DB", "not-an-int")

	cfg, err := New()
	require.Error(t, err)
	assert.Nil(t, cfg)
}
