package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 720*time.Hour, cfg.Scheduler.Horizon)
	assert.False(t, cfg.Scheduler.MetricsEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SCHEDULER_HORIZON", "48h")
	t.Setenv("ENABLE_METRICS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 48*time.Hour, cfg.Scheduler.Horizon)
	assert.True(t, cfg.Scheduler.MetricsEnabled)
}

func TestLoadBadHorizonFallsBack(t *testing.T) {
	t.Setenv("SCHEDULER_HORIZON", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, cfg.Scheduler.Horizon)
}
