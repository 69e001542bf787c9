package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 120, cfg.Server.RateLimit)
	assert.Equal(t, 5, cfg.Engine.TopN)
	assert.False(t, cfg.Engine.ApplyKeywordWeights)
	assert.Equal(t, 32, cfg.Engine.StoreShards)
	assert.Equal(t, 100, cfg.Engine.PatternLogCapacity)
	assert.Equal(t, 50, cfg.Engine.FailureLogCapacity)
	assert.Equal(t, 720*time.Hour, cfg.Learning.RebuildWindow)
	assert.Equal(t, "*/30 * * * *", cfg.Learning.PreferenceSchedule)
	assert.Equal(t, 5*time.Minute, cfg.Cache.HotQueriesTTL)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.Equal(t, "migrations", cfg.Migrations.Path)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENGINE_TOP_N", "8")
	t.Setenv("ENGINE_APPLY_KEYWORD_WEIGHTS", "true")
	t.Setenv("LEARNING_REBUILD_WINDOW", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Engine.TopN)
	assert.True(t, cfg.Engine.ApplyKeywordWeights)
	assert.Equal(t, 48*time.Hour, cfg.Learning.RebuildWindow)
}

func TestLoad_RejectsInvalidTopN(t *testing.T) {
	t.Setenv("ENGINE_TOP_N", "0")

	_, err := Load()
	assert.Error(t, err)
}
