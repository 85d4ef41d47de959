package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtedge/courtedge/internal/platform/logging"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.AppEnv)
	assert.Equal(t, "courtedge", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 8, cfg.CollectorMaxWorkers)

	assert.Equal(t, 10*time.Second, cfg.Stats.Timeout)
	assert.True(t, cfg.Stats.CircuitEnabled)
	assert.Equal(t, 5, cfg.Odds.CircuitFailureCount)

	assert.Equal(t, time.Minute, cfg.ReasoningWindow)
	assert.Equal(t, 10, cfg.ReasoningWindowLimit)
	assert.Equal(t, 2*time.Second, cfg.ReasoningCooldownMargin)
	assert.Equal(t, 6*time.Hour, cfg.ReasoningCacheTTL)
	assert.Equal(t, 256, cfg.ReasoningCacheMaxEntries)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("COLLECTOR_MAX_WORKERS", "16")
	t.Setenv("STATS_BASE_URL", "https://stats.internal")
	t.Setenv("STATS_MAX_RETRIES", "4")
	t.Setenv("ODDS_CIRCUIT_ENABLED", "false")
	t.Setenv("REASONING_WINDOW", "30s")
	t.Setenv("REASONING_WINDOW_LIMIT", "3")
	t.Setenv("REASONING_TEMPERATURE", "0.7")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.AppEnv)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, logging.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 16, cfg.CollectorMaxWorkers)
	assert.Equal(t, "https://stats.internal", cfg.Stats.BaseURL)
	assert.Equal(t, 4, cfg.Stats.MaxRetries)
	assert.False(t, cfg.Odds.CircuitEnabled)
	assert.Equal(t, 30*time.Second, cfg.ReasoningWindow)
	assert.Equal(t, 3, cfg.ReasoningWindowLimit)
	assert.InDelta(t, 0.7, cfg.ReasoningTemperature, 1e-9)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("APP_ENV", "dev")
	t.Setenv("REASONING_WINDOW", "not-a-duration")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("REASONING_WINDOW", "1m")
	t.Setenv("REASONING_WINDOW_LIMIT", "0")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("REASONING_WINDOW_LIMIT", "5")
	t.Setenv("COLLECTOR_MAX_WORKERS", "zero")
	_, err = Load()
	assert.Error(t, err)
}
