// internal/config/config_test.go
package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "guildbank.db", cfg.DB.Path)
	assert.Equal(t, 5*time.Second, cfg.DB.BusyTimeout)
	assert.Equal(t, 8, cfg.DB.MaxRetries)
	assert.Equal(t, 30*time.Millisecond, cfg.DB.BaseRetryDelay)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.CleanupInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("DB_BUSY_TIMEOUT_MS", "1500")
	t.Setenv("QUEUE_MAX_RETRIES", "4")
	t.Setenv("QUEUE_BASE_DELAY_MS", "10")
	t.Setenv("RETENTION_DAYS", "30")
	t.Setenv("CLEANUP_INTERVAL_HOURS", "6")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.DB.Path)
	assert.Equal(t, 1500*time.Millisecond, cfg.DB.BusyTimeout)
	assert.Equal(t, 4, cfg.DB.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.DB.BaseRetryDelay)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 6*time.Hour, cfg.CleanupInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("QUEUE_MAX_RETRIES", "not-a-number")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "shouting")
	_, err := LoadConfig()
	assert.Error(t, err)
}
