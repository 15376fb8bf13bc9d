// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"guildbank/pkg/db"
)

// AppConfig holds all application-wide configuration. Every knob that changes
// runtime behavior is surfaced here; nothing is baked into the components.
type AppConfig struct {
	DB              db.Config
	QueueBuffer     int
	RetentionDays   int
	CleanupInterval time.Duration
	LogLevel        slog.Level
}

// LoadConfig loads configuration from environment variables, with an
// optional .env file for local development.
func LoadConfig() (*AppConfig, error) {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	dbPath := getEnv("DB_PATH", "guildbank.db")

	busyTimeoutMS, err := getEnvInt("DB_BUSY_TIMEOUT_MS", 5000)
	if err != nil {
		return nil, err
	}
	maxRetries, err := getEnvInt("QUEUE_MAX_RETRIES", db.DefaultMaxRetries)
	if err != nil {
		return nil, err
	}
	baseDelayMS, err := getEnvInt("QUEUE_BASE_DELAY_MS", int(db.DefaultBaseRetryDelay.Milliseconds()))
	if err != nil {
		return nil, err
	}
	queueBuffer, err := getEnvInt("QUEUE_BUFFER", 64)
	if err != nil {
		return nil, err
	}
	retentionDays, err := getEnvInt("RETENTION_DAYS", 90)
	if err != nil {
		return nil, err
	}
	cleanupHours, err := getEnvInt("CLEANUP_INTERVAL_HOURS", 24)
	if err != nil {
		return nil, err
	}

	logLevel, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		DB: db.Config{
			Path:           dbPath,
			BusyTimeout:    time.Duration(busyTimeoutMS) * time.Millisecond,
			MaxRetries:     maxRetries,
			BaseRetryDelay: time.Duration(baseDelayMS) * time.Millisecond,
		},
		QueueBuffer:     queueBuffer,
		RetentionDays:   retentionDays,
		CleanupInterval: time.Duration(cleanupHours) * time.Hour,
		LogLevel:        logLevel,
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", value, err)
	}
	return level, nil
}
