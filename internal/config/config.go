// Package config loads runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the server recognizes. The watchdog and
// high-risk thresholds are lifecycle parameters; they are injected into the
// state machine rather than read from globals so threshold tuning never
// touches lifecycle logic.
type Config struct {
	HTTPAddr string

	// WatchdogThreshold is how long an operation may run before the caller
	// is shown PENDING_CONFIRMATION.
	WatchdogThreshold time.Duration
	// HighRiskThreshold is the informational point past which a pending
	// transaction is flagged as likely to need remediation.
	HighRiskThreshold time.Duration

	// KafkaBrokers enables the Kafka event publisher when non-empty.
	KafkaBrokers []string
	// DatabaseURL enables the postgres transaction store when non-empty.
	DatabaseURL string

	LogLevel slog.Level
}

// Defaults mirrors the thresholds the product ships with: pending after
// 9 seconds, high risk after 13.
func Defaults() Config {
	return Config{
		HTTPAddr:          ":8080",
		WatchdogThreshold: 9 * time.Second,
		HighRiskThreshold: 13 * time.Second,
		LogLevel:          slog.LevelInfo,
	}
}

// Load reads configuration from the environment. A missing .env file is not
// an error; explicit environment variables win over file contents.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	var err error
	if cfg.WatchdogThreshold, err = durationMs("WATCHDOG_THRESHOLD_MS", cfg.WatchdogThreshold); err != nil {
		return Config{}, err
	}
	if cfg.HighRiskThreshold, err = durationMs("HIGH_RISK_THRESHOLD_MS", cfg.HighRiskThreshold); err != nil {
		return Config{}, err
	}
	if cfg.HighRiskThreshold < cfg.WatchdogThreshold {
		return Config{}, fmt.Errorf("HIGH_RISK_THRESHOLD_MS (%s) must not be below WATCHDOG_THRESHOLD_MS (%s)",
			cfg.HighRiskThreshold, cfg.WatchdogThreshold)
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.LogLevel = parseLevel(os.Getenv("LOG_LEVEL"))

	return cfg, nil
}

func durationMs(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer of milliseconds, got %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process-wide structured logger.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
