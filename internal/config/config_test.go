package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "WATCHDOG_THRESHOLD_MS", "HIGH_RISK_THRESHOLD_MS",
		"KAFKA_BROKERS", "DATABASE_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %s", cfg.HTTPAddr)
	}
	if cfg.WatchdogThreshold != 9*time.Second {
		t.Errorf("WatchdogThreshold = %s, want 9s", cfg.WatchdogThreshold)
	}
	if cfg.HighRiskThreshold != 13*time.Second {
		t.Errorf("HighRiskThreshold = %s, want 13s", cfg.HighRiskThreshold)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
	if len(cfg.KafkaBrokers) != 0 || cfg.DatabaseURL != "" {
		t.Errorf("external backends enabled by default: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9191")
	t.Setenv("WATCHDOG_THRESHOLD_MS", "5000")
	t.Setenv("HIGH_RISK_THRESHOLD_MS", "7500")
	t.Setenv("KAFKA_BROKERS", "broker-a:9092, broker-b:9092,")
	t.Setenv("DATABASE_URL", "postgres://localhost/payments")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9191" {
		t.Errorf("HTTPAddr = %s", cfg.HTTPAddr)
	}
	if cfg.WatchdogThreshold != 5*time.Second {
		t.Errorf("WatchdogThreshold = %s, want 5s", cfg.WatchdogThreshold)
	}
	if cfg.HighRiskThreshold != 7500*time.Millisecond {
		t.Errorf("HighRiskThreshold = %s, want 7.5s", cfg.HighRiskThreshold)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "broker-a:9092" || cfg.KafkaBrokers[1] != "broker-b:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.DatabaseURL != "postgres://localhost/payments" {
		t.Errorf("DatabaseURL = %s", cfg.DatabaseURL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name     string
		watchdog string
		highRisk string
	}{
		{"non-numeric watchdog", "soon", ""},
		{"zero watchdog", "0", ""},
		{"negative high risk", "", "-100"},
		{"high risk below watchdog", "9000", "4000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WATCHDOG_THRESHOLD_MS", tt.watchdog)
			t.Setenv("HIGH_RISK_THRESHOLD_MS", tt.highRisk)
			if _, err := Load(); err == nil {
				t.Error("Load accepted invalid thresholds")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
