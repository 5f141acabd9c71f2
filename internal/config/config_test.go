package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.ClinicTimezone != "America/Sao_Paulo" {
		t.Errorf("expected default clinic timezone, got %s", cfg.ClinicTimezone)
	}
	if cfg.CancellationWindowHours != 12 {
		t.Errorf("expected 12 hour cancellation window, got %d", cfg.CancellationWindowHours)
	}
	if cfg.WorkerPollInterval != 5*time.Second {
		t.Errorf("expected 5s poll interval, got %s", cfg.WorkerPollInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CANCELLATION_WINDOW_HOURS", "24")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("WORKER_POLL_INTERVAL", "30s")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("expected port override, got %s", cfg.Port)
	}
	if cfg.CancellationWindowHours != 24 {
		t.Errorf("expected 24 hour window, got %d", cfg.CancellationWindowHours)
	}
	if !cfg.UseMemoryQueue {
		t.Error("expected memory queue enabled")
	}
	if cfg.WorkerPollInterval != 30*time.Second {
		t.Errorf("expected 30s poll interval, got %s", cfg.WorkerPollInterval)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CANCELLATION_WINDOW_HOURS", "not-a-number")
	t.Setenv("WORKER_POLL_INTERVAL", "soon")

	cfg := Load()

	if cfg.CancellationWindowHours != 12 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.CancellationWindowHours)
	}
	if cfg.WorkerPollInterval != 5*time.Second {
		t.Errorf("malformed duration should fall back to default, got %s", cfg.WorkerPollInterval)
	}
}
