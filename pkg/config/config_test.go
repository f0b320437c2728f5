package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "guard:\n  budget:\n    daily_cap: 10.0\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Guard.Budget.DailyCap != 10.0 {
		t.Errorf("Expected daily cap 10.0, got %.2f", cfg.Guard.Budget.DailyCap)
	}
	if cfg.Guard.Budget.MonthlyCap != DefaultMonthlyCap {
		t.Errorf("Expected default monthly cap %.2f, got %.2f", DefaultMonthlyCap, cfg.Guard.Budget.MonthlyCap)
	}
	if cfg.Guard.Breaker.FailureThreshold != DefaultFailureThreshold {
		t.Errorf("Expected default failure threshold %d, got %d", DefaultFailureThreshold, cfg.Guard.Breaker.FailureThreshold)
	}
	if cfg.Guard.Queue.RetryInterval != DefaultRetryInterval {
		t.Errorf("Expected default retry interval %v, got %v", DefaultRetryInterval, cfg.Guard.Queue.RetryInterval)
	}
	if cfg.Guard.Ledger.Retention.Schedule != DefaultRetentionSchedule {
		t.Errorf("Expected default retention schedule %q, got %q", DefaultRetentionSchedule, cfg.Guard.Ledger.Retention.Schedule)
	}
}

func TestLoad_Estimates(t *testing.T) {
	path := writeConfigFile(t, `
guard:
  budget:
    estimates:
      vision:
        validate_page: 0.12
        analyze_layout: 0.25
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.Guard.Budget.Estimates["vision"]["validate_page"]; got != 0.12 {
		t.Errorf("Expected estimate 0.12, got %.2f", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "guard: [not a mapping")
	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Guard.Budget.DailyCap = -1
	cfg.Guard.Budget.DailyAlertThreshold = 1.5
	cfg.Guard.Breaker.FailureThreshold = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("Expected 3 field errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestValidate_BadCronSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Guard.Ledger.Retention.Schedule = "not a cron expression"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for bad cron schedule")
	}
	if !strings.Contains(err.Error(), "retention.schedule") {
		t.Errorf("Expected schedule field error, got: %v", err)
	}
}

func TestValidate_NegativeEstimate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Guard.Budget.Estimates = map[string]map[string]float64{
		"vision": {"validate_page": -0.5},
	}

	if err := Validate(cfg); err == nil {
		t.Error("Expected validation error for negative estimate")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, "guard:\n  budget:\n    daily_cap: 10.0\n")

	t.Setenv("SENTINEL_BUDGET_DAILY_CAP", "42.50")
	t.Setenv("SENTINEL_BREAKER_RESET_TIMEOUT", "90s")
	t.Setenv("SENTINEL_LEDGER_DB_PATH", "/tmp/override.db")

	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides failed: %v", err)
	}

	if cfg.Guard.Budget.DailyCap != 42.50 {
		t.Errorf("Expected overridden daily cap 42.50, got %.2f", cfg.Guard.Budget.DailyCap)
	}
	if cfg.Guard.Breaker.ResetTimeout != 90*time.Second {
		t.Errorf("Expected overridden reset timeout 90s, got %v", cfg.Guard.Breaker.ResetTimeout)
	}
	if cfg.Guard.Ledger.DBPath != "/tmp/override.db" {
		t.Errorf("Expected overridden ledger path, got %q", cfg.Guard.Ledger.DBPath)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("Default configuration should validate: %v", err)
	}
}
