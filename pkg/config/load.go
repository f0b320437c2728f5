package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns
// any errors. Environment variables are not consulted; use
// LoadWithEnvOverrides for that functionality.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SENTINEL_SECTION_FIELD (e.g., SENTINEL_BUDGET_DAILY_CAP) and
// always take precedence over file-based configuration.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SENTINEL_BUDGET_DAILY_CAP"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Guard.Budget.DailyCap = f
		}
	}
	if val := os.Getenv("SENTINEL_BUDGET_MONTHLY_CAP"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Guard.Budget.MonthlyCap = f
		}
	}
	if val := os.Getenv("SENTINEL_BUDGET_PER_DOCUMENT_CAP"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Guard.Budget.PerDocumentCap = f
		}
	}
	if val := os.Getenv("SENTINEL_BREAKER_RESET_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Guard.Breaker.ResetTimeout = d
		}
	}
	if val := os.Getenv("SENTINEL_LEDGER_DB_PATH"); val != "" {
		cfg.Guard.Ledger.DBPath = val
	}
	if val := os.Getenv("SENTINEL_QUEUE_DB_PATH"); val != "" {
		cfg.Guard.Queue.DBPath = val
	}
	if val := os.Getenv("SENTINEL_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SENTINEL_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}
