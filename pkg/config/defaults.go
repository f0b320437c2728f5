package config

import "time"

// Default values for configuration fields.
const (
	// Budget defaults
	DefaultDailyCap              = 25.00
	DefaultMonthlyCap            = 500.00
	DefaultPerDocumentCap        = 5.00
	DefaultDailyAlertThreshold   = 0.8
	DefaultMonthlyAlertThreshold = 0.8

	// Breaker defaults
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 5 * time.Minute
	DefaultCallTimeout      = 60 * time.Second

	// Queue defaults
	DefaultQueueDBPath      = "data/queue.db"
	DefaultRetryInterval    = 30 * time.Second
	DefaultMaxAttempts      = 3
	DefaultJobTTL           = 24 * time.Hour
	DefaultQueueBatchSize   = 10

	// Ledger defaults
	DefaultLedgerDBPath      = "data/costs.db"
	DefaultLedgerBusyTimeout = 5 * time.Second
	DefaultRetentionDays     = 365
	DefaultRetentionSchedule = "0 3 * * *"

	// Reload defaults
	DefaultReloadDebounce = 500 * time.Millisecond

	// Telemetry defaults
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9620"
)

// DefaultConfig returns a configuration populated with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	return cfg
}

// ApplyDefaults fills in zero-valued fields with default values.
// Explicitly configured values are never overwritten.
func ApplyDefaults(cfg *Config) {
	if cfg.Guard.Budget.DailyCap == 0 {
		cfg.Guard.Budget.DailyCap = DefaultDailyCap
	}
	if cfg.Guard.Budget.MonthlyCap == 0 {
		cfg.Guard.Budget.MonthlyCap = DefaultMonthlyCap
	}
	if cfg.Guard.Budget.PerDocumentCap == 0 {
		cfg.Guard.Budget.PerDocumentCap = DefaultPerDocumentCap
	}
	if cfg.Guard.Budget.DailyAlertThreshold == 0 {
		cfg.Guard.Budget.DailyAlertThreshold = DefaultDailyAlertThreshold
	}
	if cfg.Guard.Budget.MonthlyAlertThreshold == 0 {
		cfg.Guard.Budget.MonthlyAlertThreshold = DefaultMonthlyAlertThreshold
	}

	if cfg.Guard.Breaker.FailureThreshold == 0 {
		cfg.Guard.Breaker.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Guard.Breaker.ResetTimeout == 0 {
		cfg.Guard.Breaker.ResetTimeout = DefaultResetTimeout
	}
	if cfg.Guard.Breaker.CallTimeout == 0 {
		cfg.Guard.Breaker.CallTimeout = DefaultCallTimeout
	}

	if cfg.Guard.Queue.DBPath == "" {
		cfg.Guard.Queue.DBPath = DefaultQueueDBPath
	}
	if cfg.Guard.Queue.RetryInterval == 0 {
		cfg.Guard.Queue.RetryInterval = DefaultRetryInterval
	}
	if cfg.Guard.Queue.DefaultMaxAttempts == 0 {
		cfg.Guard.Queue.DefaultMaxAttempts = DefaultMaxAttempts
	}
	if cfg.Guard.Queue.DefaultTTL == 0 {
		cfg.Guard.Queue.DefaultTTL = DefaultJobTTL
	}
	if cfg.Guard.Queue.BatchSize == 0 {
		cfg.Guard.Queue.BatchSize = DefaultQueueBatchSize
	}

	if cfg.Guard.Ledger.DBPath == "" {
		cfg.Guard.Ledger.DBPath = DefaultLedgerDBPath
	}
	if cfg.Guard.Ledger.BusyTimeout == 0 {
		cfg.Guard.Ledger.BusyTimeout = DefaultLedgerBusyTimeout
	}
	if cfg.Guard.Ledger.Retention.Days == 0 {
		cfg.Guard.Ledger.Retention.Days = DefaultRetentionDays
	}
	if cfg.Guard.Ledger.Retention.Schedule == "" {
		cfg.Guard.Ledger.Retention.Schedule = DefaultRetentionSchedule
	}

	if cfg.Guard.Reload.Debounce == 0 {
		cfg.Guard.Reload.Debounce = DefaultReloadDebounce
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
}
