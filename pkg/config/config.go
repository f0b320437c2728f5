package config

import "time"

// Config is the root configuration structure for Sentinel.
// It contains all configuration sections for the execution guard
// (budget policy, circuit breakers, fallback queue, cost ledger)
// and telemetry settings.
type Config struct {
	// Guard contains configuration for the budget-aware execution guard.
	Guard GuardConfig `yaml:"guard"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// GuardConfig contains configuration for the execution guard subsystems.
type GuardConfig struct {
	// Budget contains budget policy configuration.
	Budget BudgetConfig `yaml:"budget"`

	// Breaker contains circuit breaker configuration applied to every
	// per-service breaker instance.
	Breaker BreakerConfig `yaml:"breaker"`

	// Queue contains fallback queue configuration.
	Queue QueueConfig `yaml:"queue"`

	// Ledger contains cost ledger configuration.
	Ledger LedgerConfig `yaml:"ledger"`

	// Reload contains configuration for hot-reloading the budget policy
	// when the configuration file changes on disk.
	Reload ReloadConfig `yaml:"reload"`
}

// BudgetConfig contains budget caps, alert thresholds, and per-operation
// cost estimates. Caps are in USD; thresholds are fractions of the cap
// (0.8 means alert at 80% of the cap). A zero cap means unlimited.
type BudgetConfig struct {
	// DailyCap is the maximum spend per calendar day in USD.
	// Default: 25.00
	DailyCap float64 `yaml:"daily_cap"`

	// MonthlyCap is the maximum spend per calendar month in USD.
	// Default: 500.00
	MonthlyCap float64 `yaml:"monthly_cap"`

	// PerDocumentCap is the maximum spend per document in USD.
	// Default: 5.00
	PerDocumentCap float64 `yaml:"per_document_cap"`

	// DailyAlertThreshold is the fraction of the daily cap (0.0-1.0) at
	// which a non-blocking alert is raised.
	// Default: 0.8
	DailyAlertThreshold float64 `yaml:"daily_alert_threshold"`

	// MonthlyAlertThreshold is the fraction of the monthly cap (0.0-1.0)
	// at which a non-blocking alert is raised.
	// Default: 0.8
	MonthlyAlertThreshold float64 `yaml:"monthly_alert_threshold"`

	// Estimates maps service name to operation name to the default cost
	// estimate in USD, used when a caller does not supply an estimate.
	Estimates map[string]map[string]float64 `yaml:"estimates"`
}

// BreakerConfig contains circuit breaker settings shared by all services.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures after which
	// the breaker opens.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// ResetTimeout is how long the breaker stays open before permitting
	// a recovery probe.
	// Default: 5m
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// CallTimeout bounds each wrapped call; a call exceeding it counts
	// as a failure.
	// Default: 60s
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// QueueConfig contains fallback queue settings.
type QueueConfig struct {
	// DBPath is the SQLite database file for the job queue.
	// Default: "data/queue.db"
	DBPath string `yaml:"db_path"`

	// RetryInterval is how often the background processor scans for
	// retriable jobs.
	// Default: 30s
	RetryInterval time.Duration `yaml:"retry_interval"`

	// DefaultMaxAttempts is the attempt budget for jobs enqueued without
	// an explicit limit.
	// Default: 3
	DefaultMaxAttempts int `yaml:"default_max_attempts"`

	// DefaultTTL is the time-to-live for jobs enqueued without an
	// explicit TTL; jobs past their TTL are marked expired.
	// Default: 24h
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// BatchSize is the maximum number of jobs processed per cycle.
	// Default: 10
	BatchSize int `yaml:"batch_size"`
}

// LedgerConfig contains cost ledger settings.
type LedgerConfig struct {
	// DBPath is the SQLite database file for the cost log.
	// Default: "data/costs.db"
	DBPath string `yaml:"db_path"`

	// BusyTimeout is how long to wait for SQLite locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// Retention contains out-of-band archival settings for old events.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains settings for pruning old cost events.
// Pruning is the only path that ever deletes ledger rows.
type RetentionConfig struct {
	// Days is the number of days to retain cost events.
	// 0 means keep events forever (no pruning).
	// Default: 365
	Days int `yaml:"days"`

	// Schedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM).
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// ReloadConfig contains settings for hot-reloading the budget policy.
type ReloadConfig struct {
	// Enabled turns on watching the configuration file for changes.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Debounce is the time to wait after a file change before reloading,
	// to coalesce editor write bursts.
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format ("json", "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled turns on the metrics HTTP endpoint.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics endpoint.
	// Default: "127.0.0.1:9620"
	ListenAddress string `yaml:"listen_address"`
}
