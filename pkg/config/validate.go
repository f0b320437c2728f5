package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "guard.budget.daily_cap").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBudget(&cfg.Guard.Budget)...)
	errs = append(errs, validateBreaker(&cfg.Guard.Breaker)...)
	errs = append(errs, validateQueue(&cfg.Guard.Queue)...)
	errs = append(errs, validateLedger(&cfg.Guard.Ledger)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateBudget(cfg *BudgetConfig) []FieldError {
	var errs []FieldError

	if cfg.DailyCap < 0 {
		errs = append(errs, FieldError{"guard.budget.daily_cap", "must not be negative"})
	}
	if cfg.MonthlyCap < 0 {
		errs = append(errs, FieldError{"guard.budget.monthly_cap", "must not be negative"})
	}
	if cfg.PerDocumentCap < 0 {
		errs = append(errs, FieldError{"guard.budget.per_document_cap", "must not be negative"})
	}
	if cfg.DailyAlertThreshold < 0 || cfg.DailyAlertThreshold > 1 {
		errs = append(errs, FieldError{"guard.budget.daily_alert_threshold", "must be between 0.0 and 1.0"})
	}
	if cfg.MonthlyAlertThreshold < 0 || cfg.MonthlyAlertThreshold > 1 {
		errs = append(errs, FieldError{"guard.budget.monthly_alert_threshold", "must be between 0.0 and 1.0"})
	}
	for service, ops := range cfg.Estimates {
		for op, estimate := range ops {
			if estimate < 0 {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("guard.budget.estimates.%s.%s", service, op),
					Message: "must not be negative",
				})
			}
		}
	}

	return errs
}

func validateBreaker(cfg *BreakerConfig) []FieldError {
	var errs []FieldError

	if cfg.FailureThreshold < 1 {
		errs = append(errs, FieldError{"guard.breaker.failure_threshold", "must be at least 1"})
	}
	if cfg.ResetTimeout <= 0 {
		errs = append(errs, FieldError{"guard.breaker.reset_timeout", "must be positive"})
	}
	if cfg.CallTimeout <= 0 {
		errs = append(errs, FieldError{"guard.breaker.call_timeout", "must be positive"})
	}

	return errs
}

func validateQueue(cfg *QueueConfig) []FieldError {
	var errs []FieldError

	if cfg.DBPath == "" {
		errs = append(errs, FieldError{"guard.queue.db_path", "must not be empty"})
	}
	if cfg.RetryInterval <= 0 {
		errs = append(errs, FieldError{"guard.queue.retry_interval", "must be positive"})
	}
	if cfg.DefaultMaxAttempts < 1 {
		errs = append(errs, FieldError{"guard.queue.default_max_attempts", "must be at least 1"})
	}
	if cfg.DefaultTTL <= 0 {
		errs = append(errs, FieldError{"guard.queue.default_ttl", "must be positive"})
	}
	if cfg.BatchSize < 1 {
		errs = append(errs, FieldError{"guard.queue.batch_size", "must be at least 1"})
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	if cfg.DBPath == "" {
		errs = append(errs, FieldError{"guard.ledger.db_path", "must not be empty"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{"guard.ledger.retention.days", "must not be negative"})
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "guard.ledger.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", cfg.Logging.Format)})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{"telemetry.metrics.listen_address", "must not be empty when metrics are enabled"})
	}

	return errs
}
