package costguard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy contains the budget caps, alert thresholds, and per-operation
// cost estimates the guard enforces. A Policy is immutable once loaded;
// changes arrive as a wholesale replacement via CostGuard.SetPolicy and
// are never visible to an in-flight check.
type Policy struct {
	// Estimates maps service name to operation name to the default cost
	// estimate in USD, used when the caller does not supply an estimate.
	Estimates map[string]map[string]float64

	// PerDocumentCap is the maximum spend per document in USD.
	// 0 means unlimited.
	PerDocumentCap float64

	// DailyCap is the maximum spend per calendar day in USD.
	// 0 means unlimited.
	DailyCap float64

	// MonthlyCap is the maximum spend per calendar month in USD.
	// 0 means unlimited.
	MonthlyCap float64

	// DailyAlertThreshold is the fraction of DailyCap (0.0-1.0) at which
	// a non-blocking alert is raised.
	DailyAlertThreshold float64

	// MonthlyAlertThreshold is the fraction of MonthlyCap (0.0-1.0) at
	// which a non-blocking alert is raised.
	MonthlyAlertThreshold float64
}

// Estimate returns the default cost estimate for a service operation,
// or 0 if none is configured.
func (p Policy) Estimate(service, operation string) float64 {
	if ops, ok := p.Estimates[service]; ok {
		return ops[operation]
	}
	return 0
}

// Scope identifies what a spend check or cost record applies to beyond
// the service and operation.
type Scope struct {
	// DocumentID identifies the document being processed, if any.
	// When set, the per-document cap is enforced.
	DocumentID string

	// DocumentCreatedAt anchors the per-document rolling sum. Spend for
	// the document is summed from this instant. Zero means all-time.
	DocumentCreatedAt time.Time

	// RunID identifies the pipeline run, if any.
	RunID string

	// Actor identifies who initiated the spend, if known.
	Actor string
}

// Remaining reports the budget headroom left after a check, per window.
// A negative cap (no configured limit) is reported as -1.
type Remaining struct {
	Daily    float64
	Monthly  float64
	Document float64
}

// Decision is the outcome of a budget check.
type Decision struct {
	// Approved indicates the operation may proceed.
	Approved bool

	// Estimate is the cost estimate the check was performed with, after
	// resolving policy defaults.
	Estimate float64

	// Remaining is the headroom left in each window, assuming the
	// estimate is spent.
	Remaining Remaining

	// AlertTriggered indicates an alert threshold was crossed.
	AlertTriggered bool
}

// Severity classifies an alert.
type Severity string

const (
	// SeverityWarning marks threshold crossings that still permit spend.
	SeverityWarning Severity = "warning"

	// SeverityCritical marks spend that exceeded a cap after the fact.
	SeverityCritical Severity = "critical"
)

// Alert is the event handed to the Notifier when spend crosses a
// threshold or exceeds a cap.
type Alert struct {
	// Severity is warning (threshold crossed) or critical (cap exceeded).
	Severity Severity

	// Scope names the budget window ("daily", "monthly", "document").
	Scope string

	// CurrentSpend is the projected or recorded spend in USD.
	CurrentSpend float64

	// Threshold is the spend level in USD that was crossed.
	Threshold float64

	// Cap is the configured cap for the window in USD.
	Cap float64

	// CapPercentage is CurrentSpend / Cap (0.0-1.0+).
	CapPercentage float64
}

// Notifier delivers alerts. Delivery is fire-and-forget: the guard only
// decides when to alert, never how the alert reaches an operator.
type Notifier interface {
	Notify(ctx context.Context, alert Alert)
}

// NopNotifier discards all alerts.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Alert) {}

// ErrBudgetExceeded is the sentinel error wrapped by every
// BudgetExceededError.
var ErrBudgetExceeded = errors.New("budget exceeded")

// BudgetExceededError reports a hard budget stop. It is never retried
// automatically; the caller must re-initiate the work once budget is
// available again.
type BudgetExceededError struct {
	// Scope names the budget window that was hit ("daily", "monthly",
	// "document").
	Scope string

	// Current is the spend already recorded in the window in USD.
	Current float64

	// Cap is the configured cap for the window in USD.
	Cap float64

	// Attempted is the estimated cost of the rejected operation in USD.
	Attempted float64
}

// Error implements the error interface with an actionable message naming
// the cap that was hit and by how much the attempt would exceed it.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s budget exceeded: spent $%.2f of $%.2f cap, attempted $%.2f would exceed cap by $%.2f",
		e.Scope, e.Current, e.Cap, e.Attempted, e.Current+e.Attempted-e.Cap)
}

// Unwrap returns ErrBudgetExceeded so callers can match with errors.Is.
func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded
}
