package guard

import (
	"errors"
	"fmt"

	"docforge-hq/sentinel/pkg/guard/breaker"
	"docforge-hq/sentinel/pkg/guard/costguard"
)

// Sentinel errors re-exported from the subsystems so callers matching
// with errors.Is need only import this package.
var (
	// ErrBudgetExceeded matches budget rejections. Work rejected on
	// budget is never queued for retry.
	ErrBudgetExceeded = costguard.ErrBudgetExceeded

	// ErrCircuitOpen matches calls rejected by an open breaker. The
	// work has been queued for later retry.
	ErrCircuitOpen = breaker.ErrCircuitOpen
)

// OperationError reports a wrapped operation that was attempted and
// failed. The work has been queued for later retry; the error carries
// the original failure for the immediate caller.
type OperationError struct {
	// Service is the downstream service that failed.
	Service string

	// Operation is the operation that failed.
	Operation string

	// JobID is the fallback queue job created for the retry, empty if
	// enqueueing itself failed.
	JobID string

	// Err is the operation's failure.
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("%s %s failed (queued for retry as job %s): %v", e.Service, e.Operation, e.JobID, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Service, e.Operation, e.Err)
}

// Unwrap returns the operation's failure so callers can match it with
// errors.Is and errors.As.
func (e *OperationError) Unwrap() error {
	return e.Err
}

var errNilOperation = errors.New("operation cannot be nil")
