package guard

import (
	"context"

	"docforge-hq/sentinel/pkg/guard/costguard"
)

// Scope identifies what a guarded call's spend applies to.
type Scope = costguard.Scope

// Request describes a guarded call to a downstream service.
type Request struct {
	// Service is the downstream service being called (e.g., "vision").
	// Selects the circuit breaker and the budget estimates.
	Service string

	// Operation is the operation performed (e.g., "validate_page").
	Operation string

	// EstimatedCost is the caller's cost estimate in USD. When zero or
	// negative, the policy's default estimate for the operation is used.
	EstimatedCost float64

	// Scope attributes the spend to a document, run, and actor.
	Scope Scope
}

// Result is what a guarded operation produces on success.
type Result struct {
	// Payload is the operation's output, opaque to the guard.
	Payload []byte

	// ActualCost is the real cost incurred in USD, which may differ from
	// the estimate the budget check approved.
	ActualCost float64

	// Metadata is carried onto the recorded cost event.
	Metadata map[string]string
}

// Operation is the unit of work the guard wraps: typically one billable
// downstream call.
type Operation func(ctx context.Context) (*Result, error)
