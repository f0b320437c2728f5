// Package guard composes budget enforcement, circuit breaking, and
// fallback queueing into a single entry point for billable downstream
// calls in a document QA pipeline.
//
// # Run flow
//
// Guard.Run enforces a strict ordering:
//
//  1. CheckBudget. A projected cap overrun rejects the call before any
//     money is at risk. Budget rejections are final for this attempt:
//     they are returned to the caller and never queued, because spending
//     later against a window the caller never saw defeats the cap.
//  2. Circuit breaker. An open breaker rejects without invoking the
//     operation; the call is queued for retry once the service recovers.
//  3. The operation itself. A failure is queued for bounded retry and
//     returned wrapped in an OperationError. Caller cancellation is
//     neither queued nor counted against the breaker.
//  4. RecordCost. The actual cost from the Result is appended to the
//     ledger. Recording failures never fail a completed run; the cost
//     guard logs the accounting gap loudly instead.
//
// # Error matching
//
// Callers branch on outcomes with the re-exported sentinels:
//
//	_, err := g.Run(ctx, req, op)
//	switch {
//	case errors.Is(err, guard.ErrBudgetExceeded):
//	    // hard stop, do not retry
//	case errors.Is(err, guard.ErrCircuitOpen):
//	    // queued, service recovering
//	}
package guard
