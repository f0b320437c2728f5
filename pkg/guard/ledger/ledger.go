package ledger

import (
	"context"
	"time"
)

// Store is the durable, queryable store of cost events.
//
// Append must be durable before returning success: a SumSince call made
// after a successful Append always reflects that event. SumSince derives
// totals from the event log on every call; no component keeps running
// counters in memory, so multiple readers stay consistent and a crash
// never loses or double-counts spend.
type Store interface {
	// Append durably persists one cost event.
	Append(ctx context.Context, event *CostEvent) error

	// SumSince returns the sum of Cost for events matching scope with
	// Timestamp >= since.
	SumSince(ctx context.Context, scope Scope, since time.Time) (float64, error)

	// EventsSince returns up to limit events matching scope with
	// Timestamp >= since, newest first. limit <= 0 means no limit.
	EventsSince(ctx context.Context, scope Scope, since time.Time, limit int) ([]*CostEvent, error)

	// DeleteBefore removes events with Timestamp < cutoff and returns
	// the number of events removed. Only the retention pruner calls this.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the store's resources.
	Close() error
}
