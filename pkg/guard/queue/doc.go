// Package queue provides the durable fallback queue for work that could
// not complete immediately: calls rejected by an open circuit breaker or
// failed by a transient downstream error.
//
// # Lifecycle
//
// Jobs are enqueued with a bounded attempt budget and a time-to-live and
// move through these states:
//
//	queued -> in_progress -> completed
//	queued -> in_progress -> queued (attempt failed, budget remaining)
//	queued -> in_progress -> failed (attempt budget exhausted)
//	queued | in_progress -> expired (TTL passed)
//
// Completed, failed, and expired are terminal; terminal jobs are never
// re-queued.
//
// # Processing
//
// A background processor runs a cycle every RetryInterval: it first
// sweeps overdue jobs to expired, then claims up to BatchSize retriable
// jobs. The claim is an atomic conditional update (queued to
// in_progress), so no job is ever processed concurrently by two workers.
// Start returns after launching the loop; Stop blocks until the loop has
// exited, so tests never leak goroutines.
//
// Budget rejections are deliberately absent here: policy is fail-closed
// on money, so a rejected spend is surfaced to the caller rather than
// silently deferred across a billing boundary.
package queue
