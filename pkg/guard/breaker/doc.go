// Package breaker isolates callers from misbehaving downstream services
// with a per-service circuit breaker.
//
// # States
//
// Each breaker moves between three states:
//
//	closed --[threshold consecutive failures]--> open
//	open --[reset timeout elapsed]--> half_open
//	half_open --[probe succeeds]--> closed
//	half_open --[probe fails]--> open (fresh timeout)
//
// In the closed state calls pass through and any success resets the
// consecutive failure count. In the open state calls are rejected
// immediately with an OpenError; the wrapped function is never invoked.
// In the half-open state exactly one in-flight probe is permitted, and
// every other concurrent caller is rejected until it resolves.
//
// # Timeouts and cancellation
//
// Each call is bounded by the configured CallTimeout using context
// cancellation. A timed-out call counts as a failure even if the
// underlying operation later completes; the late result is discarded.
// Caller-initiated cancellation counts neither for nor against the
// service.
//
// Breaker state is in-memory only: a process restart is equivalent to
// Reset on every breaker.
package breaker
