// Package ledger provides the append-only store of cost events that all
// budget decisions derive from.
//
// # Overview
//
// Every dollar spent on a downstream service is recorded as a CostEvent.
// Rolling totals (daily, monthly, per-document) are always computed from
// the event log via SumSince; no component keeps counters in memory, so
// multiple readers stay consistent and a crash never loses or
// double-counts spend.
//
// # Backends
//
// Two Store implementations are provided:
//
//   - SQLiteStore: durable single-node storage (the cost_log table).
//     Appends are committed with full synchronous mode, so a successful
//     Append is visible to every subsequent SumSince call.
//   - MemoryStore: non-durable storage for tests and ephemeral runs.
//
// # Retention
//
// Events are never mutated and never deleted by normal operation. The
// Pruner is the single, explicitly scheduled exception: it removes events
// older than the configured retention window on a cron schedule.
package ledger
