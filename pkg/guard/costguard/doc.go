// Package costguard enforces the budget policy around costed operations.
//
// # Overview
//
// CheckBudget runs before any money is spent: it projects the operation's
// estimated cost onto the daily, monthly, and per-document totals derived
// from the ledger and hard-stops with a BudgetExceededError when any cap
// would be exceeded. RecordCost runs after the operation completes and
// appends the actual cost to the ledger.
//
// # Alerting
//
// Crossing an alert threshold (a fraction of a cap) is non-blocking: the
// check succeeds but emits a warning Alert through the injected Notifier.
// Actual spend exceeding a cap after the fact emits a critical Alert but
// never fails the completed operation. The Notifier is a single-method
// capability so the decision logic stays testable independent of the
// delivery mechanism.
//
// # Consistency
//
// Totals are always derived from the ledger event log, never from
// in-memory counters. The unavoidable consequence is a small window where
// two concurrent checks both approve against the same total; the overshoot
// is bounded by one operation's estimate and is documented as an accepted
// limitation.
package costguard
