package costguard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docforge-hq/sentinel/pkg/guard/ledger"
)

// CostGuard enforces the budget policy before money is spent and records
// actual spend after.
//
// All totals are derived from the ledger on every check; the guard keeps
// no counters of its own. Two concurrent checks can therefore both read a
// total just under a cap and both approve - together exceeding the cap by
// at most one estimate. This race is accepted and documented; the caps
// are enforced pessimistically against estimates, so the overshoot is
// bounded by a single operation's estimate.
type CostGuard struct {
	store    ledger.Store
	notifier Notifier
	logger   *slog.Logger

	mu     sync.RWMutex
	policy Policy

	// now is replaceable for tests.
	now func() time.Time
}

// NewCostGuard creates a cost guard over the given ledger store.
// A nil notifier discards alerts.
func NewCostGuard(store ledger.Store, policy Policy, notifier Notifier) *CostGuard {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CostGuard{
		store:    store,
		notifier: notifier,
		logger:   slog.Default().With("component", "guard.costguard"),
		policy:   policy,
		now:      time.Now,
	}
}

// Policy returns the currently active policy.
func (g *CostGuard) Policy() Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policy
}

// SetPolicy replaces the active policy wholesale. In-flight checks keep
// the policy snapshot they started with.
func (g *CostGuard) SetPolicy(policy Policy) {
	g.mu.Lock()
	g.policy = policy
	g.mu.Unlock()
	g.logger.Info("budget policy replaced",
		"daily_cap", policy.DailyCap,
		"monthly_cap", policy.MonthlyCap,
		"per_document_cap", policy.PerDocumentCap,
	)
}

// CheckBudget verifies that an operation's estimated cost fits within
// every configured cap. It is pessimistic: the operation is rejected if
// the estimate would push any running total over its cap, even though
// actual cost may later differ.
//
// On rejection the returned error is a *BudgetExceededError and the
// operation must not be attempted. When the projected spend crosses an
// alert threshold but stays under cap, exactly one alert per crossed
// window is emitted before returning success.
func (g *CostGuard) CheckBudget(ctx context.Context, service, operation string, estimatedCost float64, scope Scope) (*Decision, error) {
	policy := g.Policy()

	estimate := estimatedCost
	if estimate <= 0 {
		estimate = policy.Estimate(service, operation)
	}

	now := g.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	dailySpend, err := g.store.SumSince(ctx, ledger.Global, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("daily spend lookup failed: %w", err)
	}
	monthlySpend, err := g.store.SumSince(ctx, ledger.Global, startOfMonth)
	if err != nil {
		return nil, fmt.Errorf("monthly spend lookup failed: %w", err)
	}

	var docSpend float64
	if scope.DocumentID != "" {
		docSpend, err = g.store.SumSince(ctx, ledger.ForDocument(scope.DocumentID), scope.DocumentCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("document spend lookup failed: %w", err)
		}
	}

	decision := &Decision{
		Approved: true,
		Estimate: estimate,
		Remaining: Remaining{
			Daily:    remaining(policy.DailyCap, dailySpend+estimate),
			Monthly:  remaining(policy.MonthlyCap, monthlySpend+estimate),
			Document: remaining(policy.PerDocumentCap, docSpend+estimate),
		},
	}

	// Hard stops: reject before any money is at risk.
	if policy.DailyCap > 0 && dailySpend+estimate > policy.DailyCap {
		return nil, &BudgetExceededError{Scope: "daily", Current: dailySpend, Cap: policy.DailyCap, Attempted: estimate}
	}
	if policy.MonthlyCap > 0 && monthlySpend+estimate > policy.MonthlyCap {
		return nil, &BudgetExceededError{Scope: "monthly", Current: monthlySpend, Cap: policy.MonthlyCap, Attempted: estimate}
	}
	if scope.DocumentID != "" && policy.PerDocumentCap > 0 && docSpend+estimate > policy.PerDocumentCap {
		return nil, &BudgetExceededError{Scope: "document", Current: docSpend, Cap: policy.PerDocumentCap, Attempted: estimate}
	}

	// Non-blocking alerts once projected spend crosses a threshold.
	if crossed(policy.DailyCap, policy.DailyAlertThreshold, dailySpend+estimate) {
		decision.AlertTriggered = true
		g.notifier.Notify(ctx, Alert{
			Severity:      SeverityWarning,
			Scope:         "daily",
			CurrentSpend:  dailySpend + estimate,
			Threshold:     policy.DailyCap * policy.DailyAlertThreshold,
			Cap:           policy.DailyCap,
			CapPercentage: (dailySpend + estimate) / policy.DailyCap,
		})
	}
	if crossed(policy.MonthlyCap, policy.MonthlyAlertThreshold, monthlySpend+estimate) {
		decision.AlertTriggered = true
		g.notifier.Notify(ctx, Alert{
			Severity:      SeverityWarning,
			Scope:         "monthly",
			CurrentSpend:  monthlySpend + estimate,
			Threshold:     policy.MonthlyCap * policy.MonthlyAlertThreshold,
			Cap:           policy.MonthlyCap,
			CapPercentage: (monthlySpend + estimate) / policy.MonthlyCap,
		})
	}

	return decision, nil
}

// RecordCost appends a cost event for a completed operation. It must be
// called exactly once per completed operation, with the actual cost
// (which may differ from the estimate used in CheckBudget).
//
// If the actual spend has pushed a running total past a cap, a critical
// alert is emitted but the already-completed operation is not failed
// retroactively.
func (g *CostGuard) RecordCost(ctx context.Context, service, operation string, actualCost float64, scope Scope, metadata map[string]string) error {
	event := &ledger.CostEvent{
		Timestamp:  g.now(),
		Service:    service,
		Operation:  operation,
		Cost:       actualCost,
		DocumentID: scope.DocumentID,
		RunID:      scope.RunID,
		Actor:      scope.Actor,
		Metadata:   metadata,
	}

	if err := g.store.Append(ctx, event); err != nil {
		// Availability over strict accounting: the operation already
		// completed, so surface a loud warning instead of failing it.
		g.logger.Error("COST NOT RECORDED: ledger append failed",
			"service", service,
			"operation", operation,
			"cost", actualCost,
			"error", err,
		)
		return err
	}

	g.checkPostHoc(ctx, service, operation)
	return nil
}

// DailySpend returns the recorded spend since the start of today.
func (g *CostGuard) DailySpend(ctx context.Context) (float64, error) {
	now := g.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return g.store.SumSince(ctx, ledger.Global, startOfDay)
}

// MonthlySpend returns the recorded spend since the start of this month.
func (g *CostGuard) MonthlySpend(ctx context.Context) (float64, error) {
	now := g.now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return g.store.SumSince(ctx, ledger.Global, startOfMonth)
}

// checkPostHoc raises a critical alert when recorded spend has exceeded a
// cap after the fact (actual costs ran past the estimates that were
// approved).
func (g *CostGuard) checkPostHoc(ctx context.Context, service, operation string) {
	policy := g.Policy()

	if policy.DailyCap > 0 {
		spend, err := g.DailySpend(ctx)
		if err != nil {
			g.logger.Warn("post-hoc daily spend lookup failed", "error", err)
		} else if spend > policy.DailyCap {
			g.logger.Warn("recorded spend exceeded daily cap",
				"service", service,
				"operation", operation,
				"spend", spend,
				"cap", policy.DailyCap,
			)
			g.notifier.Notify(ctx, Alert{
				Severity:      SeverityCritical,
				Scope:         "daily",
				CurrentSpend:  spend,
				Threshold:     policy.DailyCap,
				Cap:           policy.DailyCap,
				CapPercentage: spend / policy.DailyCap,
			})
		}
	}

	if policy.MonthlyCap > 0 {
		spend, err := g.MonthlySpend(ctx)
		if err != nil {
			g.logger.Warn("post-hoc monthly spend lookup failed", "error", err)
		} else if spend > policy.MonthlyCap {
			g.notifier.Notify(ctx, Alert{
				Severity:      SeverityCritical,
				Scope:         "monthly",
				CurrentSpend:  spend,
				Threshold:     policy.MonthlyCap,
				Cap:           policy.MonthlyCap,
				CapPercentage: spend / policy.MonthlyCap,
			})
		}
	}
}

// remaining computes headroom under a cap; caps of 0 mean unlimited and
// report -1.
func remaining(limit, projected float64) float64 {
	if limit <= 0 {
		return -1
	}
	left := limit - projected
	if left < 0 {
		return 0
	}
	return left
}

// crossed reports whether projected spend has reached the alert threshold
// for a configured cap.
func crossed(limit, threshold, projected float64) bool {
	if limit <= 0 || threshold <= 0 {
		return false
	}
	return projected/limit >= threshold
}
