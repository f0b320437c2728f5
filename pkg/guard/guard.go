package guard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docforge-hq/sentinel/pkg/guard/breaker"
	"docforge-hq/sentinel/pkg/guard/costguard"
	"docforge-hq/sentinel/pkg/guard/ledger"
	"docforge-hq/sentinel/pkg/guard/queue"
)

// Guard is the composition root: every billable downstream call goes
// through Run, which enforces the budget, routes the call through the
// service's circuit breaker, records actual spend on success, and
// defers failed work to the fallback queue.
type Guard struct {
	costs    *costguard.CostGuard
	breakers *breaker.Registry
	queue    *queue.Queue
	metrics  *Metrics
	logger   *slog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// New creates an execution guard. metrics may be nil, in which case no
// metrics are recorded.
func New(costs *costguard.CostGuard, breakers *breaker.Registry, q *queue.Queue, metrics *Metrics) *Guard {
	return &Guard{
		costs:    costs,
		breakers: breakers,
		queue:    q,
		metrics:  metrics,
		logger:   slog.Default().With("component", "guard"),
		now:      time.Now,
	}
}

// DeferredCall is the payload stored with a fallback queue job: enough
// of the original request to re-issue the call later.
type DeferredCall struct {
	Service       string            `json:"service"`
	Operation     string            `json:"operation"`
	EstimatedCost float64           `json:"estimated_cost,omitempty"`
	DocumentID    string            `json:"document_id,omitempty"`
	RunID         string            `json:"run_id,omitempty"`
	Actor         string            `json:"actor,omitempty"`
	Failure       string            `json:"failure"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Run executes fn under full protection.
//
// The budget is checked first: a rejected spend returns a
// *costguard.BudgetExceededError and fn is never invoked. Budget
// rejections are NOT queued for retry; deferring them would spend the
// money later against a window the caller never saw.
//
// The call then goes through the service's circuit breaker. An open
// breaker rejects immediately with a *breaker.OpenError and the work is
// queued. Any other failure of fn is also queued, and returned wrapped
// in an *OperationError. Caller cancellation is the exception: the work
// is abandoned, not queued, and does not count against the breaker.
//
// On success the actual cost from the Result is recorded. A recording
// failure does not fail the run: the work is done and the caller gets
// its result, with the accounting gap logged loudly by the cost guard.
func (g *Guard) Run(ctx context.Context, req Request, fn Operation) (*Result, error) {
	if req.Service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if fn == nil {
		return nil, errNilOperation
	}

	start := g.now()

	_, err := g.costs.CheckBudget(ctx, req.Service, req.Operation, req.EstimatedCost, req.Scope)
	if err != nil {
		var budgetErr *costguard.BudgetExceededError
		if errors.As(err, &budgetErr) {
			g.logger.Warn("run rejected by budget",
				"service", req.Service,
				"operation", req.Operation,
				"window", budgetErr.Scope,
				"current", budgetErr.Current,
				"cap", budgetErr.Cap,
			)
			g.recordRun(req.Service, "budget_rejected", start)
			if g.metrics != nil {
				g.metrics.RecordBudgetRejection(req.Service, budgetErr.Scope)
			}
			return nil, err
		}
		if errors.Is(err, ledger.ErrStorage) {
			// Availability over strict accounting: the ledger being
			// unreadable must not stall the pipeline.
			g.logger.Error("BUDGET UNVERIFIED: ledger read failed, proceeding",
				"service", req.Service,
				"operation", req.Operation,
				"error", err,
			)
		} else {
			g.recordRun(req.Service, "check_failed", start)
			return nil, fmt.Errorf("budget check failed: %w", err)
		}
	}

	br := g.breakers.Get(req.Service)

	var result *Result
	execErr := br.Execute(ctx, func(ctx context.Context) error {
		r, err := fn(ctx)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if g.metrics != nil {
		g.metrics.UpdateBreakerState(req.Service, br.Status().State)
	}

	if execErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			g.recordRun(req.Service, "cancelled", start)
			return nil, execErr
		}

		var openErr *breaker.OpenError
		if errors.As(execErr, &openErr) {
			jobID := g.enqueueRetry(ctx, req, execErr)
			g.logger.Warn("run rejected by open breaker",
				"service", req.Service,
				"operation", req.Operation,
				"job_id", jobID,
			)
			g.recordRun(req.Service, "circuit_open", start)
			return nil, execErr
		}

		jobID := g.enqueueRetry(ctx, req, execErr)
		g.recordRun(req.Service, "failed", start)
		return nil, &OperationError{
			Service:   req.Service,
			Operation: req.Operation,
			JobID:     jobID,
			Err:       execErr,
		}
	}

	if result == nil {
		result = &Result{}
	}

	if err := g.costs.RecordCost(ctx, req.Service, req.Operation, result.ActualCost, req.Scope, result.Metadata); err == nil {
		if g.metrics != nil {
			g.metrics.RecordSpend(req.Service, result.ActualCost)
		}
	}

	g.recordRun(req.Service, "success", start)
	return result, nil
}

// enqueueRetry queues the failed call for later retry and returns the job ID,
// or "" if enqueueing failed. Enqueueing is detached from the caller's
// context so the retry record survives caller teardown.
func (g *Guard) enqueueRetry(ctx context.Context, req Request, cause error) string {
	payload, err := json.Marshal(DeferredCall{
		Service:       req.Service,
		Operation:     req.Operation,
		EstimatedCost: req.EstimatedCost,
		DocumentID:    req.Scope.DocumentID,
		RunID:         req.Scope.RunID,
		Actor:         req.Scope.Actor,
		Failure:       cause.Error(),
	})
	if err != nil {
		g.logger.Error("failed to encode deferred call", "service", req.Service, "error", err)
		return ""
	}

	jobID, err := g.queue.Enqueue(context.WithoutCancel(ctx), req.Service, payload, 0, 0)
	if err != nil {
		g.logger.Error("failed to queue deferred call",
			"service", req.Service,
			"operation", req.Operation,
			"error", err,
		)
		return ""
	}
	return jobID
}

func (g *Guard) recordRun(service, outcome string, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordRun(service, outcome, g.now().Sub(start).Seconds())
}

// SetPolicy replaces the active budget policy. Used by the config
// watcher on hot reload.
func (g *Guard) SetPolicy(policy costguard.Policy) {
	g.costs.SetPolicy(policy)
}

// DailySpend returns the recorded spend since the start of today.
func (g *Guard) DailySpend(ctx context.Context) (float64, error) {
	return g.costs.DailySpend(ctx)
}

// MonthlySpend returns the recorded spend since the start of this month.
func (g *Guard) MonthlySpend(ctx context.Context) (float64, error) {
	return g.costs.MonthlySpend(ctx)
}

// BreakerStatus returns the breaker snapshot for one service.
func (g *Guard) BreakerStatus(service string) breaker.Status {
	return g.breakers.Get(service).Status()
}

// BreakerStatuses returns snapshots of every breaker created so far.
func (g *Guard) BreakerStatuses() []breaker.Status {
	return g.breakers.Statuses()
}

// QueueStats returns the fallback queue's per-status counts and, when
// metrics are enabled, refreshes the queue depth gauges.
func (g *Guard) QueueStats(ctx context.Context) (*queue.Stats, error) {
	stats, err := g.queue.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if g.metrics != nil {
		g.metrics.UpdateQueueDepth(string(queue.StatusQueued), stats.Queued)
		g.metrics.UpdateQueueDepth(string(queue.StatusInProgress), stats.InProgress)
		g.metrics.UpdateQueueDepth(string(queue.StatusFailed), stats.Failed)
		g.metrics.UpdateQueueDepth(string(queue.StatusExpired), stats.Expired)
	}
	return stats, nil
}
