package costguard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"docforge-hq/sentinel/pkg/guard/ledger"
)

// recordingNotifier captures alerts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (n *recordingNotifier) Notify(_ context.Context, alert Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func (n *recordingNotifier) last() Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.alerts[len(n.alerts)-1]
}

func testPolicy() Policy {
	return Policy{
		Estimates: map[string]map[string]float64{
			"vision": {"validate_page": 0.12},
		},
		DailyCap:              25.00,
		MonthlyCap:            500.00,
		PerDocumentCap:        5.00,
		DailyAlertThreshold:   0.8,
		MonthlyAlertThreshold: 0.8,
	}
}

func TestCheckBudget_HardStopAtDailyCap(t *testing.T) {
	store := ledger.NewMemoryStore()
	guard := NewCostGuard(store, testPolicy(), nil)
	ctx := context.Background()

	// Fill the day to one cent under the cap.
	if err := guard.RecordCost(ctx, "vision", "validate_page", 24.99, Scope{}, nil); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}

	// An estimate within the remaining headroom succeeds.
	decision, err := guard.CheckBudget(ctx, "vision", "validate_page", 0.01, Scope{})
	if err != nil {
		t.Fatalf("Expected approval within cap, got %v", err)
	}
	if !decision.Approved {
		t.Error("Expected decision approved")
	}

	// An estimate over the remaining headroom is a hard stop.
	_, err = guard.CheckBudget(ctx, "vision", "validate_page", 0.02, Scope{})
	if err == nil {
		t.Fatal("Expected BudgetExceededError")
	}

	var budgetErr *BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("Expected *BudgetExceededError, got %T: %v", err, err)
	}
	if budgetErr.Scope != "daily" {
		t.Errorf("Expected daily scope, got %q", budgetErr.Scope)
	}
	if budgetErr.Cap != 25.00 {
		t.Errorf("Expected cap 25.00, got %.2f", budgetErr.Cap)
	}
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Error("Expected errors.Is to match ErrBudgetExceeded")
	}
}

func TestCheckBudget_AlertThenAllow(t *testing.T) {
	store := ledger.NewMemoryStore()
	notifier := &recordingNotifier{}
	guard := NewCostGuard(store, testPolicy(), notifier)
	ctx := context.Background()

	// Spend to just under 80% of the daily cap.
	if err := guard.RecordCost(ctx, "vision", "validate_page", 19.00, Scope{}, nil); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}

	// Projecting past the threshold but under the cap succeeds with
	// exactly one alert.
	decision, err := guard.CheckBudget(ctx, "vision", "validate_page", 1.50, Scope{})
	if err != nil {
		t.Fatalf("Expected approval, got %v", err)
	}
	if !decision.Approved {
		t.Error("Expected decision approved")
	}
	if !decision.AlertTriggered {
		t.Error("Expected alert triggered")
	}
	if notifier.count() != 1 {
		t.Fatalf("Expected exactly 1 alert, got %d", notifier.count())
	}

	alert := notifier.last()
	if alert.Severity != SeverityWarning {
		t.Errorf("Expected warning severity, got %q", alert.Severity)
	}
	if alert.Scope != "daily" {
		t.Errorf("Expected daily scope, got %q", alert.Scope)
	}
	if alert.CapPercentage < 0.8 || alert.CapPercentage > 1.0 {
		t.Errorf("Expected cap percentage between 0.8 and 1.0, got %.2f", alert.CapPercentage)
	}
}

func TestCheckBudget_NoAlertBelowThreshold(t *testing.T) {
	store := ledger.NewMemoryStore()
	notifier := &recordingNotifier{}
	guard := NewCostGuard(store, testPolicy(), notifier)

	decision, err := guard.CheckBudget(context.Background(), "vision", "validate_page", 1.00, Scope{})
	if err != nil {
		t.Fatalf("Expected approval, got %v", err)
	}
	if decision.AlertTriggered {
		t.Error("Expected no alert below threshold")
	}
	if notifier.count() != 0 {
		t.Errorf("Expected no alerts, got %d", notifier.count())
	}
}

func TestCheckBudget_UsesPolicyEstimate(t *testing.T) {
	store := ledger.NewMemoryStore()
	guard := NewCostGuard(store, testPolicy(), nil)

	// No caller estimate: the per-operation default applies.
	decision, err := guard.CheckBudget(context.Background(), "vision", "validate_page", 0, Scope{})
	if err != nil {
		t.Fatalf("CheckBudget failed: %v", err)
	}
	if decision.Estimate != 0.12 {
		t.Errorf("Expected policy estimate 0.12, got %.2f", decision.Estimate)
	}
}

func TestCheckBudget_PerDocumentCap(t *testing.T) {
	store := ledger.NewMemoryStore()
	guard := NewCostGuard(store, testPolicy(), nil)
	ctx := context.Background()

	scope := Scope{DocumentID: "doc-1", DocumentCreatedAt: time.Now().Add(-time.Hour)}

	if err := guard.RecordCost(ctx, "vision", "validate_page", 4.95, scope, nil); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}

	// Another document is unaffected.
	other := Scope{DocumentID: "doc-2", DocumentCreatedAt: time.Now().Add(-time.Hour)}
	if _, err := guard.CheckBudget(ctx, "vision", "validate_page", 0.12, other); err != nil {
		t.Errorf("Expected approval for other document, got %v", err)
	}

	// The loaded document hits its cap.
	_, err := guard.CheckBudget(ctx, "vision", "validate_page", 0.12, scope)
	var budgetErr *BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("Expected *BudgetExceededError, got %v", err)
	}
	if budgetErr.Scope != "document" {
		t.Errorf("Expected document scope, got %q", budgetErr.Scope)
	}
}

func TestRecordCost_PostHocCriticalAlert(t *testing.T) {
	store := ledger.NewMemoryStore()
	notifier := &recordingNotifier{}
	guard := NewCostGuard(store, testPolicy(), notifier)
	ctx := context.Background()

	// Actual cost overshoots the daily cap even though checks approved.
	if err := guard.RecordCost(ctx, "vision", "validate_page", 26.00, Scope{}, nil); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}

	if notifier.count() == 0 {
		t.Fatal("Expected a critical alert for post-hoc cap excess")
	}
	if notifier.alerts[0].Severity != SeverityCritical {
		t.Errorf("Expected critical severity, got %q", notifier.alerts[0].Severity)
	}
}

func TestRecordCost_WritesScopeFields(t *testing.T) {
	store := ledger.NewMemoryStore()
	guard := NewCostGuard(store, testPolicy(), nil)
	ctx := context.Background()

	scope := Scope{DocumentID: "doc-9", RunID: "run-1", Actor: "qa-bot"}
	if err := guard.RecordCost(ctx, "vision", "validate_page", 0.12, scope, map[string]string{"page": "4"}); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}

	events, err := store.EventsSince(ctx, ledger.ForDocument("doc-9"), time.Time{}, 0)
	if err != nil {
		t.Fatalf("EventsSince failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.RunID != "run-1" || event.Actor != "qa-bot" {
		t.Errorf("Expected scope fields on event, got run=%q actor=%q", event.RunID, event.Actor)
	}
	if event.Metadata["page"] != "4" {
		t.Errorf("Expected metadata to persist, got %v", event.Metadata)
	}
}

func TestSetPolicy_ReplacesWholesale(t *testing.T) {
	store := ledger.NewMemoryStore()
	guard := NewCostGuard(store, testPolicy(), nil)
	ctx := context.Background()

	if err := guard.RecordCost(ctx, "vision", "validate_page", 10.00, Scope{}, nil); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}

	// Tighten the daily cap below recorded spend.
	tightened := testPolicy()
	tightened.DailyCap = 5.00
	guard.SetPolicy(tightened)

	_, err := guard.CheckBudget(ctx, "vision", "validate_page", 0.12, Scope{})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("Expected rejection under tightened policy, got %v", err)
	}
}

func TestDailyAndMonthlySpend(t *testing.T) {
	store := ledger.NewMemoryStore()
	guard := NewCostGuard(store, testPolicy(), nil)
	ctx := context.Background()

	if err := guard.RecordCost(ctx, "vision", "validate_page", 1.25, Scope{}, nil); err != nil {
		t.Fatalf("RecordCost failed: %v", err)
	}

	daily, err := guard.DailySpend(ctx)
	if err != nil {
		t.Fatalf("DailySpend failed: %v", err)
	}
	if daily != 1.25 {
		t.Errorf("Expected daily spend 1.25, got %.2f", daily)
	}

	monthly, err := guard.MonthlySpend(ctx)
	if err != nil {
		t.Fatalf("MonthlySpend failed: %v", err)
	}
	if monthly != 1.25 {
		t.Errorf("Expected monthly spend 1.25, got %.2f", monthly)
	}
}
