package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// almostEqual compares USD sums with a tolerance for float accumulation.
func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}

// storeFactories builds each backend fresh for shared conformance tests.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "costs.db"))
			if err != nil {
				t.Fatalf("Failed to create SQLite store: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func TestStore_AppendAndSum(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)

			events := []*CostEvent{
				{Timestamp: base, Service: "vision", Operation: "validate_page", Cost: 0.12, DocumentID: "doc-1"},
				{Timestamp: base.Add(time.Minute), Service: "vision", Operation: "validate_page", Cost: 0.12, DocumentID: "doc-2"},
				{Timestamp: base.Add(2 * time.Minute), Service: "layout", Operation: "analyze", Cost: 0.25, DocumentID: "doc-1"},
			}
			for _, event := range events {
				if err := store.Append(ctx, event); err != nil {
					t.Fatalf("Append failed: %v", err)
				}
			}

			sum, err := store.SumSince(ctx, Global, base.Add(-time.Minute))
			if err != nil {
				t.Fatalf("SumSince failed: %v", err)
			}
			if !almostEqual(sum, 0.49) {
				t.Errorf("Expected global sum 0.49, got %.4f", sum)
			}

			sum, err = store.SumSince(ctx, ForService("vision"), base.Add(-time.Minute))
			if err != nil {
				t.Fatalf("SumSince failed: %v", err)
			}
			if !almostEqual(sum, 0.24) {
				t.Errorf("Expected vision sum 0.24, got %.4f", sum)
			}

			sum, err = store.SumSince(ctx, ForDocument("doc-1"), base.Add(-time.Minute))
			if err != nil {
				t.Fatalf("SumSince failed: %v", err)
			}
			if !almostEqual(sum, 0.37) {
				t.Errorf("Expected doc-1 sum 0.37, got %.4f", sum)
			}
		})
	}
}

func TestStore_SumSinceBoundary(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()
			cutoff := time.Now().Add(-time.Hour)

			// One event strictly before the cutoff, one exactly at it.
			if err := store.Append(ctx, &CostEvent{Timestamp: cutoff.Add(-time.Second), Service: "vision", Cost: 1.00}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if err := store.Append(ctx, &CostEvent{Timestamp: cutoff, Service: "vision", Cost: 2.00}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}

			sum, err := store.SumSince(ctx, Global, cutoff)
			if err != nil {
				t.Fatalf("SumSince failed: %v", err)
			}
			if sum != 2.00 {
				t.Errorf("Expected sum 2.00 (inclusive since), got %.2f", sum)
			}
		})
	}
}

func TestStore_RejectsInvalidEvents(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			if err := store.Append(ctx, nil); err == nil {
				t.Error("Expected error for nil event")
			}
			if err := store.Append(ctx, &CostEvent{Service: "vision", Cost: -1}); err == nil {
				t.Error("Expected error for negative cost")
			}
		})
	}
}

func TestStore_EventsSince(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()
			base := time.Now().Add(-time.Hour)

			for i := 0; i < 5; i++ {
				event := &CostEvent{
					Timestamp:  base.Add(time.Duration(i) * time.Minute),
					Service:    "vision",
					Operation:  "validate_page",
					Cost:       0.10,
					DocumentID: "doc-1",
					Metadata:   map[string]string{"page": "1"},
				}
				if err := store.Append(ctx, event); err != nil {
					t.Fatalf("Append failed: %v", err)
				}
			}

			events, err := store.EventsSince(ctx, Global, base, 3)
			if err != nil {
				t.Fatalf("EventsSince failed: %v", err)
			}
			if len(events) != 3 {
				t.Fatalf("Expected 3 events with limit, got %d", len(events))
			}
			// Newest first.
			if !events[0].Timestamp.After(events[1].Timestamp) {
				t.Error("Expected events ordered newest first")
			}
			if events[0].Metadata["page"] != "1" {
				t.Errorf("Expected metadata to round-trip, got %v", events[0].Metadata)
			}
		})
	}
}

func TestStore_DeleteBefore(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()
			now := time.Now()

			if err := store.Append(ctx, &CostEvent{Timestamp: now.Add(-48 * time.Hour), Service: "vision", Cost: 1.00}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if err := store.Append(ctx, &CostEvent{Timestamp: now, Service: "vision", Cost: 2.00}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}

			removed, err := store.DeleteBefore(ctx, now.Add(-24*time.Hour))
			if err != nil {
				t.Fatalf("DeleteBefore failed: %v", err)
			}
			if removed != 1 {
				t.Errorf("Expected 1 event removed, got %d", removed)
			}

			sum, err := store.SumSince(ctx, Global, now.Add(-72*time.Hour))
			if err != nil {
				t.Fatalf("SumSince failed: %v", err)
			}
			if sum != 2.00 {
				t.Errorf("Expected remaining sum 2.00, got %.2f", sum)
			}
		})
	}
}

func TestSQLiteStore_DurableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "costs.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Append(ctx, &CostEvent{Service: "vision", Operation: "validate_page", Cost: 0.42}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	sum, err := reopened.SumSince(ctx, Global, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("SumSince failed: %v", err)
	}
	if sum != 0.42 {
		t.Errorf("Expected durable sum 0.42 after reopen, got %.2f", sum)
	}
}

func TestSQLiteStore_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStore(""); err == nil {
		t.Error("Expected error for empty db path")
	}
}
