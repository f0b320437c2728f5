package ledger

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	errNilEvent     = errors.New("event cannot be nil")
	errNegativeCost = errors.New("cost cannot be negative")
)

// MemoryStore implements Store with an in-memory event slice.
// It provides no durability and is intended for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*CostEvent
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores a copy of the event.
func (m *MemoryStore) Append(_ context.Context, event *CostEvent) error {
	if event == nil {
		return NewStorageError("memory", "append", errNilEvent)
	}
	if event.Cost < 0 {
		return NewStorageError("memory", "append", errNegativeCost)
	}

	stored := *event
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	if len(event.Metadata) > 0 {
		stored.Metadata = make(map[string]string, len(event.Metadata))
		for k, v := range event.Metadata {
			stored.Metadata[k] = v
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, &stored)
	return nil
}

// SumSince returns the sum of costs matching scope since the given time.
func (m *MemoryStore) SumSince(_ context.Context, scope Scope, since time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum float64
	for _, event := range m.events {
		if matches(event, scope, since) {
			sum += event.Cost
		}
	}
	return sum, nil
}

// EventsSince returns up to limit events matching scope, newest first.
func (m *MemoryStore) EventsSince(_ context.Context, scope Scope, since time.Time, limit int) ([]*CostEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []*CostEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if limit > 0 && len(events) >= limit {
			break
		}
		if matches(m.events[i], scope, since) {
			events = append(events, m.events[i])
		}
	}
	return events, nil
}

// DeleteBefore removes events older than cutoff.
func (m *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []*CostEvent
	var removed int64
	for _, event := range m.events {
		if event.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	m.events = kept
	return removed, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

func matches(event *CostEvent, scope Scope, since time.Time) bool {
	if event.Timestamp.Before(since) {
		return false
	}
	if scope.DocumentID != "" && event.DocumentID != scope.DocumentID {
		return false
	}
	if scope.Service != "" && event.Service != scope.Service {
		return false
	}
	return true
}
