package ledger

import (
	"errors"
	"fmt"
	"time"
)

// CostEvent is an immutable record of money spent on one operation.
// Events are append-only: they are created by cost recording, read by
// rolling-sum queries, and deleted only by the out-of-band retention
// pruner.
type CostEvent struct {
	// Timestamp is when the cost was incurred.
	Timestamp time.Time

	// Service is the downstream service that was called (e.g., "vision").
	Service string

	// Operation is the operation performed (e.g., "validate_page").
	Operation string

	// Cost is the amount spent in USD. Never negative.
	Cost float64

	// DocumentID identifies the document being processed, if any.
	DocumentID string

	// RunID identifies the pipeline run, if any.
	RunID string

	// Actor identifies who initiated the spend, if known.
	Actor string

	// Metadata is an opaque key/value map carried with the event.
	Metadata map[string]string
}

// Scope filters ledger queries. The zero value matches all events
// (global scope); setting Service or DocumentID narrows the match.
type Scope struct {
	// Service restricts the query to one service.
	Service string

	// DocumentID restricts the query to one document.
	DocumentID string
}

// Global is the scope matching every event.
var Global = Scope{}

// ForService returns a scope restricted to the given service.
func ForService(service string) Scope {
	return Scope{Service: service}
}

// ForDocument returns a scope restricted to the given document.
func ForDocument(documentID string) Scope {
	return Scope{DocumentID: documentID}
}

// ErrStorage is the sentinel error wrapped by every StorageError.
var ErrStorage = errors.New("ledger storage failure")

// StorageError reports a failure to persist or read cost events.
// Callers should treat an append failure as "cost not recorded" and
// prefer availability: log loudly and continue rather than blocking
// the business operation.
type StorageError struct {
	// Backend is the storage backend name ("sqlite", "memory").
	Backend string

	// Op is the storage operation that failed ("append", "sum", ...).
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger %s %s failed: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns ErrStorage so callers can match with errors.Is.
func (e *StorageError) Unwrap() error {
	return ErrStorage
}

// NewStorageError creates a StorageError for the given backend and operation.
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}
