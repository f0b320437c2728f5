package breaker

import (
	"errors"
	"fmt"
	"time"
)

// State represents the circuit breaker state.
type State string

const (
	// StateClosed permits calls; failures are counted.
	StateClosed State = "closed"

	// StateOpen rejects calls immediately without invoking the wrapped
	// function.
	StateOpen State = "open"

	// StateHalfOpen permits exactly one in-flight probe call.
	StateHalfOpen State = "half_open"
)

// Config contains circuit breaker settings.
type Config struct {
	// FailureThreshold is the number of consecutive failures after which
	// the breaker opens.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before permitting
	// a recovery probe.
	// Default: 5m
	ResetTimeout time.Duration

	// CallTimeout bounds each wrapped call; a call exceeding it counts
	// as a failure. 0 disables the per-call timeout.
	// Default: 60s
	CallTimeout time.Duration
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     5 * time.Minute,
		CallTimeout:      60 * time.Second,
	}
}

// Status is a read-only snapshot of a breaker's state.
type Status struct {
	// Service is the service this breaker guards.
	Service string

	// State is the current breaker state.
	State State

	// ConsecutiveFailures is the current consecutive failure count.
	ConsecutiveFailures int

	// RemainingOpenTime is how long until an open breaker permits a
	// probe. Zero unless State is open.
	RemainingOpenTime time.Duration
}

// ErrCircuitOpen is the sentinel error wrapped by every OpenError.
var ErrCircuitOpen = errors.New("circuit breaker open")

// OpenError reports a call rejected because the service's breaker is
// open (or a half-open probe is already in flight). The caller's work is
// queued for later retry rather than retried inline.
type OpenError struct {
	// Service is the service whose breaker rejected the call.
	Service string

	// RemainingOpenTime is how long until the breaker permits a probe.
	RemainingOpenTime time.Duration
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	if e.RemainingOpenTime > 0 {
		return fmt.Sprintf("circuit breaker open for service %q (retry in %s)", e.Service, e.RemainingOpenTime.Round(time.Second))
	}
	return fmt.Sprintf("circuit breaker open for service %q", e.Service)
}

// Unwrap returns ErrCircuitOpen so callers can match with errors.Is.
func (e *OpenError) Unwrap() error {
	return ErrCircuitOpen
}
