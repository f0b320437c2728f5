package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Breaker is a three-state circuit breaker guarding one downstream
// service. State is shared by all concurrent callers for that service;
// every transition is applied under a mutex that is held only for the
// transition itself, never for the duration of a wrapped call.
type Breaker struct {
	service string
	config  Config

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	lastFailureAt       time.Time
	openedAt            time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a closed breaker for the given service.
// Zero-valued config fields fall back to DefaultConfig.
func New(service string, config Config) *Breaker {
	defaults := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = defaults.ResetTimeout
	}

	return &Breaker{
		service: service,
		config:  config,
		state:   StateClosed,
		now:     time.Now,
	}
}

// Execute runs fn through the breaker.
//
// In the open state fn is never invoked and an *OpenError is returned
// immediately. After the reset timeout, the first caller to arrive runs
// fn as the single half-open probe; concurrent callers are rejected until
// the probe resolves. The call is bounded by the configured CallTimeout;
// a timed-out call counts as a failure even if fn eventually completes,
// and its late result is discarded.
//
// A caller-initiated context cancellation is not counted as a service
// failure.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}

	callCtx := ctx
	cancel := func() {}
	if b.config.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.config.CallTimeout)
	}
	defer cancel()

	// Run fn in its own goroutine so a timed-out call cannot block the
	// breaker; the buffered channel lets the late result be dropped.
	done := make(chan error, 1)
	go func() { done <- fn(callCtx) }()

	var callErr error
	select {
	case callErr = <-done:
	case <-callCtx.Done():
		callErr = callCtx.Err()
	}

	if callErr == nil {
		b.onSuccess(probe)
		return nil
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		// The caller walked away; the service is not to blame.
		b.onCancelled(probe)
		return callErr
	}

	b.onFailure(probe)
	return callErr
}

// Status returns a read-only snapshot of the breaker. It never mutates
// state: an open breaker whose timeout has elapsed still reports open
// until the next Execute admits a probe.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	var remaining time.Duration
	if b.state == StateOpen {
		remaining = b.config.ResetTimeout - b.now().Sub(b.openedAt)
		if remaining < 0 {
			remaining = 0
		}
	}

	return Status{
		Service:             b.service,
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		RemainingOpenTime:   remaining,
	}
}

// Reset forces the breaker closed and clears the failure count.
// Intended for operators and tests.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.consecutiveFailures = 0
}

// ForceOpen forces the breaker open as if the failure threshold had just
// been reached. Intended for operators and tests.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateOpen
	b.openedAt = b.now()
}

// admit decides whether a call may proceed, returning probe=true when
// the call is the single half-open probe.
func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil

	case StateOpen:
		remaining := b.config.ResetTimeout - b.now().Sub(b.openedAt)
		if remaining > 0 {
			return false, &OpenError{Service: b.service, RemainingOpenTime: remaining}
		}
		// Timeout elapsed: this caller becomes the probe.
		b.state = StateHalfOpen
		return true, nil

	case StateHalfOpen:
		// A probe is already in flight.
		return false, &OpenError{Service: b.service}
	}

	return false, nil
}

func (b *Breaker) onSuccess(probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.state = StateClosed
	}
	b.consecutiveFailures = 0
}

func (b *Breaker) onFailure(probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.lastFailureAt = now

	if probe {
		// Failed probe: re-open with a fresh timeout.
		b.state = StateOpen
		b.openedAt = now
		return
	}

	if b.state != StateClosed {
		return
	}

	b.consecutiveFailures++
	if b.consecutiveFailures >= b.config.FailureThreshold {
		b.state = StateOpen
		b.openedAt = now
	}
}

// onCancelled resolves a call that ended by caller cancellation without
// counting it for or against the service.
func (b *Breaker) onCancelled(probe bool) {
	if !probe {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Return to open without touching openedAt, so the next caller may
	// probe immediately.
	b.state = StateOpen
}
