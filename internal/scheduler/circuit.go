package scheduler

import "sync"

const circuitBreakerThreshold = 3

// circuitBreaker opens after circuitBreakerThreshold consecutive failures
// (§4.J "Heartbeat engine: ... ≥ 3 consecutive failures open a circuit
// breaker that causes subsequent ticks to skip that task"; §4.J "Cron
// engine: ... for each enabled cron job whose circuit is closed"),
// grounded on the donor's infra.CircuitBreaker state-machine shape but
// simplified to the spec's binary closed/open semantics — no half-open
// probe state is named by the spec, so none is modeled.
type circuitBreaker struct {
	mu                  sync.Mutex
	consecutiveFailures int
	open                bool
	onOpen              func()
}

// newCircuitBreaker builds a breaker that calls onOpen (if non-nil) the
// moment it transitions from closed to open.
func newCircuitBreaker(onOpen func()) *circuitBreaker {
	return &circuitBreaker{onOpen: onOpen}
}

// Closed reports whether ticks should still attempt this job/task.
func (cb *circuitBreaker) Closed() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return !cb.open
}

// RecordSuccess resets the failure streak and closes the circuit.
func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.open = false
}

// RecordFailure increments the failure streak, opening the circuit once
// it reaches the threshold.
func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.consecutiveFailures++
	opened := false
	if cb.consecutiveFailures >= circuitBreakerThreshold && !cb.open {
		cb.open = true
		opened = true
	}
	onOpen := cb.onOpen
	cb.mu.Unlock()

	if opened && onOpen != nil {
		onOpen()
	}
}

// Reset clears all circuit-breaker state (§4.J "Hot reload: ... Circuit-
// breaker state persists across reloads and is cleared per-job on
// success" — the clear-on-success path is RecordSuccess above; Reset is
// a separate explicit reset).
func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.open = false
}
