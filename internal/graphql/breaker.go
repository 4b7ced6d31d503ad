package graphql

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state.
type BreakerState int

const (
	// BreakerClosed is the normal operating state.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls until the recovery timeout elapses.
	BreakerOpen

	// BreakerHalfOpen lets probe calls through after the recovery timeout.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30 * time.Second
)

// CircuitBreaker isolates a consistently failing upstream. There is no
// terminal state: outages are expected to be transient, so the breaker
// oscillates between open and closed indefinitely.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time

	threshold       int
	recoveryTimeout time.Duration

	// Clock overrides time.Now for tests. Set before first use.
	Clock func() time.Time

	// OnStateChange, when set, is invoked after each transition with the
	// breaker lock held. Keep it fast.
	OnStateChange func(from, to BreakerState)
}

// NewCircuitBreaker returns a closed breaker. Non-positive arguments fall
// back to the defaults.
func NewCircuitBreaker(threshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	return &CircuitBreaker{
		state:           BreakerClosed,
		threshold:       threshold,
		recoveryTimeout: recoveryTimeout,
	}
}

// CanExecute reports whether a call may proceed. An open breaker whose
// recovery timeout has elapsed transitions to half-open and admits the
// caller as the probe.
func (b *CircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.lastFailure) > b.recoveryTimeout {
			b.setStateLocked(BreakerHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.setStateLocked(BreakerClosed)
}

// RecordFailure counts one logical failure. A half-open probe failure
// reopens immediately; the count never drops below the threshold while
// reopening, so the breaker cannot slip back to closed by accident.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case BreakerHalfOpen:
		if b.failures < b.threshold {
			b.failures = b.threshold
		}
		b.setStateLocked(BreakerOpen)
	case BreakerClosed:
		if b.failures >= b.threshold {
			b.setStateLocked(BreakerOpen)
		}
	}
}

// State returns the current state without triggering recovery transitions.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *CircuitBreaker) setStateLocked(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.OnStateChange != nil {
		b.OnStateChange(from, to)
	}
}

func (b *CircuitBreaker) now() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now()
}
