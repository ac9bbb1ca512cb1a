// Package circuitbreaker guards calls to flaky downstream targets. A
// breaker trips open after a run of consecutive failures, refuses calls
// for a cooldown period, then half-opens to probe the target before
// closing again.
package circuitbreaker

import (
	"fmt"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker is a consecutive-failure circuit breaker. The zero value is not
// usable; construct with New.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	probes      int
	lastFailure time.Time
	now         func() time.Time
}

// New creates a closed breaker that opens after maxFailures consecutive
// failures and stays open for cooldown
func New(name string, maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		state:       StateClosed,
		now:         time.Now,
	}
}

// Allow reports whether a call may proceed, transitioning open breakers
// to half-open once the cooldown has elapsed
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.cooldown {
			return false
		}
		b.state = StateHalfOpen
		b.probes = 0
		return true
	case StateHalfOpen:
		// One probe in flight at a time
		if b.probes > 0 {
			return false
		}
		b.probes++
		return true
	default:
		return false
	}
}

// RecordSuccess closes the breaker and clears the failure run
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.probes = 0
}

// RecordFailure extends the failure run, tripping the breaker open when
// the run reaches the threshold or a half-open probe fails
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.state = StateOpen
		b.probes = 0
	}
}

// State returns the current state without side effects
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OpenError is returned by callers that refuse work on an open breaker
type OpenError struct {
	Name string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Name)
}
