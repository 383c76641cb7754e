// Package circuit provides a counting circuit breaker for protecting request
// paths from repeatedly failing dependencies.
//
// The breaker opens after N consecutive failures and closes again after M
// consecutive successes. Callers keep attempting the primary operation while
// the circuit is open; the open state only tells them to rely on their
// fallback for the result.
package circuit

import "sync"

// State is the current position of the breaker.
type State string

const (
	StateClosed State = "closed"
	StateOpen   State = "open"
)

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 2
)

// Change reports a state transition caused by a recorded outcome. At most
// one field is set.
type Change struct {
	Opened bool
	Closed bool
}

// Breaker tracks consecutive outcomes for one named dependency.
type Breaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	successThreshold int

	state     State
	failures  int
	successes int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close an open
// circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether the circuit is open.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// RecordFailure records a failed primary attempt. It returns whether the
// caller should use its fallback, and the state transition if one happened.
func (b *Breaker) RecordFailure() (useFallback bool, change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes = 0

	if b.state == StateOpen {
		return true, Change{}
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		return true, Change{Opened: true}
	}
	return false, Change{}
}

// RecordSuccess records a successful primary attempt. It returns whether the
// caller can trust the primary again, and the state transition if one
// happened.
func (b *Breaker) RecordSuccess() (usePrimary bool, change Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0

	if b.state == StateClosed {
		return true, Change{}
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.successes = 0
		return true, Change{Closed: true}
	}
	return false, Change{}
}

// Reset manually closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
