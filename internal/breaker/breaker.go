// Package breaker implements the CLOSED/OPEN/HALF_OPEN circuit breaker
// that wraps every outbound LLM call, per spec.md §4.C.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/localmem/memsys/internal/errs"
)

// State is one of the three breaker states.
type State string

const (
	Closed   State = "CLOSED"
	Open     State = "OPEN"
	HalfOpen State = "HALF_OPEN"
)

// Persister durably stores breaker state so it survives process
// restart, per spec.md §4.C ("state is durable"). Implementations live
// in internal/store.
type Persister interface {
	SaveBreaker(name string, state State, failureCount int, lastFailure, openedAt time.Time) error
	LoadBreaker(name string) (state State, failureCount int, lastFailure, openedAt time.Time, ok bool, err error)
}

// Breaker is a named failure gate for one call site.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	persist          Persister

	mu           sync.Mutex
	state        State
	failureCount int
	lastFailure  time.Time
	openedAt     time.Time
}

// New constructs a Breaker, restoring durable state via persist if
// present.
func New(name string, failureThreshold int, recoveryTimeout time.Duration, persist Persister) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 60 * time.Second
	}
	b := &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		persist:          persist,
		state:            Closed,
	}
	if persist != nil {
		if state, count, lastFail, openedAt, ok, err := persist.LoadBreaker(name); err == nil && ok {
			b.state = state
			b.failureCount = count
			b.lastFailure = lastFail
			b.openedAt = openedAt
		}
	}
	return b
}

// State returns the current state, applying the OPEN→HALF_OPEN timeout
// transition lazily.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() State {
	if b.state == Open && !b.openedAt.IsZero() && time.Since(b.openedAt) >= b.recoveryTimeout {
		b.state = HalfOpen
	}
	return b.state
}

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Call executes fn through the breaker. In OPEN it returns
// errs.ErrCircuitOpen without invoking fn.
func (b *Breaker) Call(fn func() error) error {
	b.mu.Lock()
	current := b.stateLocked()
	if current == Open {
		b.mu.Unlock()
		return fmt.Errorf("breaker %q open after %d failures: %w", b.name, b.failureCount, errs.ErrCircuitOpen)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailureLocked()
		return err
	}
	b.onSuccessLocked()
	return nil
}

// RecordFailure manually records a failure outside of Call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onFailureLocked()
}

// RecordSuccess manually records a success outside of Call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onSuccessLocked()
}

// Reset forces the breaker back to CLOSED with zero failures.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failureCount = 0
	b.lastFailure = time.Time{}
	b.openedAt = time.Time{}
	b.persistLocked()
}

func (b *Breaker) onFailureLocked() {
	b.failureCount++
	b.lastFailure = time.Now()
	if b.failureCount >= b.failureThreshold {
		b.state = Open
		b.openedAt = b.lastFailure
	}
	b.persistLocked()
}

func (b *Breaker) onSuccessLocked() {
	b.failureCount = 0
	b.state = Closed
	b.openedAt = time.Time{}
	b.persistLocked()
}

func (b *Breaker) persistLocked() {
	if b.persist == nil {
		return
	}
	_ = b.persist.SaveBreaker(b.name, b.state, b.failureCount, b.lastFailure, b.openedAt)
}

// Registry is a named-singleton breaker registry, per spec.md §4.C.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*Breaker
	persist          Persister
	failureThreshold int
	recoveryTimeout  time.Duration
}

// NewRegistry builds a Registry whose breakers share the given defaults
// and durable persister.
func NewRegistry(failureThreshold int, recoveryTimeout time.Duration, persist Persister) *Registry {
	return &Registry{
		breakers:         make(map[string]*Breaker),
		persist:          persist,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// Get returns the singleton Breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.failureThreshold, r.recoveryTimeout, r.persist)
	r.breakers[name] = b
	return b
}
