package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyProbes is returned when every half-open probe slot is taken.
	ErrTooManyProbes = errors.New("circuit breaker is probing")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
	// HalfOpenProbes is how many calls may run while half-open.
	HalfOpenProbes uint32
	// OnStateChange is called, with the breaker lock held, on every transition.
	OnStateChange func(name string, from State, to State)
}

// DefaultSettings returns the settings used for zero fields.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenProbes:   1,
	}
}

// Breaker stops calling a failing dependency until it has had time to recover.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State     // Protected by mu
	failures uint32    // Protected by mu
	inFlight uint32    // Protected by mu
	openedAt time.Time // Protected by mu
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	defaults := DefaultSettings()
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = defaults.FailureThreshold
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = defaults.Cooldown
	}
	if settings.HalfOpenProbes == 0 {
		settings.HalfOpenProbes = defaults.HalfOpenProbes
	}

	return &Breaker{
		name:     name,
		settings: settings,
		now:      time.Now,
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

// Do runs fn unless the breaker is open. A panic in fn counts as a failure
// and is re-raised.
func (b *Breaker) Do(fn func() error) error {
	state, err := b.before()
	if err != nil {
		return err
	}

	succeeded := false
	defer func() {
		b.after(state, succeeded)
	}()

	err = fn()
	succeeded = err == nil
	return err
}

func (b *Breaker) before() (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentLocked()
	switch state {
	case StateOpen:
		return state, ErrCircuitOpen
	case StateHalfOpen:
		if b.inFlight >= b.settings.HalfOpenProbes {
			return state, ErrTooManyProbes
		}
	}
	b.inFlight++
	return state, nil
}

func (b *Breaker) after(before State, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inFlight--
	if success {
		b.failures = 0
		if before == StateHalfOpen {
			b.setStateLocked(StateClosed)
		}
		return
	}

	b.failures++
	if before == StateHalfOpen || b.failures >= b.settings.FailureThreshold {
		b.setStateLocked(StateOpen)
	}
}

// currentLocked moves an expired open breaker to half-open.
func (b *Breaker) currentLocked() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.setStateLocked(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) setStateLocked(state State) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	switch state {
	case StateOpen:
		b.openedAt = b.now()
	case StateClosed:
		b.failures = 0
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
