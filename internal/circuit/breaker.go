// Package circuit implements a circuit breaker and a Layer composing it
// over an Accessor, so a misbehaving backend is rejected fast instead of
// hammered while it recovers.
package circuit

import (
	"sync"
	"time"

	"github.com/objectgate/objectgate/pkg/errors"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed - requests pass through.
	StateClosed State = iota
	// StateOpen - requests are rejected.
	StateOpen
	// StateHalfOpen - limited requests probe whether the backend recovered.
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

// Config contains circuit breaker configuration.
type Config struct {
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the closed-state window after which counts reset.
	Interval time.Duration `yaml:"interval"`

	// Timeout is the open-state period before the breaker half-opens.
	Timeout time.Duration `yaml:"timeout"`

	// ReadyToTrip decides, from the current counts, whether to trip open.
	ReadyToTrip func(counts Counts) bool `yaml:"-"`

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to State) `yaml:"-"`

	// IsSuccessful decides whether an error counts against the backend.
	IsSuccessful func(err error) bool `yaml:"-"`
}

// Counts holds request totals for the current window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	name   string
	config Config

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time
}

// NewBreaker creates a breaker, applying defaults for zero config values.
func NewBreaker(name string, config Config) *Breaker {
	if config.MaxRequests == 0 {
		config.MaxRequests = 1
	}
	if config.Interval <= 0 {
		config.Interval = 60 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.ReadyToTrip == nil {
		config.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}
	if config.IsSuccessful == nil {
		// Only faults that look like backend trouble count against it;
		// not-found and permission outcomes are healthy responses.
		config.IsSuccessful = func(err error) bool {
			return err == nil || !errors.IsKind(err, errors.KindUnexpected)
		}
	}
	return &Breaker{
		name:   name,
		config: config,
		state:  StateClosed,
		expiry: time.Now().Add(config.Interval),
	}
}

// errOpen is returned while the breaker rejects requests. It is retryable:
// the breaker will half-open once its timeout elapses.
func errOpen(name string) *errors.Error {
	return errors.New(errors.KindUnexpected, "circuit breaker is open").
		WithContext("breaker", name).
		WithRetryable(true)
}

// Execute runs fn if the breaker allows it and records the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.beforeRequest(); err != nil {
		return err
	}
	err := fn()
	b.afterRequest(err)
	return err
}

func (b *Breaker) beforeRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)

	if state == StateOpen {
		return errOpen(b.name)
	}
	if state == StateHalfOpen && b.counts.Requests >= b.config.MaxRequests {
		return errOpen(b.name)
	}

	b.counts.Requests++
	return nil
}

func (b *Breaker) afterRequest(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)

	if b.config.IsSuccessful(err) {
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen {
			b.setState(StateClosed, now)
		}
		return
	}

	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	switch state {
	case StateClosed:
		if b.config.ReadyToTrip(b.counts) {
			b.setState(StateOpen, now)
		}
	case StateHalfOpen:
		b.setState(StateOpen, now)
	}
}

func (b *Breaker) currentState(now time.Time) State {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.counts = Counts{}
			b.expiry = now.Add(b.config.Interval)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.setState(StateHalfOpen, now)
		}
	}
	return b.state
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.counts = Counts{}

	switch state {
	case StateClosed:
		b.expiry = now.Add(b.config.Interval)
	case StateOpen:
		b.expiry = now.Add(b.config.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, prev, state)
	}
}

// GetState returns the breaker's current state.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// GetCounts returns a copy of the current counts.
func (b *Breaker) GetCounts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Reset returns the breaker to the closed state with fresh counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.counts = Counts{}
	b.expiry = time.Now().Add(b.config.Interval)
}
