// Package circuitbreaker provides a per-node circuit breaker with
// workload-aware default thresholds and an adaptive recovery backoff.
// Grounded on the teacher's workflow/circuit_breaker.go (closed/open/
// half-open state machine, event handler, registry), generalized with a
// WorkloadClass that selects default thresholds per
// original_source/llmspell-bridge/src/circuit_breaker.rs's
// CircuitBreakerConfig::{default,micro,heavy} and an adaptive backoff
// that scales the open-state recovery timeout against an exponentially
// weighted observed recovery time.
package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the three-way circuit breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// WorkloadClass selects a default error-rate threshold profile. Finer
// grained workloads (Micro) tolerate a higher error rate before tripping
// than coarse, expensive ones (Heavy), since a single Heavy failure wastes
// more work.
type WorkloadClass int

const (
	Micro WorkloadClass = iota
	Light
	Medium
	Heavy
)

// Config tunes a single breaker.
type Config struct {
	// FailureThreshold is the consecutive-failure count that trips Closed
	// -> Open.
	FailureThreshold int
	// ClosedErrorRate is the error rate (the current failure run over the
	// attempts recorded since the last Reset) at or above which the
	// breaker also trips even without hitting FailureThreshold consecutive
	// failures. The rate is only checked once at least FailureThreshold
	// attempts have been recorded.
	ClosedErrorRate float64
	// AdaptiveErrorRate is carried in the workload profiles alongside
	// ClosedErrorRate; the breaker itself does not read it.
	AdaptiveErrorRate float64
	RecoveryTimeout   time.Duration
	HalfOpenMaxProbes int
	HalfOpenSuccesses int
	// AdaptiveBackoff, when true, scales RecoveryTimeout on repeated trips
	// against an exponentially weighted observed recovery time instead of
	// using a fixed timeout every time.
	AdaptiveBackoff bool
}

// DefaultConfig returns the Medium workload profile.
func DefaultConfig() Config { return ForWorkload(Medium) }

// ForWorkload returns the default Config for a workload class, per
// CircuitBreakerConfig::{default,micro,heavy}: Micro 0.8/0.9, Light
// 0.6/0.8, Medium 0.4/0.7, Heavy 0.2/0.5 (closed-state / adaptive bound).
func ForWorkload(class WorkloadClass) Config {
	base := Config{
		FailureThreshold:  5,
		RecoveryTimeout:   30 * time.Second,
		HalfOpenMaxProbes: 3,
		HalfOpenSuccesses: 2,
		AdaptiveBackoff:   true,
	}
	switch class {
	case Micro:
		base.ClosedErrorRate, base.AdaptiveErrorRate = 0.8, 0.9
		base.FailureThreshold = 10
		base.RecoveryTimeout = 5 * time.Second
	case Light:
		base.ClosedErrorRate, base.AdaptiveErrorRate = 0.6, 0.8
		base.FailureThreshold = 7
		base.RecoveryTimeout = 15 * time.Second
	case Medium:
		base.ClosedErrorRate, base.AdaptiveErrorRate = 0.4, 0.7
	case Heavy:
		base.ClosedErrorRate, base.AdaptiveErrorRate = 0.2, 0.5
		base.FailureThreshold = 3
		base.RecoveryTimeout = 60 * time.Second
	}
	return base
}

// Event announces a state transition.
type Event struct {
	NodeID    string
	OldState  State
	NewState  State
	Timestamp time.Time
	Reason    string
	Failures  int
}

// EventHandler receives breaker state transitions.
type EventHandler interface {
	OnStateChange(Event)
}

// Breaker is a single node's circuit breaker.
type Breaker struct {
	nodeID  string
	config  Config
	state   State
	mu      sync.RWMutex

	failures        int
	successes       int
	attempts        int
	probeCount      int
	lastFailureTime time.Time

	// recoveryEMA is the exponentially weighted average observed time
	// between an Open transition and the next successful HalfOpen probe,
	// used to scale RecoveryTimeout when AdaptiveBackoff is enabled.
	recoveryEMA   time.Duration
	lastOpenedAt  time.Time

	handler EventHandler
	logger  *zap.Logger
}

// New builds a Breaker for nodeID with config.
func New(nodeID string, config Config, handler EventHandler, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		nodeID:  nodeID,
		config:  config,
		state:   Closed,
		handler: handler,
		logger:  logger.With(zap.String("node_id", nodeID)),
	}
}

// Allow reports whether a request may proceed, transitioning Open ->
// HalfOpen once the (possibly adaptive) recovery timeout has elapsed.
func (b *Breaker) Allow() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true, nil

	case Open:
		timeout := b.recoveryTimeoutLocked()
		if time.Since(b.lastFailureTime) >= timeout {
			b.transitionLocked(HalfOpen, "recovery timeout elapsed")
			b.probeCount = 0
			b.successes = 0
			return true, nil
		}
		return false, fmt.Errorf("circuitbreaker: %s open, %d consecutive failures, retry after %v",
			b.nodeID, b.failures, timeout-time.Since(b.lastFailureTime))

	case HalfOpen:
		if b.probeCount < b.config.HalfOpenMaxProbes {
			b.probeCount++
			return true, nil
		}
		return false, fmt.Errorf("circuitbreaker: %s half-open, max probes (%d) reached",
			b.nodeID, b.config.HalfOpenMaxProbes)

	default:
		return false, fmt.Errorf("circuitbreaker: unknown state %d", b.state)
	}
}

// RecordSuccess reports a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts++

	switch b.state {
	case Closed:
		b.failures = 0

	case HalfOpen:
		b.successes++
		if !b.lastOpenedAt.IsZero() {
			observed := time.Since(b.lastOpenedAt)
			b.updateRecoveryEMA(observed)
		}
		if b.successes >= b.config.HalfOpenSuccesses {
			b.transitionLocked(Closed, fmt.Sprintf("%d consecutive successes in half-open", b.successes))
			b.failures = 0
			b.successes = 0
		}
	}
}

// RecordFailure reports a failed call, tripping the breaker when the
// consecutive-failure threshold or rolling error rate is exceeded.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.attempts++
	b.lastFailureTime = time.Now()

	errRate := float64(b.failures) / float64(max(b.attempts, 1))

	switch b.state {
	case Closed:
		if b.failures >= b.config.FailureThreshold ||
			(b.attempts >= b.config.FailureThreshold && errRate >= b.config.ClosedErrorRate) {
			b.transitionLocked(Open, fmt.Sprintf("%d consecutive failures (rate %.2f)", b.failures, errRate))
		}

	case HalfOpen:
		b.successes = 0
		b.transitionLocked(Open, "failure in half-open state")
	}
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset forces the breaker back to Closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.state
	b.state = Closed
	b.failures = 0
	b.successes = 0
	b.probeCount = 0
	b.attempts = 0
	if old != Closed {
		b.emitLocked(old, Closed, "manual reset")
	}
}

// recoveryTimeoutLocked returns the effective recovery timeout, scaled by
// the observed recovery EMA when AdaptiveBackoff is set, bounded so it
// never exceeds 4x the base RecoveryTimeout.
func (b *Breaker) recoveryTimeoutLocked() time.Duration {
	if !b.config.AdaptiveBackoff || b.recoveryEMA == 0 {
		return b.config.RecoveryTimeout
	}
	ceiling := b.config.RecoveryTimeout * 4
	if b.recoveryEMA > ceiling {
		return ceiling
	}
	return b.recoveryEMA
}

func (b *Breaker) updateRecoveryEMA(observed time.Duration) {
	const alpha = 0.3
	if b.recoveryEMA == 0 {
		b.recoveryEMA = observed
		return
	}
	b.recoveryEMA = time.Duration(alpha*float64(observed) + (1-alpha)*float64(b.recoveryEMA))
}

func (b *Breaker) transitionLocked(newState State, reason string) {
	old := b.state
	b.state = newState
	if newState == Open {
		b.lastOpenedAt = time.Now()
	}
	b.logger.Info("circuit breaker state change",
		zap.String("old_state", old.String()),
		zap.String("new_state", newState.String()),
		zap.String("reason", reason),
		zap.Int("failures", b.failures))
	b.emitLocked(old, newState, reason)
}

func (b *Breaker) emitLocked(old, newState State, reason string) {
	if b.handler == nil {
		return
	}
	ev := Event{
		NodeID:    b.nodeID,
		OldState:  old,
		NewState:  newState,
		Timestamp: time.Now(),
		Reason:    reason,
		Failures:  b.failures,
	}
	go b.handler.OnStateChange(ev)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Registry hands out one Breaker per node id, creating it lazily from a
// shared Config.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   Config
	handler  EventHandler
	logger   *zap.Logger
}

// NewRegistry builds a Registry that creates Breakers with config.
func NewRegistry(config Config, handler EventHandler, logger *zap.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		config:   config,
		handler:  handler,
		logger:   logger,
	}
}

// GetOrCreate returns the Breaker for nodeID, creating it if absent.
func (r *Registry) GetOrCreate(nodeID string) *Breaker {
	r.mu.RLock()
	if b, ok := r.breakers[nodeID]; ok {
		r.mu.RUnlock()
		return b
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[nodeID]; ok {
		return b
	}
	b := New(nodeID, r.config, r.handler, r.logger)
	r.breakers[nodeID] = b
	return b
}

// States returns every tracked node's current state.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]State, len(r.breakers))
	for id, b := range r.breakers {
		out[id] = b.State()
	}
	return out
}

// ResetAll resets every tracked breaker to Closed.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
