package tangguh

import (
	"sync"
	"time"
)

// CircuitState represents the phase of a circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase phase name.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type outcomeRecord struct {
	at      time.Time
	failure bool
}

// CircuitBreaker tracks a sliding window of call outcomes for one destination
// and fails calls fast while the destination is considered unhealthy.
//
// The circuit is Closed while the failure ratio over the most recent sample
// window stays below the threshold or fewer than MinimumThroughput calls were
// observed. Once it opens, every call is rejected for the break duration;
// after that a single probe call is admitted (HalfOpen). A successful probe
// closes the circuit and resets the window, a failed probe re-opens it for
// another full break duration.
//
// Each destination owns its own CircuitBreaker; all methods are safe for
// concurrent use.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings
	listener Listener

	mu       sync.Mutex
	state    CircuitState
	window   []outcomeRecord
	openedAt time.Time
	probing  bool
}

func newCircuitBreaker(name string, settings BreakerSettings, listener Listener) *CircuitBreaker {
	if listener == nil {
		listener = NoopListener{}
	}
	return &CircuitBreaker{
		name:     name,
		settings: settings,
		listener: listener,
		state:    StateClosed,
	}
}

// State returns the current phase.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Allow reports whether a call may proceed. It returns ErrCircuitOpen while
// the circuit is Open and not yet eligible for a probe, or while a probe is
// already in flight. The transport must not be touched on a non-nil return.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.settings.BreakDuration() {
			cb.state = StateHalfOpen
			cb.probing = true
			cb.listener.OnHalfOpen(HalfOpenEvent{Client: cb.name})
			return nil
		}
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		// The previous probe was aborted before an outcome was known; admit
		// this call as the new probe.
		cb.probing = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess records a successful outcome. A successful probe closes the
// circuit and resets the window.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.observe(false)
	case StateHalfOpen:
		cb.state = StateClosed
		cb.window = nil
		cb.probing = false
		cb.listener.OnReset(ResetEvent{Client: cb.name})
	case StateOpen:
		// Late result from a call admitted before the break; the window was
		// already reset, nothing to record.
	}
}

// RecordFailure records a failed outcome. In Closed state it may trip the
// circuit; a failed probe re-opens it with a refreshed open timestamp.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		// The threshold is only evaluated here. A success that lifts the
		// window past the minimum throughput never trips the circuit, even if
		// the failure ratio is already over the threshold; the next failure
		// does.
		cb.observe(true)
		failures, total := cb.counts()
		if total >= cb.settings.MinimumThroughput &&
			float64(failures)/float64(total) >= cb.settings.FailureThreshold {
			cb.open(failures, total)
		}
	case StateHalfOpen:
		cb.open(1, 1)
	case StateOpen:
		// Late result, see RecordSuccess.
	}
}

// ProbeAborted releases the half-open probe slot when the probe ended
// without a classifiable outcome (caller cancellation). The next incoming
// call is admitted as a fresh probe.
func (cb *CircuitBreaker) ProbeAborted() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.probing = false
	}
}

// open transitions to Open. Caller must hold cb.mu.
func (cb *CircuitBreaker) open(failures, total int) {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.window = nil
	cb.probing = false
	cb.listener.OnBreak(BreakEvent{
		Client:        cb.name,
		Failures:      failures,
		Total:         total,
		BreakDuration: cb.settings.BreakDuration(),
	})
}

// observe appends an outcome and drops records that fell out of the sample
// window. Caller must hold cb.mu.
func (cb *CircuitBreaker) observe(failure bool) {
	now := time.Now()
	cutoff := now.Add(-cb.settings.SampleDuration())

	kept := cb.window[:0]
	for _, rec := range cb.window {
		if rec.at.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	cb.window = append(kept, outcomeRecord{at: now, failure: failure})
}

// counts returns failure and total counts within the window. Caller must
// hold cb.mu.
func (cb *CircuitBreaker) counts() (failures, total int) {
	for _, rec := range cb.window {
		if rec.failure {
			failures++
		}
	}
	return failures, len(cb.window)
}
