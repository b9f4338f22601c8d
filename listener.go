package tangguh

import (
	"time"
)

// RequestEvent is emitted when a logical call enters the pipeline.
type RequestEvent struct {
	Client        string
	Method        string
	URL           string
	CorrelationID string
}

// ResponseEvent is emitted when a logical call completes with a response.
type ResponseEvent struct {
	Client        string
	Method        string
	URL           string
	CorrelationID string
	StatusCode    int
	Attempts      int
	Duration      time.Duration
}

// RetryEvent is emitted before each retry attempt, after the backoff delay
// has been computed.
type RetryEvent struct {
	Client     string
	Method     string
	URL        string
	Attempt    int
	Delay      time.Duration
	StatusCode int
	Err        error
}

// TimeoutEvent is emitted when the per-attempt timeout cancels an attempt.
type TimeoutEvent struct {
	Client  string
	Method  string
	URL     string
	Attempt int
	Timeout time.Duration
}

// BreakEvent is emitted when a circuit transitions to Open.
type BreakEvent struct {
	Client        string
	Failures      int
	Total         int
	BreakDuration time.Duration
}

// HalfOpenEvent is emitted when an open circuit admits a probe.
// It carries no request context; half-open transitions happen on whichever
// call first arrives after the break duration elapses.
type HalfOpenEvent struct {
	Client string
}

// ResetEvent is emitted when a successful probe closes the circuit.
type ResetEvent struct {
	Client string
}

// FailureEvent is emitted when a logical call ends in a terminal failure.
type FailureEvent struct {
	Client        string
	Method        string
	URL           string
	CorrelationID string
	StatusCode    int
	Attempts      int
	Duration      time.Duration
	Err           error
}

// Listener receives pipeline lifecycle notifications. Implementations must
// be safe for concurrent use and should return quickly; panics are recovered
// and never reach the pipeline. Embed NoopListener to implement a subset.
type Listener interface {
	OnRequest(e RequestEvent)
	OnResponse(e ResponseEvent)
	OnRetry(e RetryEvent)
	OnTimeout(e TimeoutEvent)
	OnBreak(e BreakEvent)
	OnHalfOpen(e HalfOpenEvent)
	OnReset(e ResetEvent)
	OnFailure(e FailureEvent)
}

// NoopListener implements Listener with empty methods.
type NoopListener struct{}

func (NoopListener) OnRequest(RequestEvent)   {}
func (NoopListener) OnResponse(ResponseEvent) {}
func (NoopListener) OnRetry(RetryEvent)       {}
func (NoopListener) OnTimeout(TimeoutEvent)   {}
func (NoopListener) OnBreak(BreakEvent)       {}
func (NoopListener) OnHalfOpen(HalfOpenEvent) {}
func (NoopListener) OnReset(ResetEvent)       {}
func (NoopListener) OnFailure(FailureEvent)   {}

// CombineListeners fans every notification out to all listeners in order.
func CombineListeners(listeners ...Listener) Listener {
	out := make(multiListener, 0, len(listeners))
	for _, l := range listeners {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

type multiListener []Listener

func (m multiListener) OnRequest(e RequestEvent) {
	for _, l := range m {
		l.OnRequest(e)
	}
}

func (m multiListener) OnResponse(e ResponseEvent) {
	for _, l := range m {
		l.OnResponse(e)
	}
}

func (m multiListener) OnRetry(e RetryEvent) {
	for _, l := range m {
		l.OnRetry(e)
	}
}

func (m multiListener) OnTimeout(e TimeoutEvent) {
	for _, l := range m {
		l.OnTimeout(e)
	}
}

func (m multiListener) OnBreak(e BreakEvent) {
	for _, l := range m {
		l.OnBreak(e)
	}
}

func (m multiListener) OnHalfOpen(e HalfOpenEvent) {
	for _, l := range m {
		l.OnHalfOpen(e)
	}
}

func (m multiListener) OnReset(e ResetEvent) {
	for _, l := range m {
		l.OnReset(e)
	}
}

func (m multiListener) OnFailure(e FailureEvent) {
	for _, l := range m {
		l.OnFailure(e)
	}
}

// safeListener shields the pipeline from listener panics. Notifications are
// fire-and-forget; a misbehaving listener must not fail a request.
type safeListener struct {
	inner Listener
}

func newSafeListener(inner Listener) Listener {
	if inner == nil {
		inner = NoopListener{}
	}
	return safeListener{inner: inner}
}

func (s safeListener) OnRequest(e RequestEvent)   { s.notify(func() { s.inner.OnRequest(e) }) }
func (s safeListener) OnResponse(e ResponseEvent) { s.notify(func() { s.inner.OnResponse(e) }) }
func (s safeListener) OnRetry(e RetryEvent)       { s.notify(func() { s.inner.OnRetry(e) }) }
func (s safeListener) OnTimeout(e TimeoutEvent)   { s.notify(func() { s.inner.OnTimeout(e) }) }
func (s safeListener) OnBreak(e BreakEvent)       { s.notify(func() { s.inner.OnBreak(e) }) }
func (s safeListener) OnHalfOpen(e HalfOpenEvent) { s.notify(func() { s.inner.OnHalfOpen(e) }) }
func (s safeListener) OnReset(e ResetEvent)       { s.notify(func() { s.inner.OnReset(e) }) }
func (s safeListener) OnFailure(e FailureEvent)   { s.notify(func() { s.inner.OnFailure(e) }) }

func (s safeListener) notify(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}
