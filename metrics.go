package tangguh

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// the resilience policies. It is safe for concurrent use. All metrics are
// labeled by destination so one registry can serve many clients.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal  *prometheus.CounterVec
	timeoutsTotal *prometheus.CounterVec

	circuitBreakerState *prometheus.GaugeVec
	breakerTransitions  *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	registerer prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"client", "method", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tangguh_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"client", "method", "status_code"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tangguh_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"client", "method"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"client", "method", "attempt"},
		),
		timeoutsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_timeouts_total",
				Help: "Total number of attempts canceled by the per-attempt timeout",
			},
			[]string{"client", "method"},
		),
		circuitBreakerState: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tangguh_circuit_breaker_state",
				Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
			},
			[]string{"client"},
		),
		breakerTransitions: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_circuit_breaker_transitions_total",
				Help: "Total number of circuit breaker transitions",
			},
			[]string{"client", "to"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tangguh_errors_total",
				Help: "Total number of terminal errors by type",
			},
			[]string{"type", "client", "method"},
		),
		registerer: registry,
	}
}

// RecordRequest records request count and duration for a finished call.
func (mc *MetricsCollector) RecordRequest(client, method string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	status := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(client, method, status).Inc()
	mc.requestDuration.WithLabelValues(client, method, status).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(client, method string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(client, method).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(client, method string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(client, method).Dec()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(client, method string, attempt int) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(client, method, strconv.Itoa(attempt)).Inc()
}

// RecordTimeout increments the per-attempt timeout counter.
func (mc *MetricsCollector) RecordTimeout(client, method string) {
	if mc == nil {
		return
	}

	mc.timeoutsTotal.WithLabelValues(client, method).Inc()
}

// RecordCircuitBreakerState sets the gauge to the breaker state.
func (mc *MetricsCollector) RecordCircuitBreakerState(client string, state CircuitState) {
	if mc == nil {
		return
	}

	var stateValue float64
	switch state {
	case StateClosed:
		stateValue = 0
	case StateOpen:
		stateValue = 1
	case StateHalfOpen:
		stateValue = 2
	}

	mc.circuitBreakerState.WithLabelValues(client).Set(stateValue)
}

// RecordBreakerTransition counts a transition into the given state.
func (mc *MetricsCollector) RecordBreakerTransition(client string, to CircuitState) {
	if mc == nil {
		return
	}

	mc.breakerTransitions.WithLabelValues(client, to.String()).Inc()
	mc.RecordCircuitBreakerState(client, to)
}

// RecordError increments the terminal error counter by type.
func (mc *MetricsCollector) RecordError(errorType, client, method string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, client, method).Inc()
}

// metricsListener mirrors breaker transitions into the collector.
type metricsListener struct {
	NoopListener
	mc *MetricsCollector
}

func (m metricsListener) OnBreak(e BreakEvent) {
	m.mc.RecordBreakerTransition(e.Client, StateOpen)
}

func (m metricsListener) OnHalfOpen(e HalfOpenEvent) {
	m.mc.RecordBreakerTransition(e.Client, StateHalfOpen)
}

func (m metricsListener) OnReset(e ResetEvent) {
	m.mc.RecordBreakerTransition(e.Client, StateClosed)
}
