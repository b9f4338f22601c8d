package tangguh

import "net/http"

// Option configures a Registry.
type Option func(*Registry)

// WithHTTPClient sets the underlying transport shared by all clients. The
// pipeline manages per-attempt timeouts itself, so the http.Client timeout
// should normally stay zero.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(r *Registry) {
		if httpClient != nil {
			r.httpClient = httpClient
		}
	}
}

// WithLogger sets the structured logger used for pipeline and request logs.
func WithLogger(logger Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithListener sets the lifecycle listener notified of retry, timeout, break,
// reset, half-open, request, response and failure events. Panics in the
// listener are recovered and never reach the pipeline.
func WithListener(listener Listener) Option {
	return func(r *Registry) {
		if listener != nil {
			r.listener = listener
		}
	}
}

// WithMetrics enables Prometheus metrics collection on the default registerer.
func WithMetrics() Option {
	return func(r *Registry) {
		r.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(r *Registry) {
		r.metrics = collector
	}
}

// WithMiddleware adds per-attempt middleware between the policy pipeline and
// the raw transport, applied to every registered client in order.
func WithMiddleware(middleware ...Middleware) Option {
	return func(r *Registry) {
		r.middleware = append(r.middleware, middleware...)
	}
}

// WithCorrelationHeader overrides the header used to propagate correlation
// ids.
func WithCorrelationHeader(header string) Option {
	return func(r *Registry) {
		if header != "" {
			r.correlationHeader = header
		}
	}
}

// WithCorrelationIDGenerator overrides how correlation ids are generated for
// requests that do not already carry one.
func WithCorrelationIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.correlationIDGen = gen
	}
}
