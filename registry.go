package tangguh

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Registry creates and holds one Client per destination name. It owns the
// per-destination circuit state: clients registered through the same registry
// share transport, logger, listener and metrics, but never circuit state.
type Registry struct {
	defaults          DefaultSettings
	httpClient        *http.Client
	logger            Logger
	listener          Listener
	metrics           *MetricsCollector
	middleware        []Middleware
	correlationHeader string
	correlationIDGen  func() string

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates a registry with the given baseline settings. The
// baseline is validated up front; an invalid baseline fails every future
// registration, so it is rejected here.
func NewRegistry(defaults DefaultSettings, options ...Option) (*Registry, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		defaults:          defaults,
		httpClient:        &http.Client{},
		logger:            NewNopLogger(),
		listener:          NoopListener{},
		correlationHeader: DefaultCorrelationHeader,
		clients:           make(map[string]*Client),
	}

	for _, option := range options {
		option(r)
	}

	return r, nil
}

// Register validates the destination's settings, resolves them over the
// baseline and returns a client bound to the destination. Registration fails
// fast on invalid settings; no call is ever attempted for a destination that
// did not validate. Registering the same name twice is an error.
func (r *Registry) Register(name string, settings ClientSettings) (*Client, error) {
	if name == "" {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: "destination name must not be empty",
			Cause:   ErrInvalidConfiguration,
		}
	}
	if err := settings.Validate(); err != nil {
		if clientErr, ok := err.(*ClientError); ok {
			clientErr.Client = name
		}
		return nil, err
	}

	resolved := Resolve(r.defaults, settings)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[name]; exists {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: fmt.Sprintf("destination %q registered twice", name),
			Cause:   ErrDuplicateClient,
			Client:  name,
		}
	}

	listener := newSafeListener(CombineListeners(r.listener, metricsListener{mc: r.metrics}))
	breaker := newCircuitBreaker(name, resolved.CircuitBreaker, listener)

	client, err := newClient(name, resolved, breaker, r.httpClient, r.middleware, listener, r.logger, r.metrics, r.correlationHeader, r.correlationIDGen)
	if err != nil {
		return nil, err
	}

	r.metrics.RecordCircuitBreakerState(name, StateClosed)
	r.clients[name] = client

	r.logger.Info("registered destination",
		"client", name,
		"baseUrl", resolved.BaseURL,
		"maxAttempts", resolved.Retry.MaxAttempts,
		"timeoutSeconds", resolved.Timeout.Seconds)

	return client, nil
}

// Client returns the client registered under name.
func (r *Registry) Client(name string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[name]
	if !ok {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: fmt.Sprintf("no destination registered as %q", name),
			Cause:   ErrUnknownClient,
			Client:  name,
		}
	}
	return client, nil
}

// Names returns the registered destination names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
