package tangguh

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ambiyansyah-risyal/tangguh/internal/backoff"
)

// Client executes HTTP calls against one named destination with the
// destination's resolved policy pipeline applied: correlation-id injection
// and logging on the outside, then per-attempt timeout, retry with backoff
// and circuit breaking around the raw call. It is safe for concurrent use.
//
// Clients are created through a Registry; the registry owns the circuit
// state so that breaking one destination never affects another.
type Client struct {
	name              string
	baseURL           *url.URL
	settings          ResolvedSettings
	retryable         map[int]struct{}
	breaker           *CircuitBreaker
	transport         RoundTripper
	pipeline          RoundTripper
	listener          Listener
	logger            Logger
	metrics           *MetricsCollector
	correlationHeader string
}

func newClient(name string, settings ResolvedSettings, breaker *CircuitBreaker, httpClient *http.Client, middleware []Middleware, listener Listener, logger Logger, metrics *MetricsCollector, correlationHeader string, correlationIDGen func() string) (*Client, error) {
	base, err := url.Parse(settings.BaseURL)
	if err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: "invalid base URL",
			Cause:   err,
			Client:  name,
		}
	}

	c := &Client{
		name:              name,
		baseURL:           base,
		settings:          settings,
		retryable:         statusSet(settings.RetryableStatusCodes),
		breaker:           breaker,
		listener:          listener,
		logger:            logger,
		metrics:           metrics,
		correlationHeader: correlationHeader,
	}

	// Per-attempt chain: user middleware around the raw transport.
	c.transport = chain(RoundTripperFunc(httpClient.Do), middleware...)

	// Whole-call chain: correlation id before logging so propagated headers
	// appear in logged output, then the policy pipeline.
	c.pipeline = chain(
		RoundTripperFunc(c.execute),
		CorrelationMiddleware(correlationHeader, correlationIDGen),
		LoggingMiddleware(logger, name, settings.Logging, correlationHeader),
	)

	return c, nil
}

// Name returns the destination name the client is bound to.
func (c *Client) Name() string { return c.name }

// Settings returns the resolved configuration. The returned value is a copy;
// settings are immutable after registration.
func (c *Client) Settings() ResolvedSettings {
	s := c.settings
	s.RetryableStatusCodes = copyCodes(s.RetryableStatusCodes)
	return s
}

// State returns the current circuit breaker phase for this destination.
func (c *Client) State() CircuitState { return c.breaker.State() }

// NewRequest builds a request whose URL is resolved against the
// destination's base URL.
func (c *Client) NewRequest(ctx context.Context, method, ref string, body io.Reader) (*http.Request, error) {
	u, err := c.baseURL.Parse(ref)
	if err != nil {
		return nil, err
	}
	return http.NewRequestWithContext(ctx, method, u.String(), body)
}

// Get performs an HTTP GET against a path below the destination's base URL.
func (c *Client) Get(ctx context.Context, ref string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post performs an HTTP POST with the given content type.
func (c *Client) Post(ctx context.Context, ref, contentType string, body io.Reader) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, ref, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(req)
}

// Do executes a prepared request through the full pipeline. On terminal
// failure the returned error is a *ClientError; a response whose status code
// is in the retryable set is returned as-is once retries are exhausted, and
// it is the caller's responsibility to inspect it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.pipeline.RoundTrip(req)
}

// execute is the policy pipeline around the raw call: retry drives repeated
// attempts, each attempt bounded by the timeout and admitted by the circuit
// breaker. Attempts are strictly sequential.
func (c *Client) execute(req *http.Request) (*http.Response, error) {
	callerCtx := req.Context()
	start := time.Now()
	method := req.Method
	reqURL := req.URL.String()
	corrID := req.Header.Get(c.correlationHeader)

	c.metrics.RecordRequestStart(c.name, method)
	defer c.metrics.RecordRequestEnd(c.name, method)

	c.listener.OnRequest(RequestEvent{
		Client:        c.name,
		Method:        method,
		URL:           reqURL,
		CorrelationID: corrID,
	})

	if err := prepareBody(req, c.settings.Retry.MaxAttempts); err != nil {
		return nil, c.newError(ErrorTypeTransient, "failed to buffer request body", err, req, corrID, 0, 0, time.Since(start))
	}

	maxAttempts := c.settings.Retry.MaxAttempts

	var resp *http.Response
	var outcome Outcome

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := backoff.Delay(attempt, c.settings.Retry.BaseDelay(), c.settings.Retry.BackoffPower)
			c.listener.OnRetry(RetryEvent{
				Client:     c.name,
				Method:     method,
				URL:        reqURL,
				Attempt:    attempt,
				Delay:      delay,
				StatusCode: outcome.StatusCode,
				Err:        outcome.Err,
			})
			c.metrics.RecordRetry(c.name, method, attempt)
			c.logger.Debug("scheduling retry",
				"client", c.name, "method", method, "attempt", attempt, "delay", delay)

			timer := time.NewTimer(delay)
			select {
			case <-callerCtx.Done():
				timer.Stop()
				err := c.newError(ErrorTypeCanceled, "call canceled during backoff", callerCtx.Err(), req, corrID, attempt, 0, time.Since(start))
				c.metrics.RecordError(ErrorTypeCanceled, c.name, method)
				return nil, err
			case <-timer.C:
			}
		}

		resp, outcome = c.attempt(req, attempt)

		if outcome.Kind == OutcomeSuccess {
			duration := time.Since(start)
			c.metrics.RecordRequest(c.name, method, outcome.StatusCode, duration)
			c.listener.OnResponse(ResponseEvent{
				Client:        c.name,
				Method:        method,
				URL:           reqURL,
				CorrelationID: corrID,
				StatusCode:    outcome.StatusCode,
				Attempts:      attempt + 1,
				Duration:      duration,
			})
			return resp, nil
		}

		if outcome.Kind == OutcomeCanceled {
			duration := time.Since(start)
			err := c.newError(ErrorTypeCanceled, "call canceled", outcome.Err, req, corrID, attempt, 0, duration)
			c.metrics.RecordError(ErrorTypeCanceled, c.name, method)
			c.listener.OnFailure(FailureEvent{
				Client:        c.name,
				Method:        method,
				URL:           reqURL,
				CorrelationID: corrID,
				Attempts:      attempt + 1,
				Duration:      duration,
				Err:           err,
			})
			return nil, err
		}

		if attempt >= maxAttempts {
			break
		}

		if resp != nil {
			drainAndClose(resp)
		}
	}

	duration := time.Since(start)

	if resp != nil {
		// Retries exhausted on a retryable status; hand the last response to
		// the caller for inspection.
		c.metrics.RecordRequest(c.name, method, resp.StatusCode, duration)
		c.listener.OnResponse(ResponseEvent{
			Client:        c.name,
			Method:        method,
			URL:           reqURL,
			CorrelationID: corrID,
			StatusCode:    resp.StatusCode,
			Attempts:      maxAttempts + 1,
			Duration:      duration,
		})
		return resp, nil
	}

	errType := ErrorTypeTransient
	message := "request failed"
	switch {
	case errors.Is(outcome.Err, ErrCircuitOpen):
		errType = ErrorTypeCircuitOpen
		message = "circuit breaker is open"
	case outcome.Timeout:
		errType = ErrorTypeTimeout
		message = "attempt timed out"
	}

	err := c.newError(errType, message, outcome.Err, req, corrID, maxAttempts, 0, duration)
	c.metrics.RecordError(errType, c.name, method)
	c.listener.OnFailure(FailureEvent{
		Client:        c.name,
		Method:        method,
		URL:           reqURL,
		CorrelationID: corrID,
		Attempts:      maxAttempts + 1,
		Duration:      duration,
		Err:           err,
	})
	return nil, err
}

// attempt performs one bounded call attempt and reports its classified
// outcome to the circuit breaker. Circuit-open fast failures never touch the
// transport and are not counted against the breaker, but they do consume a
// retry slot; the next attempt re-checks circuit state.
func (c *Client) attempt(req *http.Request, attempt int) (*http.Response, Outcome) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.Warn("circuit breaker open, failing fast",
			"client", c.name, "method", req.Method, "attempt", attempt)
		return nil, Outcome{Kind: OutcomeFailure, Err: err}
	}

	attemptCtx, cancel := context.WithTimeout(req.Context(), c.settings.Timeout.Duration())

	clone := req.Clone(attemptCtx)
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			c.breaker.RecordFailure()
			return nil, Outcome{Kind: OutcomeFailure, Err: err}
		}
		clone.Body = body
	}

	resp, err := c.transport.RoundTrip(clone)
	outcome := classifyOutcome(resp, err, c.retryable, req.Context(), attemptCtx)

	switch outcome.Kind {
	case OutcomeSuccess:
		c.breaker.RecordSuccess()
		resp.Body = &cancelBody{body: resp.Body, cancel: cancel}
		return resp, outcome

	case OutcomeCanceled:
		if resp != nil {
			resp.Body.Close()
		}
		cancel()
		c.breaker.ProbeAborted()
		return nil, outcome

	default:
		if outcome.Timeout {
			c.listener.OnTimeout(TimeoutEvent{
				Client:  c.name,
				Method:  req.Method,
				URL:     req.URL.String(),
				Attempt: attempt,
				Timeout: c.settings.Timeout.Duration(),
			})
			c.metrics.RecordTimeout(c.name, req.Method)
		}
		c.breaker.RecordFailure()
		if resp != nil {
			resp.Body = &cancelBody{body: resp.Body, cancel: cancel}
			return resp, outcome
		}
		cancel()
		return nil, outcome
	}
}

func (c *Client) newError(errType, message string, cause error, req *http.Request, corrID string, attempt, statusCode int, duration time.Duration) *ClientError {
	return &ClientError{
		Type:          errType,
		Message:       message,
		Cause:         cause,
		Client:        c.name,
		Method:        req.Method,
		URL:           req.URL.String(),
		StatusCode:    statusCode,
		Attempt:       attempt,
		MaxAttempts:   c.settings.Retry.MaxAttempts,
		CorrelationID: corrID,
		Duration:      duration,
	}
}

// prepareBody buffers the request body in memory when retries are enabled and
// the request cannot otherwise be replayed.
func prepareBody(req *http.Request, maxAttempts int) error {
	if req.Body == nil || req.GetBody != nil || maxAttempts == 0 {
		return nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return err
	}

	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

// drainAndClose releases the connection of an intermediate failing response
// so it can be reused by the next attempt.
func drainAndClose(resp *http.Response) {
	const drainLimit = 64 << 10
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	resp.Body.Close()
}

// cancelBody ties the per-attempt context's release to the response body so
// returning from the attempt does not sever the connection before the caller
// has read the body. The attempt deadline itself still applies while reading.
type cancelBody struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Read(p []byte) (int, error) { return b.body.Read(p) }

func (b *cancelBody) Close() error {
	err := b.body.Close()
	b.cancel()
	return err
}
