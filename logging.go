package tangguh

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxLoggedBodyBytes caps how much of a request or response body is logged.
const maxLoggedBodyBytes = 4096

// maskedHeaders lists headers whose values are never written to logs.
var maskedHeaders = map[string]struct{}{
	"Authorization":       {},
	"Proxy-Authorization": {},
	"Cookie":              {},
	"Set-Cookie":          {},
}

const maskedValue = "***"

// LoggingMiddleware logs requests and responses according to cfg. It wraps
// the whole policy pipeline, so one log line covers the full retry sequence.
// Sensitive header values are masked; bodies are buffered and restored, so
// enabling body logging costs an extra copy.
func LoggingMiddleware(logger Logger, client string, cfg LoggingSettings, correlationHeader string) Middleware {
	if logger == nil {
		logger = NewNopLogger()
	}
	if correlationHeader == "" {
		correlationHeader = DefaultCorrelationHeader
	}
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if cfg.LogRequest {
			fields := []any{
				"client", client,
				"method", req.Method,
				"url", req.URL.String(),
			}
			if id := req.Header.Get(correlationHeader); id != "" {
				fields = append(fields, "correlationId", id)
			}
			if cfg.LogRequestHeaders {
				fields = append(fields, "headers", maskHeaders(req.Header))
			}
			if cfg.LogRequestBody && req.Body != nil {
				body, err := peekBody(req)
				if err == nil {
					fields = append(fields, "body", body)
				}
			}
			logger.Info("outgoing request", fields...)
		}

		start := time.Now()
		resp, err := next.RoundTrip(req)

		if !cfg.LogResponse {
			return resp, err
		}

		fields := []any{
			"client", client,
			"method", req.Method,
			"url", req.URL.String(),
			"duration", time.Since(start),
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
			logger.Error("request failed", fields...)
			return resp, err
		}

		fields = append(fields, "status", resp.StatusCode)
		if cfg.LogResponseHeaders {
			fields = append(fields, "headers", maskHeaders(resp.Header))
		}
		if cfg.LogResponseBody && resp.Body != nil {
			body, readErr := peekResponseBody(resp)
			if readErr == nil {
				fields = append(fields, "body", body)
			}
		}
		logger.Info("incoming response", fields...)
		return resp, err
	}
}

// maskHeaders renders headers as "Name: value" lines with sensitive values
// replaced.
func maskHeaders(h http.Header) string {
	var b strings.Builder
	for name, values := range h {
		if _, masked := maskedHeaders[http.CanonicalHeaderKey(name)]; masked {
			b.WriteString(name + ": " + maskedValue + "; ")
			continue
		}
		b.WriteString(name + ": " + strings.Join(values, ",") + "; ")
	}
	return strings.TrimSuffix(b.String(), "; ")
}

// peekBody reads up to maxLoggedBodyBytes of the request body and restores
// the stream by prepending the read prefix. Only the prefix is buffered; the
// rest of the body is never pulled into memory.
func peekBody(req *http.Request) (string, error) {
	data, err := io.ReadAll(io.LimitReader(req.Body, maxLoggedBodyBytes))
	if err != nil {
		return "", err
	}
	req.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(data), req.Body),
		Closer: req.Body,
	}
	return string(data), nil
}

// peekResponseBody reads up to maxLoggedBodyBytes of the response body and
// restores the stream for the caller the same way peekBody does.
func peekResponseBody(resp *http.Response) (string, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
	if err != nil {
		return "", err
	}
	resp.Body = replayBody{
		Reader: io.MultiReader(bytes.NewReader(data), resp.Body),
		Closer: resp.Body,
	}
	return string(data), nil
}

// replayBody stitches an already-read prefix back onto the original body
// while keeping the original Close.
type replayBody struct {
	io.Reader
	io.Closer
}
