package tangguh

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// DefaultCorrelationHeader is the header used to propagate correlation ids.
const DefaultCorrelationHeader = "X-Correlation-ID"

type correlationKey struct{}

// WithCorrelationID returns a context carrying an explicit correlation id.
// The pipeline propagates it on outgoing requests instead of generating one.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext extracts the correlation id set via
// WithCorrelationID, if any.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationKey{}).(string)
	return id, ok && id != ""
}

// CorrelationMiddleware injects a correlation id header when the request does
// not already carry one. The value comes from the request context if present,
// otherwise from gen. It runs outside the logging stage so the propagated
// header appears in logged output.
func CorrelationMiddleware(header string, gen func() string) Middleware {
	if header == "" {
		header = DefaultCorrelationHeader
	}
	if gen == nil {
		gen = uuid.NewString
	}
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if req.Header.Get(header) == "" {
			id, ok := CorrelationIDFromContext(req.Context())
			if !ok {
				id = gen()
			}
			req.Header.Set(header, id)
		}
		return next.RoundTrip(req)
	}
}
