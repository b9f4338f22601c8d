// Package tangguh wraps outbound HTTP calls with per-destination resilience
// policies instead of ad-hoc retry loops scattered across call sites:
//
//   - Per-attempt timeouts
//   - Retries with polynomial backoff (base * attempt^power)
//   - Circuit breaking with a sliding failure-ratio window per destination
//   - Correlation-id propagation and structured request/response logging
//   - Prometheus metrics and a pluggable lifecycle listener
//
// Destinations ("clients") are registered by name; each name gets its own
// resolved configuration and its own circuit state. Per-destination settings
// override the registry's defaults group by group: supplying a retry group
// replaces the whole default retry group, never a single field.
//
// Typical usage:
//
//	registry, err := tangguh.NewRegistry(tangguh.Defaults(),
//	    tangguh.WithLogger(tangguh.NewSimpleLogger()),
//	    tangguh.WithMetrics(),
//	)
//	billing, err := registry.Register("billing", tangguh.ClientSettings{
//	    BaseURL: "https://billing.example.com",
//	    Retry:   &tangguh.RetrySettings{MaxAttempts: 5, BaseDelayMs: 100, BackoffPower: 1},
//	})
//	resp, err := billing.Get(ctx, "/invoices/42")
//
// Or drive the whole registry from a configuration file via LoadConfig and
// NewRegistryFromConfig.
//
// The pipeline order around the raw call is fixed: timeout bounds every
// individual attempt, retry sits above the circuit breaker so a fast-failed
// attempt consumes a retry slot and re-checks circuit state on the next one.
// Responses with status codes outside the retryable set are returned to the
// caller untouched, on the first attempt, and count as breaker successes.
package tangguh
