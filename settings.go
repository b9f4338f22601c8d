package tangguh

import (
	"fmt"
	"net/url"
	"time"
)

// TimeoutSettings bounds each individual attempt, not the retry sequence.
type TimeoutSettings struct {
	Seconds int `mapstructure:"seconds"`
}

// Duration returns the per-attempt timeout as a time.Duration.
func (t TimeoutSettings) Duration() time.Duration {
	return time.Duration(t.Seconds) * time.Second
}

// RetrySettings controls how many extra attempts are made after the first
// one and how the pause between them grows. MaxAttempts=0 disables retries.
type RetrySettings struct {
	MaxAttempts  int `mapstructure:"maxAttempts"`
	BaseDelayMs  int `mapstructure:"baseDelayMs"`
	BackoffPower int `mapstructure:"backoffPower"`
}

// BaseDelay returns the base retry delay as a time.Duration.
func (r RetrySettings) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// BreakerSettings parameterizes the per-destination circuit breaker.
type BreakerSettings struct {
	FailureThreshold  float64 `mapstructure:"failureThreshold"`
	MinimumThroughput int     `mapstructure:"minimumThroughput"`
	SampleDurationMs  int     `mapstructure:"sampleDurationMs"`
	BreakDurationMs   int     `mapstructure:"breakDurationMs"`
}

// SampleDuration returns the sliding outcome window as a time.Duration.
func (b BreakerSettings) SampleDuration() time.Duration {
	return time.Duration(b.SampleDurationMs) * time.Millisecond
}

// BreakDuration returns how long an opened circuit stays open.
func (b BreakerSettings) BreakDuration() time.Duration {
	return time.Duration(b.BreakDurationMs) * time.Millisecond
}

// LoggingSettings selects which parts of requests and responses are logged.
type LoggingSettings struct {
	LogRequest         bool `mapstructure:"logRequest"`
	LogRequestHeaders  bool `mapstructure:"logRequestHeaders"`
	LogRequestBody     bool `mapstructure:"logRequestBody"`
	LogResponse        bool `mapstructure:"logResponse"`
	LogResponseHeaders bool `mapstructure:"logResponseHeaders"`
	LogResponseBody    bool `mapstructure:"logResponseBody"`
}

// DefaultSettings is the process-wide baseline applied to every destination
// that does not override a group. Every field is always present; this is the
// fallback of last resort.
type DefaultSettings struct {
	Timeout              TimeoutSettings `mapstructure:"timeout"`
	Retry                RetrySettings   `mapstructure:"retry"`
	CircuitBreaker       BreakerSettings `mapstructure:"circuitBreaker"`
	RetryableStatusCodes []int           `mapstructure:"retryableStatusCodes"`
	Logging              LoggingSettings `mapstructure:"logging"`
}

// ClientSettings is the per-destination override. BaseURL is required; every
// other group is optional and, when present, replaces the corresponding
// default group wholesale.
type ClientSettings struct {
	BaseURL              string           `mapstructure:"baseUrl"`
	Timeout              *TimeoutSettings `mapstructure:"timeout"`
	Retry                *RetrySettings   `mapstructure:"retry"`
	CircuitBreaker       *BreakerSettings `mapstructure:"circuitBreaker"`
	RetryableStatusCodes []int            `mapstructure:"retryableStatusCodes"`
	Logging              *LoggingSettings `mapstructure:"logging"`
}

// ResolvedSettings is the effective configuration for one destination.
// It is computed once at registration and treated as immutable afterwards.
type ResolvedSettings struct {
	BaseURL              string
	Timeout              TimeoutSettings
	Retry                RetrySettings
	CircuitBreaker       BreakerSettings
	RetryableStatusCodes []int
	Logging              LoggingSettings
}

// Defaults returns the built-in baseline configuration.
func Defaults() DefaultSettings {
	return DefaultSettings{
		Timeout: TimeoutSettings{Seconds: 30},
		Retry: RetrySettings{
			MaxAttempts:  3,
			BaseDelayMs:  200,
			BackoffPower: 2,
		},
		CircuitBreaker: BreakerSettings{
			FailureThreshold:  0.5,
			MinimumThroughput: 10,
			SampleDurationMs:  30000,
			BreakDurationMs:   15000,
		},
		RetryableStatusCodes: []int{408, 429, 502, 503, 504},
		Logging: LoggingSettings{
			LogRequest:  true,
			LogResponse: true,
		},
	}
}

// Resolve merges override settings over defaults group by group. A present
// override group replaces the entire default group; there is no field-level
// merge within a group. BaseURL always comes from the override.
// Resolve is pure: same inputs always produce the same output.
func Resolve(defaults DefaultSettings, override ClientSettings) ResolvedSettings {
	resolved := ResolvedSettings{
		BaseURL:              override.BaseURL,
		Timeout:              defaults.Timeout,
		Retry:                defaults.Retry,
		CircuitBreaker:       defaults.CircuitBreaker,
		RetryableStatusCodes: copyCodes(defaults.RetryableStatusCodes),
		Logging:              defaults.Logging,
	}

	if override.Timeout != nil {
		resolved.Timeout = *override.Timeout
	}
	if override.Retry != nil {
		resolved.Retry = *override.Retry
	}
	if override.CircuitBreaker != nil {
		resolved.CircuitBreaker = *override.CircuitBreaker
	}
	if override.RetryableStatusCodes != nil {
		resolved.RetryableStatusCodes = copyCodes(override.RetryableStatusCodes)
	}
	if override.Logging != nil {
		resolved.Logging = *override.Logging
	}

	return resolved
}

func copyCodes(codes []int) []int {
	if codes == nil {
		return nil
	}
	out := make([]int, len(codes))
	copy(out, codes)
	return out
}

// Validate checks every field of the baseline against its bounds and returns
// all violations in a single error.
func (s DefaultSettings) Validate() error {
	var errs []string
	errs = append(errs, validateTimeout(s.Timeout)...)
	errs = append(errs, validateRetry(s.Retry)...)
	errs = append(errs, validateBreaker(s.CircuitBreaker)...)
	errs = append(errs, validateStatusCodes(s.RetryableStatusCodes)...)
	return validationError("defaults", errs)
}

// Validate checks BaseURL and every present override group. Absent groups
// are fine; present groups must satisfy the same bounds as defaults.
func (s ClientSettings) Validate() error {
	errs := validateBaseURL(s.BaseURL)
	if s.Timeout != nil {
		errs = append(errs, validateTimeout(*s.Timeout)...)
	}
	if s.Retry != nil {
		errs = append(errs, validateRetry(*s.Retry)...)
	}
	if s.CircuitBreaker != nil {
		errs = append(errs, validateBreaker(*s.CircuitBreaker)...)
	}
	if s.RetryableStatusCodes != nil {
		errs = append(errs, validateStatusCodes(s.RetryableStatusCodes)...)
	}
	return validationError("client settings", errs)
}

func validationError(subject string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ClientError{
		Type:    ErrorTypeConfiguration,
		Message: fmt.Sprintf("%s validation failed", subject),
		Cause:   fmt.Errorf("%w: %v", ErrInvalidConfiguration, errs),
	}
}

func validateBaseURL(raw string) []string {
	if raw == "" {
		return []string{"baseUrl must not be empty"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("baseUrl %q is not a valid URL", raw)}
	}
	if !u.IsAbs() || u.Host == "" {
		return []string{fmt.Sprintf("baseUrl %q must be an absolute URL", raw)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{fmt.Sprintf("baseUrl %q must use http or https", raw)}
	}
	return nil
}

func validateTimeout(t TimeoutSettings) []string {
	if t.Seconds <= 0 {
		return []string{"timeout seconds must be positive"}
	}
	return nil
}

func validateRetry(r RetrySettings) []string {
	var errs []string
	if r.MaxAttempts < 0 {
		errs = append(errs, "retry maxAttempts must be non-negative")
	}
	if r.MaxAttempts > 100 {
		errs = append(errs, "retry maxAttempts > 100 may cause excessive resource usage")
	}
	if r.BaseDelayMs <= 0 {
		errs = append(errs, "retry baseDelayMs must be positive")
	}
	if r.BackoffPower < 0 {
		errs = append(errs, "retry backoffPower must be non-negative")
	}
	if r.BackoffPower > 10 {
		errs = append(errs, "retry backoffPower > 10 may cause extremely long delays")
	}
	return errs
}

func validateBreaker(b BreakerSettings) []string {
	var errs []string
	if b.FailureThreshold <= 0 || b.FailureThreshold > 1 {
		errs = append(errs, "circuitBreaker failureThreshold must be in (0, 1]")
	}
	if b.MinimumThroughput <= 0 {
		errs = append(errs, "circuitBreaker minimumThroughput must be positive")
	}
	if b.SampleDurationMs <= 0 {
		errs = append(errs, "circuitBreaker sampleDurationMs must be positive")
	}
	if b.BreakDurationMs <= 0 {
		errs = append(errs, "circuitBreaker breakDurationMs must be positive")
	}
	return errs
}

func validateStatusCodes(codes []int) []string {
	var errs []string
	for _, code := range codes {
		if code < 100 || code > 599 {
			errs = append(errs, fmt.Sprintf("retryableStatusCodes entry %d is not a valid HTTP status", code))
		}
	}
	return errs
}
