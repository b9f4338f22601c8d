package tangguh

import (
	"reflect"
	"testing"
)

func TestResolveNoOverrides(t *testing.T) {
	defaults := Defaults()
	resolved := Resolve(defaults, ClientSettings{BaseURL: "https://api.example.com"})

	if resolved.BaseURL != "https://api.example.com" {
		t.Errorf("BaseURL = %q, want %q", resolved.BaseURL, "https://api.example.com")
	}
	if resolved.Timeout != defaults.Timeout {
		t.Errorf("Timeout = %+v, want default %+v", resolved.Timeout, defaults.Timeout)
	}
	if resolved.Retry != defaults.Retry {
		t.Errorf("Retry = %+v, want default %+v", resolved.Retry, defaults.Retry)
	}
	if resolved.CircuitBreaker != defaults.CircuitBreaker {
		t.Errorf("CircuitBreaker = %+v, want default %+v", resolved.CircuitBreaker, defaults.CircuitBreaker)
	}
	if !reflect.DeepEqual(resolved.RetryableStatusCodes, defaults.RetryableStatusCodes) {
		t.Errorf("RetryableStatusCodes = %v, want default %v", resolved.RetryableStatusCodes, defaults.RetryableStatusCodes)
	}
	if resolved.Logging != defaults.Logging {
		t.Errorf("Logging = %+v, want default %+v", resolved.Logging, defaults.Logging)
	}
}

// Overriding one group must leave every other group exactly equal to the
// defaults, and the override must replace the group wholesale: a retry
// override carrying only MaxAttempts discards the default delay and power.
func TestResolveGroupLevelOverride(t *testing.T) {
	defaults := Defaults()
	override := ClientSettings{
		BaseURL: "https://api.example.com",
		Retry:   &RetrySettings{MaxAttempts: 7},
	}

	resolved := Resolve(defaults, override)

	if resolved.Retry.MaxAttempts != 7 {
		t.Errorf("Retry.MaxAttempts = %d, want 7", resolved.Retry.MaxAttempts)
	}
	if resolved.Retry.BaseDelayMs != 0 {
		t.Errorf("Retry.BaseDelayMs = %d, want 0 (whole-group substitution)", resolved.Retry.BaseDelayMs)
	}
	if resolved.Retry.BackoffPower != 0 {
		t.Errorf("Retry.BackoffPower = %d, want 0 (whole-group substitution)", resolved.Retry.BackoffPower)
	}

	if resolved.Timeout != defaults.Timeout {
		t.Errorf("Timeout changed: %+v, want %+v", resolved.Timeout, defaults.Timeout)
	}
	if resolved.CircuitBreaker != defaults.CircuitBreaker {
		t.Errorf("CircuitBreaker changed: %+v, want %+v", resolved.CircuitBreaker, defaults.CircuitBreaker)
	}
	if !reflect.DeepEqual(resolved.RetryableStatusCodes, defaults.RetryableStatusCodes) {
		t.Errorf("RetryableStatusCodes changed: %v, want %v", resolved.RetryableStatusCodes, defaults.RetryableStatusCodes)
	}
	if resolved.Logging != defaults.Logging {
		t.Errorf("Logging changed: %+v, want %+v", resolved.Logging, defaults.Logging)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	defaults := Defaults()
	override := ClientSettings{
		BaseURL:              "https://api.example.com",
		Timeout:              &TimeoutSettings{Seconds: 5},
		RetryableStatusCodes: []int{503},
	}

	first := Resolve(defaults, override)
	second := Resolve(defaults, override)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Resolve not deterministic: %+v vs %+v", first, second)
	}
}

func TestResolveCopiesStatusCodes(t *testing.T) {
	defaults := Defaults()
	override := ClientSettings{
		BaseURL:              "https://api.example.com",
		RetryableStatusCodes: []int{503},
	}

	resolved := Resolve(defaults, override)
	override.RetryableStatusCodes[0] = 500

	if resolved.RetryableStatusCodes[0] != 503 {
		t.Error("resolved settings share backing array with override")
	}
}

func TestClientSettingsValidateBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"https accepted", "https://api.example.com", false},
		{"http accepted", "http://api.example.com", false},
		{"ftp rejected", "ftp://x.com", true},
		{"empty rejected", "", true},
		{"relative rejected", "/just/a/path", true},
		{"missing host rejected", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClientSettings{BaseURL: tt.baseURL}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() with baseUrl %q: err = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFailureThresholdBounds(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		wantErr   bool
	}{
		{"zero rejected", 0, true},
		{"above one rejected", 1.01, true},
		{"one accepted", 1.0, false},
		{"half accepted", 0.5, false},
		{"negative rejected", -0.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := ClientSettings{
				BaseURL: "https://api.example.com",
				CircuitBreaker: &BreakerSettings{
					FailureThreshold:  tt.threshold,
					MinimumThroughput: 10,
					SampleDurationMs:  1000,
					BreakDurationMs:   1000,
				},
			}
			err := settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() with threshold %v: err = %v, wantErr %v", tt.threshold, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNumericBounds(t *testing.T) {
	tests := []struct {
		name     string
		settings ClientSettings
		wantErr  bool
	}{
		{
			"zero timeout rejected",
			ClientSettings{BaseURL: "https://x.example.com", Timeout: &TimeoutSettings{Seconds: 0}},
			true,
		},
		{
			"negative maxAttempts rejected",
			ClientSettings{BaseURL: "https://x.example.com", Retry: &RetrySettings{MaxAttempts: -1, BaseDelayMs: 100, BackoffPower: 1}},
			true,
		},
		{
			"zero maxAttempts accepted",
			ClientSettings{BaseURL: "https://x.example.com", Retry: &RetrySettings{MaxAttempts: 0, BaseDelayMs: 100, BackoffPower: 1}},
			false,
		},
		{
			"zero baseDelay rejected",
			ClientSettings{BaseURL: "https://x.example.com", Retry: &RetrySettings{MaxAttempts: 1, BaseDelayMs: 0, BackoffPower: 1}},
			true,
		},
		{
			"zero minimumThroughput rejected",
			ClientSettings{BaseURL: "https://x.example.com", CircuitBreaker: &BreakerSettings{FailureThreshold: 0.5, MinimumThroughput: 0, SampleDurationMs: 1000, BreakDurationMs: 1000}},
			true,
		},
		{
			"zero sampleDuration rejected",
			ClientSettings{BaseURL: "https://x.example.com", CircuitBreaker: &BreakerSettings{FailureThreshold: 0.5, MinimumThroughput: 10, SampleDurationMs: 0, BreakDurationMs: 1000}},
			true,
		},
		{
			"zero breakDuration rejected",
			ClientSettings{BaseURL: "https://x.example.com", CircuitBreaker: &BreakerSettings{FailureThreshold: 0.5, MinimumThroughput: 10, SampleDurationMs: 1000, BreakDurationMs: 0}},
			true,
		},
		{
			"bogus status code rejected",
			ClientSettings{BaseURL: "https://x.example.com", RetryableStatusCodes: []int{700}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(): err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsConfigurationError(err) {
				t.Errorf("Validate() error %v is not a configuration error", err)
			}
		})
	}
}

func TestDefaultSettingsValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Errorf("built-in defaults failed validation: %v", err)
	}

	broken := Defaults()
	broken.Timeout.Seconds = 0
	broken.CircuitBreaker.FailureThreshold = 2.0
	if err := broken.Validate(); err == nil {
		t.Error("expected error for invalid defaults")
	}
}
