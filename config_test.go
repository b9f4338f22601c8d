package tangguh

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tangguh.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
defaults:
  timeout:
    seconds: 10
  retry:
    maxAttempts: 5
    baseDelayMs: 100
    backoffPower: 1
clients:
  billing:
    baseUrl: https://billing.example.com
    retry:
      maxAttempts: 2
      baseDelayMs: 50
      backoffPower: 1
  search:
    baseUrl: https://search.example.com
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Defaults.Timeout.Seconds != 10 {
		t.Errorf("defaults timeout = %d, want 10", cfg.Defaults.Timeout.Seconds)
	}
	if cfg.Defaults.Retry.MaxAttempts != 5 {
		t.Errorf("defaults maxAttempts = %d, want 5", cfg.Defaults.Retry.MaxAttempts)
	}

	// Groups absent from the file keep the built-in baseline.
	if cfg.Defaults.CircuitBreaker != Defaults().CircuitBreaker {
		t.Errorf("defaults circuitBreaker = %+v, want built-in %+v", cfg.Defaults.CircuitBreaker, Defaults().CircuitBreaker)
	}
	if !reflect.DeepEqual(cfg.Defaults.RetryableStatusCodes, Defaults().RetryableStatusCodes) {
		t.Errorf("defaults retryableStatusCodes = %v, want built-in %v", cfg.Defaults.RetryableStatusCodes, Defaults().RetryableStatusCodes)
	}

	billing, ok := cfg.Clients["billing"]
	if !ok {
		t.Fatal("billing client missing from config")
	}
	if billing.BaseURL != "https://billing.example.com" {
		t.Errorf("billing baseUrl = %q", billing.BaseURL)
	}
	if billing.Retry == nil || billing.Retry.MaxAttempts != 2 {
		t.Errorf("billing retry = %+v, want maxAttempts 2", billing.Retry)
	}

	search, ok := cfg.Clients["search"]
	if !ok {
		t.Fatal("search client missing from config")
	}
	if search.Retry != nil {
		t.Errorf("search retry = %+v, want nil (no override present)", search.Retry)
	}
}

func TestLoadConfigRejectsInvalidClientEntry(t *testing.T) {
	path := writeConfigFile(t, `
clients:
  billing:
    baseUrl: ftp://billing.example.com
`)

	_, err := LoadConfig(path)
	if !IsConfigurationError(err) {
		t.Fatalf("LoadConfig() error = %v, want configuration error", err)
	}

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("error %T is not *ClientError", err)
	}
	if clientErr.Client != "billing" {
		t.Errorf("error Client = %q, want %q", clientErr.Client, "billing")
	}
}

func TestLoadConfigRejectsInvalidDefaults(t *testing.T) {
	path := writeConfigFile(t, `
defaults:
  circuitBreaker:
    failureThreshold: 1.5
    minimumThroughput: 10
    sampleDurationMs: 1000
    breakDurationMs: 1000
`)

	if _, err := LoadConfig(path); !IsConfigurationError(err) {
		t.Errorf("LoadConfig() error = %v, want configuration error", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !IsConfigurationError(err) {
		t.Errorf("LoadConfig(missing) error = %v, want configuration error", err)
	}
}

func TestNewRegistryFromConfig(t *testing.T) {
	path := writeConfigFile(t, `
defaults:
  retry:
    maxAttempts: 5
    baseDelayMs: 100
    backoffPower: 1
clients:
  billing:
    baseUrl: https://billing.example.com
    retry:
      maxAttempts: 2
      baseDelayMs: 50
      backoffPower: 1
  search:
    baseUrl: https://search.example.com
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	registry, err := NewRegistryFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig() error: %v", err)
	}

	want := []string{"billing", "search"}
	if got := registry.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	billing, err := registry.Client("billing")
	if err != nil {
		t.Fatalf("Client(billing) error: %v", err)
	}
	if got := billing.Settings().Retry.MaxAttempts; got != 2 {
		t.Errorf("billing maxAttempts = %d, want client override 2", got)
	}

	search, err := registry.Client("search")
	if err != nil {
		t.Fatalf("Client(search) error: %v", err)
	}
	if got := search.Settings().Retry.MaxAttempts; got != 5 {
		t.Errorf("search maxAttempts = %d, want baseline 5", got)
	}
}

func TestNewRegistryFromConfigAbortsOnFirstBadClient(t *testing.T) {
	cfg := &Config{
		Defaults: Defaults(),
		Clients: map[string]ClientSettings{
			"aaa-broken": {BaseURL: ""},
			"zzz-good":   {BaseURL: "https://good.example.com"},
		},
	}

	if _, err := NewRegistryFromConfig(cfg); !IsConfigurationError(err) {
		t.Errorf("NewRegistryFromConfig() error = %v, want configuration error", err)
	}
}
