package tangguh

import (
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Config is the externally supplied configuration shape:
//
//	defaults:
//	  timeout: { seconds: 30 }
//	  retry: { maxAttempts: 3, baseDelayMs: 200, backoffPower: 2 }
//	  circuitBreaker:
//	    failureThreshold: 0.5
//	    minimumThroughput: 10
//	    sampleDurationMs: 30000
//	    breakDurationMs: 15000
//	  retryableStatusCodes: [502, 503, 504]
//	  logging: { logRequest: true, logResponse: true }
//	clients:
//	  billing:
//	    baseUrl: https://billing.example.com
//	    retry: { maxAttempts: 5, baseDelayMs: 100, backoffPower: 1 }
//
// Absent defaults fall back to Defaults(); a client group that is absent
// falls back to the merged defaults, a present group replaces the default
// group entirely.
type Config struct {
	Defaults DefaultSettings           `mapstructure:"defaults"`
	Clients  map[string]ClientSettings `mapstructure:"clients"`
}

// envPrefix is the prefix for environment overrides; keys map with dots
// replaced by underscores, e.g. TANGGUH_DEFAULTS_TIMEOUT_SECONDS.
const envPrefix = "TANGGUH"

// LoadConfig reads configuration from the given file (format inferred from
// the extension; YAML, JSON and TOML are supported) with environment
// variable overrides. The baseline and every client entry are validated; an
// invalid file is rejected as a whole.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: "failed to read configuration file",
			Cause:   err,
		}
	}

	cfg := &Config{Defaults: Defaults()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeConfiguration,
			Message: "failed to unmarshal configuration",
			Cause:   err,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the baseline and every client entry, returning the first
// violation.
func (c *Config) Validate() error {
	if err := c.Defaults.Validate(); err != nil {
		return err
	}
	for _, name := range c.clientNames() {
		if err := c.Clients[name].Validate(); err != nil {
			if clientErr, ok := err.(*ClientError); ok {
				clientErr.Client = name
			}
			return err
		}
	}
	return nil
}

func (c *Config) clientNames() []string {
	names := make([]string, 0, len(c.Clients))
	for name := range c.Clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig builds a registry from a loaded configuration and
// registers every client entry. The first invalid destination aborts the
// whole construction; configuration errors are fatal at startup, before any
// call is attempted.
func NewRegistryFromConfig(cfg *Config, options ...Option) (*Registry, error) {
	registry, err := NewRegistry(cfg.Defaults, options...)
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.clientNames() {
		if _, err := registry.Register(name, cfg.Clients[name]); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
