// Package config handles loading and validation of the executor configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Workload describes one roster entry. Descriptors are read once at startup
// and never mutated.
type Workload struct {
	// Name is the unique roster key and the model identifier on the host.
	Name string `mapstructure:"name"`

	// Footprint is the declared resource estimate in megabytes.
	// Zero means unknown; the predictor rejects unknown sizes.
	Footprint int64 `mapstructure:"footprint"`

	// Prompt is the task sent to the host on each admitted run.
	Prompt string `mapstructure:"prompt"`

	// MaxTokens bounds the generation budget per run.
	MaxTokens int `mapstructure:"max_tokens"`

	// Timeout bounds the execution phase of one run.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config holds all configuration values for the executor.
type Config struct {
	// Execution host base URL (e.g., "http://localhost:11434")
	HostURL string `mapstructure:"host_url"`

	// Directory for per-session state databases
	StateDir string `mapstructure:"state_dir"`

	// Maximum projected fraction of total capacity allowed before admission is refused
	SafetyThreshold float64 `mapstructure:"safety_threshold"`

	// Wall-clock budget for one run of the scheduler
	DurationBudget time.Duration `mapstructure:"duration_budget"`

	// Sleep between cycles when a full pass admitted nothing
	Backoff time.Duration `mapstructure:"backoff"`

	// Cap for the backoff growth
	MaxBackoff time.Duration `mapstructure:"max_backoff"`

	// Fixed at 1. The admission discipline is snapshot-then-load with no
	// reservation ledger, which is only sound when loads never overlap.
	MaxConcurrentWorkloads int `mapstructure:"max_concurrent_workloads"`

	// Optional total-capacity override in megabytes. When set, the snapshot
	// reader budgets against the host's loaded footprints instead of system
	// memory.
	CapacityOverride int64 `mapstructure:"capacity_override"`

	// Reorder the roster each cycle from persisted success stats
	Adaptive bool `mapstructure:"adaptive"`

	// Host request rate limit in requests/second; 0 means unlimited
	HostRateLimit float64 `mapstructure:"host_rate_limit"`

	// OTLP collector endpoint for tracing; empty disables tracing
	OTELEndpoint string `mapstructure:"otel_endpoint"`

	// Port for the Prometheus /metrics endpoint during a run
	MetricsPort int `mapstructure:"metrics_port"`

	// Roster of workloads, attempted in declaration order
	Roster []Workload `mapstructure:"roster"`
}

// Load reads configuration from the given file, with MODELPLANE_* environment
// variables taking precedence over file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("host_url", "http://localhost:11434")
	v.SetDefault("state_dir", ".")
	v.SetDefault("safety_threshold", 0.85)
	v.SetDefault("duration_budget", 30*time.Minute)
	v.SetDefault("backoff", 5*time.Second)
	v.SetDefault("max_backoff", 60*time.Second)
	v.SetDefault("max_concurrent_workloads", 1)
	v.SetDefault("metrics_port", 6272)

	v.SetEnvPrefix("MODELPLANE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("modelplane")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate fails fast on configurations that cannot be safely recovered from
// mid-run. Everything here is checked before the loop begins.
func (c *Config) validate() error {
	if len(c.Roster) == 0 {
		return fmt.Errorf("roster is empty: at least one workload is required")
	}

	seen := make(map[string]bool, len(c.Roster))
	for i, w := range c.Roster {
		if w.Name == "" {
			return fmt.Errorf("roster[%d]: name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("roster: duplicate workload name %q", w.Name)
		}
		seen[w.Name] = true

		if w.Footprint < 0 {
			return fmt.Errorf("workload %q: footprint must not be negative", w.Name)
		}
		if w.MaxTokens <= 0 {
			return fmt.Errorf("workload %q: max_tokens must be positive", w.Name)
		}
		if w.Timeout <= 0 {
			return fmt.Errorf("workload %q: timeout must be positive", w.Name)
		}
	}

	if c.SafetyThreshold <= 0 || c.SafetyThreshold > 1 {
		return fmt.Errorf("safety_threshold must be in (0, 1], got %v", c.SafetyThreshold)
	}

	if c.DurationBudget < 0 {
		return fmt.Errorf("duration_budget must not be negative, got %v", c.DurationBudget)
	}

	if c.Backoff <= 0 {
		return fmt.Errorf("backoff must be positive, got %v", c.Backoff)
	}
	if c.MaxBackoff < c.Backoff {
		return fmt.Errorf("max_backoff (%v) must not be below backoff (%v)", c.MaxBackoff, c.Backoff)
	}

	if c.MaxConcurrentWorkloads != 1 {
		return fmt.Errorf("max_concurrent_workloads must be 1: concurrent admission needs a reservation ledger this executor does not have")
	}

	if c.CapacityOverride < 0 {
		return fmt.Errorf("capacity_override must not be negative, got %d", c.CapacityOverride)
	}

	if c.HostRateLimit < 0 {
		return fmt.Errorf("host_rate_limit must not be negative, got %v", c.HostRateLimit)
	}

	return nil
}
