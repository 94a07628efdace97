// Package config loads the engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the engine configuration file.
type Config struct {
	// AgentCommand is the agent executable run for each attempt, unless a
	// provider overrides it with its own command.
	AgentCommand string `yaml:"agent_command"`

	// Defaults applies to executions that leave options unset.
	Defaults Defaults `yaml:"defaults"`

	// Providers lists the configured model providers.
	Providers []ProviderConfig `yaml:"providers"`

	// HealthStore selects where provider health snapshots are published.
	HealthStore HealthStoreConfig `yaml:"health_store"`

	// RecoveryCooldownMS is how long (in milliseconds) an unavailable
	// provider waits before the recovery sweep re-enables it.
	RecoveryCooldownMS int64 `yaml:"recovery_cooldown_ms"`

	// MetricsPort, if non-zero, serves /metrics and /health on this port.
	MetricsPort int `yaml:"metrics_port"`
}

// Defaults holds per-execution option defaults. Durations are plain
// millisecond integers so the file stays trivially parseable.
type Defaults struct {
	Model         string  `yaml:"model"`
	Temperature   float64 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	TimeoutMS     int64   `yaml:"timeout_ms"`
	MaxAttempts   int     `yaml:"max_attempts"`
	BackoffBaseMS int64   `yaml:"backoff_base_ms"`
}

// ProviderConfig holds configuration for a single provider.
type ProviderConfig struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Priority     int      `yaml:"priority"`
	Capabilities []string `yaml:"capabilities"`
	Enabled      bool     `yaml:"enabled"`
	RateLimit    float64  `yaml:"rate_limit"`
	Command      string   `yaml:"command"`
}

// HealthStoreConfig selects a snapshot store backend.
type HealthStoreConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend string `yaml:"backend"`

	// Addr is the Redis address when Backend is "redis".
	Addr string `yaml:"addr"`

	// Password is the Redis password (falls back to REDIS_PASSWORD).
	Password string `yaml:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db"`
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	if cfg.Defaults.TimeoutMS == 0 {
		cfg.Defaults.TimeoutMS = 30_000
	}
	if cfg.Defaults.MaxAttempts == 0 {
		cfg.Defaults.MaxAttempts = 3
	}
	if cfg.Defaults.BackoffBaseMS == 0 {
		cfg.Defaults.BackoffBaseMS = 500
	}
	if cfg.RecoveryCooldownMS == 0 {
		cfg.RecoveryCooldownMS = 60_000
	}
	if cfg.HealthStore.Backend == "" {
		cfg.HealthStore.Backend = "memory"
	}

	// Load secrets from environment if not in config
	if cfg.HealthStore.Password == "" {
		cfg.HealthStore.Password = os.Getenv("REDIS_PASSWORD")
	}

	return &cfg, nil
}

// Timeout returns the default per-attempt timeout as a duration.
func (d Defaults) Timeout() time.Duration {
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

// BackoffBase returns the backoff base as a duration.
func (d Defaults) BackoffBase() time.Duration {
	return time.Duration(d.BackoffBaseMS) * time.Millisecond
}

// RecoveryCooldown returns the recovery cooldown as a duration.
func (c *Config) RecoveryCooldown() time.Duration {
	return time.Duration(c.RecoveryCooldownMS) * time.Millisecond
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider id is required")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id '%s'", p.ID)
		}
		seen[p.ID] = true

		if c.AgentCommand == "" && p.Command == "" {
			return fmt.Errorf("provider '%s' has no command and no agent_command is set", p.ID)
		}
	}

	switch c.HealthStore.Backend {
	case "memory":
	case "redis":
		if c.HealthStore.Addr == "" {
			return fmt.Errorf("health_store.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown health_store backend '%s'", c.HealthStore.Backend)
	}

	return nil
}
