// Package provider tracks the set of configured model providers and their
// runtime health. The registry is the single source of truth the retry
// coordinator consults when choosing where the next attempt should land.
package provider

import (
	"time"
)

// Config holds the static configuration for one provider.
// It is loaded at startup and never mutated afterward.
type Config struct {
	// ID is the unique provider identifier (e.g., "openai", "anthropic").
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable display name.
	Name string `json:"name" yaml:"name"`

	// Priority ranks providers for selection; lower is more preferred.
	Priority int `json:"priority" yaml:"priority"`

	// Capabilities are free-form capability tags (e.g., "vision", "json").
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`

	// Enabled controls whether the provider participates in selection at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// RateLimit caps attempts per second against this provider (0 = unlimited).
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// Command overrides the engine-wide agent executable for this provider.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

// Health is the mutable health state for one provider.
type Health struct {
	// Available reports whether the provider is currently usable.
	Available bool `json:"available"`

	// LastChecked is when the most recent attempt against this provider completed.
	LastChecked time.Time `json:"last_checked"`

	// ErrorCount is the number of consecutive failed attempts.
	ErrorCount int `json:"error_count"`

	// AvgLatency is an exponential moving average of attempt durations.
	AvgLatency time.Duration `json:"avg_latency"`

	// LastStatus is the most recent status message (error text or "ok").
	LastStatus string `json:"last_status"`
}

// HealthSnapshot pairs a provider ID with a copy of its health state.
type HealthSnapshot struct {
	ProviderID string `json:"provider_id"`
	Health
}
