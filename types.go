package agentexec

import (
	"encoding/json"
	"time"

	"github.com/agentexec-dev/agentexec/internal/provider"
	"github.com/agentexec-dev/agentexec/internal/validator"
)

// ProviderConfig is the static configuration for one provider.
type ProviderConfig = provider.Config

// ProviderHealth is a point-in-time copy of one provider's health state.
type ProviderHealth = provider.HealthSnapshot

// Shape declares the expected structure of an agent's decoded output.
type Shape = validator.Shape

// FieldSpec declares the expected shape of one output field.
type FieldSpec = validator.FieldSpec

// Field types usable in a Shape.
const (
	TypeString  = validator.TypeString
	TypeNumber  = validator.TypeNumber
	TypeInteger = validator.TypeInteger
	TypeBoolean = validator.TypeBoolean
	TypeObject  = validator.TypeObject
	TypeArray   = validator.TypeArray
	TypeAny     = validator.TypeAny
)

// Options configures one execution. Zero-valued fields fall back to the
// engine defaults. Options are immutable for the lifetime of the call.
type Options struct {
	// Provider prefers a specific provider when it is available.
	Provider string

	// Model is the model hint passed to the agent process.
	Model string

	// Temperature is the sampling temperature hint (0 = unset).
	Temperature float64

	// MaxTokens is the token-limit hint (0 = unset).
	MaxTokens int

	// SystemPrompt overrides the agent's system prompt.
	SystemPrompt string

	// Timeout is the per-attempt wall-clock budget.
	Timeout time.Duration

	// MaxAttempts is the retry ceiling for this call.
	MaxAttempts int

	// Metadata is free-form tracing metadata kept with the session.
	Metadata map[string]string
}

// Response is the validated result of one execution. It is constructed once
// and not mutated afterward.
type Response struct {
	// Data is the validated output payload.
	Data json.RawMessage `json:"data"`

	// Provider is the provider that produced the successful attempt.
	Provider string `json:"provider"`

	// Model is the model the agent reported using.
	Model string `json:"model,omitempty"`

	// TokensUsed is the token count the agent reported.
	TokensUsed int `json:"tokens_used,omitempty"`

	// Duration is the total wall-clock time for the call, all attempts included.
	Duration time.Duration `json:"duration"`

	// Attempts is the number of attempts made.
	Attempts int `json:"attempts"`

	// FallbackUsed reports whether the successful attempt was not the first.
	// Note this is true for any retry, even one against the same provider;
	// external consumers depend on that reading.
	FallbackUsed bool `json:"fallback_used"`
}

// Statistics is a read-only view of engine state. Producing it performs no
// process I/O.
type Statistics struct {
	// ActiveExecutions is the number of calls currently in flight.
	ActiveExecutions int `json:"active_executions"`

	// PoolSize is the number of live agent processes being tracked.
	PoolSize int `json:"pool_size"`

	// ProviderHealth is a snapshot of every provider's health.
	ProviderHealth []ProviderHealth `json:"provider_health"`
}
