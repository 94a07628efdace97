// Package agentexec is an execution orchestration engine for external AI
// agents. An agent is an executable that reads one JSON payload from stdin,
// receives its configuration through AGENT_* environment variables, and
// writes one JSON envelope to stdout before exiting.
//
// The engine selects among configured providers by priority and health,
// retries failed attempts with exponential backoff, enforces a per-attempt
// timeout by killing the process group, validates decoded output against the
// caller's expected shape, and tracks provider health across calls.
//
// Callers construct one Engine per process and share it:
//
//	engine, err := agentexec.NewFromConfigFile("agentexec.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Shutdown()
//
//	resp, err := engine.Execute(ctx, "research-agent", input, shape, agentexec.Options{})
package agentexec

import (
	"fmt"

	"github.com/agentexec-dev/agentexec/internal/provider"
	"github.com/agentexec-dev/agentexec/pkg/config"
	"github.com/agentexec-dev/agentexec/pkg/healthstore"
)

// NewFromConfigFile builds an Engine from a YAML configuration file,
// including the configured health-store backend.
func NewFromConfigFile(path string) (*Engine, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var store healthstore.Store
	switch cfg.HealthStore.Backend {
	case "redis":
		store, err = healthstore.NewRedisStore(healthstore.RedisConfig{
			Addr:     cfg.HealthStore.Addr,
			Password: cfg.HealthStore.Password,
			DB:       cfg.HealthStore.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("health store: %w", err)
		}
	default:
		store = healthstore.NewMemoryStore()
	}

	providers := make([]provider.Config, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, provider.Config{
			ID:           p.ID,
			Name:         p.Name,
			Priority:     p.Priority,
			Capabilities: p.Capabilities,
			Enabled:      p.Enabled,
			RateLimit:    p.RateLimit,
			Command:      p.Command,
		})
	}

	return New(EngineConfig{
		Providers:    providers,
		AgentCommand: cfg.AgentCommand,
		Defaults: Options{
			Model:       cfg.Defaults.Model,
			Temperature: cfg.Defaults.Temperature,
			MaxTokens:   cfg.Defaults.MaxTokens,
			Timeout:     cfg.Defaults.Timeout(),
			MaxAttempts: cfg.Defaults.MaxAttempts,
		},
		BackoffBase:      cfg.Defaults.BackoffBase(),
		HealthStore:      store,
		RecoveryCooldown: cfg.RecoveryCooldown(),
	})
}
