package agentexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/agentexec-dev/agentexec/internal/invoker"
	"github.com/agentexec-dev/agentexec/internal/provider"
	"github.com/agentexec-dev/agentexec/internal/retry"
	"github.com/agentexec-dev/agentexec/internal/session"
	"github.com/agentexec-dev/agentexec/internal/validator"
	"github.com/agentexec-dev/agentexec/pkg/healthstore"
	"github.com/agentexec-dev/agentexec/pkg/observability"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Providers is the static provider configuration.
	Providers []ProviderConfig

	// AgentCommand is the agent executable, unless a provider overrides it.
	AgentCommand string

	// Defaults fills unset Options fields on each call.
	Defaults Options

	// BackoffBase is the base for exponential backoff between attempts
	// (0 = 500ms).
	BackoffBase time.Duration

	// MaxOutputBytes bounds captured agent output (0 = 1 MiB).
	MaxOutputBytes int64

	// HealthStore, if set, receives provider-health snapshots after every
	// execution for external consumers.
	HealthStore healthstore.Store

	// RecoveryCooldown is how long unavailable providers wait before being
	// re-enabled by the recovery sweep (0 = 60s).
	RecoveryCooldown time.Duration

	// DisableRecoverySweep turns off the background recovery sweep.
	DisableRecoverySweep bool
}

// Engine is the orchestration facade callers use. Construct one per process
// and pass it by reference; there is no global instance.
// Engine is safe for concurrent use.
type Engine struct {
	registry     *provider.Registry
	invoker      *invoker.Invoker
	coordinator  *retry.Coordinator
	sessions     *session.Tracker
	sweeper      *provider.RecoverySweeper
	store        healthstore.Store
	agentCommand string
	defaults     Options

	mu     sync.Mutex
	closed bool
}

// New creates an Engine and starts its background recovery sweep.
func New(cfg EngineConfig) (*Engine, error) {
	registry := provider.NewRegistry(cfg.Providers)

	e := &Engine{
		registry:     registry,
		invoker:      invoker.New(cfg.MaxOutputBytes),
		coordinator:  retry.NewCoordinator(registry, nil, cfg.BackoffBase),
		sessions:     session.NewTracker(),
		store:        cfg.HealthStore,
		agentCommand: cfg.AgentCommand,
		defaults:     cfg.Defaults,
	}

	if !cfg.DisableRecoverySweep {
		e.sweeper = provider.NewRecoverySweeper(registry, cfg.RecoveryCooldown)
		if err := e.sweeper.Start(); err != nil {
			return nil, fmt.Errorf("start recovery sweep: %w", err)
		}
	}

	return e, nil
}

// Execute runs one agent call: it registers a session, drives the attempt
// loop across providers, validates the decoded output against shape, and
// returns the typed response. The session is removed on every exit path.
//
// A nil shape skips output validation.
func (e *Engine) Execute(ctx context.Context, agentID string, input json.RawMessage, shape Shape, opts Options) (*Response, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.mu.Unlock()

	opts = e.resolveOptions(opts)
	start := time.Now()

	sessionID := uuid.New().String()
	sctx := &session.Context{
		SessionID: sessionID,
		AgentID:   agentID,
		StartedAt: start,
		Metadata:  opts.Metadata,
		Options:   opts,
		Input:     input,
	}
	if err := e.sessions.Register(sctx); err != nil {
		return nil, err
	}
	observability.SetActiveExecutions(e.sessions.Count())
	defer func() {
		e.sessions.Release(sessionID)
		observability.SetActiveExecutions(e.sessions.Count())
	}()

	ctx, span := observability.StartSpan(ctx, "agentexec.execute",
		attribute.String("agent.id", agentID),
		attribute.String("session.id", sessionID),
	)
	defer span.End()

	result, err := e.coordinator.Run(ctx, retry.Params{
		ProviderHint: opts.Provider,
		MaxAttempts:  opts.MaxAttempts,
	}, func(cfg provider.Config, attempt int) *invoker.Result {
		return e.runAttempt(ctx, sessionID, cfg, attempt, input, opts)
	})

	e.publishHealth(ctx)

	if err != nil {
		observability.RecordExecution(agentID, "error", time.Since(start))
		return nil, err
	}

	if err := validator.Validate(result.Data, shape); err != nil {
		// The attempt succeeded mechanically, but the payload is unusable:
		// a deterministic contract mismatch, surfaced without retry.
		observability.RecordExecution(agentID, "validation_error", time.Since(start))
		return nil, err
	}

	observability.RecordExecution(agentID, "success", time.Since(start))

	return &Response{
		Data:         result.Data,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		TokensUsed:   result.TokensUsed,
		Duration:     time.Since(start),
		Attempts:     result.Attempt,
		FallbackUsed: result.Fallback,
	}, nil
}

// runAttempt performs one attempt against one provider.
func (e *Engine) runAttempt(ctx context.Context, sessionID string, cfg provider.Config, attempt int, input json.RawMessage, opts Options) *invoker.Result {
	_, span := observability.StartSpan(ctx, "agentexec.attempt",
		attribute.String("provider.id", cfg.ID),
		attribute.Int("attempt", attempt),
	)
	defer span.End()

	command := cfg.Command
	if command == "" {
		command = e.agentCommand
	}

	res := e.invoker.Invoke(invoker.Request{
		SessionID: sessionID,
		Command:   command,
		Input:     input,
		Env: invoker.EnvConfig{
			Provider:     cfg.ID,
			Model:        opts.Model,
			Temperature:  opts.Temperature,
			MaxTokens:    opts.MaxTokens,
			SystemPrompt: opts.SystemPrompt,
			TimeoutMS:    opts.Timeout.Milliseconds(),
		},
		Timeout: opts.Timeout,
	})

	observability.RecordAttempt(cfg.ID, attemptStatus(res.Err), res.Duration)
	return res
}

// Statistics returns a read-only view of engine state. It never performs
// process I/O.
func (e *Engine) Statistics() Statistics {
	return Statistics{
		ActiveExecutions: e.sessions.Count(),
		PoolSize:         e.invoker.PoolSize(),
		ProviderHealth:   e.registry.HealthReport(),
	}
}

// Shutdown terminates any in-flight agent processes and clears internal
// state. Idempotent; Execute fails with ErrEngineClosed afterward.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.sweeper != nil {
		e.sweeper.Stop()
	}

	if killed := e.invoker.KillAll(); len(killed) > 0 {
		log.Printf("[Engine] terminated %d in-flight agent process(es) on shutdown", len(killed))
	}
	e.sessions.Clear()

	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// resolveOptions fills unset option fields from the engine defaults.
func (e *Engine) resolveOptions(opts Options) Options {
	if opts.Model == "" {
		opts.Model = e.defaults.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = e.defaults.Temperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = e.defaults.MaxTokens
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = e.defaults.SystemPrompt
	}
	if opts.Timeout == 0 {
		opts.Timeout = e.defaults.Timeout
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = e.defaults.MaxAttempts
	}
	return opts
}

// publishHealth pushes the current health snapshot to the configured store
// and refreshes the health gauges. Best effort; failures are logged only.
func (e *Engine) publishHealth(ctx context.Context) {
	report := e.registry.HealthReport()
	for _, snap := range report {
		observability.SetProviderHealth(snap.ProviderID, snap.Available, snap.ErrorCount)
	}

	if e.store == nil {
		return
	}
	snaps := make([]healthstore.Snapshot, 0, len(report))
	for _, snap := range report {
		snaps = append(snaps, healthstore.Snapshot{
			ProviderID:  snap.ProviderID,
			Available:   snap.Available,
			LastChecked: snap.LastChecked,
			ErrorCount:  snap.ErrorCount,
			AvgLatency:  snap.AvgLatency,
			LastStatus:  snap.LastStatus,
		})
	}
	if err := e.store.Save(ctx, snaps); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[Engine] health snapshot publish failed: %v", err)
	}
}

// attemptStatus maps an attempt error to a metrics label.
func attemptStatus(err error) string {
	if err == nil {
		return "success"
	}

	var spawn *invoker.SpawnError
	var timeout *invoker.TimeoutError
	var exit *invoker.NonZeroExitError
	var malformed *invoker.MalformedOutputError

	switch {
	case errors.As(err, &spawn):
		return "spawn_error"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &exit):
		return "exit_error"
	case errors.As(err, &malformed):
		return "malformed_output"
	default:
		return "error"
	}
}
