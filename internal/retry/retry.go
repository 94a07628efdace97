// Package retry turns one logical execution into a bounded sequence of
// attempts across providers. Provider re-selection happens on every attempt,
// so "fallback" is not a separate code path: it is simply any attempt after
// the first.
package retry

import (
	"context"
	"time"

	"github.com/agentexec-dev/agentexec/internal/invoker"
	"github.com/agentexec-dev/agentexec/internal/provider"
)

const (
	// DefaultMaxAttempts bounds the attempt loop when the caller gives no ceiling.
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is the base for the exponential backoff between
	// attempts. Attempt numbers are 1-indexed, so the first wait is twice this.
	DefaultBackoffBase = 500 * time.Millisecond
)

// ProviderSource is the narrow slice of the registry the coordinator needs.
type ProviderSource interface {
	Available() []provider.Config
	RecordOutcome(id string, success bool, duration time.Duration, status string)
	Allow(id string) bool
}

// AttemptFunc performs one attempt against one provider. The returned Result
// must be non-nil with Duration populated.
type AttemptFunc func(cfg provider.Config, attempt int) *invoker.Result

// Params configures one coordinated run.
type Params struct {
	// ProviderHint, if set, prefers that provider whenever it is available.
	ProviderHint string

	// MaxAttempts is the attempt ceiling (0 = DefaultMaxAttempts).
	MaxAttempts int
}

// Coordinator drives the attempt loop with exponential backoff.
type Coordinator struct {
	providers   ProviderSource
	clock       Clock
	backoffBase time.Duration
}

// NewCoordinator creates a coordinator. A nil clock uses the wall clock and a
// non-positive backoffBase uses DefaultBackoffBase.
func NewCoordinator(providers ProviderSource, clock Clock, backoffBase time.Duration) *Coordinator {
	if clock == nil {
		clock = NewClock()
	}
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	return &Coordinator{
		providers:   providers,
		clock:       clock,
		backoffBase: backoffBase,
	}
}

// Run executes up to MaxAttempts attempts, recording every outcome with the
// provider source before moving on. It returns the first successful result,
// or NoProviderAvailableError / RetriesExhaustedError.
//
// Within one run attempts are strictly sequential: attempt N+1 never starts
// before attempt N's outcome has been recorded.
func (c *Coordinator) Run(ctx context.Context, params Params, attemptFn AttemptFunc) (*invoker.Result, error) {
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidates := c.providers.Available()
		if len(candidates) == 0 {
			// Retrying cannot conjure a provider into existence.
			return nil, &NoProviderAvailableError{}
		}

		cfg := c.pick(candidates, params.ProviderHint)

		res := attemptFn(cfg, attempt)
		res.Attempt = attempt
		res.Fallback = attempt > 1

		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		c.providers.RecordOutcome(cfg.ID, res.Success, res.Duration, status)

		if res.Success {
			return res, nil
		}
		lastErr = res.Err

		if attempt < maxAttempts {
			// backoffBase * 2^attempt with 1-indexed attempts: the whole
			// provider set sheds load together when everything is failing.
			delay := c.backoffBase * (1 << uint(attempt))
			if err := c.clock.Sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, &RetriesExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// pick selects the provider for one attempt: the hinted provider when it is
// in the candidate list, otherwise the highest-priority candidate whose rate
// limit admits an attempt. If every candidate is rate-limited the best
// candidate is used anyway rather than failing the attempt outright.
func (c *Coordinator) pick(candidates []provider.Config, hint string) provider.Config {
	if hint != "" {
		for _, cfg := range candidates {
			if cfg.ID == hint {
				return cfg
			}
		}
	}
	for _, cfg := range candidates {
		if c.providers.Allow(cfg.ID) {
			return cfg
		}
	}
	return candidates[0]
}
