package provider

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// unavailableThreshold is the number of consecutive failures after which
	// a provider is marked unavailable.
	unavailableThreshold = 3

	// latencyAlpha is the smoothing factor for the latency moving average.
	latencyAlpha = 0.3

	// defaultBurst is the rate limiter burst for rate-limited providers.
	defaultBurst = 1
)

// healthEntry owns one provider's health state. Updates are serialized by the
// entry's own mutex so a slow attempt on one provider never blocks another.
type healthEntry struct {
	mu     sync.Mutex
	health Health
}

// Registry manages provider configuration and health.
// Registry is safe for concurrent use.
type Registry struct {
	configs  []Config // sorted by ascending priority
	health   map[string]*healthEntry
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewRegistry creates a registry from static provider configuration.
// All providers start out available.
func NewRegistry(configs []Config) *Registry {
	sorted := make([]Config, len(configs))
	copy(sorted, configs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	r := &Registry{
		configs:  sorted,
		health:   make(map[string]*healthEntry, len(sorted)),
		limiters: make(map[string]*rate.Limiter),
	}

	now := time.Now().UTC()
	for _, cfg := range sorted {
		r.health[cfg.ID] = &healthEntry{
			health: Health{
				Available:   true,
				LastChecked: now,
				LastStatus:  "ok",
			},
		}
		if cfg.RateLimit > 0 {
			r.limiters[cfg.ID] = rate.NewLimiter(rate.Limit(cfg.RateLimit), defaultBurst)
		}
	}

	return r
}

// Available returns enabled, healthy providers sorted by ascending priority.
// An empty slice is a valid result; callers must treat it as "no provider".
func (r *Registry) Available() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Config, 0, len(r.configs))
	for _, cfg := range r.configs {
		if !cfg.Enabled {
			continue
		}
		entry := r.health[cfg.ID]
		entry.mu.Lock()
		available := entry.health.Available
		entry.mu.Unlock()
		if available {
			out = append(out, cfg)
		}
	}
	return out
}

// Get returns the configuration for a provider by ID.
func (r *Registry) Get(id string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cfg := range r.configs {
		if cfg.ID == id {
			return cfg, nil
		}
	}
	return Config{}, fmt.Errorf("provider '%s' not found", id)
}

// RecordOutcome updates a provider's health after one completed attempt.
//
// On success the error count is hard-reset to zero (no decay) and the
// provider is marked available. On failure the consecutive error count is
// incremented and the provider becomes unavailable once it reaches the
// failure threshold. The latency average is an EMA updated on every outcome.
func (r *Registry) RecordOutcome(id string, success bool, duration time.Duration, status string) {
	r.mu.RLock()
	entry, ok := r.health[id]
	r.mu.RUnlock()
	if !ok {
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	h := &entry.health
	h.LastChecked = time.Now().UTC()

	if h.AvgLatency == 0 {
		h.AvgLatency = duration
	} else {
		h.AvgLatency = time.Duration(latencyAlpha*float64(duration) + (1-latencyAlpha)*float64(h.AvgLatency))
	}

	if success {
		h.Available = true
		h.ErrorCount = 0
		h.LastStatus = "ok"
		return
	}

	h.ErrorCount++
	if h.ErrorCount >= unavailableThreshold {
		h.Available = false
	}
	if status == "" {
		status = "attempt failed"
	}
	h.LastStatus = status
}

// Allow reports whether an attempt against the provider is within its rate
// limit. Providers without a configured limit always pass.
func (r *Registry) Allow(id string) bool {
	r.mu.RLock()
	limiter, ok := r.limiters[id]
	r.mu.RUnlock()

	if !ok {
		return true
	}
	return limiter.Allow()
}

// HealthReport returns a point-in-time copy of every provider's health.
// It never blocks outcome recording beyond the brief per-entry copy.
func (r *Registry) HealthReport() []HealthSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]HealthSnapshot, 0, len(r.configs))
	for _, cfg := range r.configs {
		entry := r.health[cfg.ID]
		entry.mu.Lock()
		snap := HealthSnapshot{ProviderID: cfg.ID, Health: entry.health}
		entry.mu.Unlock()
		out = append(out, snap)
	}
	return out
}

// markAvailable flips a provider back to available if it has been unavailable
// for at least cooldown. Used by the recovery sweeper; the next real attempt
// acts as the probe.
func (r *Registry) markAvailable(id string, cooldown time.Duration) bool {
	r.mu.RLock()
	entry, ok := r.health[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	h := &entry.health
	if h.Available || time.Since(h.LastChecked) < cooldown {
		return false
	}
	h.Available = true
	h.ErrorCount = 0
	h.LastStatus = "recovered after cooldown"
	return true
}
