package provider

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRecoveryCooldown is how long a provider stays unavailable before the
// sweeper gives it another chance.
const DefaultRecoveryCooldown = 60 * time.Second

// sweepInterval is how often the sweeper scans for recoverable providers.
const sweepInterval = "@every 15s"

// RecoverySweeper periodically flips unavailable providers back to available
// once their cooldown has elapsed, so a later attempt can re-probe them.
// Without it a provider that trips the failure threshold would stay dead for
// the life of the process.
type RecoverySweeper struct {
	registry *Registry
	cooldown time.Duration
	cron     *cron.Cron
}

// NewRecoverySweeper creates a sweeper for the given registry.
// A cooldown of 0 uses DefaultRecoveryCooldown.
func NewRecoverySweeper(registry *Registry, cooldown time.Duration) *RecoverySweeper {
	if cooldown <= 0 {
		cooldown = DefaultRecoveryCooldown
	}
	return &RecoverySweeper{
		registry: registry,
		cooldown: cooldown,
	}
}

// Start begins the background sweep schedule.
func (s *RecoverySweeper) Start() error {
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(sweepInterval, func() { s.Sweep() }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the background schedule. Safe to call multiple times.
func (s *RecoverySweeper) Stop() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
}

// Sweep runs one pass over all providers and returns how many recovered.
func (s *RecoverySweeper) Sweep() int {
	recovered := 0
	for _, snap := range s.registry.HealthReport() {
		if snap.Available {
			continue
		}
		if s.registry.markAvailable(snap.ProviderID, s.cooldown) {
			log.Printf("[Recovery] provider %s marked available after cooldown", snap.ProviderID)
			recovered++
		}
	}
	return recovered
}
