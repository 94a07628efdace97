// Package healthstore publishes provider-health snapshots for external
// consumers (dashboards, report pipelines). The engine writes a fresh
// snapshot set after every execution; readers poll at their own pace.
package healthstore

import (
	"context"
	"errors"
	"time"
)

// ErrStoreClosed is returned when operating on a closed store.
var ErrStoreClosed = errors.New("health store is closed")

// Snapshot is one provider's published health state.
type Snapshot struct {
	ProviderID   string        `json:"provider_id"`
	Available    bool          `json:"available"`
	LastChecked  time.Time     `json:"last_checked"`
	ErrorCount   int           `json:"error_count"`
	AvgLatencyMS int64         `json:"avg_latency_ms"`
	LastStatus   string        `json:"last_status"`
	AvgLatency   time.Duration `json:"-"`
}

// Store abstracts snapshot persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save replaces the stored snapshot for each provider in snaps.
	Save(ctx context.Context, snaps []Snapshot) error

	// Load returns the most recently saved snapshot per provider.
	Load(ctx context.Context) ([]Snapshot, error)

	// Close releases resources held by the store.
	Close() error
}
