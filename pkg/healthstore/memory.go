package healthstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps the latest snapshot per provider in memory.
// Suitable for single-node deployments and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	snaps  map[string]Snapshot
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snaps: make(map[string]Snapshot),
	}
}

// Save replaces the stored snapshot for each provider in snaps.
func (s *MemoryStore) Save(ctx context.Context, snaps []Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	for _, snap := range snaps {
		s.snaps[snap.ProviderID] = snap
	}
	return nil
}

// Load returns the most recently saved snapshot per provider, sorted by ID.
func (s *MemoryStore) Load(ctx context.Context) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
