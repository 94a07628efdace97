// Package session tracks in-flight executions. A Context exists only while
// its call is running; the tracker is the unit of "active work" reported by
// the statistics surface.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Context is the bookkeeping record for one logical execute call.
type Context struct {
	// SessionID is unique per call.
	SessionID string

	// AgentID identifies the agent being executed.
	AgentID string

	// StartedAt is when the call began.
	StartedAt time.Time

	// Metadata is free-form tracing metadata supplied by the caller.
	Metadata map[string]string

	// Options holds the resolved execution options for the call. Stored
	// opaquely; the concrete type lives with the caller.
	Options any

	// Input is the raw input payload for the call.
	Input json.RawMessage
}

// Tracker is the active-sessions registry.
// Tracker is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]*Context
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[string]*Context),
	}
}

// Register adds a context. At most one context may exist per session ID.
func (t *Tracker) Register(ctx *Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.active[ctx.SessionID]; exists {
		return fmt.Errorf("session %s already registered", ctx.SessionID)
	}
	t.active[ctx.SessionID] = ctx
	return nil
}

// Release removes a context. Releasing an unknown ID is a no-op so cleanup
// can run unconditionally on every exit path.
func (t *Tracker) Release(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, sessionID)
}

// Count returns the number of in-flight sessions.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}

// List returns the in-flight contexts at this instant.
func (t *Tracker) List() []*Context {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Context, 0, len(t.active))
	for _, ctx := range t.active {
		out = append(out, ctx)
	}
	return out
}

// Clear drops all tracked contexts.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = make(map[string]*Context)
}
