package invoker

import (
	"os"
	"sync"
)

// processTable tracks live child processes keyed by session ID. Tracking and
// untracking bracket the attempt lifecycle so there is exactly one cleanup
// path; shutdown walks the table and kills whatever is still in flight.
type processTable struct {
	mu    sync.RWMutex
	procs map[string]*os.Process
}

func newProcessTable() *processTable {
	return &processTable{
		procs: make(map[string]*os.Process),
	}
}

func (t *processTable) track(sessionID string, p *os.Process) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[sessionID] = p
}

func (t *processTable) untrack(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, sessionID)
}

func (t *processTable) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.procs)
}

// killAll force-terminates every tracked process group and clears the table.
// Returns the session IDs that were killed.
func (t *processTable) killAll() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	killed := make([]string, 0, len(t.procs))
	for sid, p := range t.procs {
		killGroup(p.Pid)
		killed = append(killed, sid)
	}
	t.procs = make(map[string]*os.Process)
	return killed
}
