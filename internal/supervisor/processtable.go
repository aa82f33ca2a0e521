package supervisor

import (
	"sync"

	"github.com/vireo-systems/warden/internal/process"
)

// ProcessTable is the shared live-process registry the Process Runner
// glue (D) populates and the Shutdown Coordinator (H) reads to deliver
// signals — the two components that need a running service's *process.Handle
// rather than just its repository View.
type ProcessTable struct {
	mu      sync.Mutex
	handles map[string]*process.Handle
}

// NewProcessTable creates an empty table.
func NewProcessTable() *ProcessTable {
	return &ProcessTable{handles: make(map[string]*process.Handle)}
}

// Store records h as the live process for name.
func (t *ProcessTable) Store(name string, h *process.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles[name] = h
}

// Load returns the live process for name, if any.
func (t *ProcessTable) Load(name string) (*process.Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[name]
	return h, ok
}

// Delete removes name's live process entry.
func (t *ProcessTable) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handles, name)
}
