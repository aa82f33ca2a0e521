// Package supervisor wires the Service Repository (B), State Machine (C),
// Dispatcher/Scheduler (G), Shutdown Coordinator (H), and the Signal &
// Reaper Loop and Process Runner glue (E/D) around the event bus (A) and
// Health Probe Coordinator (F) in internal/eventbus and internal/health.
package supervisor

import (
	"sync"
	"time"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/spec"
)

// ServiceHandle is the mutable runtime record paired with an immutable
// ServiceSpec (spec §3). Each handle carries its own lock; Repository
// additionally holds a structural read/write lock for cross-handle reads.
type ServiceHandle struct {
	mu sync.Mutex

	Spec spec.ServiceSpec

	Status               eventbus.State
	PID                  int
	StartAttempts        int
	LastStateChange      time.Time
	ConsecutiveUnhealthy int
	ChildrenReapCount    int
	// ReachedRunning is true once this attempt run has reached Running at
	// least once; reset when the handle re-arms to Initial. It backs the
	// "failing too quickly" exception for RestartNever (spec §4.3).
	ReachedRunning bool
}

// View is an immutable snapshot of a handle, safe to read without holding
// any lock — what Snapshot/Get return.
type View struct {
	Name                 string
	Status               eventbus.State
	PID                  int
	StartAttempts        int
	LastStateChange      time.Time
	ConsecutiveUnhealthy int
}

func (h *ServiceHandle) view(name string) View {
	return View{
		Name:                 name,
		Status:               h.Status,
		PID:                  h.PID,
		StartAttempts:        h.StartAttempts,
		LastStateChange:      h.LastStateChange,
		ConsecutiveUnhealthy: h.ConsecutiveUnhealthy,
	}
}

// Repository is the Service Repository (Component B): the sole owner of
// ServiceHandle records. ServiceSpecs are shared read-only.
type Repository struct {
	bus *eventbus.Bus

	mu      sync.RWMutex
	handles map[string]*ServiceHandle
	order   []string
}

// NewRepository creates a Repository with one Initial-state handle per
// spec, publishing every subsequent state change to bus.
func NewRepository(bus *eventbus.Bus, specs []spec.ServiceSpec) *Repository {
	r := &Repository{bus: bus, handles: make(map[string]*ServiceHandle, len(specs))}
	now := time.Now()
	for _, s := range specs {
		r.handles[s.Name] = &ServiceHandle{Spec: s, Status: eventbus.Initial, LastStateChange: now}
		r.order = append(r.order, s.Name)
	}
	return r
}

// Snapshot returns a consistent read of every handle, in load order.
func (r *Repository) Snapshot() []View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]View, 0, len(r.handles))
	for _, name := range r.order {
		h := r.handles[name]
		h.mu.Lock()
		out = append(out, h.view(name))
		h.mu.Unlock()
	}
	return out
}

// Get returns one handle's current view.
func (r *Repository) Get(name string) (View, bool) {
	r.mu.RLock()
	h, ok := r.handles[name]
	r.mu.RUnlock()
	if !ok {
		return View{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view(name), true
}

// Spec returns the immutable spec backing name.
func (r *Repository) Spec(name string) (spec.ServiceSpec, bool) {
	r.mu.RLock()
	h, ok := r.handles[name]
	r.mu.RUnlock()
	if !ok {
		return spec.ServiceSpec{}, false
	}
	return h.Spec, true
}

// Names returns every service name, in load order.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// WithHandle serializes a mutation of one handle that does not itself
// change Status (recording a probe result, a reaped pid). f runs under
// the handle's own lock; no ServiceStateChanged is emitted. Reports
// whether name was found.
func (r *Repository) WithHandle(name string, f func(*ServiceHandle)) bool {
	r.mu.RLock()
	h, ok := r.handles[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	h.mu.Lock()
	f(h)
	h.mu.Unlock()
	return true
}

// Transition moves name's handle to "to" (besides the terminal-stickiness
// guard), running mutate (if non-nil) first, then emitting
// ServiceStateChanged before releasing the handle's lock — the ordering
// §4.2 requires. A handle already in a terminal state refuses every
// Transition — spec §3 invariant 4 — use Restart for the explicit
// operator-driven escape.
func (r *Repository) Transition(name string, to eventbus.State, mutate func(*ServiceHandle)) (from eventbus.State, ok bool) {
	from, _, transitioned := r.Decide(name, func(h *ServiceHandle) bool {
		if h.Status.IsTerminal() {
			return false
		}
		if mutate != nil {
			mutate(h)
		}
		h.Status = to
		return true
	})
	return from, transitioned
}

// Restart forces a terminal handle back to Initial, bypassing the
// terminal-stickiness guard — the one case spec §3 invariant 4 permits:
// an explicit operator restart command from the control channel.
func (r *Repository) Restart(name string) (ok bool) {
	_, _, transitioned := r.Decide(name, func(h *ServiceHandle) bool {
		if !h.Status.IsTerminal() {
			return false
		}
		h.StartAttempts = 0
		h.ConsecutiveUnhealthy = 0
		h.ReachedRunning = false
		h.PID = 0
		h.Status = eventbus.Initial
		return true
	})
	return transitioned
}

// Decide runs decide under the handle's own lock, letting it inspect and
// mutate any field — including Status — in one atomic step, avoiding the
// race a separate read-then-Transition sequence would have. decide
// returns false to make the event a no-op and must leave h unmodified in
// that case (in particular, never modify Status without returning true).
func (r *Repository) Decide(name string, decide func(h *ServiceHandle) bool) (from, to eventbus.State, transitioned bool) {
	r.mu.RLock()
	h, exists := r.handles[name]
	r.mu.RUnlock()
	if !exists {
		return 0, 0, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	from = h.Status
	if !decide(h) {
		return from, from, false
	}
	to = h.Status
	h.LastStateChange = time.Now()
	r.bus.Publish(eventbus.ServiceStateChanged{Name: name, From: from, To: to, At: h.LastStateChange})
	return from, to, true
}

// ListReadyToStart returns the names of every Initial-state handle whose
// start_after dependencies are all Running or FinishedSuccess.
func (r *Repository) ListReadyToStart() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ready []string
	for _, name := range r.order {
		h := r.handles[name]
		h.mu.Lock()
		isInitial := h.Status == eventbus.Initial
		h.mu.Unlock()
		if isInitial && r.dependenciesReadyLocked(h.Spec.StartAfter) {
			ready = append(ready, name)
		}
	}
	return ready
}

func (r *Repository) dependenciesReadyLocked(deps []string) bool {
	for _, dep := range deps {
		dh, ok := r.handles[dep]
		if !ok {
			return false
		}
		dh.mu.Lock()
		status := dh.Status
		dh.mu.Unlock()
		if status != eventbus.Running && status != eventbus.FinishedSuccess {
			return false
		}
	}
	return true
}

// Dependents returns every service whose start_after chain transitively
// includes name, for FailureKillDependents propagation.
func (r *Repository) Dependents(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	depends := make(map[string][]string, len(r.handles))
	for n, h := range r.handles {
		depends[n] = h.Spec.StartAfter
	}

	var dependsOn func(candidate string, visited map[string]bool) bool
	dependsOn = func(candidate string, visited map[string]bool) bool {
		if visited[candidate] {
			return false
		}
		visited[candidate] = true
		for _, dep := range depends[candidate] {
			if dep == name || dependsOn(dep, visited) {
				return true
			}
		}
		return false
	}

	var out []string
	for n := range r.handles {
		if n == name {
			continue
		}
		if dependsOn(n, make(map[string]bool)) {
			out = append(out, n)
		}
	}
	return out
}

// DependentsNaming returns every registered service naming target in its own
// termination.die_if_failed list.
func (r *Repository) DependentsNaming(target string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for n, h := range r.handles {
		for _, dep := range h.Spec.Termination.DieIfFailed {
			if dep == target {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// AllTerminal reports whether every handle is in a terminal state.
func (r *Repository) AllTerminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handles {
		h.mu.Lock()
		terminal := h.Status.IsTerminal()
		h.mu.Unlock()
		if !terminal {
			return false
		}
	}
	return true
}

// AnyFinishedFailed reports whether at least one handle ended FinishedFailed.
func (r *Repository) AnyFinishedFailed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handles {
		h.mu.Lock()
		failed := h.Status == eventbus.FinishedFailed
		h.mu.Unlock()
		if failed {
			return true
		}
	}
	return false
}

// PIDOwner returns the name of the handle currently tracking pid, if any.
func (r *Repository) PIDOwner(pid int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.order {
		h := r.handles[name]
		h.mu.Lock()
		owns := h.PID == pid && h.PID != 0
		h.mu.Unlock()
		if owns {
			return name, true
		}
	}
	return "", false
}
