package supervisor

import (
	"time"

	"github.com/vireo-systems/warden/internal/eventbus"
)

// pollInterval bounds how long a backoff/start_delay wait can overshoot
// before the Dispatcher re-evaluates it, on top of event-driven
// re-evaluation on every ServiceStateChanged.
const pollInterval = 50 * time.Millisecond

// Dispatcher is Component G: it watches the repository for Initial-state
// handles whose dependencies are satisfied and whose start_delay/backoff
// wait has elapsed, and issues SpawnRequest for them. Re-evaluating an
// already-advanced handle is a no-op, making the dispatcher naturally
// idempotent under repeated triggers (spec §4.7).
type Dispatcher struct {
	bus  *eventbus.Bus
	repo *Repository
}

// NewDispatcher creates a Dispatcher evaluating repo and publishing
// SpawnRequest events to bus.
func NewDispatcher(bus *eventbus.Bus, repo *Repository) *Dispatcher {
	return &Dispatcher{bus: bus, repo: repo}
}

// Run consumes sub until closed, re-evaluating on every event and, as a
// backstop for delay expiry with no intervening event, every pollInterval.
func (d *Dispatcher) Run(sub *eventbus.Subscription) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	events := sub.Events()
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = evt
			d.evaluate()
		case <-ticker.C:
			d.evaluate()
		}
	}
}

func (d *Dispatcher) evaluate() {
	for _, name := range d.repo.ListReadyToStart() {
		d.tryStart(name)
	}
}

func (d *Dispatcher) tryStart(name string) {
	svc, ok := d.repo.Spec(name)
	if !ok {
		return
	}

	_, _, transitioned := d.repo.Decide(name, func(h *ServiceHandle) bool {
		if h.Status != eventbus.Initial {
			return false
		}
		delay := svc.StartDelay + svc.Restart.Backoff*time.Duration(h.StartAttempts)
		if time.Since(h.LastStateChange) < delay {
			return false
		}
		h.StartAttempts++
		h.Status = eventbus.Starting
		return true
	})
	if transitioned {
		d.bus.Publish(eventbus.SpawnRequest{Name: name})
	}
}
