package supervisor

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/kernel"
	"github.com/vireo-systems/warden/internal/logging"
	"github.com/vireo-systems/warden/internal/process"
	"github.com/vireo-systems/warden/internal/spec"
)

// ShutdownCoordinator is Component H: on ShutdownInitiated it sends every
// targeted non-terminal handle its configured termination signal and
// arms a ForceKillDue timer; InKilling handles that reach a terminal
// state before the timer fires have it cancelled.
type ShutdownCoordinator struct {
	bus      *eventbus.Bus
	repo     *Repository
	table    *ProcessTable
	signaler *process.Signaler
	kernel   *kernel.Kernel
	logger   logging.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewShutdownCoordinator creates a ShutdownCoordinator delivering signals
// via signaler/k and publishing to bus.
func NewShutdownCoordinator(bus *eventbus.Bus, repo *Repository, table *ProcessTable, signaler *process.Signaler, k *kernel.Kernel, logger logging.Logger) *ShutdownCoordinator {
	return &ShutdownCoordinator{
		bus:      bus,
		repo:     repo,
		table:    table,
		signaler: signaler,
		kernel:   k,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Run consumes sub until closed.
func (c *ShutdownCoordinator) Run(sub *eventbus.Subscription) {
	for evt := range sub.Events() {
		switch e := evt.(type) {
		case eventbus.ShutdownInitiated:
			c.handleShutdownInitiated(e)
		case eventbus.ServiceStateChanged:
			if e.To.IsTerminal() {
				c.cancelTimer(e.Name)
			}
		}
	}
}

func (c *ShutdownCoordinator) handleShutdownInitiated(e eventbus.ShutdownInitiated) {
	names := []string{e.Scope}
	if e.Scope == "" {
		names = c.repo.Names()
	}
	for _, name := range names {
		c.initiate(name)
	}
}

func (c *ShutdownCoordinator) initiate(name string) {
	svc, ok := c.repo.Spec(name)
	if !ok {
		return
	}

	_, to, transitioned := c.repo.Decide(name, func(h *ServiceHandle) bool {
		switch h.Status {
		case eventbus.Initial:
			// Initial-state handles jump directly to FinishedSuccess (§4.8).
			h.Status = eventbus.FinishedSuccess
			return true
		case eventbus.Starting, eventbus.Started, eventbus.Running:
			h.Status = eventbus.InKilling
			return true
		default:
			return false
		}
	})
	if !transitioned || to != eventbus.InKilling {
		return
	}

	c.sendTerminationSignal(name, svc)
	c.armTimer(name, svc.Termination.Wait)
}

// sendTerminationSignal delivers svc's configured termination signal
// (default SIGTERM), rewritten per signal_rewrite, to name's process
// group. ESRCH (process already dead) is swallowed per spec §7; other
// errors are logged and the handle still proceeds toward force-kill.
func (c *ShutdownCoordinator) sendTerminationSignal(name string, svc spec.ServiceSpec) {
	proc, ok := c.table.Load(name)
	if !ok {
		return
	}

	sig := unix.Signal(unix.SIGTERM)
	if svc.Termination.Signal != "" {
		if resolved, found := c.kernel.Signals.SignalByName(svc.Termination.Signal); found {
			if s, ok := resolved.(unix.Signal); ok {
				sig = s
			}
		}
	}

	if err := c.signaler.Send(proc, sig, svc.SignalRewrite); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return
		}
		if c.logger != nil {
			c.logger.Warn(name, "termination_signal_failed", err.Error(), nil)
		}
	}
}

func (c *ShutdownCoordinator) armTimer(name string, wait time.Duration) {
	if wait <= 0 {
		wait = time.Second
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers[name] = time.AfterFunc(wait, func() { c.onForceKillDue(name) })
}

func (c *ShutdownCoordinator) cancelTimer(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[name]; ok {
		t.Stop()
		delete(c.timers, name)
	}
}

func (c *ShutdownCoordinator) onForceKillDue(name string) {
	c.mu.Lock()
	delete(c.timers, name)
	c.mu.Unlock()

	c.bus.Publish(eventbus.ForceKillDue{Name: name})

	if proc, ok := c.table.Load(name); ok {
		if err := c.signaler.KillHard(proc); err != nil && c.logger != nil {
			c.logger.Warn(name, "kill_hard_failed", err.Error(), nil)
		}
	}

	c.repo.Decide(name, func(h *ServiceHandle) bool {
		if h.Status != eventbus.InKilling {
			return false
		}
		h.PID = 0
		h.Status = eventbus.FinishedFailed
		return true
	})
}
