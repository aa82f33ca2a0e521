package supervisor

import (
	"os"
	"time"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/kernel"
	"github.com/vireo-systems/warden/internal/logging"
)

// reapPollInterval bounds how long a SIGCHLD can go unnoticed if the
// signal itself were ever coalesced or missed; ReapOnce is also invoked
// directly off the signal channel, so this is a backstop, not the
// primary trigger.
const reapPollInterval = 200 * time.Millisecond

// finalSweepWait is the grace period between the PID-1 sweep's SIGTERM
// and its SIGKILL, per spec §4.5.
const finalSweepWait = time.Second

// ReaperLoop is Component E: it owns signal intake and the
// waitpid(-1)-style reap loop, translating both into bus events. It is
// the single place that reaps children — Process Runner/Handle never
// calls cmd.Wait() itself, so there is exactly one wait4(-1) caller.
type ReaperLoop struct {
	bus    *eventbus.Bus
	repo   *Repository
	kernel *kernel.Kernel
	logger logging.Logger

	sigCh <-chan os.Signal
	done  chan struct{}
}

// NewReaperLoop creates a ReaperLoop publishing to bus, resolving pids
// against repo, using k for the OS primitives.
func NewReaperLoop(bus *eventbus.Bus, repo *Repository, k *kernel.Kernel, logger logging.Logger) *ReaperLoop {
	return &ReaperLoop{bus: bus, repo: repo, kernel: k, logger: logger, done: make(chan struct{})}
}

// Start registers for SIGTERM/SIGINT/SIGQUIT/SIGCHLD and runs the loop
// in a new goroutine. Best-effort marks the process a child subreaper
// first, so orphans reparent here even when warden is not PID 1.
func (r *ReaperLoop) Start() {
	if err := r.kernel.Signals.SetSubreaper(); err != nil && r.logger != nil {
		r.logger.Debug("", "subreaper_unavailable", err.Error(), nil)
	}

	sigterm, _ := r.kernel.Signals.SignalByName("SIGTERM")
	sigint, _ := r.kernel.Signals.SignalByName("SIGINT")
	sigquit, _ := r.kernel.Signals.SignalByName("SIGQUIT")
	sigchld, _ := r.kernel.Signals.SignalByName("SIGCHLD")

	r.sigCh = r.kernel.Signals.Notify(sigterm, sigint, sigquit, sigchld)
	go r.loop()
}

func (r *ReaperLoop) loop() {
	ticker := time.NewTicker(reapPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case sig := <-r.sigCh:
			if r.kernel.Signals.IsTermSignal(sig) {
				r.bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.OperatorSignal})
				continue
			}
			r.reap()
		case <-ticker.C:
			r.reap()
		}
	}
}

func (r *ReaperLoop) reap() {
	for _, reaped := range r.kernel.Reaper.ReapOnce() {
		if name, ok := r.repo.PIDOwner(reaped.PID); ok {
			r.bus.Publish(eventbus.ProcessExited{
				Name:     name,
				PID:      reaped.PID,
				ExitCode: reaped.ExitCode,
				Signaled: reaped.Signaled,
			})
			continue
		}
		r.bus.Publish(eventbus.OrphanReaped{PID: reaped.PID, ExitCode: reaped.ExitCode})
	}
}

// Stop ends the reaper goroutine. The signal channel itself is left
// registered — the process is tearing down regardless, and
// SignalManager.Stop takes a send-only channel this type never holds.
func (r *ReaperLoop) Stop() {
	close(r.done)
}

// FinalSweep issues the PID-1 "kill everything" sequence of spec §4.5:
// SIGTERM to every process this one can signal, a grace wait, then
// SIGKILL, flushing any remaining double-forked descendants before
// exit. Engine.Run calls it on every exit; it returns at once unless the
// engine is PID 1.
func (r *ReaperLoop) FinalSweep() {
	if !r.kernel.Reaper.IsPID1() {
		return
	}
	if sig, ok := r.kernel.Signals.SignalByName("SIGTERM"); ok {
		_ = r.kernel.Signals.ForwardToGroup(1, sig)
	}
	time.Sleep(finalSweepWait)
	if sig, ok := r.kernel.Signals.SignalByName("SIGKILL"); ok {
		_ = r.kernel.Signals.ForwardToGroup(1, sig)
	}
	r.reap()
}
