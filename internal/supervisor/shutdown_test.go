package supervisor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/kernel"
	"github.com/vireo-systems/warden/internal/process"
	"github.com/vireo-systems/warden/internal/spec"
	"github.com/vireo-systems/warden/internal/supervisor"
)

func newShutdownCoordinator(t *testing.T, specs ...spec.ServiceSpec) (*eventbus.Bus, *supervisor.Repository, *supervisor.ProcessTable, *process.Runner, func()) {
	t.Helper()
	bus := eventbus.New(16)
	repo := supervisor.NewRepository(bus, specs)
	table := supervisor.NewProcessTable()
	k := kernel.New()
	runner := process.NewRunner(k, nil, nil)
	signaler := process.NewSignaler(k)
	c := supervisor.NewShutdownCoordinator(bus, repo, table, signaler, k, nil)

	sub := bus.Subscribe()
	go c.Run(sub)

	return bus, repo, table, runner, sub.Close
}

func TestShutdownInitiatedMovesInitialHandleStraightToFinishedSuccess(t *testing.T) {
	bus, repo, _, _, teardown := newShutdownCoordinator(t, spec.ServiceSpec{Name: "never-started"})
	defer teardown()

	bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.OperatorSignal})
	waitForStatus(t, repo, "never-started", eventbus.FinishedSuccess)
}

func TestShutdownInitiatedSendsTerminationSignalToRunningService(t *testing.T) {
	bus, repo, table, runner, teardown := newShutdownCoordinator(t, spec.ServiceSpec{
		Name:    "sleeper",
		Command: "/bin/sleep 30",
	})
	defer teardown()

	h, err := runner.Spawn(spec.ServiceSpec{Name: "sleeper", Command: "/bin/sleep 30"})
	require.NoError(t, err)
	defer h.Release()
	table.Store("sleeper", h)
	repo.Transition("sleeper", eventbus.Starting, nil)
	repo.Transition("sleeper", eventbus.Started, func(hnd *supervisor.ServiceHandle) { hnd.PID = h.PID })
	repo.Transition("sleeper", eventbus.Running, nil)

	bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.OperatorSignal, Scope: "sleeper"})
	waitForStatus(t, repo, "sleeper", eventbus.InKilling)

	// Reap through a ZombieReaper, the way the engine's own reaper loop
	// does, rather than calling Handle.Cmd.Wait (which production never does).
	reaper := kernel.New().Reaper
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, reaped := range reaper.ReapOnce() {
			if reaped.PID != h.PID {
				continue
			}
			assert.True(t, reaped.Signaled || reaped.ExitCode != 0, "sleep must have been terminated by the default SIGTERM")
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("sleep did not exit after receiving the termination signal")
}

func TestForceKillDueFiresAfterTerminationWaitElapses(t *testing.T) {
	bus, repo, table, runner, teardown := newShutdownCoordinator(t, spec.ServiceSpec{
		Name:        "stubborn",
		Command:     "/bin/sleep 30",
		Termination: spec.TerminationPolicy{Wait: 100 * time.Millisecond},
	})
	defer teardown()

	h, err := runner.Spawn(spec.ServiceSpec{Name: "stubborn", Command: "/bin/sleep 30"})
	require.NoError(t, err)
	defer h.Release()
	table.Store("stubborn", h)
	repo.Transition("stubborn", eventbus.Starting, nil)
	repo.Transition("stubborn", eventbus.Started, func(hnd *supervisor.ServiceHandle) { hnd.PID = h.PID })
	repo.Transition("stubborn", eventbus.Running, nil)

	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.OperatorSignal, Scope: "stubborn"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-sub.Events():
			if fk, ok := evt.(eventbus.ForceKillDue); ok {
				assert.Equal(t, "stubborn", fk.Name)
				waitForStatus(t, repo, "stubborn", eventbus.FinishedFailed)
				return
			}
		case <-deadline:
			t.Fatal("expected ForceKillDue once the termination wait elapsed")
		}
	}
}

func TestShutdownCancelsTimerOnceHandleSettlesTerminal(t *testing.T) {
	bus, repo, table, runner, teardown := newShutdownCoordinator(t, spec.ServiceSpec{
		Name:        "quick",
		Command:     "/bin/sleep 30",
		Termination: spec.TerminationPolicy{Wait: time.Second},
	})
	defer teardown()

	h, err := runner.Spawn(spec.ServiceSpec{Name: "quick", Command: "/bin/sleep 30"})
	require.NoError(t, err)
	defer h.Release()
	table.Store("quick", h)
	repo.Transition("quick", eventbus.Starting, nil)
	repo.Transition("quick", eventbus.Started, func(hnd *supervisor.ServiceHandle) { hnd.PID = h.PID })
	repo.Transition("quick", eventbus.Running, nil)

	bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.OperatorSignal, Scope: "quick"})
	waitForStatus(t, repo, "quick", eventbus.InKilling)

	// A ProcessExited-driven FinishedSuccess (as the state machine would
	// publish on reap) must cancel the force-kill timer so it never fires.
	// repo.Decide itself publishes the ServiceStateChanged the
	// coordinator watches for.
	repo.Decide("quick", func(hnd *supervisor.ServiceHandle) bool {
		hnd.Status = eventbus.FinishedSuccess
		return true
	})

	sub := bus.Subscribe()
	defer sub.Close()
	select {
	case evt := <-sub.Events():
		if _, ok := evt.(eventbus.ForceKillDue); ok {
			t.Fatal("force-kill timer should have been cancelled")
		}
	case <-time.After(1200 * time.Millisecond):
	}
}
