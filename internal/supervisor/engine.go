package supervisor

import (
	"time"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/health"
	"github.com/vireo-systems/warden/internal/kernel"
	"github.com/vireo-systems/warden/internal/logging"
	"github.com/vireo-systems/warden/internal/process"
	"github.com/vireo-systems/warden/internal/spec"
)

// busBufferSize is the per-subscriber queue depth (spec §4.1: full queues
// block the publisher, they never drop).
const busBufferSize = 256

// healthWorkers bounds how many probe cycles the Health Probe Coordinator
// runs concurrently across every service.
const healthWorkers = 4

// terminalPollInterval is how often Run checks whether every service has
// settled into a terminal state.
const terminalPollInterval = 100 * time.Millisecond

// Engine owns every component (A-H) and the goroutines that drive them. It
// is the one type internal/bootstrap constructs and internal/control reads
// from for status queries.
type Engine struct {
	Bus  *eventbus.Bus
	Repo *Repository

	health   *health.Coordinator
	table    *ProcessTable
	runner   *process.Runner
	signaler *process.Signaler
	machine  *StateMachine
	dispatch *Dispatcher
	spawner  *Spawner
	shutdown *ShutdownCoordinator
	reaper   *ReaperLoop
	kernel   *kernel.Kernel
	logger   logging.Logger

	subs []*eventbus.Subscription
}

// New assembles an Engine over specs, ready for Run. k, limiter, and logger
// are provided by internal/bootstrap so the engine stays independent of how
// its dependencies were constructed.
func New(specs []spec.ServiceSpec, k *kernel.Kernel, limiter process.LimitApplier, logger logging.Logger) *Engine {
	bus := eventbus.New(busBufferSize)
	repo := NewRepository(bus, specs)
	coord := health.NewCoordinator(bus, healthWorkers, health.DefaultInterval)
	table := NewProcessTable()
	runner := process.NewRunner(k, limiter, logger)
	signaler := process.NewSignaler(k)

	e := &Engine{
		Bus:      bus,
		Repo:     repo,
		health:   coord,
		table:    table,
		runner:   runner,
		signaler: signaler,
		machine:  NewStateMachine(repo, coord, logger),
		dispatch: NewDispatcher(bus, repo),
		spawner:  NewSpawner(bus, repo, runner, table, logger),
		shutdown: NewShutdownCoordinator(bus, repo, table, signaler, k, logger),
		kernel:   k,
		logger:   logger,
	}
	e.reaper = NewReaperLoop(bus, repo, k, logger)
	return e
}

// Run starts every component's subscriber goroutine, starts the signal and
// reaper loop, and blocks until every service has reached a terminal state.
// On return it performs the PID-1 final sweep (a no-op when not PID 1) and
// reports the process exit code spec §6 names: 0 clean, 1 if any service
// ended FinishedFailed.
func (e *Engine) Run() int {
	e.spawnComponent(e.machine.Run)
	e.spawnComponent(e.dispatch.Run)
	e.spawnComponent(e.spawner.Run)
	e.spawnComponent(e.shutdown.Run)

	e.reaper.Start()

	ticker := time.NewTicker(terminalPollInterval)
	defer ticker.Stop()
	for range ticker.C {
		if e.Repo.AllTerminal() {
			break
		}
	}

	e.reaper.Stop()
	e.health.Stop()
	e.reaper.FinalSweep()
	e.closeSubs()

	if e.Repo.AnyFinishedFailed() {
		return 1
	}
	return 0
}

func (e *Engine) spawnComponent(run func(*eventbus.Subscription)) {
	sub := e.Bus.Subscribe()
	e.subs = append(e.subs, sub)
	go run(sub)
}

func (e *Engine) closeSubs() {
	for _, sub := range e.subs {
		sub.Close()
	}
}
