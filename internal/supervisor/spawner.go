package supervisor

import (
	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/health"
	"github.com/vireo-systems/warden/internal/logging"
	"github.com/vireo-systems/warden/internal/process"
)

// Spawner is the Process Runner glue (Component D as driven by bus
// events): it consumes SpawnRequest, calls the process.Runner, and
// reports the outcome back onto the bus — or, on spawn failure, drives
// the Starting -> Failed transition directly, since spec §4.1 names no
// dedicated "spawn failed" event kind for that path.
type Spawner struct {
	bus    *eventbus.Bus
	repo   *Repository
	runner *process.Runner
	table  *ProcessTable
	logger logging.Logger
}

// NewSpawner creates a Spawner wiring runner's spawns into bus/repo/table.
func NewSpawner(bus *eventbus.Bus, repo *Repository, runner *process.Runner, table *ProcessTable, logger logging.Logger) *Spawner {
	return &Spawner{bus: bus, repo: repo, runner: runner, table: table, logger: logger}
}

// Run consumes sub until closed, handling SpawnRequest and releasing a
// service's stdio sinks once it has exited.
func (s *Spawner) Run(sub *eventbus.Subscription) {
	for evt := range sub.Events() {
		switch e := evt.(type) {
		case eventbus.SpawnRequest:
			s.handleSpawnRequest(e.Name)
		case eventbus.ProcessExited:
			s.releaseProcess(e.Name)
		}
	}
}

func (s *Spawner) releaseProcess(name string) {
	if h, ok := s.table.Load(name); ok {
		h.Release()
		s.table.Delete(name)
	}
}

func (s *Spawner) handleSpawnRequest(name string) {
	svc, ok := s.repo.Spec(name)
	if !ok {
		return
	}

	if err := health.ResetReadinessFile(svc.Healthiness.ReadinessFile); err != nil && s.logger != nil {
		s.logger.Warn(name, "readiness_reset_failed", err.Error(), nil)
	}

	h, err := s.runner.Spawn(svc)
	if err != nil {
		if s.logger != nil {
			s.logger.Error(name, "spawn_failed", err.Error(), nil)
		}
		s.repo.Transition(name, eventbus.Failed, nil)
		return
	}

	s.table.Store(name, h)
	if s.logger != nil {
		s.logger.Info(name, "spawned", "process started", nil)
	}
	s.bus.Publish(eventbus.ProcessSpawned{Name: name, PID: h.PID})
}
