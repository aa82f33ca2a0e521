package supervisor

import (
	"strconv"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/health"
	"github.com/vireo-systems/warden/internal/logging"
	"github.com/vireo-systems/warden/internal/spec"
)

// StateMachine is Component C: it reacts to the events the rest of the
// engine publishes and drives each handle's transitions in Repository,
// per the table in spec §4.3. It never issues an outbound spawn or
// signal itself — those stay with D/H — it only decides and records
// state.
type StateMachine struct {
	repo   *Repository
	health *health.Coordinator
	logger logging.Logger
}

// NewStateMachine creates a StateMachine driving repo's transitions,
// registering/unregistering health probes via coord as services reach
// the point a probe is meaningful.
func NewStateMachine(repo *Repository, coord *health.Coordinator, logger logging.Logger) *StateMachine {
	return &StateMachine{repo: repo, health: coord, logger: logger}
}

// Run consumes sub until it is closed, dispatching each event to the
// relevant handler. Intended to run in its own goroutine.
func (m *StateMachine) Run(sub *eventbus.Subscription) {
	for evt := range sub.Events() {
		switch e := evt.(type) {
		case eventbus.ProcessSpawned:
			m.onProcessSpawned(e)
		case eventbus.ProcessExited:
			m.onProcessExited(e)
		case eventbus.HealthCheckResult:
			m.onHealthCheckResult(e)
		case eventbus.OrphanReaped:
			m.onOrphanReaped(e)
		case eventbus.ServiceStateChanged:
			m.onServiceStateChanged(e)
		}
	}
}

// onProcessSpawned records the pid (Starting -> Started) and, when the
// service has no health probe configured, immediately declares readiness
// (Started -> Running) per spec §4.3's readiness policy.
func (m *StateMachine) onProcessSpawned(e eventbus.ProcessSpawned) {
	svc, ok := m.repo.Spec(e.Name)
	if !ok {
		return
	}

	m.repo.Decide(e.Name, func(h *ServiceHandle) bool {
		if h.Status != eventbus.Starting {
			return false
		}
		h.PID = e.PID
		h.Status = eventbus.Started
		return true
	})

	if svc.Healthiness.Configured {
		m.health.Register(e.Name, svc.Healthiness)
		return
	}

	// No probe: readiness is immediate.
	m.repo.Decide(e.Name, func(h *ServiceHandle) bool {
		if h.Status != eventbus.Started {
			return false
		}
		h.StartAttempts = 0
		h.ConsecutiveUnhealthy = 0
		h.ReachedRunning = true
		h.Status = eventbus.Running
		return true
	})
}

// onProcessExited classifies the exit against the service's failure
// policy and applies the Started/Running/InKilling rows of the
// transition table.
func (m *StateMachine) onProcessExited(e eventbus.ProcessExited) {
	svc, ok := m.repo.Spec(e.Name)
	if !ok {
		return
	}
	m.health.Unregister(e.Name)

	success := svc.Failure.IsSuccessfulExit(e.ExitCode)

	_, to, transitioned := m.repo.Decide(e.Name, func(h *ServiceHandle) bool {
		switch h.Status {
		case eventbus.InKilling:
			h.PID = 0
			h.Status = eventbus.FinishedSuccess
			return true
		case eventbus.Started, eventbus.Running:
			h.PID = 0
			if success {
				h.Status = eventbus.Success
			} else {
				h.Status = eventbus.Failed
			}
			return true
		default:
			return false
		}
	})
	if !transitioned {
		return
	}

	if m.logger != nil {
		eventType := "process_exited_ok"
		if to == eventbus.Failed {
			eventType = "process_exited_failed"
		}
		m.logger.Info(e.Name, eventType, "child exited", map[string]string{
			"exit_code": strconv.Itoa(e.ExitCode),
		})
	}
}

// onHealthCheckResult applies Healthy (readiness / counter reset) and
// Unhealthy (already gated to max_failed by the coordinator, so any
// Unhealthy here fails the service immediately) per spec §4.6.
func (m *StateMachine) onHealthCheckResult(e eventbus.HealthCheckResult) {
	if e.Result == eventbus.Healthy {
		m.repo.Decide(e.Name, func(h *ServiceHandle) bool {
			switch h.Status {
			case eventbus.Started:
				h.StartAttempts = 0
				h.ConsecutiveUnhealthy = 0
				h.ReachedRunning = true
				h.Status = eventbus.Running
				return true
			case eventbus.Running:
				h.ConsecutiveUnhealthy = 0
				return true
			default:
				return false
			}
		})
		return
	}

	// Unhealthy: the coordinator has already counted consecutive
	// failures past max_failed before emitting this.
	m.repo.Decide(e.Name, func(h *ServiceHandle) bool {
		if h.Status != eventbus.Running {
			return false
		}
		h.ConsecutiveUnhealthy++
		h.PID = 0
		h.Status = eventbus.Failed
		return true
	})
}

func (m *StateMachine) onOrphanReaped(e eventbus.OrphanReaped) {
	if m.logger != nil {
		m.logger.Debug("", "orphan_reaped", "reaped an orphaned descendant", map[string]string{
			"pid": strconv.Itoa(e.PID),
		})
	}
}

// onServiceStateChanged applies the restart-policy decision of spec
// §4.3 once a handle reaches Success or Failed: either re-arm to
// Initial (subject to strategy and attempt cap) or settle into the
// matching terminal state, which also propagates the failure policy.
func (m *StateMachine) onServiceStateChanged(e eventbus.ServiceStateChanged) {
	if e.To != eventbus.Success && e.To != eventbus.Failed {
		return
	}
	svc, ok := m.repo.Spec(e.Name)
	if !ok {
		return
	}

	var reachedTerminal eventbus.State
	_, _, transitioned := m.repo.Decide(e.Name, func(h *ServiceHandle) bool {
		if h.Status != e.To {
			return false // stale: something else has already moved this handle on
		}
		if shouldRestart(svc, h) {
			h.ReachedRunning = false
			h.ConsecutiveUnhealthy = 0
			h.Status = eventbus.Initial
			return true
		}
		if h.Status == eventbus.Success {
			h.Status = eventbus.FinishedSuccess
		} else {
			h.Status = eventbus.FinishedFailed
		}
		reachedTerminal = h.Status
		return true
	})
	if !transitioned || reachedTerminal != eventbus.FinishedFailed {
		return
	}

	propagateFailure(m.repo, e.Name, svc)
}

// shouldRestart implements spec §4.3's restart-policy decision. h is
// read (never mutated) under the handle's own lock by the caller.
func shouldRestart(svc spec.ServiceSpec, h *ServiceHandle) bool {
	r := svc.Restart
	withinCap := r.MaxAttempts == 0 || h.StartAttempts < r.MaxAttempts

	switch r.Strategy {
	case spec.RestartAlways:
		return withinCap
	case spec.RestartOnFailure:
		return h.Status == eventbus.Failed && withinCap
	case spec.RestartNever:
		// "Failing too quickly": the service never reached Running during
		// this attempt run, and a cap is configured with room left.
		return h.Status == eventbus.Failed && !h.ReachedRunning && r.MaxAttempts > 0 && h.StartAttempts < r.MaxAttempts
	default:
		return false
	}
}

// propagateFailure applies spec §4.3's failure-strategy propagation once
// a handle settles into FinishedFailed, plus die_if_failed on every
// other service naming it as a prerequisite.
func propagateFailure(repo *Repository, name string, svc spec.ServiceSpec) {
	switch svc.Failure.Strategy {
	case spec.FailureKillDependents:
		for _, dependent := range repo.Dependents(name) {
			repo.bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.FailurePolicyShutdown, Scope: dependent})
		}
	case spec.FailureShutdown:
		repo.bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.FailurePolicyShutdown})
	}

	for _, dependent := range repo.DependentsNaming(name) {
		repo.bus.Publish(eventbus.ShutdownInitiated{Reason: eventbus.FailurePolicyShutdown, Scope: dependent})
	}
}
