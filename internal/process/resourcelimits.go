package process

import "github.com/vireo-systems/warden/internal/spec"

// LimitApplier is the external collaborator named in spec §1/§5: an
// interface taking a process id and a limit bundle, applied to the
// child's process group immediately after spawn, before the service may
// transition to Running. Implementations are best-effort — a failure to
// apply limits is logged by the caller and never fails the spawn.
type LimitApplier interface {
	Apply(pid int, limits spec.ResourceLimits) error
}

// NoopLimitApplier is used when no limit backend is wired (e.g. non-Linux
// platforms, or resource_limits left unset on every service).
type NoopLimitApplier struct{}

func (NoopLimitApplier) Apply(int, spec.ResourceLimits) error { return nil }

// hasLimits reports whether limits carries anything to apply.
func hasLimits(limits spec.ResourceLimits) bool {
	return limits.CPUFraction > 0 || limits.MemoryBytes > 0 || limits.PIDs > 0
}
