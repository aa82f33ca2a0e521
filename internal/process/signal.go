package process

import (
	"fmt"
	"os"
	"syscall"

	"github.com/vireo-systems/warden/internal/kernel"
	"github.com/vireo-systems/warden/internal/wardenerr"
)

// Signaler delivers termination and rewritten signals to a running
// Handle's process group, using the kernel's SignalManager.
type Signaler struct {
	kernel *kernel.Kernel
}

// NewSignaler creates a Signaler using k to resolve and deliver signals.
func NewSignaler(k *kernel.Kernel) *Signaler {
	return &Signaler{kernel: k}
}

// Send delivers sig to h's process group, rewriting it first through
// rewrite (spec §4.4's signal_rewrite map) when a mapping exists.
func (s *Signaler) Send(h *Handle, sig os.Signal, rewrite map[int]int) error {
	pgid, err := s.kernel.Process.GetProcessGroup(h.PID)
	if err != nil {
		return wardenerr.SignalDelivery("process.Signal", fmt.Errorf("%s: %w", h.Name, err))
	}

	delivered := rewriteSignal(sig, rewrite)
	if err := s.kernel.Signals.ForwardToGroup(pgid, delivered); err != nil {
		return wardenerr.SignalDelivery("process.Signal", fmt.Errorf("%s: %w", h.Name, err))
	}
	return nil
}

// KillHard force-kills h's process group with SIGKILL, bypassing any
// rewrite table — used once the termination wait has elapsed.
func (s *Signaler) KillHard(h *Handle) error {
	pgid, err := s.kernel.Process.GetProcessGroup(h.PID)
	if err != nil {
		return wardenerr.SignalDelivery("process.KillHard", fmt.Errorf("%s: %w", h.Name, err))
	}
	if err := s.kernel.Process.KillGroup(pgid); err != nil {
		return wardenerr.SignalDelivery("process.KillHard", fmt.Errorf("%s: %w", h.Name, err))
	}
	return nil
}

// rewriteSignal maps sig through rewrite (spec §4.4's signal_rewrite,
// keyed by conventional Unix signal numbers) when sig is a concrete
// syscall.Signal, which is what os/signal delivers on Unix.
func rewriteSignal(sig os.Signal, rewrite map[int]int) os.Signal {
	if len(rewrite) == 0 {
		return sig
	}
	s, ok := sig.(syscall.Signal)
	if !ok {
		return sig
	}
	mapped, ok := rewrite[int(s)]
	if !ok {
		return sig
	}
	return syscall.Signal(mapped)
}
