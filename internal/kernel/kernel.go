// Package kernel provides OS abstraction for the supervision engine:
// signal delivery, zombie reaping, process-group control, and credential
// resolution, behind the narrow interfaces in internal/kernel/ports.
package kernel

import (
	"github.com/vireo-systems/warden/internal/kernel/adapters"
	"github.com/vireo-systems/warden/internal/kernel/ports"
)

// Kernel aggregates the platform adapters the engine's components depend
// on (Signal & Reaper Loop, Process Runner).
type Kernel struct {
	Signals     ports.SignalManager
	Credentials ports.CredentialManager
	Process     ports.ProcessControl
	Reaper      ports.ZombieReaper
}

// New creates a Kernel with the current platform's adapters wired in.
func New() *Kernel {
	return &Kernel{
		Signals:     adapters.NewUnixSignalManager(),
		Credentials: adapters.NewUnixCredentialManager(),
		Process:     adapters.NewUnixProcessControl(),
		Reaper:      adapters.NewUnixZombieReaper(),
	}
}
