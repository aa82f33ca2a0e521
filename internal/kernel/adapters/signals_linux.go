//go:build linux

package adapters

import "golang.org/x/sys/unix"

func init() {
	sm := NewUnixSignalManager()
	sm.AddSignal("SIGPWR", unix.SIGPWR)
	sm.AddSignal("SIGSTKFLT", unix.SIGSTKFLT)
}

// SetSubreaper marks the current process a child subreaper via
// prctl(PR_SET_CHILD_SUBREAPER), so orphaned descendants reparent here
// instead of true init (Linux >= 3.4). Used when warden supervises as a
// non-PID-1 process but still wants to reliably reap its whole tree.
func (m *UnixSignalManager) SetSubreaper() error {
	return unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)
}
