//go:build unix

// Package adapters provides OS-specific implementations of kernel ports.
package adapters

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// UnixSignalManager implements ports.SignalManager on Unix systems using
// golang.org/x/sys/unix for the signal numbers and delivery primitives
// syscall doesn't expose portably (process-group kill, prctl).
type UnixSignalManager struct {
	signalMap map[string]os.Signal
}

// NewUnixSignalManager creates a new SignalManager with the common POSIX
// signal names registered. Platform-specific signals are added by init()
// in signals_linux.go/signals_bsd.go.
func NewUnixSignalManager() *UnixSignalManager {
	return &UnixSignalManager{
		signalMap: map[string]os.Signal{
			"SIGHUP":  unix.SIGHUP,
			"SIGINT":  unix.SIGINT,
			"SIGQUIT": unix.SIGQUIT,
			"SIGTERM": unix.SIGTERM,
			"SIGKILL": unix.SIGKILL,
			"SIGUSR1": unix.SIGUSR1,
			"SIGUSR2": unix.SIGUSR2,
			"SIGCHLD": unix.SIGCHLD,
			"SIGCONT": unix.SIGCONT,
			"SIGSTOP": unix.SIGSTOP,
		},
	}
}

// Notify registers for signal notifications.
func (m *UnixSignalManager) Notify(signals ...os.Signal) <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	return ch
}

// Stop stops signal notifications on the channel.
func (m *UnixSignalManager) Stop(ch chan<- os.Signal) {
	signal.Stop(ch)
}

// ForwardToGroup sends a signal to a process group. A negative pid is the
// kernel convention for "the whole group"; callers pass the positive pgid
// and this method negates it.
func (m *UnixSignalManager) ForwardToGroup(pgid int, sig os.Signal) error {
	unixSig, ok := sig.(unix.Signal)
	if !ok {
		return unix.EINVAL
	}
	return unix.Kill(-pgid, unixSig)
}

// IsTermSignal reports whether sig is one that initiates shutdown.
func (m *UnixSignalManager) IsTermSignal(sig os.Signal) bool {
	switch sig {
	case unix.SIGTERM, unix.SIGINT, unix.SIGQUIT:
		return true
	default:
		return false
	}
}

// SignalByName resolves a spec signal name ("SIGTERM") to an os.Signal.
func (m *UnixSignalManager) SignalByName(name string) (os.Signal, bool) {
	sig, ok := m.signalMap[name]
	return sig, ok
}

// AddSignal registers a platform-specific signal under name.
func (m *UnixSignalManager) AddSignal(name string, sig os.Signal) {
	m.signalMap[name] = sig
}
