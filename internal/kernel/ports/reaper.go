package ports

// Reaped describes one child reaped by a ReapOnce call.
type Reaped struct {
	PID      int
	ExitCode int
	// Signaled is true when the child terminated due to a signal rather
	// than an exit() call; ExitCode is then 128+signal, mirroring a
	// shell's $? after a signalled child.
	Signaled bool
}

// ZombieReaper drains exited children via a single non-blocking waitpid
// sweep, for use from the signal-and-reaper loop after observing SIGCHLD.
type ZombieReaper interface {
	// ReapOnce reaps every currently-exited child without blocking,
	// returning one Reaped per child collected.
	ReapOnce() []Reaped
	// IsPID1 reports whether the current process is PID 1, gating the
	// final "kill everything" sweep and the self-adoption of orphans.
	IsPID1() bool
}
