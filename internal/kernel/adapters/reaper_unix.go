//go:build unix

package adapters

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/vireo-systems/warden/internal/kernel/ports"
)

// UnixZombieReaper implements ports.ZombieReaper with a single Wait4(-1,
// WNOHANG) sweep per call, matching spec §4.5's reap loop.
type UnixZombieReaper struct{}

// NewUnixZombieReaper creates a new ZombieReaper.
func NewUnixZombieReaper() *UnixZombieReaper {
	return &UnixZombieReaper{}
}

// ReapOnce reaps every currently-exited child without blocking.
func (r *UnixZombieReaper) ReapOnce() []ports.Reaped {
	var reaped []ports.Reaped
	var status unix.WaitStatus
	for {
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
		if err != nil || pid <= 0 {
			break
		}
		reaped = append(reaped, ports.Reaped{
			PID:      pid,
			ExitCode: exitCodeOf(status),
			Signaled: status.Signaled(),
		})
	}
	return reaped
}

// exitCodeOf mirrors a POSIX shell's $?: a signalled child reports
// 128+signal, an exited child reports its exit status.
func exitCodeOf(status unix.WaitStatus) int {
	if status.Signaled() {
		return 128 + int(status.Signal())
	}
	return status.ExitStatus()
}

// IsPID1 reports whether the current process is PID 1.
func (r *UnixZombieReaper) IsPID1() bool {
	return os.Getpid() == 1
}
