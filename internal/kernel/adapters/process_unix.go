//go:build unix

package adapters

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/vireo-systems/warden/internal/kernel/ports"
)

// UnixProcessControl implements ports.ProcessControl for Unix systems.
type UnixProcessControl struct{}

// NewUnixProcessControl creates a new ProcessControl.
func NewUnixProcessControl() *UnixProcessControl {
	return &UnixProcessControl{}
}

// SetProcessGroup configures a command to run in its own process group, so
// a later signal to -pgid reaches the whole tree it spawns.
func (m *UnixProcessControl) SetProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// GetProcessGroup returns the process group ID for a running pid.
func (m *UnixProcessControl) GetProcessGroup(pid int) (int, error) {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		return 0, ports.WrapError("getpgid", err)
	}
	return pgid, nil
}

// KillGroup sends SIGKILL to the process group.
func (m *UnixProcessControl) KillGroup(pgid int) error {
	if err := unix.Kill(-pgid, unix.SIGKILL); err != nil {
		return ports.WrapError("kill -pgid SIGKILL", err)
	}
	return nil
}
