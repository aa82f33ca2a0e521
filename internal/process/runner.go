// Package process is the Process Runner (Component D): it composes a
// service's environment, redirects stdio, applies credentials, creates a
// new process group, forks/execs, and applies resource limits right
// after spawn. Between fork and exec only async-signal-safe operations
// run (spec §4.4) — env composition and argv assembly happen before
// Start is ever called.
package process

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/vireo-systems/warden/internal/kernel"
	"github.com/vireo-systems/warden/internal/logging"
	"github.com/vireo-systems/warden/internal/spec"
	"github.com/vireo-systems/warden/internal/wardenerr"
)

// Handle is a running child process and everything needed to signal,
// wait on, and clean it up.
type Handle struct {
	Name   string
	Cmd    *exec.Cmd
	PID    int
	stdout io.Closer
	stderr io.Closer
}

// Runner spawns services on behalf of the engine.
type Runner struct {
	kernel  *kernel.Kernel
	limiter LimitApplier
	logger  logging.Logger
}

// NewRunner creates a Runner using k for OS operations, limiter to apply
// resource_limits (NoopLimitApplier if none wired), and logger for
// spawn/limit diagnostics.
func NewRunner(k *kernel.Kernel, limiter LimitApplier, logger logging.Logger) *Runner {
	if limiter == nil {
		limiter = NoopLimitApplier{}
	}
	return &Runner{kernel: k, limiter: limiter, logger: logger}
}

// Spawn starts svc's command in a fresh process group, with env, stdio,
// credentials, and resource limits applied per svc's policies.
func (r *Runner) Spawn(svc spec.ServiceSpec) (*Handle, error) {
	parts := strings.Fields(svc.Command)
	if len(parts) == 0 {
		return nil, wardenerr.Spawn("process.Spawn", fmt.Errorf("%s: empty command", svc.Name))
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	if svc.WorkingDirectory != "" {
		cmd.Dir = svc.WorkingDirectory
	}
	cmd.Env = ComposeEnv(svc.Environment, os.Environ(), osLookupEnv)

	stdout, err := logging.OpenSink(svc.StdoutSink)
	if err != nil {
		return nil, wardenerr.Spawn("process.Spawn", fmt.Errorf("%s: stdout sink: %w", svc.Name, err))
	}
	cmd.Stdout = stdout

	stderr, err := logging.OpenSink(svc.StderrSink)
	if err != nil {
		stdout.Close()
		return nil, wardenerr.Spawn("process.Spawn", fmt.Errorf("%s: stderr sink: %w", svc.Name, err))
	}
	cmd.Stderr = stderr

	r.kernel.Process.SetProcessGroup(cmd)

	if svc.User != "" {
		uid, gid, err := r.kernel.Credentials.ResolveCredentials(svc.User)
		if err != nil {
			stdout.Close()
			stderr.Close()
			return nil, wardenerr.Spawn("process.Spawn", fmt.Errorf("%s: resolving credentials: %w", svc.Name, err))
		}
		if err := r.kernel.Credentials.ApplyCredentials(cmd, uid, gid); err != nil {
			stdout.Close()
			stderr.Close()
			return nil, wardenerr.Spawn("process.Spawn", fmt.Errorf("%s: applying credentials: %w", svc.Name, err))
		}
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, wardenerr.Spawn("process.Spawn", fmt.Errorf("%s: %w", svc.Name, err))
	}

	handle := &Handle{
		Name:   svc.Name,
		Cmd:    cmd,
		PID:    cmd.Process.Pid,
		stdout: stdout,
		stderr: stderr,
	}

	if hasLimits(svc.ResourceLimits) {
		if err := r.limiter.Apply(handle.PID, svc.ResourceLimits); err != nil && r.logger != nil {
			r.logger.Warn(svc.Name, "resource_limits_failed", err.Error(), nil)
		}
	}

	return handle, nil
}

// Release closes the stdio sinks a Handle opened. Called once the
// process has exited and its state has been recorded.
func (h *Handle) Release() {
	if h.stdout != nil {
		h.stdout.Close()
	}
	if h.stderr != nil {
		h.stderr.Close()
	}
}
