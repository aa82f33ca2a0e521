//go:build linux

// Package cgroup applies per-service resource limits (spec.md §5) via a
// dedicated cgroup v2 leaf under the supervisor's own cgroup, one per
// spawned process. It mirrors the read-side conventions of the teacher's
// observability cgroup package (DefaultCgroupPath, v2-only) but is the
// write side: creating the leaf, writing cpu.max/memory.max/pids.max, and
// moving the pid in.
package cgroup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vireo-systems/warden/internal/spec"
)

// DefaultCgroupPath is the default cgroup v2 mount point.
const DefaultCgroupPath = "/sys/fs/cgroup"

// leafPrefix names every leaf this applier creates, so a crash-restart can
// find and clean up its own stale leaves without touching unrelated ones.
const leafPrefix = "warden-"

// dirPerm is the mode new cgroup leaves are created with; the kernel
// enforces its own cgroupfs permissions regardless.
const dirPerm = 0o755

// Applier implements process.LimitApplier against cgroup v2, creating one
// leaf cgroup per spawned pid under base (DefaultCgroupPath by default).
type Applier struct {
	base string
}

// New creates an Applier rooted at base. An empty base uses
// DefaultCgroupPath.
func New(base string) *Applier {
	if base == "" {
		base = DefaultCgroupPath
	}
	return &Applier{base: base}
}

// Apply creates a leaf cgroup for pid, writes the configured limits, and
// moves pid into it. Best-effort by contract (spec §5): every error is
// returned to the caller, which logs and continues rather than failing
// the spawn.
func (a *Applier) Apply(pid int, limits spec.ResourceLimits) error {
	if limits.CPUFraction <= 0 && limits.MemoryBytes <= 0 && limits.PIDs <= 0 {
		return nil
	}

	leaf := filepath.Join(a.base, fmt.Sprintf("%s%d", leafPrefix, pid))
	if err := os.MkdirAll(leaf, dirPerm); err != nil {
		return fmt.Errorf("cgroup: create leaf: %w", err)
	}

	if limits.CPUFraction > 0 {
		if err := writeCPUMax(leaf, limits.CPUFraction); err != nil {
			return err
		}
	}
	if limits.MemoryBytes > 0 {
		if err := writeLimitFile(leaf, "memory.max", strconv.FormatInt(limits.MemoryBytes, 10)); err != nil {
			return err
		}
	}
	if limits.PIDs > 0 {
		if err := writeLimitFile(leaf, "pids.max", strconv.Itoa(limits.PIDs)); err != nil {
			return err
		}
	}

	if err := writeLimitFile(leaf, "cgroup.procs", strconv.Itoa(pid)); err != nil {
		return fmt.Errorf("cgroup: move pid into leaf: %w", err)
	}
	return nil
}

// cpuPeriodUsec is the period cpu.max's quota is expressed against; 100ms
// is the kernel's own default period.
const cpuPeriodUsec = 100000

func writeCPUMax(leaf string, fraction float64) error {
	quota := int64(fraction * cpuPeriodUsec)
	if quota < 1 {
		quota = 1
	}
	value := fmt.Sprintf("%d %d", quota, cpuPeriodUsec)
	return writeLimitFile(leaf, "cpu.max", value)
}

func writeLimitFile(leaf, name, value string) error {
	path := filepath.Join(leaf, name)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("cgroup: write %s: %w", name, err)
	}
	return nil
}

// Cleanup removes the leaf cgroup created for pid, once its process has
// exited and the kernel has emptied cgroup.procs. Safe to call even if no
// leaf was ever created.
func (a *Applier) Cleanup(pid int) error {
	leaf := filepath.Join(a.base, fmt.Sprintf("%s%d", leafPrefix, pid))
	err := os.Remove(leaf)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cgroup: remove leaf: %w", err)
	}
	return nil
}
