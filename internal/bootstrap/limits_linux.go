//go:build linux

package bootstrap

import (
	"github.com/vireo-systems/warden/internal/process"
	"github.com/vireo-systems/warden/internal/resources/cgroup"
)

func newPlatformLimitApplier() process.LimitApplier {
	return cgroup.New("")
}
