//go:build !linux

package bootstrap

import "github.com/vireo-systems/warden/internal/process"

func newPlatformLimitApplier() process.LimitApplier {
	return process.NoopLimitApplier{}
}
