//go:build darwin || freebsd || netbsd || openbsd

package adapters

import "github.com/vireo-systems/warden/internal/kernel/ports"

// SetSubreaper has no equivalent outside Linux; BSD orphans always
// reparent to true init, which is sufficient when warden itself runs as
// PID 1 and unnecessary otherwise.
func (m *UnixSignalManager) SetSubreaper() error {
	return ports.ErrNotSupported
}
