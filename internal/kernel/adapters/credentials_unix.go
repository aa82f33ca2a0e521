//go:build unix

package adapters

import (
	"fmt"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/vireo-systems/warden/internal/kernel/ports"
)

// UnixCredentialManager implements ports.CredentialManager for Unix systems.
type UnixCredentialManager struct{}

// NewUnixCredentialManager creates a new CredentialManager.
func NewUnixCredentialManager() *UnixCredentialManager {
	return &UnixCredentialManager{}
}

// LookupUser looks up a user by name or numeric UID.
func (m *UnixCredentialManager) LookupUser(nameOrID string) (*ports.User, error) {
	u, err := user.Lookup(nameOrID)
	if err != nil {
		u, err = user.LookupId(nameOrID)
		if err != nil {
			return nil, ports.WrapError("lookup user", ports.ErrUserNotFound)
		}
	}

	uid, _ := strconv.ParseUint(u.Uid, 10, 32)
	gid, _ := strconv.ParseUint(u.Gid, 10, 32)

	return &ports.User{
		UID:      uint32(uid),
		GID:      uint32(gid),
		Username: u.Username,
		HomeDir:  u.HomeDir,
	}, nil
}

// ResolveCredentials resolves a username (or numeric uid) to a uid/gid
// pair, falling back to the user's primary group.
func (m *UnixCredentialManager) ResolveCredentials(username string) (uid, gid uint32, err error) {
	if username == "" {
		return 0, 0, nil
	}

	u, lookupErr := m.LookupUser(username)
	if lookupErr == nil {
		return u.UID, u.GID, nil
	}

	id, parseErr := strconv.ParseUint(username, 10, 32)
	if parseErr != nil {
		return 0, 0, fmt.Errorf("looking up user %s: %w", username, lookupErr)
	}
	return uint32(id), uint32(id), nil
}

// ApplyCredentials sets the uid/gid a command will run as.
func (m *UnixCredentialManager) ApplyCredentials(cmd *exec.Cmd, uid, gid uint32) error {
	if uid == 0 && gid == 0 {
		return nil
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uid, Gid: gid}
	return nil
}
