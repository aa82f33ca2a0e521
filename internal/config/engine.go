package config

import (
	"os"
	"strings"
	"time"
)

// EngineConfig holds the settings the engine needs that are not part of any
// one service: where to load definitions from, how long to wait before
// escalating to SIGKILL on shutdown, and where to place the control socket.
// Matches spec §6's "Engine configuration".
type EngineConfig struct {
	// ServicesPaths are the files/directories passed via repeated
	// --services-path flags, merged in the order given.
	ServicesPaths []string
	// TimeoutBeforeSigkill is the termination.wait given to the ad-hoc
	// service (the `-- command args…` form). Services loaded from files
	// take termination.wait from their own definition, defaulting to 10s.
	TimeoutBeforeSigkill time.Duration
	// UDSFolderPath is the directory the control socket is created in.
	UDSFolderPath string
	// LogLevel is read from WARDEN_LOG; one of debug, info, warn, error.
	LogLevel string
	// AdHocCommand, when non-empty, overrides file-based loading entirely
	// and runs a single synthetic service (the `-- command args…` form).
	AdHocCommand []string
}

// DefaultEngineConfig returns the engine defaults named in spec §6, before
// any flag or environment override is applied.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ServicesPaths:        []string{"/etc/horust/services"},
		TimeoutBeforeSigkill: 10 * time.Second,
		UDSFolderPath:        "/var/run/horust",
		LogLevel:             "info",
	}
}

// ApplyEnv layers environment-variable overrides onto cfg. Only WARDEN_LOG
// is consumed this way; everything else is CLI-only per spec §6.
func (c EngineConfig) ApplyEnv(lookup func(string) (string, bool)) EngineConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup("WARDEN_LOG"); ok && strings.TrimSpace(v) != "" {
		c.LogLevel = v
	}
	return c
}
