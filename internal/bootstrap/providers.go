package bootstrap

import (
	"fmt"
	"os"

	"github.com/vireo-systems/warden/internal/config"
	"github.com/vireo-systems/warden/internal/control"
	"github.com/vireo-systems/warden/internal/kernel"
	"github.com/vireo-systems/warden/internal/logging"
	"github.com/vireo-systems/warden/internal/process"
	"github.com/vireo-systems/warden/internal/spec"
	"github.com/vireo-systems/warden/internal/supervisor"
)

// Params bundles the CLI-derived values the dependency graph needs that
// aren't themselves provided by a constructor — the boundary between
// cmd/warden's flag parsing and the wired object graph.
type Params struct {
	Engine config.EngineConfig
}

// ProvideServices loads and validates every service definition named by
// p, or a single ad-hoc one when p.Engine.AdHocCommand is set.
func ProvideServices(p Params) ([]spec.ServiceSpec, error) {
	if len(p.Engine.AdHocCommand) > 0 {
		return []spec.ServiceSpec{adHocSpec(p.Engine)}, nil
	}
	return config.LoadServices(p.Engine.ServicesPaths)
}

func adHocSpec(cfg config.EngineConfig) spec.ServiceSpec {
	command := ""
	for i, part := range cfg.AdHocCommand {
		if i > 0 {
			command += " "
		}
		command += part
	}
	return spec.ServiceSpec{
		Name:    "adhoc",
		Command: command,
		Environment: spec.EnvPolicy{
			KeepEnv: true,
		},
		Termination: spec.TerminationPolicy{
			Signal: "SIGTERM",
			Wait:   cfg.TimeoutBeforeSigkill,
		},
	}
}

// ProvideKernel constructs the OS abstraction layer.
func ProvideKernel() *kernel.Kernel {
	return kernel.New()
}

// ProvideLimitApplier selects the resource-limit backend. Linux gets the
// cgroup v2 adapter; other platforms fall back to a no-op, since spec §5
// marks resource limiting best-effort.
func ProvideLimitApplier() process.LimitApplier {
	return newPlatformLimitApplier()
}

// ProvideLogger builds a MultiLogger with a single console writer on stdout,
// at the level named by EngineConfig.LogLevel; spec §6 names WARDEN_LOG as
// its only source.
func ProvideLogger(p Params) logging.Logger {
	level := logging.ParseLevel(p.Engine.LogLevel)
	return logging.NewMultiLogger(level, logging.NewConsoleWriter(os.Stdout))
}

// ProvideEngine assembles the supervision engine over specs.
func ProvideEngine(specs []spec.ServiceSpec, k *kernel.Kernel, limiter process.LimitApplier, logger logging.Logger) *supervisor.Engine {
	return supervisor.New(specs, k, limiter, logger)
}

// ProvideControlServer builds (but does not start) the control endpoint
// bound to this process's PID, per spec §6.
func ProvideControlServer(p Params, e *supervisor.Engine, logger logging.Logger) *control.Server {
	path := control.SocketPath(p.Engine.UDSFolderPath, os.Getpid())
	return control.NewServer(e.Repo, e.Bus, path, logger)
}

// App is the fully wired object graph cmd/warden drives.
type App struct {
	Engine  *supervisor.Engine
	Control *control.Server
	Logger  logging.Logger
}

// NewApp is Wire's injector target: given the already-constructed pieces,
// bind them into one App and start the control endpoint listening (but
// not yet serving — the caller starts Serve once it is ready to block).
func NewApp(engine *supervisor.Engine, ctl *control.Server, logger logging.Logger) (*App, error) {
	if err := ctl.Listen(); err != nil {
		return nil, fmt.Errorf("bootstrap: control endpoint: %w", err)
	}
	return &App{Engine: engine, Control: ctl, Logger: logger}, nil
}
