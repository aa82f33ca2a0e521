// Command warden is a PID-1-capable process supervisor: it spawns,
// health-checks, restarts, and shuts down the services named by its
// service files, and answers status/control queries over a per-process
// UNIX domain socket. See internal/config for the on-disk service
// definition format.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/vireo-systems/warden/internal/bootstrap"
	"github.com/vireo-systems/warden/internal/config"
	"github.com/vireo-systems/warden/internal/control"
)

var version = "dev"

// servicesPaths collects repeated --services-path flags, merged in the
// order given (spec §6).
type servicesPaths []string

func (s *servicesPaths) String() string { return strings.Join(*s, ",") }

func (s *servicesPaths) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "status":
			return runStatus(args[1:])
		case "start", "stop":
			return runChange(args[0], args[1:])
		}
	}
	return runSupervise(args)
}

func runSupervise(args []string) int {
	fs := flag.NewFlagSet("warden", flag.ContinueOnError)
	var paths servicesPaths
	fs.Var(&paths, "services-path", "path to a service file or directory (repeatable)")
	timeoutSigkill := fs.Duration("timeout-before-sigkill", 0, "termination.wait for the ad-hoc `-- command` service")
	udsFolder := fs.String("uds-folder-path", "", "directory the control socket is created in")
	showVersion := fs.Bool("version", false, "print version and exit")
	sampleService := fs.Bool("sample-service", false, "print a fully commented sample service file and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Println("warden " + version)
		return 0
	}
	if *sampleService {
		fmt.Print(config.SampleService)
		return 0
	}

	cfg := config.DefaultEngineConfig()
	if len(paths) > 0 {
		cfg.ServicesPaths = []string(paths)
	}
	if *timeoutSigkill > 0 {
		cfg.TimeoutBeforeSigkill = *timeoutSigkill
	}
	if *udsFolder != "" {
		cfg.UDSFolderPath = *udsFolder
	}
	if dashdash := fs.Args(); len(dashdash) > 0 {
		cfg.AdHocCommand = dashdash
	}
	cfg = cfg.ApplyEnv(nil)

	app, err := bootstrap.InitializeApp(bootstrap.Params{Engine: cfg})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		return 101
	}
	defer func() { _ = app.Control.Close() }()

	go app.Control.Serve()

	return app.Engine.Run()
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("warden status", flag.ContinueOnError)
	udsFolder := fs.String("uds-folder-path", config.DefaultEngineConfig().UDSFolderPath, "directory the control socket was created in")
	pid := fs.Int("pid", 0, "pid of the warden process to address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	service := ""
	if rest := fs.Args(); len(rest) > 0 {
		service = rest[0]
	}

	client, err := control.Dial(control.SocketPath(*udsFolder, *pid))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()

	statuses, err := client.Status(service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		return 1
	}
	for _, s := range statuses {
		fmt.Printf("%-20s %-12s pid=%d attempts=%d\n", s.Name, s.State, s.PID, s.StartAttempts)
	}
	return 0
}

func runChange(verb string, args []string) int {
	fs := flag.NewFlagSet("warden "+verb, flag.ContinueOnError)
	udsFolder := fs.String("uds-folder-path", config.DefaultEngineConfig().UDSFolderPath, "directory the control socket was created in")
	pid := fs.Int("pid", 0, "pid of the warden process to address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintf(os.Stderr, "warden %s: a service name is required\n", verb)
		return 2
	}

	action := control.ActionStart
	if verb == "stop" {
		action = control.ActionStop
	}

	client, err := control.Dial(control.SocketPath(*udsFolder, *pid))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()

	if err := client.Change(rest[0], action); err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		return 1
	}
	return 0
}
