package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vireo-systems/warden/internal/spec"
	"github.com/vireo-systems/warden/internal/wardenerr"
)

// LoadServices loads ServiceSpec values from the given paths. Each path is
// either a single service file or a directory whose immediate *.yml/*.yaml
// files are merged, matching spec §6 ("directories merged; a single file
// path is also accepted"). The returned set is validated as a whole via
// spec.Validate before being returned.
func LoadServices(paths []string) ([]spec.ServiceSpec, error) {
	if len(paths) == 0 {
		return nil, wardenerr.Config("config.LoadServices", spec.ErrNoServices)
	}

	var files []string
	for _, p := range paths {
		found, err := resolveServiceFiles(p)
		if err != nil {
			return nil, wardenerr.Config("config.LoadServices", err)
		}
		files = append(files, found...)
	}

	specs := make([]spec.ServiceSpec, 0, len(files))
	for _, f := range files {
		s, err := loadServiceFile(f)
		if err != nil {
			return nil, wardenerr.Config(fmt.Sprintf("config.LoadServices(%s)", f), err)
		}
		specs = append(specs, s)
	}

	if err := spec.Validate(specs); err != nil {
		return nil, wardenerr.Config("config.LoadServices", err)
	}
	return specs, nil
}

// resolveServiceFiles expands a path into the concrete service files it
// names: itself if it is a regular file, or its immediate *.yml/*.yaml
// children (sorted, for deterministic load order) if it is a directory.
func resolveServiceFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// loadServiceFile reads, env-expands, and decodes a single service file,
// rejecting unknown fields, then converts it to a spec.ServiceSpec.
func loadServiceFile(path string) (spec.ServiceSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("reading service file: %w", err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("expanding %s: %w", path, err)
	}

	var sf serviceFile
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	if sf.Name == "" {
		base := filepath.Base(path)
		sf.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return convertServiceFile(sf)
}

func convertServiceFile(sf serviceFile) (spec.ServiceSpec, error) {
	stdout, err := convertSink(sf.StdoutSink, spec.SinkInheritStdout)
	if err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("service %q: stdout_sink: %w", sf.Name, err)
	}
	stderr, err := convertSink(sf.StderrSink, spec.SinkInheritStderr)
	if err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("service %q: stderr_sink: %w", sf.Name, err)
	}

	restartStrategy, err := parseRestartStrategy(sf.Restart.Strategy)
	if err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("service %q: %w", sf.Name, err)
	}

	failureStrategy, err := parseFailureStrategy(sf.Failure.Strategy)
	if err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("service %q: %w", sf.Name, err)
	}

	healthiness, err := convertHealthiness(sf.Healthiness)
	if err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("service %q: healthiness: %w", sf.Name, err)
	}

	resourceLimits, err := convertResourceLimits(sf.ResourceLimits)
	if err != nil {
		return spec.ServiceSpec{}, fmt.Errorf("service %q: resource_limits: %w", sf.Name, err)
	}

	successCodes := map[int]struct{}{}
	for _, c := range sf.Failure.SuccessfulExitCodes {
		successCodes[c] = struct{}{}
	}

	return spec.ServiceSpec{
		Name:             sf.Name,
		Command:          sf.Command,
		WorkingDirectory: sf.WorkingDirectory,
		User:             sf.User,
		StartDelay:       sf.StartDelay.Duration(),
		StartAfter:       sf.StartAfter,
		StdoutSink:       stdout,
		StderrSink:       stderr,
		Environment: spec.EnvPolicy{
			KeepEnv:    sf.Environment.KeepEnv,
			ReExport:   sf.Environment.ReExport,
			Additional: sf.Environment.Additional,
		},
		Restart: spec.RestartPolicy{
			Strategy:    restartStrategy,
			Backoff:     sf.Restart.Backoff.Duration(),
			MaxAttempts: sf.Restart.MaxAttempts,
		},
		Healthiness: healthiness,
		Failure: spec.FailurePolicy{
			SuccessfulExitCodes: successCodes,
			Strategy:            failureStrategy,
		},
		Termination: spec.TerminationPolicy{
			Signal:      defaultString(sf.Termination.Signal, "SIGTERM"),
			Wait:        defaultDuration(sf.Termination.Wait.Duration(), 10*time.Second),
			DieIfFailed: sf.Termination.DieIfFailed,
		},
		SignalRewrite:  sf.SignalRewrite,
		ResourceLimits: resourceLimits,
	}, nil
}

func convertSink(sf sinkFile, fallback spec.SinkKind) (spec.Sink, error) {
	kind := strings.ToLower(strings.TrimSpace(sf.Kind))
	switch kind {
	case "":
		return spec.Sink{Kind: fallback}, nil
	case "inherit-stdout":
		return spec.Sink{Kind: spec.SinkInheritStdout}, nil
	case "inherit-stderr":
		return spec.Sink{Kind: spec.SinkInheritStderr}, nil
	case "file":
		if sf.Path == "" {
			return spec.Sink{}, fmt.Errorf("file sink requires a path")
		}
		size, err := parseSize(sf.RotateSize)
		if err != nil {
			return spec.Sink{}, err
		}
		return spec.Sink{
			Kind:            spec.SinkFile,
			Path:            sf.Path,
			RotateSize:      size,
			TimestampSuffix: sf.TimestampSuffix,
		}, nil
	default:
		return spec.Sink{}, fmt.Errorf("unknown sink kind %q", sf.Kind)
	}
}

func parseRestartStrategy(s string) (spec.RestartStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return spec.RestartAlways, nil
	case "on-failure", "onfailure", "on_failure":
		return spec.RestartOnFailure, nil
	case "never":
		return spec.RestartNever, nil
	default:
		return 0, fmt.Errorf("unknown restart strategy %q", s)
	}
}

func parseFailureStrategy(s string) (spec.FailureStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return spec.FailureIgnore, nil
	case "kill-dependents", "killdependents", "kill_dependents":
		return spec.FailureKillDependents, nil
	case "shutdown":
		return spec.FailureShutdown, nil
	default:
		return 0, fmt.Errorf("unknown failure strategy %q", s)
	}
}

func convertHealthiness(hf *healthinessFile) (spec.HealthinessPolicy, error) {
	if hf == nil {
		return spec.HealthinessPolicy{Configured: false}, nil
	}
	maxFailed := hf.MaxFailed
	if maxFailed == 0 {
		maxFailed = 3
	}
	if maxFailed < 0 {
		return spec.HealthinessPolicy{}, fmt.Errorf("max_failed must not be negative")
	}
	if hf.HTTPEndpoint == "" && hf.ReadinessFile == "" && hf.Command == "" {
		return spec.HealthinessPolicy{}, fmt.Errorf("at least one of http_endpoint, readiness_file, command is required")
	}
	return spec.HealthinessPolicy{
		Configured:    true,
		HTTPEndpoint:  hf.HTTPEndpoint,
		ReadinessFile: hf.ReadinessFile,
		Command:       hf.Command,
		MaxFailed:     maxFailed,
	}, nil
}

func convertResourceLimits(rl *resourceLimits) (spec.ResourceLimits, error) {
	if rl == nil {
		return spec.ResourceLimits{}, nil
	}
	mem, err := parseSize(rl.MemorySize)
	if err != nil {
		return spec.ResourceLimits{}, err
	}
	return spec.ResourceLimits{
		CPUFraction: rl.CPUFraction,
		MemoryBytes: mem,
		PIDs:        rl.PIDs,
	}, nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func defaultDuration(d, fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}
	return d
}
