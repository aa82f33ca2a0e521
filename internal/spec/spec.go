// Package spec defines the immutable per-service definitions the supervision
// engine consumes. Values here are produced by an external collaborator
// (internal/config) and never mutated after load.
package spec

import "time"

// RestartStrategy controls whether a service is restarted after it reaches
// a terminal run (Success or Failed).
type RestartStrategy int

const (
	// RestartAlways restarts the service regardless of the exit outcome,
	// subject to the attempt cap.
	RestartAlways RestartStrategy = iota
	// RestartOnFailure restarts only when the service exits with failure.
	RestartOnFailure
	// RestartNever never restarts, except for the "failing too quickly"
	// exception described in spec.md §4.3.
	RestartNever
)

// String returns the lowercase strategy name.
func (s RestartStrategy) String() string {
	switch s {
	case RestartAlways:
		return "always"
	case RestartOnFailure:
		return "on-failure"
	case RestartNever:
		return "never"
	default:
		return "unknown"
	}
}

// FailureStrategy controls how a service's terminal failure propagates to
// the rest of the engine.
type FailureStrategy int

const (
	// FailureIgnore does not propagate the failure.
	FailureIgnore FailureStrategy = iota
	// FailureKillDependents shuts down every service whose start_after
	// chain transitively includes the failed service.
	FailureKillDependents
	// FailureShutdown triggers an engine-wide shutdown.
	FailureShutdown
)

// String returns the lowercase strategy name.
func (s FailureStrategy) String() string {
	switch s {
	case FailureIgnore:
		return "ignore"
	case FailureKillDependents:
		return "kill-dependents"
	case FailureShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// SinkKind identifies how a service's stdout or stderr stream is handled.
type SinkKind int

const (
	// SinkInheritStdout redirects the stream to the supervisor's own stdout.
	SinkInheritStdout SinkKind = iota
	// SinkInheritStderr redirects the stream to the supervisor's own stderr.
	SinkInheritStderr
	// SinkFile appends the stream to a file, optionally rotating it.
	SinkFile
)

// Sink describes one stdout/stderr destination.
type Sink struct {
	// Kind selects inherit-stdout, inherit-stderr, or file.
	Kind Kind
	// Path is the destination file path when Kind == SinkFile.
	Path string
	// RotateSize rotates the file once it reaches this many bytes; zero
	// disables rotation.
	RotateSize int64
	// TimestampSuffix appends a timestamp to the rotated filename.
	TimestampSuffix bool
}

// Kind is an alias kept for readability at call sites (spec.Sink{Kind: spec.SinkFile, ...}).
type Kind = SinkKind

// EnvPolicy composes the child's environment from three layers, applied in
// order: keep_env, then re_export, then additional (which wins on conflict).
type EnvPolicy struct {
	// KeepEnv passes through the supervisor's own environment verbatim.
	KeepEnv bool
	// ReExport re-adds specific keys from the supervisor's environment even
	// when KeepEnv is false.
	ReExport []string
	// Additional sets or overrides keys last.
	Additional map[string]string
}

// RestartPolicy bundles the restart strategy with its backoff parameters.
type RestartPolicy struct {
	Strategy RestartStrategy
	// Backoff is multiplied by the attempt number and added to StartDelay.
	Backoff time.Duration
	// MaxAttempts caps the number of spawn attempts per non-terminal run.
	// Zero means unlimited under Always and OnFailure; under Never it
	// disables the failing-too-quickly retry (see SPEC_FULL.md's
	// resolution of the Open Question on max_attempts==0).
	MaxAttempts int
}

// HealthinessPolicy configures the optional readiness/liveness probe.
type HealthinessPolicy struct {
	// Configured is false when the service has no health probe at all; in
	// that case readiness is declared immediately on ProcessSpawned.
	Configured    bool
	HTTPEndpoint  string
	ReadinessFile string
	Command       string
	// MaxFailed is the number of consecutive Unhealthy results that fail
	// the service. Defaults to 3 when Configured and zero.
	MaxFailed int
}

// FailurePolicy configures exit-code classification and propagation.
type FailurePolicy struct {
	SuccessfulExitCodes map[int]struct{}
	Strategy            FailureStrategy
}

// TerminationPolicy configures how a service is asked, then forced, to stop.
type TerminationPolicy struct {
	Signal      string // e.g. "SIGTERM"
	Wait        time.Duration
	DieIfFailed []string
}

// ServiceSpec is the immutable, validated definition of one supervised
// service. See spec.md §3.
type ServiceSpec struct {
	Name             string
	Command          string
	WorkingDirectory string
	User             string
	StartDelay       time.Duration
	StartAfter       []string
	StdoutSink       Sink
	StderrSink       Sink
	Environment      EnvPolicy
	Restart          RestartPolicy
	Healthiness      HealthinessPolicy
	Failure          FailurePolicy
	Termination      TerminationPolicy
	// SignalRewrite maps a signal number the engine wants to send to the
	// signal number that is actually delivered (spec.md §4.4).
	SignalRewrite  map[int]int
	ResourceLimits ResourceLimits
}

// ResourceLimits bundles the optional cgroup-like limits applied right
// after spawn (spec.md §5). All fields are optional; zero means unset.
type ResourceLimits struct {
	CPUFraction float64 // e.g. 0.5 == half a core
	MemoryBytes int64
	PIDs        int
}

// IsSuccessfulExit reports whether code is a configured success code. The
// default (when the set is empty) is that only 0 is successful.
func (f FailurePolicy) IsSuccessfulExit(code int) bool {
	if len(f.SuccessfulExitCodes) == 0 {
		return code == 0
	}
	_, ok := f.SuccessfulExitCodes[code]
	return ok
}
