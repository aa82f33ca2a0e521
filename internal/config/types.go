// Package config loads ServiceSpec values and engine settings from YAML
// service files, CLI flags, and the environment. It is the external
// collaborator named in spec §1 for service-definition and engine-config
// parsing; the supervision engine never reads YAML or flags directly.
package config

import "time"

// serviceFile is the on-disk shape of one service definition. Field names
// mirror the data model: name defaults to the file's basename (minus
// extension) when omitted.
type serviceFile struct {
	Name             string           `yaml:"name"`
	Command          string           `yaml:"command"`
	WorkingDirectory string           `yaml:"working_directory"`
	User             string           `yaml:"user"`
	StartDelay       Duration         `yaml:"start_delay"`
	StartAfter       []string         `yaml:"start_after"`
	StdoutSink       sinkFile         `yaml:"stdout_sink"`
	StderrSink       sinkFile         `yaml:"stderr_sink"`
	Environment      envFile          `yaml:"environment"`
	Restart          restartFile      `yaml:"restart"`
	Healthiness      *healthinessFile `yaml:"healthiness"`
	Failure          failureFile      `yaml:"failure"`
	Termination      terminationFile  `yaml:"termination"`
	SignalRewrite    map[int]int      `yaml:"signal_rewrite"`
	ResourceLimits   *resourceLimits  `yaml:"resource_limits"`
}

// sinkFile is the YAML shape of stdout_sink/stderr_sink. kind is one of
// "inherit-stdout", "inherit-stderr", or "file"; path/rotate_size/
// timestamp_suffix only apply to "file". An empty kind defaults per-field
// (stdout -> inherit-stdout, stderr -> inherit-stderr) at conversion time.
type sinkFile struct {
	Kind            string `yaml:"kind"`
	Path            string `yaml:"path"`
	RotateSize      string `yaml:"rotate_size"`
	TimestampSuffix bool   `yaml:"timestamp_suffix"`
}

type envFile struct {
	KeepEnv    bool              `yaml:"keep_env"`
	ReExport   []string          `yaml:"re_export"`
	Additional map[string]string `yaml:"additional"`
}

type restartFile struct {
	Strategy    string   `yaml:"strategy"`
	Backoff     Duration `yaml:"backoff"`
	MaxAttempts int      `yaml:"max_attempts"`
}

type healthinessFile struct {
	HTTPEndpoint  string `yaml:"http_endpoint"`
	ReadinessFile string `yaml:"readiness_file"`
	Command       string `yaml:"command"`
	MaxFailed     int    `yaml:"max_failed"`
}

type failureFile struct {
	SuccessfulExitCodes []int  `yaml:"successful_exit_codes"`
	Strategy            string `yaml:"strategy"`
}

type terminationFile struct {
	Signal      string   `yaml:"signal"`
	Wait        Duration `yaml:"wait"`
	DieIfFailed []string `yaml:"die_if_failed"`
}

type resourceLimits struct {
	CPUFraction float64 `yaml:"cpu_fraction"`
	MemorySize  string  `yaml:"memory"`
	PIDs        int     `yaml:"pids"`
}

// Duration is a wrapper around time.Duration that accepts Go duration
// strings ("500ms", "1m30s") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
