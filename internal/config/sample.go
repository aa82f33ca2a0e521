package config

// SampleService is the document --sample-service writes to stdout: a fully
// commented ServiceSpec covering every field, so an operator can copy it
// into <services-path>/<name>.yaml and trim what they don't need.
const SampleService = `# name defaults to this file's basename (minus extension) when omitted.
name: my-service

# Shell-split argv for the child process.
command: /usr/bin/my-binary --flag value

working_directory: /
# user: nobody

# Wait this long after dependencies are ready before spawning.
start_delay: 0s

# Services that must reach Running (or FinishedSuccess) before this one starts.
start_after: []

stdout_sink:
  kind: file            # inherit-stdout | inherit-stderr | file
  path: /var/log/my-service.out.log
  rotate_size: 10MB
  timestamp_suffix: true

stderr_sink:
  kind: inherit-stderr

environment:
  keep_env: true
  re_export: []
  additional: {}

restart:
  strategy: on-failure   # always | on-failure | never
  backoff: 500ms
  max_attempts: 5         # 0 means unlimited

# Remove this block entirely to skip health probing; readiness is then
# declared immediately on spawn.
healthiness:
  http_endpoint: http://127.0.0.1:8080/healthz
  # readiness_file: /run/my-service.ready
  # command: /usr/bin/my-service-check
  max_failed: 3

failure:
  successful_exit_codes: [0]
  strategy: ignore        # ignore | kill-dependents | shutdown

termination:
  signal: SIGTERM
  wait: 10s
  die_if_failed: []

signal_rewrite: {}

# resource_limits:
#   cpu_fraction: 0.5
#   memory: 256MB
#   pids: 64
`
