package supervisor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/kernel"
	"github.com/vireo-systems/warden/internal/process"
	"github.com/vireo-systems/warden/internal/spec"
	"github.com/vireo-systems/warden/internal/supervisor"
)

// TestEngineRunsToCompletionOnCleanExit exercises the full A-H wiring with
// real spawns: a one-shot, never-restarted service should drive the engine
// to a clean exit code once it exits successfully.
func TestEngineRunsToCompletionOnCleanExit(t *testing.T) {
	specs := []spec.ServiceSpec{
		{Name: "oneshot", Command: "/bin/true", Restart: spec.RestartPolicy{Strategy: spec.RestartNever}},
	}
	e := supervisor.New(specs, kernel.New(), process.NoopLimitApplier{}, nil)

	result := make(chan int, 1)
	go func() { result <- e.Run() }()

	select {
	case code := <-result:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("engine never reached a terminal state")
	}
}

// TestEngineReportsFailureExitCode checks the FinishedFailed -> exit(1)
// mapping spec §6 requires.
func TestEngineReportsFailureExitCode(t *testing.T) {
	specs := []spec.ServiceSpec{
		{Name: "failer", Command: "/bin/false", Restart: spec.RestartPolicy{Strategy: spec.RestartNever}},
	}
	e := supervisor.New(specs, kernel.New(), process.NoopLimitApplier{}, nil)

	result := make(chan int, 1)
	go func() { result <- e.Run() }()

	select {
	case code := <-result:
		assert.Equal(t, 1, code)
	case <-time.After(5 * time.Second):
		t.Fatal("engine never reached a terminal state")
	}
}

// TestEngineHonorsStartAfterOrdering checks that a dependent service only
// starts once its dependency has reached Running (or finished
// successfully), and that both then finish successfully.
func TestEngineHonorsStartAfterOrdering(t *testing.T) {
	specs := []spec.ServiceSpec{
		{Name: "migrate", Command: "/bin/true", Restart: spec.RestartPolicy{Strategy: spec.RestartNever}},
		{Name: "server", Command: "/bin/true", Restart: spec.RestartPolicy{Strategy: spec.RestartNever}, StartAfter: []string{"migrate"}},
	}
	e := supervisor.New(specs, kernel.New(), process.NoopLimitApplier{}, nil)
	events := e.Bus.Subscribe()
	defer events.Close()

	result := make(chan int, 1)
	go func() { result <- e.Run() }()

	select {
	case code := <-result:
		require.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("engine never reached a terminal state")
	}

	migrate, ok := e.Repo.Get("migrate")
	require.True(t, ok)
	server, ok := e.Repo.Get("server")
	require.True(t, ok)
	assert.Equal(t, "finished-success", migrate.Status.String())
	assert.Equal(t, "finished-success", server.Status.String())

	migrateUp, serverStarted := false, false
drain:
	for {
		select {
		case evt := <-events.Events():
			sc, ok := evt.(eventbus.ServiceStateChanged)
			if !ok {
				continue
			}
			if sc.Name == "migrate" && (sc.To == eventbus.Running || sc.To == eventbus.FinishedSuccess) {
				migrateUp = true
			}
			if sc.Name == "server" && sc.To == eventbus.Starting {
				serverStarted = true
				assert.True(t, migrateUp, "server started before migrate was running")
			}
		default:
			break drain
		}
	}
	assert.True(t, serverStarted)
}
