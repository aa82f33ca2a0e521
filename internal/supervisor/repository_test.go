package supervisor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/spec"
	"github.com/vireo-systems/warden/internal/supervisor"
)

func newRepo(t *testing.T, specs ...spec.ServiceSpec) (*eventbus.Bus, *supervisor.Repository) {
	t.Helper()
	bus := eventbus.New(16)
	return bus, supervisor.NewRepository(bus, specs)
}

func TestNewRepositoryStartsEveryHandleInitial(t *testing.T) {
	_, repo := newRepo(t, spec.ServiceSpec{Name: "a"}, spec.ServiceSpec{Name: "b"})

	snap := repo.Snapshot()
	require.Len(t, snap, 2)
	for _, v := range snap {
		assert.Equal(t, eventbus.Initial, v.Status)
	}
}

func TestTransitionRefusesFromTerminalState(t *testing.T) {
	_, repo := newRepo(t, spec.ServiceSpec{Name: "a"})

	repo.Decide("a", func(h *supervisor.ServiceHandle) bool {
		h.Status = eventbus.FinishedSuccess
		return true
	})

	_, ok := repo.Transition("a", eventbus.Starting, nil)
	assert.False(t, ok, "a terminal handle must refuse further Transition calls")

	view, _ := repo.Get("a")
	assert.Equal(t, eventbus.FinishedSuccess, view.Status)
}

func TestRestartBypassesTerminalStickiness(t *testing.T) {
	_, repo := newRepo(t, spec.ServiceSpec{Name: "a"})

	repo.Decide("a", func(h *supervisor.ServiceHandle) bool {
		h.StartAttempts = 3
		h.ReachedRunning = true
		h.PID = 123
		h.Status = eventbus.FinishedFailed
		return true
	})

	ok := repo.Restart("a")
	require.True(t, ok)

	view, _ := repo.Get("a")
	assert.Equal(t, eventbus.Initial, view.Status)
	assert.Equal(t, 0, view.StartAttempts)
	assert.Equal(t, 0, view.PID)
}

func TestRestartRefusesNonTerminalHandle(t *testing.T) {
	_, repo := newRepo(t, spec.ServiceSpec{Name: "a"})
	repo.Transition("a", eventbus.Starting, nil)

	assert.False(t, repo.Restart("a"))
}

func TestDecidePublishesServiceStateChanged(t *testing.T) {
	bus, repo := newRepo(t, spec.ServiceSpec{Name: "a"})
	sub := bus.Subscribe()
	defer sub.Close()

	repo.Decide("a", func(h *supervisor.ServiceHandle) bool {
		h.Status = eventbus.Starting
		return true
	})

	select {
	case evt := <-sub.Events():
		changed, ok := evt.(eventbus.ServiceStateChanged)
		require.True(t, ok)
		assert.Equal(t, "a", changed.Name)
		assert.Equal(t, eventbus.Initial, changed.From)
		assert.Equal(t, eventbus.Starting, changed.To)
	case <-time.After(time.Second):
		t.Fatal("expected a ServiceStateChanged event")
	}
}

func TestDecideNoOpEmitsNoEvent(t *testing.T) {
	bus, repo := newRepo(t, spec.ServiceSpec{Name: "a"})
	sub := bus.Subscribe()
	defer sub.Close()

	_, _, transitioned := repo.Decide("a", func(h *supervisor.ServiceHandle) bool {
		return false
	})
	assert.False(t, transitioned)

	select {
	case evt := <-sub.Events():
		t.Fatalf("expected no event, got %#v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListReadyToStartRespectsStartAfter(t *testing.T) {
	_, repo := newRepo(t,
		spec.ServiceSpec{Name: "db"},
		spec.ServiceSpec{Name: "api", StartAfter: []string{"db"}},
	)

	assert.Equal(t, []string{"db"}, repo.ListReadyToStart())

	repo.Transition("db", eventbus.Starting, nil)
	repo.Transition("db", eventbus.Started, nil)
	repo.Transition("db", eventbus.Running, nil)

	assert.Equal(t, []string{"api"}, repo.ListReadyToStart())
}

func TestListReadyToStartAcceptsFinishedSuccessDependency(t *testing.T) {
	_, repo := newRepo(t,
		spec.ServiceSpec{Name: "migrate"},
		spec.ServiceSpec{Name: "api", StartAfter: []string{"migrate"}},
	)

	repo.Decide("migrate", func(h *supervisor.ServiceHandle) bool {
		h.Status = eventbus.FinishedSuccess
		return true
	})

	assert.Equal(t, []string{"api"}, repo.ListReadyToStart())
}

func TestDependentsFindsTransitiveChain(t *testing.T) {
	_, repo := newRepo(t,
		spec.ServiceSpec{Name: "db"},
		spec.ServiceSpec{Name: "api", StartAfter: []string{"db"}},
		spec.ServiceSpec{Name: "worker", StartAfter: []string{"api"}},
		spec.ServiceSpec{Name: "unrelated"},
	)

	deps := repo.Dependents("db")
	assert.ElementsMatch(t, []string{"api", "worker"}, deps)
}

func TestDependentsNamingFindsDieIfFailedReferences(t *testing.T) {
	_, repo := newRepo(t,
		spec.ServiceSpec{Name: "primary"},
		spec.ServiceSpec{Name: "sidecar", Termination: spec.TerminationPolicy{DieIfFailed: []string{"primary"}}},
		spec.ServiceSpec{Name: "other"},
	)

	assert.Equal(t, []string{"sidecar"}, repo.DependentsNaming("primary"))
}

func TestAllTerminalAndAnyFinishedFailed(t *testing.T) {
	_, repo := newRepo(t, spec.ServiceSpec{Name: "a"}, spec.ServiceSpec{Name: "b"})
	assert.False(t, repo.AllTerminal())

	repo.Decide("a", func(h *supervisor.ServiceHandle) bool { h.Status = eventbus.FinishedSuccess; return true })
	assert.False(t, repo.AllTerminal())

	repo.Decide("b", func(h *supervisor.ServiceHandle) bool { h.Status = eventbus.FinishedFailed; return true })
	assert.True(t, repo.AllTerminal())
	assert.True(t, repo.AnyFinishedFailed())
}

func TestPIDOwner(t *testing.T) {
	_, repo := newRepo(t, spec.ServiceSpec{Name: "a"})
	repo.Decide("a", func(h *supervisor.ServiceHandle) bool { h.PID = 42; return true })

	name, ok := repo.PIDOwner(42)
	require.True(t, ok)
	assert.Equal(t, "a", name)

	_, ok = repo.PIDOwner(9999)
	assert.False(t, ok)
}
