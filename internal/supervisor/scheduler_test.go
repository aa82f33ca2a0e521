package supervisor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vireo-systems/warden/internal/eventbus"
	"github.com/vireo-systems/warden/internal/spec"
	"github.com/vireo-systems/warden/internal/supervisor"
)

func newDispatcher(t *testing.T, specs ...spec.ServiceSpec) (*eventbus.Bus, *supervisor.Repository, func()) {
	t.Helper()
	bus := eventbus.New(16)
	repo := supervisor.NewRepository(bus, specs)
	d := supervisor.NewDispatcher(bus, repo)

	sub := bus.Subscribe()
	go d.Run(sub)

	return bus, repo, sub.Close
}

func waitForSpawnRequest(t *testing.T, sub *eventbus.Subscription, name string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-sub.Events():
			if sr, ok := evt.(eventbus.SpawnRequest); ok && sr.Name == name {
				return
			}
		case <-deadline:
			t.Fatalf("expected a SpawnRequest for %q", name)
		}
	}
}

func TestDispatcherStartsAnIndependentServiceImmediately(t *testing.T) {
	_, repo, teardown := newDispatcher(t, spec.ServiceSpec{Name: "a"})
	defer teardown()

	waitForStatus(t, repo, "a", eventbus.Starting)
	view, _ := repo.Get("a")
	assert.Equal(t, 1, view.StartAttempts)
}

func TestDispatcherWaitsForStartAfter(t *testing.T) {
	_, repo, teardown := newDispatcher(t,
		spec.ServiceSpec{Name: "db"},
		spec.ServiceSpec{Name: "api", StartAfter: []string{"db"}},
	)
	defer teardown()

	waitForStatus(t, repo, "db", eventbus.Starting)

	// api must not start yet: db hasn't reached Running/FinishedSuccess.
	time.Sleep(100 * time.Millisecond)
	view, _ := repo.Get("api")
	assert.Equal(t, eventbus.Initial, view.Status)

	repo.Transition("db", eventbus.Started, nil)
	repo.Transition("db", eventbus.Running, nil)

	waitForStatus(t, repo, "api", eventbus.Starting)
}

func TestDispatcherRespectsStartDelay(t *testing.T) {
	_, repo, teardown := newDispatcher(t, spec.ServiceSpec{Name: "a", StartDelay: 150 * time.Millisecond})
	defer teardown()

	time.Sleep(50 * time.Millisecond)
	view, _ := repo.Get("a")
	assert.Equal(t, eventbus.Initial, view.Status, "must not start before start_delay elapses")

	waitForStatus(t, repo, "a", eventbus.Starting)
}

func TestDispatcherPublishesSpawnRequestOnTransition(t *testing.T) {
	bus, repo, teardown := newDispatcher(t, spec.ServiceSpec{Name: "a"})
	defer teardown()

	sub := bus.Subscribe()
	defer sub.Close()

	waitForSpawnRequest(t, sub, "a")
	view, _ := repo.Get("a")
	assert.Equal(t, eventbus.Starting, view.Status)
}

func TestDispatcherIsIdempotentOnceStarted(t *testing.T) {
	bus, repo, teardown := newDispatcher(t, spec.ServiceSpec{Name: "a"})
	defer teardown()

	waitForStatus(t, repo, "a", eventbus.Starting)
	bus.Publish(eventbus.ServiceStateChanged{Name: "a"})
	time.Sleep(100 * time.Millisecond)

	view, _ := repo.Get("a")
	assert.Equal(t, 1, view.StartAttempts, "re-evaluating an already-Starting handle must not re-spawn it")
}
