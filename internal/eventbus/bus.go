package eventbus

import (
	"context"
	"sync"

	"github.com/vireo-systems/warden/internal/wardenerr"
)

// Bus is a typed multi-producer, multi-consumer channel. Every subscriber
// receives every event in the order it was published; a full subscriber
// queue blocks the publisher rather than dropping the event, per spec
// §4.1. publishMu serializes the fan-out loop so concurrent publishers
// can't interleave and break per-consumer FIFO.
type Bus struct {
	publishMu sync.Mutex
	subMu     sync.RWMutex
	subs      map[*Subscription]struct{}
	bufSize   int
}

// New creates a Bus whose subscriber queues hold bufSize events before a
// publisher blocks.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 1
	}
	return &Bus{
		subs:    make(map[*Subscription]struct{}),
		bufSize: bufSize,
	}
}

// Subscription is a single consumer's event queue.
type Subscription struct {
	bus    *Bus
	ch     chan Event
	closed chan struct{}
	once   sync.Once
}

// Events returns the channel this subscriber receives events on.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unsubscribes and closes the Events channel, so a consumer ranging
// over it stops once it has drained what was already queued. Any Publish
// already blocked delivering to this subscriber unblocks immediately
// rather than deadlocking the bus.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.subMu.Lock()
		delete(s.bus.subs, s)
		s.bus.subMu.Unlock()
		close(s.closed)
		// Once publishMu is held no Publish can still be sending to s.
		s.bus.publishMu.Lock()
		close(s.ch)
		s.bus.publishMu.Unlock()
	})
}

// Subscribe registers a new consumer.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus:    b,
		ch:     make(chan Event, b.bufSize),
		closed: make(chan struct{}),
	}
	b.subMu.Lock()
	b.subs[sub] = struct{}{}
	b.subMu.Unlock()
	return sub
}

// Publish delivers event to every current subscriber, blocking on any
// subscriber whose queue is full. It never drops an
// event; a permanently stuck consumer blocks Publish forever, which is
// the "dropped events are a fatal bug" guarantee made operable — use
// PublishContext to convert a stuck consumer into a BusSaturation error
// instead of an indefinite hang.
func (b *Bus) Publish(event Event) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	for sub := range b.snapshot() {
		select {
		case sub.ch <- event:
		case <-sub.closed:
		}
	}
}

// PublishContext is Publish with an escape hatch: if ctx is done before
// every subscriber has accepted the event, it returns a BusSaturation
// error. The engine's own components all use Publish.
func (b *Bus) PublishContext(ctx context.Context, event Event) error {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	for sub := range b.snapshot() {
		select {
		case sub.ch <- event:
		case <-sub.closed:
		case <-ctx.Done():
			return wardenerr.Wrap(wardenerr.ErrBusSaturation, "eventbus.Publish", ctx.Err())
		}
	}
	return nil
}

// snapshot returns the current subscriber set under the read lock,
// copied out so Publish's blocking sends don't hold subMu.
func (b *Bus) snapshot() map[*Subscription]struct{} {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	out := make(map[*Subscription]struct{}, len(b.subs))
	for s := range b.subs {
		out[s] = struct{}{}
	}
	return out
}
