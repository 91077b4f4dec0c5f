package engine

import (
	"sync"

	"github.com/seantiz/skinnypoem/internal/model"
)

// subscriberBufferSize is the channel buffer for each subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 16

// Event type names carried on the live feed.
const (
	EventState = "state"
	EventPoem  = "poem"
)

// Event is one change pushed to live subscribers.
type Event struct {
	Type  string            `json:"type"`
	State *model.PoemState  `json:"state,omitempty"`
	Poem  *model.SkinnyPoem `json:"poem,omitempty"`
}

// Broker fans engine events out to subscribers. It is safe for concurrent use.
//
// Once closed, Subscribe hands out already-closed channels so late
// subscribers do not block forever during shutdown.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBroker creates an open broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and an unsubscribe function.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	liveSubscribers.Inc()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			liveSubscribers.Dec()
		}
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop for slow subscribers; the next event carries full state.
		}
	}
}

// Close ends every subscription. Later Publish calls are no-ops.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
		liveSubscribers.Dec()
	}
}
