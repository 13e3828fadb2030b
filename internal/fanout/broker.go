// Package fanout delivers entity change events to any number of
// independent subscribers without letting them poll the stores.  Each
// entity kind gets one Broker; every mutation applied to that kind is
// published once and stamped with a sequence number under the broker
// lock, so all subscribers observe the same global order per kind.
//
// A subscriber that does not drain its events does not grow an unbounded
// queue: pending events are coalesced per entity id, keeping only the
// latest value (last-write-wins).  There is no historical replay — a
// subscriber sees the snapshot it was handed at subscribe time plus every
// change applied after that.
package fanout

import (
	"sync"
)

// ChangeType says what happened to the entity.
type ChangeType string

const (
	ChangeUpsert ChangeType = "upsert"
	ChangeDelete ChangeType = "delete"
)

// Event is one incremental change.  Seq is the per-kind global sequence
// number; NewValue carries the full entity value after the change (nil
// for deletes).
type Event struct {
	Seq      uint64     `json:"seq"`
	EntityID string     `json:"entityId"`
	Type     ChangeType `json:"changeType"`
	NewValue any        `json:"newValue,omitempty"`
}

// Broker fans changes of one entity kind out to its subscribers.
type Broker struct {
	mu   sync.Mutex
	seq  uint64
	subs map[*Subscription]struct{}
}

// NewBroker returns a broker with no subscribers.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscription]struct{})}
}

// Publish records a change and hands it to every subscriber whose filter
// accepts it.  Delivery is asynchronous: Publish never blocks on a slow
// consumer.
func (b *Broker) Publish(entityID string, typ ChangeType, newValue any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	ev := Event{Seq: b.seq, EntityID: entityID, Type: typ, NewValue: newValue}
	// Assigning the sequence number and enqueueing must be one critical
	// section: releasing the lock in between would let two concurrent
	// publishes reach a subscriber with their sequence numbers swapped.
	// enqueue never blocks, so the lock is never held across a consumer.
	for s := range b.subs {
		if s.filter == nil || s.filter(ev) {
			s.enqueue(ev)
		}
	}
}

// Subscribe registers a consumer.  The filter, when non-nil, decides per
// event whether this subscriber may see it (role visibility); it must be
// fast and must not block.  The returned subscription starts delivering
// changes applied after this call; the caller is expected to pair it with
// a store snapshot taken at the same time.
func (b *Broker) Subscribe(filter func(Event) bool) *Subscription {
	s := &Subscription{
		broker:  b,
		filter:  filter,
		pending: make(map[string]Event),
		notify:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		out:     make(chan Event),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	go s.run()
	return s
}

func (b *Broker) drop(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscription is one consumer's live change feed.
type Subscription struct {
	broker *Broker
	filter func(Event) bool

	mu      sync.Mutex
	pending map[string]Event // latest event per entity id
	order   []string         // entity ids in first-seen order

	notify chan struct{}
	stop   chan struct{}
	out    chan Event
	once   sync.Once
}

// Events returns the channel the subscription delivers on.  The channel
// is closed after Unsubscribe.
func (s *Subscription) Events() <-chan Event { return s.out }

// Unsubscribe stops delivery and releases the subscription's resources.
// It is idempotent and safe to call while a delivery is in flight,
// including from the goroutine draining Events.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.drop(s)
		close(s.stop)
	})
}

// enqueue coalesces the event into the pending buffer and pokes the
// delivery goroutine.  An event for an entity id already pending replaces
// the buffered value but keeps its queue position.
func (s *Subscription) enqueue(ev Event) {
	s.mu.Lock()
	if _, ok := s.pending[ev.EntityID]; !ok {
		s.order = append(s.order, ev.EntityID)
	}
	s.pending[ev.EntityID] = ev
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// next pops the oldest pending event, if any.
func (s *Subscription) next() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return Event{}, false
	}
	id := s.order[0]
	s.order = s.order[1:]
	ev := s.pending[id]
	delete(s.pending, id)
	return ev, true
}

// run moves events from the pending buffer to the out channel until the
// subscription is stopped.
func (s *Subscription) run() {
	defer close(s.out)
	for {
		select {
		case <-s.stop:
			return
		case <-s.notify:
		}
		for {
			ev, ok := s.next()
			if !ok {
				break
			}
			select {
			case s.out <- ev:
			case <-s.stop:
				return
			}
		}
	}
}
