package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies the type of a trip event.
type Kind string

const (
	KindOfferSubmitted    Kind = "offer_submitted"
	KindOfferAccepted     Kind = "offer_accepted"
	KindOfferRejected     Kind = "offer_rejected"
	KindOfferExpired      Kind = "offer_expired"
	KindTripStatusChanged Kind = "trip_status_changed"
)

// Event is one entry in a trip's event stream. Seq increases by one per
// published event on the trip, so subscribers can detect gaps after a
// slow consumer drop or a reconnect and resynchronize with a state pull.
type Event struct {
	TripID    string                 `json:"trip_id"`
	Seq       uint64                 `json:"seq"`
	Kind      Kind                   `json:"kind"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// defaultBuffer is the per-subscriber channel depth. A subscriber that
// falls further behind than this loses events (at-most-once delivery);
// it notices via the sequence gap and re-pulls trip state.
const defaultBuffer = 32

// Subscription is one subscriber's view of a trip's event stream.
type Subscription struct {
	C <-chan Event

	tripID  string
	ch      chan Event
	dropped uint64
	once    sync.Once
}

// Dropped returns how many events were discarded because this subscriber's
// buffer was full.
func (s *Subscription) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Bus fans trip events out to all current subscribers of a trip.
// Delivery is best effort: Publish never blocks, and a full subscriber
// buffer drops the event for that subscriber only.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]*topic
	buffer int
}

type topic struct {
	mu     sync.Mutex
	seq    uint64
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBus creates a Bus with the default per-subscriber buffer.
func NewBus() *Bus {
	return NewBusWithBuffer(defaultBuffer)
}

// NewBusWithBuffer creates a Bus with the given per-subscriber buffer depth.
func NewBusWithBuffer(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		topics: make(map[string]*topic),
		buffer: buffer,
	}
}

func (b *Bus) topicFor(tripID string, create bool) *topic {
	b.mu.RLock()
	t, ok := b.topics[tripID]
	b.mu.RUnlock()
	if ok || !create {
		return t
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok = b.topics[tripID]; ok {
		return t
	}
	t = &topic{subs: make(map[*Subscription]struct{})}
	b.topics[tripID] = t
	return t
}

// Publish assigns the next per-trip sequence number to the event and
// delivers it to every current subscriber without blocking.
func (b *Bus) Publish(tripID string, kind Kind, payload map[string]interface{}) {
	t := b.topicFor(tripID, true)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	t.seq++
	ev := Event{
		TripID:    tripID,
		Seq:       t.seq,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	for sub := range t.subs {
		select {
		case sub.ch <- ev:
		default:
			atomic.AddUint64(&sub.dropped, 1)
		}
	}
}

// Subscribe registers a new subscriber for the trip's event stream.
// The returned subscription's channel is closed when the caller
// unsubscribes or the trip's topic is retired.
func (b *Bus) Subscribe(tripID string) *Subscription {
	sub := &Subscription{
		tripID: tripID,
		ch:     make(chan Event, b.buffer),
	}
	sub.C = sub.ch

	t := b.topicFor(tripID, true)
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		sub.close()
		return sub
	}
	t.subs[sub] = struct{}{}
	t.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	t := b.topicFor(sub.tripID, false)
	if t != nil {
		t.mu.Lock()
		delete(t.subs, sub)
		t.mu.Unlock()
	}
	sub.close()
}

// CloseTrip retires a trip's topic once the trip reaches a terminal
// status: all subscriber channels are closed and later publishes on the
// trip are ignored. Sequence numbers are not reused.
func (b *Bus) CloseTrip(tripID string) {
	b.mu.Lock()
	t, ok := b.topics[tripID]
	if ok {
		delete(b.topics, tripID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	t.closed = true
	subs := make([]*Subscription, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.subs = make(map[*Subscription]struct{})
	t.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
