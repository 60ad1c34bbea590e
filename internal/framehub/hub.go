// Package framehub fans updates out from the capture loop to
// presentation consumers with latest-value semantics: each subscriber
// holds at most one pending update, and a new publish replaces an
// unconsumed one. A slow consumer simply sees fewer updates; nothing
// queues and nothing blocks the producer.
package framehub

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrHubClosed        = errors.New("hub closed")
	ErrSubscriberExists = errors.New("subscriber id already registered")
	ErrUnknownSub       = errors.New("unknown subscriber id")
)

// SubscriberStats counts deliveries for one receiver.
type SubscriberStats struct {
	// Received is the number of publishes routed to this receiver.
	Received uint64 `json:"received"`
	// Replaced is how many of those overwrote a value the consumer had
	// not picked up yet.
	Replaced uint64 `json:"replaced"`
}

// Hub distributes values to registered receivers.
type Hub[T any] struct {
	mu        sync.RWMutex
	subs      map[string]*Receiver[T]
	closed    bool
	published atomic.Uint64
}

func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[string]*Receiver[T])}
}

// Subscribe registers a latest-value receiver under id.
func (h *Hub[T]) Subscribe(id string) (*Receiver[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if _, exists := h.subs[id]; exists {
		return nil, ErrSubscriberExists
	}

	r := &Receiver[T]{notify: make(chan struct{}, 1)}
	h.subs[id] = r
	return r, nil
}

// Unsubscribe removes a receiver.
func (h *Hub[T]) Unsubscribe(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.subs[id]; !exists {
		return ErrUnknownSub
	}
	delete(h.subs, id)
	return nil
}

// Publish delivers v to every receiver. Never blocks.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	h.published.Add(1)
	for _, r := range h.subs {
		r.set(v)
	}
}

// Published returns the total number of publishes.
func (h *Hub[T]) Published() uint64 {
	return h.published.Load()
}

// Subscribers returns the current subscriber count.
func (h *Hub[T]) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close rejects future subscriptions and publishes. Existing receivers
// keep whatever value they last got.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

// Receiver holds the latest unconsumed value for one subscriber.
type Receiver[T any] struct {
	mu      sync.Mutex
	latest  T
	pending bool
	stats   SubscriberStats
	notify  chan struct{}
}

func (r *Receiver[T]) set(v T) {
	r.mu.Lock()
	r.stats.Received++
	if r.pending {
		r.stats.Replaced++
	}
	r.latest = v
	r.pending = true
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Notify signals that a fresh value may be available. The channel is
// level-triggered with capacity one; always follow a receive with Latest.
func (r *Receiver[T]) Notify() <-chan struct{} {
	return r.notify
}

// Latest returns the most recent value and whether it was unconsumed.
// Consuming marks the slot empty; the value itself remains readable on
// subsequent calls.
func (r *Receiver[T]) Latest() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fresh := r.pending
	r.pending = false
	return r.latest, fresh
}

// Stats returns delivery counters for this receiver.
func (r *Receiver[T]) Stats() SubscriberStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
