package presence

import (
	"context"
	"sync"
	"time"
)

// Presence is a snapshot of who the camera currently sees.
type Presence struct {
	Name     string    `json:"name"`
	Present  bool      `json:"present"`
	Since    time.Time `json:"since"`
	LastSeen time.Time `json:"last_seen"`
}

// Tracker debounces raw recognition outcomes into a stable "who is in
// front of the camera" signal. A person remains present until no sighting
// has arrived for the configured TTL.
type Tracker struct {
	mu       sync.RWMutex
	ttl      time.Duration
	current  *Presence
	onChange func(Presence)
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Tracker{ttl: ttl}
}

// SetChangeHook registers a callback fired whenever the present person
// changes, including departures. The hook runs outside the tracker lock.
func (t *Tracker) SetChangeHook(hook func(Presence)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = hook
}

// Observe records a sighting of name. Repeated sightings of the same
// person only refresh the last-seen timestamp; a different person
// replaces the current one and fires the change hook.
func (t *Tracker) Observe(name string) {
	now := time.Now().UTC()

	t.mu.Lock()
	if t.current != nil && t.current.Name == name {
		t.current.LastSeen = now
		t.mu.Unlock()
		return
	}
	t.current = &Presence{
		Name:     name,
		Present:  true,
		Since:    now,
		LastSeen: now,
	}
	snapshot := *t.current
	hook := t.onChange
	t.mu.Unlock()

	if hook != nil {
		hook(snapshot)
	}
}

// Current reports the present person, if any.
func (t *Tracker) Current() (Presence, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return Presence{}, false
	}
	return *t.current, true
}

// StartJanitor expires stale presence in the background until ctx ends.
func (t *Tracker) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.expireStale()
			}
		}
	}()
}

func (t *Tracker) expireStale() {
	now := time.Now().UTC()

	t.mu.Lock()
	if t.current == nil || now.Sub(t.current.LastSeen) < t.ttl {
		t.mu.Unlock()
		return
	}
	departed := *t.current
	departed.Present = false
	departed.LastSeen = now
	t.current = nil
	hook := t.onChange
	t.mu.Unlock()

	if hook != nil {
		hook(departed)
	}
}
