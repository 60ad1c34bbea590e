package presence

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTrackerObserveAndCurrent(t *testing.T) {
	tr := NewTracker(time.Minute)

	if _, ok := tr.Current(); ok {
		t.Fatalf("Current() on a fresh tracker should report nobody")
	}

	tr.Observe("alice")
	got, ok := tr.Current()
	if !ok {
		t.Fatalf("Current() after Observe should report a person")
	}
	if got.Name != "alice" || !got.Present {
		t.Fatalf("unexpected presence: %+v", got)
	}
}

func TestTrackerRepeatSightingDoesNotFireHook(t *testing.T) {
	tr := NewTracker(time.Minute)

	var mu sync.Mutex
	var changes []string
	tr.SetChangeHook(func(p Presence) {
		mu.Lock()
		changes = append(changes, p.Name)
		mu.Unlock()
	})

	tr.Observe("alice")
	first, _ := tr.Current()
	tr.Observe("alice")
	second, _ := tr.Current()

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 {
		t.Fatalf("change hook fired %d times, want 1", len(changes))
	}
	if !second.LastSeen.After(first.LastSeen) && !second.LastSeen.Equal(first.LastSeen) {
		t.Fatalf("LastSeen went backwards: %v then %v", first.LastSeen, second.LastSeen)
	}
	if !second.Since.Equal(first.Since) {
		t.Fatalf("Since should be stable across repeat sightings")
	}
}

func TestTrackerReplacementFiresHook(t *testing.T) {
	tr := NewTracker(time.Minute)

	var mu sync.Mutex
	var changes []Presence
	tr.SetChangeHook(func(p Presence) {
		mu.Lock()
		changes = append(changes, p)
		mu.Unlock()
	})

	tr.Observe("alice")
	tr.Observe("bob")

	got, ok := tr.Current()
	if !ok || got.Name != "bob" {
		t.Fatalf("Current() = %+v, %v, want bob present", got, ok)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 {
		t.Fatalf("change hook fired %d times, want 2", len(changes))
	}
	if changes[1].Name != "bob" || !changes[1].Present {
		t.Fatalf("second change = %+v, want bob present", changes[1])
	}
}

func TestTrackerJanitorExpiresStale(t *testing.T) {
	tr := NewTracker(30 * time.Millisecond)

	departureCh := make(chan Presence, 1)
	tr.SetChangeHook(func(p Presence) {
		if !p.Present {
			departureCh <- p
		}
	})

	tr.Observe("alice")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case p := <-departureCh:
		if p.Name != "alice" || p.Present {
			t.Fatalf("departure = %+v, want alice absent", p)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor never expired the stale presence")
	}

	if _, ok := tr.Current(); ok {
		t.Fatalf("Current() after expiry should report nobody")
	}
}
