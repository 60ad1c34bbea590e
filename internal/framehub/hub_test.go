package framehub

import (
	"errors"
	"testing"
	"time"
)

func TestPublishDeliversLatestValue(t *testing.T) {
	h := New[int]()
	r, err := h.Subscribe("ui")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	h.Publish(1)
	h.Publish(2)
	h.Publish(3)

	v, fresh := r.Latest()
	if !fresh || v != 3 {
		t.Fatalf("Latest() = (%d, %v), want (3, true)", v, fresh)
	}

	// Consumed: the slot is empty but the value stays readable.
	v, fresh = r.Latest()
	if fresh || v != 3 {
		t.Fatalf("Latest() after consume = (%d, %v), want (3, false)", v, fresh)
	}
}

func TestSlowConsumerSeesFewerUpdates(t *testing.T) {
	h := New[int]()
	r, err := h.Subscribe("slow")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for i := range 10 {
		h.Publish(i)
	}

	stats := r.Stats()
	if stats.Received != 10 {
		t.Fatalf("Received = %d, want 10", stats.Received)
	}
	if stats.Replaced != 9 {
		t.Fatalf("Replaced = %d, want 9 (everything but the last overwrite)", stats.Replaced)
	}
}

func TestNotifyIsLevelTriggered(t *testing.T) {
	h := New[string]()
	r, err := h.Subscribe("ui")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	h.Publish("a")
	h.Publish("b")

	select {
	case <-r.Notify():
	case <-time.After(time.Second):
		t.Fatalf("Notify() should have fired")
	}
	if v, fresh := r.Latest(); !fresh || v != "b" {
		t.Fatalf("Latest() = (%q, %v), want (b, true)", v, fresh)
	}

	// No further publish: the notify channel must be drained.
	select {
	case <-r.Notify():
		// A second queued signal is fine, but Latest must not be fresh.
		if _, fresh := r.Latest(); fresh {
			t.Fatalf("Latest() reported fresh with no new publish")
		}
	default:
	}
}

func TestSubscribeDuplicateAndUnsubscribe(t *testing.T) {
	h := New[int]()
	if _, err := h.Subscribe("ui"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := h.Subscribe("ui"); !errors.Is(err, ErrSubscriberExists) {
		t.Fatalf("duplicate Subscribe() error = %v, want ErrSubscriberExists", err)
	}
	if err := h.Unsubscribe("ui"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if err := h.Unsubscribe("ui"); !errors.Is(err, ErrUnknownSub) {
		t.Fatalf("second Unsubscribe() error = %v, want ErrUnknownSub", err)
	}
	if h.Subscribers() != 0 {
		t.Fatalf("Subscribers() = %d, want 0", h.Subscribers())
	}
}

func TestClosedHubRejectsSubscribeAndDropsPublishes(t *testing.T) {
	h := New[int]()
	r, err := h.Subscribe("ui")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	h.Publish(1)
	h.Close()
	h.Publish(2)

	if v, _ := r.Latest(); v != 1 {
		t.Fatalf("Latest() after close = %d, want 1", v)
	}
	if _, err := h.Subscribe("late"); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("Subscribe() after close error = %v, want ErrHubClosed", err)
	}
	if h.Published() != 1 {
		t.Fatalf("Published() = %d, want 1", h.Published())
	}
}
