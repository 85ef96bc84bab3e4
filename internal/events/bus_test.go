package events

import (
	"testing"
	"time"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	ch := bus.Subscribe(AllocationChanged)
	bus.Publish(Event{Name: AllocationChanged, Payload: "hello"})

	select {
	case got := <-ch:
		if got.Payload != "hello" {
			t.Fatalf("unexpected payload: %v", got.Payload)
		}
		if got.OccurredAt.IsZero() {
			t.Fatal("expected occurred-at to be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishIgnoresOtherNames(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	ch := bus.Subscribe(StatusChanged)
	bus.Publish(Event{Name: AllocationChanged})

	select {
	case <-ch:
		t.Fatal("received event for a different name")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	ch := bus.Subscribe(AllocationChanged)
	bus.Publish(Event{Name: AllocationChanged, Payload: 1})
	bus.Publish(Event{Name: AllocationChanged, Payload: 2})

	got := <-ch
	if got.Payload != 1 {
		t.Fatalf("expected first event, got %v", got.Payload)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected overflow to be dropped, got %v", extra.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	bus := NewBus(1)
	ch := bus.Subscribe(OrderFulfilled)
	bus.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}

	// publishing after close is a no-op
	bus.Publish(Event{Name: OrderFulfilled})
}
