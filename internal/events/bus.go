package events

import (
	"sync"
	"time"
)

// Event names published by the domain services.
const (
	AllocationChanged = "allocation.changed"
	StatusChanged     = "assembly.status_changed"
	OrderFulfilled    = "part_order.fulfilled"
)

// Event is a domain notification delivered to in-process subscribers.
type Event struct {
	Name       string
	OccurredAt time.Time
	Payload    any
}

// Bus is a minimal in-process pub/sub channel. Publishing never blocks:
// events for slow subscribers are dropped once their buffer is full.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	buffer int
	closed bool
}

// NewBus builds a bus whose subscriber channels hold up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[string][]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers interest in the named event and returns the delivery
// channel. The channel is closed when the bus shuts down.
func (b *Bus) Subscribe(name string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[name] = append(b.subs[name], ch)
	return ch
}

// Publish delivers the event to every subscriber of its name.
func (b *Bus) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs[event.Name] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = make(map[string][]chan Event)
}
