package events

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-disaster-response/internal/models"
)

// subscriberBuffer absorbs bursts of mutations so Publish never blocks
// the triggering request.
const subscriberBuffer = 64

// Bus fans mutation events out to currently connected observers.
// Delivery is best-effort: a slow subscriber is skipped rather than
// blocking the publisher, and observers that connect after an event
// never see it.
type Bus struct {
	subscribers map[uint64]chan models.Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[uint64]chan models.Event),
	}
}

func (b *Bus) Subscribe() (uint64, chan models.Event) {
	id := b.nextID.Add(1)
	ch := make(chan models.Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber connected right now.
// Subscribers whose buffers are full are skipped.
func (b *Bus) Publish(eventType string, payload any) {
	ev := models.Event{Type: eventType, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing observers to exit
// gracefully.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
