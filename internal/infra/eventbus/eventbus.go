// Package eventbus is the in-process publish/subscribe bus that decouples domain services
// from outbound notifications such as the n8n webhook.
//
// Each subscriber gets its own buffered channel. Publish never blocks: when a subscriber's
// buffer is full the event is dropped and counted. Nothing is persisted.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Topics published by the domain services.
const (
	TopicChatCompleted   = "chat.completed"
	TopicDocumentCreated = "document.created"
)

// Event is a single published message.
type Event struct {
	Topic      string    `json:"event"`
	TenantID   string    `json:"tenantId"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// EventBus is the interface services depend on.
type EventBus interface {
	Publish(topic, tenantID string, payload any)
	Subscribe(topic string) <-chan Event
}

const defaultBufferSize = 100

// Bus is the in-memory EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	closed      bool
	dropped     atomic.Int64
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]chan Event)}
}

// Subscribe registers a subscriber for topic. The channel is closed by Close.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, defaultBufferSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

// Publish fans the event out to all current subscribers of topic.
func (b *Bus) Publish(topic, tenantID string, payload any) {
	evt := Event{Topic: topic, TenantID: tenantID, OccurredAt: time.Now().UTC(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped because a buffer was full.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Close closes every subscriber channel; later Publish calls are no-ops.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = nil
}
