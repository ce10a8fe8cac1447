// Package sse fans verdict events out to server-sent-event subscribers.
package sse

import (
	"log/slog"
	"sync"
)

// TopicAll receives every verdict regardless of mode.
const TopicAll = "all"

// EventVerdict is the event type of a classification outcome.
const EventVerdict = "verdict"

// Event represents a server-sent event to be published to subscribers.
type Event struct {
	Type string
	Data []byte // JSON payload
}

// Hub manages per-topic subscriptions. Topics are "all" or a mode name.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	logger      *slog.Logger
}

// NewHub creates a new SSE hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for topic. The returned cancel function
// must be called when the subscriber disconnects; it closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	if h.subscribers[topic] == nil {
		h.subscribers[topic] = make(map[chan Event]struct{})
	}
	h.subscribers[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[topic], ch)
			if len(h.subscribers[topic]) == 0 {
				delete(h.subscribers, topic)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish sends an event to all subscribers of topic. A full subscriber
// channel drops the event.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[topic] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("sse: dropped event for slow client", "topic", topic)
		}
	}
}

// PublishVerdict sends a verdict payload to the mode's topic and to TopicAll.
func (h *Hub) PublishVerdict(mode string, data []byte) {
	ev := Event{Type: EventVerdict, Data: data}
	h.Publish(mode, ev)
	h.Publish(TopicAll, ev)
}

// SubscriberCount returns the number of active subscribers for topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}
