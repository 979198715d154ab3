package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"

	"pixshift/logger"
	"pixshift/models"
)

const (
	subscriberBuffer = 64
	progressTopic    = "progress"
)

// Hub fans progress events out to server-sent event subscribers over an
// event bus. Every subscriber listens on its own topic because the bus
// matches handlers by code pointer, so closures sharing one topic cannot be
// unsubscribed individually. Slow subscribers lose events rather than
// stalling a batch.
type Hub struct {
	bus evbus.Bus

	mu     sync.Mutex
	topics map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		bus:    evbus.New(),
		topics: make(map[string]struct{}),
	}
}

// Publish is a models.ProgressFunc.
func (h *Hub) Publish(ev models.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range h.topics {
		h.bus.Publish(topic, ev)
	}
}

func (h *Hub) Subscribe() (<-chan models.ProgressEvent, func()) {
	ch := make(chan models.ProgressEvent, subscriberBuffer)
	topic := progressTopic + "/" + uuid.NewString()

	deliver := func(ev models.ProgressEvent) {
		select {
		case ch <- ev:
		default:
			logger.Debugf("dropping progress event for slow subscriber: job=%s", ev.JobID)
		}
	}
	// transactional keeps one subscriber's events in publish order
	if err := h.bus.SubscribeAsync(topic, deliver, true); err != nil {
		logger.Errorf("Failed to subscribe to progress events: %v", err)
		return ch, func() {}
	}

	h.mu.Lock()
	h.topics[topic] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.topics, topic)
		h.mu.Unlock()
		if err := h.bus.Unsubscribe(topic, deliver); err != nil {
			logger.Debugf("Failed to unsubscribe %s: %v", topic, err)
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics)
}

// Wait blocks until every in-flight delivery has reached its subscriber.
func (h *Hub) Wait() {
	h.bus.WaitAsync()
}

// EventsHandler streams progress events as server-sent events.
func (h *Handlers) EventsHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Events request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := h.Events.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			logger.Debugf("Events subscriber disconnected: remoteAddr=%s", r.RemoteAddr)
			return
		case ev := <-events:
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Errorf("Failed to encode progress event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
