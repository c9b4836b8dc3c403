package events

import (
	"sync"

	"wrapreel/internal/model"

	"github.com/google/uuid"
)

// Hub fans job events out to live stream subscribers. Slow subscribers miss
// events rather than block the job runner; they catch up from the store.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[string]chan model.JobEvent
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		subs: map[string]map[string]chan model.JobEvent{},
	}
}

// Subscribe returns a channel of events for jobID and a function that
// releases it. The channel is closed on unsubscribe or hub shutdown.
func (h *Hub) Subscribe(jobID string, buf int) (<-chan model.JobEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan model.JobEvent, buf)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	subID := uuid.NewString()
	if _, ok := h.subs[jobID]; !ok {
		h.subs[jobID] = map[string]chan model.JobEvent{}
	}
	h.subs[jobID][subID] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			jobSubs, ok := h.subs[jobID]
			if !ok {
				return
			}
			c, ok := jobSubs[subID]
			if !ok {
				return
			}
			delete(jobSubs, subID)
			close(c)
			if len(jobSubs) == 0 {
				delete(h.subs, jobID)
			}
		})
	}
	return ch, unsubscribe
}

// Publish delivers evt to every subscriber with buffer room and reports how
// many received it.
func (h *Hub) Publish(jobID string, evt model.JobEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, ch := range h.subs[jobID] {
		select {
		case ch <- evt:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}

// Close ends every open stream; later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for jobID, jobSubs := range h.subs {
		for _, ch := range jobSubs {
			close(ch)
		}
		delete(h.subs, jobID)
	}
}
