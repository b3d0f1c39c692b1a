// Package events fans lifecycle notifications out to SSE subscribers of the
// local status API.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

type Event struct {
	Type     string    `json:"type"`
	Identity string    `json:"identity,omitempty"`
	At       time.Time `json:"at"`
}

// Make serializes an event for the wire.
func Make(typ, ident string) string {
	b, _ := json.Marshal(Event{Type: typ, Identity: ident, At: time.Now().UTC()})
	return string(b)
}

type Hub struct {
	mu      sync.Mutex
	clients map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan string]struct{})}
}

func (h *Hub) Subscribe() chan string {
	ch := make(chan string, 10)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Publish(evt string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// drop if slow
		}
	}
}
