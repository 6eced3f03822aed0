// Package ws serves the real-time channel: lifecycle broadcasts to every
// listener, order rooms and chat rooms.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
)

// frame is the outbound envelope; inbound frames use the same "type" key.
type frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub tracks connected clients and their rooms. Delivery is at-most-once:
// a client whose buffer is full misses the message.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}
	logger  logger.Logger
}

func NewHub(logger logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
		logger:  logger,
	}
}

// Emit sends ev to its room, or to everyone when the room is empty.
func (h *Hub) Emit(ev domain.Event) {
	data, err := json.Marshal(frame{Type: ev.Name, Data: ev.Payload})
	if err != nil {
		h.logger.Error("event_encode_failed", "Failed to encode event", "", map[string]interface{}{
			"event": ev.Name,
		}, err)
		return
	}

	h.mu.RLock()
	targets := h.clients
	if ev.Room != "" {
		targets = h.rooms[ev.Room]
	}
	dropped := 0
	for c := range targets {
		if !c.enqueue(data) {
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.logger.Debug("event_dropped", "Slow clients skipped an event", "", map[string]interface{}{
			"event":   ev.Name,
			"room":    ev.Room,
			"dropped": dropped,
		})
	}
}

// Members reports how many clients are in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *client, room string) {
	delete(c.rooms, room)
	members := h.rooms[room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.rooms = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
