package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks live connections and which rooms each one watches. Fan-out
// is per room: an event on a room channel reaches every connection
// subscribed to that room.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[uuid.UUID]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*Conn),
		rooms: make(map[uuid.UUID]map[*Conn]struct{}),
	}
}

func (h *Hub) Add(c *Conn) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
}

// Remove drops the connection and all its room subscriptions, then
// closes its send channel.
func (h *Hub) Remove(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.ID]; !ok {
		return
	}
	for roomID := range c.rooms {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.conns, c.ID)
	close(c.send)
}

func (h *Hub) Join(c *Conn, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Conn]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	c.join(roomID)
}

func (h *Hub) Leave(c *Conn, roomID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	c.leave(roomID)
}

// Broadcast delivers payload to every connection watching roomID. Slow
// consumers drop the frame rather than block the caller.
func (h *Hub) Broadcast(roomID uuid.UUID, payload []byte) {
	h.mu.RLock()
	for c := range h.rooms[roomID] {
		c.enqueue(payload)
	}
	h.mu.RUnlock()
}

func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) RoomSubscriberCount(roomID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
