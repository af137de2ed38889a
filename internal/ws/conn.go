package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	// Inbound frames are small control messages; anything bigger is a
	// misbehaving client.
	maxFrameSize = 4 << 10
)

// Conn is one authenticated websocket connection and the set of rooms
// it watches.
type Conn struct {
	ID     string
	UserID uuid.UUID

	ws   *websocket.Conn
	send chan []byte

	mu    sync.RWMutex
	rooms map[uuid.UUID]struct{}
}

func NewConn(ws *websocket.Conn, userID uuid.UUID) *Conn {
	return &Conn{
		ID:     uuid.New().String(),
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, 256),
		rooms:  make(map[uuid.UUID]struct{}),
	}
}

func (c *Conn) join(roomID uuid.UUID) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

func (c *Conn) leave(roomID uuid.UUID) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

func (c *Conn) Watching(roomID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

// enqueue hands a frame to the write loop without blocking. A full
// buffer means the consumer is too slow and the frame is dropped.
func (c *Conn) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

// WriteLoop pumps queued frames to the peer and keeps the connection
// alive with pings. It exits when the send channel closes or ctx ends.
func (c *Conn) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-c.send:
			if !ok {
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
