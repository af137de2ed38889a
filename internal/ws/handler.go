package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chatvault/internal/services"
	"chatvault/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RoomMembership answers whether a user belongs to a room. Satisfied by
// services.RoomService.
type RoomMembership interface {
	IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientFrame is the inbound control protocol: clients ask to watch or
// stop watching rooms.
type clientFrame struct {
	Action string `json:"action"`
	RoomID string `json:"room_id"`
}

type serverFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Handler struct {
	hub        *Hub
	membership RoomMembership
	logger     *logger.Logger
}

func NewHandler(hub *Hub, membership RoomMembership, l *logger.Logger) *Handler {
	return &Handler{hub: hub, membership: membership, logger: l}
}

// Serve upgrades the request and runs the connection until the peer
// goes away. Room subscriptions are granted only to participants, and
// membership is checked at subscribe time on every request.
func (h *Handler) Serve(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithContext(c.Request.Context()).Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := NewConn(socket, userID)
	h.hub.Add(conn)

	ctx, cancel := context.WithCancel(c.Request.Context())
	go func() {
		conn.WriteLoop(ctx)
		cancel()
	}()

	h.readLoop(ctx, conn)

	cancel()
	h.hub.Remove(conn)
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn) {
	conn.ws.SetReadLimit(maxFrameSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.reply(conn, serverFrame{Type: "error", Error: "malformed frame"})
			continue
		}

		roomID, err := uuid.Parse(frame.RoomID)
		if err != nil {
			h.reply(conn, serverFrame{Type: "error", Error: "invalid room id"})
			continue
		}

		switch frame.Action {
		case "subscribe":
			member, err := h.membership.IsParticipant(ctx, roomID, conn.UserID)
			if err != nil {
				h.logger.WithContext(ctx).Error("membership check failed",
					zap.String("room_id", roomID.String()), zap.Error(err))
				h.reply(conn, serverFrame{Type: "error", RoomID: frame.RoomID, Error: "subscription failed"})
				continue
			}
			if !member {
				h.reply(conn, serverFrame{Type: "error", RoomID: frame.RoomID, Error: "not a participant"})
				continue
			}
			h.hub.Join(conn, roomID)
			h.reply(conn, serverFrame{Type: "subscribed", RoomID: frame.RoomID})
		case "unsubscribe":
			h.hub.Leave(conn, roomID)
			h.reply(conn, serverFrame{Type: "unsubscribed", RoomID: frame.RoomID})
		default:
			h.reply(conn, serverFrame{Type: "error", Error: "unknown action"})
		}
	}
}

func (h *Handler) reply(conn *Conn, frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	conn.enqueue(data)
}
