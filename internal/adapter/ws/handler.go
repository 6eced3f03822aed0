package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/adapter/auth"
	"github.com/YelzhanWeb/restaurant/internal/adapter/logger"
	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/YelzhanWeb/restaurant/internal/interfaces"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const frameTimeout = 5 * time.Second

// inbound is a client frame. Only the fields of its type are set.
type inbound struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId"`
	OrderID string `json:"orderId"`
	Text    string `json:"text"`
}

type Options struct {
	AllowedOrigins []string
	RatePerSecond  float64
	Burst          int
}

type Handler struct {
	hub         *Hub
	chats       interfaces.ChatService
	orders      interfaces.OrderService
	broadcaster interfaces.EventBroadcaster
	upgrader    websocket.Upgrader
	limit       rate.Limit
	burst       int
	logger      logger.Logger
}

func NewHandler(
	hub *Hub,
	chats interfaces.ChatService,
	orders interfaces.OrderService,
	broadcaster interfaces.EventBroadcaster,
	opts Options,
	logger logger.Logger,
) *Handler {
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Handler{
		hub:         hub,
		chats:       chats,
		orders:      orders,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		limit:  rate.Limit(opts.RatePerSecond),
		burst:  burst,
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeHTTP upgrades an authenticated request and serves the connection
// until the peer goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.Debug("ws_upgrade_failed", "WebSocket upgrade failed", "", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	c := newClient(conn, principal, rate.NewLimiter(h.limit, h.burst))
	h.hub.add(c)
	h.logger.Debug("ws_connected", "WebSocket client connected", "", map[string]interface{}{
		"user_id": principal.UserID,
		"clients": h.hub.Clients(),
	})

	go c.writePump()
	h.readPump(r.Context(), c)
}

// readPump handles incoming frames from the WebSocket client
func (h *Handler) readPump(ctx context.Context, c *client) {
	defer func() {
		h.hub.remove(c)
		h.logger.Debug("ws_disconnected", "WebSocket client disconnected", "", map[string]interface{}{
			"user_id": c.principal.UserID,
			"clients": h.hub.Clients(),
		})
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("ws_read_failed", "Unexpected WebSocket close", "", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}

		if !c.limiter.Allow() {
			h.sendError(c, domain.Validation("rate limit exceeded"))
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(c, domain.Validation("malformed frame"))
			continue
		}

		frameCtx, cancel := context.WithTimeout(ctx, frameTimeout)
		h.dispatch(frameCtx, c, msg)
		cancel()
	}
}

func (h *Handler) joinRoom(c *client, room string) {
	h.hub.join(c, room)
	h.logger.Debug("ws_room_joined", "Client joined room", "", map[string]interface{}{
		"user_id": c.principal.UserID,
		"room":    room,
		"members": h.hub.Members(room),
	})
	h.reply(c, "joined", map[string]string{"room": room})
}

func (h *Handler) dispatch(ctx context.Context, c *client, msg inbound) {
	switch msg.Type {
	case "join_room":
		if _, err := h.chats.Join(ctx, c.principal, msg.ChatID); err != nil {
			h.sendError(c, err)
			return
		}
		room := domain.ChatRoom(msg.ChatID)
		h.joinRoom(c, room)

	case "leave_room":
		room := domain.ChatRoom(msg.ChatID)
		h.hub.leave(c, room)
		h.reply(c, "left", map[string]string{"room": room})

	case "join_order":
		if _, err := h.orders.GetOrder(ctx, c.principal, msg.OrderID); err != nil {
			h.sendError(c, err)
			return
		}
		room := domain.OrderRoom(msg.OrderID)
		h.joinRoom(c, room)

	case "send_message":
		sent, err := h.chats.Send(ctx, c.principal, msg.ChatID, msg.Text)
		if err != nil {
			h.sendError(c, err)
			return
		}
		h.broadcaster.Broadcast(ctx, sent.Events...)

	default:
		h.sendError(c, domain.Validation("unknown frame type %q", msg.Type))
	}
}

func (h *Handler) reply(c *client, typ string, data interface{}) {
	payload, err := json.Marshal(frame{Type: typ, Data: data})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (h *Handler) sendError(c *client, err error) {
	message := err.Error()
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		h.logger.Error("ws_frame_failed", "Failed to handle WebSocket frame", "", map[string]interface{}{
			"user_id": c.principal.UserID,
		}, err)
		message = "internal error"
	}
	h.reply(c, "error", map[string]string{"kind": string(kind), "message": message})
}
