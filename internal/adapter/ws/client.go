package ws

import (
	"sync"
	"time"

	"github.com/YelzhanWeb/restaurant/internal/domain"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 8 << 10
	sendBufferSize = 256
)

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	principal domain.Principal
	limiter   *rate.Limiter
	// rooms is guarded by the hub lock.
	rooms map[string]struct{}

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, p domain.Principal, limiter *rate.Limiter) *client {
	return &client{
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		principal: p,
		limiter:   limiter,
		rooms:     make(map[string]struct{}),
	}
}

// enqueue never blocks; it reports false when the message was dropped.
func (c *client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump handles sending messages to the WebSocket client
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, close WebSocket
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			// Send ping to keep connection alive
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
