package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// A connection is considered dead if no pong arrives within this window
	pongWait = 60 * time.Second

	// Server ping interval; must be under pongWait
	pingPeriod = 45 * time.Second

	// Outbound queue per connection; a full queue marks a slow consumer
	sendBuffer = 32
)

// Policy close codes. 1000 (normal closure) covers graceful close and
// eviction of a superseded connection.
const (
	CloseUnauthenticated = 4001
	CloseForbidden       = 4003
)

// Wire is the transport surface Conn needs; *websocket.Conn satisfies it.
type Wire interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

var _ Wire = (*websocket.Conn)(nil)

// Conn binds one transport connection to a (room, user) identity for its
// lifetime. It is never shared across rooms.
type Conn struct {
	ws          Wire
	roomID      uuid.UUID
	userID      uuid.UUID
	displayName string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(ws Wire, roomID, userID uuid.UUID, displayName string) *Conn {
	return &Conn{
		ws:          ws,
		roomID:      roomID,
		userID:      userID,
		displayName: displayName,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
	}
}

func (c *Conn) RoomID() uuid.UUID   { return c.roomID }
func (c *Conn) UserID() uuid.UUID   { return c.userID }
func (c *Conn) DisplayName() string { return c.displayName }

// enqueue queues a frame for the write pump without blocking. It reports
// false when the connection is closed or the peer is too slow to keep up.
func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close sends a close frame with the given code and tears the connection
// down. Safe to call from any goroutine, repeatedly.
func (c *Conn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		close(c.done)
		// Unblocks the owning read loop, which then unregisters cleanly
		_ = c.ws.Close()
	})
}

// Start launches the write pump. Must be called exactly once, before the
// connection is registered.
func (c *Conn) Start() {
	go c.writePump()
}

// writePump is the only writer of data frames on the transport. It drains
// the send queue and keeps the peer alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop decodes frames sequentially: one message is fully handled before
// the next read. A slow handler delays only this connection.
func (c *Conn) readLoop(handle func([]byte)) {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		handle(data)
	}
}
