package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	defaultSendBuffer     = 32
	defaultMaxMessageSize = 64 << 10
)

var (
	// ErrConnClosed is returned by Send after Close.
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a slow client's queue is full.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is a websocket client connection.
type Conn struct {
	id    string
	ws    *websocket.Conn
	admin bool

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newConn(id string, ws *websocket.Conn, admin bool, buffer int) *Conn {
	return &Conn{
		id:    id,
		ws:    ws,
		admin: admin,
		send:  make(chan []byte, buffer),
	}
}

// ID returns the connection's unique id.
func (c *Conn) ID() string { return c.id }

// Admin reports whether the upgrade request carried admin credentials.
func (c *Conn) Admin() bool { return c.admin }

// Send queues data for the write pump without blocking.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the
// socket. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// writePump drains the send channel to the socket and sends periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump hands each inbound frame to handle. Blocks until the connection
// closes.
func (c *Conn) readPump(limit int64, handle func([]byte)) {
	c.ws.SetReadLimit(limit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		handle(msg)
	}
}
