package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/quickbite/quickbite/client/internal/config"
	"github.com/quickbite/quickbite/pkg/types"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second

	// readWait must exceed the server's ping period.
	readWait = 70 * time.Second
)

// ErrNotConnected is returned by publishes while no session is open.
var ErrNotConnected = errors.New("stream: not connected")

// Sink consumes decoded hub events. feed.Reducer satisfies it.
type Sink interface {
	Receive(types.DomainEvent) bool
}

// Client keeps one websocket session to the hub alive, rejoining its room
// after every reconnect.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	join   types.JoinRoomRequest
	userID string
	sink   Sink

	initial time.Duration
	max     time.Duration

	// writeMu serializes writes and guards conn and up.
	writeMu sync.Mutex
	conn    *websocket.Conn
	up      chan struct{}

	connected atomic.Bool
	onState   func(bool)
}

// New builds a client for cfg that delivers events to sink. onState, when
// non-nil, is called with every change of the connected flag.
func New(cfg config.ClientConfig, sink Sink, onState func(connected bool)) (*Client, error) {
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}

	header := http.Header{}
	if cfg.Auth.Mode == "apikey" {
		header.Set(cfg.Auth.EffectiveHeader(), cfg.Auth.Key())
	}

	return &Client{
		url:    cfg.StreamURL(),
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			TLSClientConfig:  tlsCfg,
		},
		join:    joinRequest(cfg.Identity),
		userID:  cfg.Identity.UserID,
		sink:    sink,
		initial: cfg.Reconnect.Initial,
		max:     cfg.Reconnect.Max,
		up:      make(chan struct{}),
		onState: onState,
	}, nil
}

// joinRequest maps an identity to its join-room message. Customers join the
// shared customer room with their id; the hub adds their personal room.
func joinRequest(id config.IdentityConfig) types.JoinRoomRequest {
	if id.Admin() {
		return types.JoinRoomRequest{Room: types.AdminRoom, UserType: types.UserTypeAdmin}
	}
	return types.JoinRoomRequest{
		Room:     types.CustomerSharedRoom,
		UserID:   id.UserID,
		UserType: types.UserTypeCustomer,
	}
}

// Connected reports whether a session is currently open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// WaitConnected blocks until a session is open or ctx ends.
func (c *Client) WaitConnected(ctx context.Context) error {
	c.writeMu.Lock()
	up := c.up
	c.writeMu.Unlock()

	select {
	case <-up:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run dials the hub and reads events until ctx is cancelled, reconnecting
// with backoff whenever the session fails.
func (c *Client) Run(ctx context.Context) {
	bo := newBackoff(c.initial, c.max)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			wait := bo.next()
			slog.Warn("stream: dial failed, will retry", "url", c.url, "err", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		slog.Info("stream: connected", "url", c.url, "room", c.join.Room)
		bo.reset()

		err = c.session(ctx, conn)
		c.detach(conn)

		if ctx.Err() != nil {
			return
		}

		wait := bo.next()
		slog.Warn("stream: connection lost, will reconnect", "url", c.url, "err", err, "retry_in", wait)
		if !sleep(ctx, wait) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// dial opens a socket and sends join-room before publishing it to writers.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}

	frame, err := types.NewEnvelope(types.EventJoinRoom, c.join)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join room: %w", err)
	}

	c.attach(conn)
	return conn, nil
}

func (c *Client) attach(conn *websocket.Conn) {
	c.writeMu.Lock()
	c.conn = conn
	close(c.up)
	c.writeMu.Unlock()
	c.setState(true)
}

func (c *Client) detach(conn *websocket.Conn) {
	c.writeMu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.up = make(chan struct{})
	}
	c.writeMu.Unlock()
	conn.Close()
	c.setState(false)
}

func (c *Client) setState(up bool) {
	if c.connected.Swap(up) != up && c.onState != nil {
		c.onState(up)
	}
}

// session reads frames until the socket fails or ctx ends.
func (c *Client) session(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl( //nolint:errcheck
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	})
	defer stop()

	conn.SetReadDeadline(time.Now().Add(readWait)) //nolint:errcheck
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readWait)) //nolint:errcheck
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readWait)) //nolint:errcheck
		c.handle(msg)
	}
}

// handle decodes one hub frame and forwards it to the sink.
func (c *Client) handle(msg []byte) {
	res := gjson.GetManyBytes(msg, "event", "data")
	event, data := res[0].String(), []byte(res[1].Raw)

	switch event {
	case types.EventNewOrder:
		var m types.NewOrderMessage
		if err := json.Unmarshal(data, &m); err != nil {
			slog.Warn("stream: bad new-order payload", "err", err)
			return
		}
		c.sink.Receive(m.Event())

	case types.EventStatusChanged:
		var m types.StatusChangedMessage
		if err := json.Unmarshal(data, &m); err != nil {
			slog.Warn("stream: bad status payload", "err", err)
			return
		}
		c.sink.Receive(m.Event(c.userID))

	default:
		slog.Debug("stream: ignoring event", "event", event)
	}
}

// PublishOrderPlaced announces a newly stored order to the admin room.
func (c *Client) PublishOrderPlaced(order types.OrderSummary) error {
	if err := order.Validate(); err != nil {
		return err
	}
	return c.write(types.EventOrderPlaced, order)
}

// PublishStatusUpdate asks the hub to notify the order's customer.
func (c *Client) PublishStatusUpdate(update types.StatusUpdateRequest) error {
	if err := update.Validate(); err != nil {
		return err
	}
	return c.write(types.EventStatusUpdate, update)
}

func (c *Client) write(event string, data any) error {
	frame, err := types.NewEnvelope(event, data)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("stream: write %s: %w", event, err)
	}
	return nil
}
