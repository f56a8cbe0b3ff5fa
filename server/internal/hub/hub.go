package hub

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/quickbite/quickbite/pkg/types"
)

// Recorder receives hub activity counts. The metrics collector implements it.
type Recorder interface {
	Published(kind types.EventKind, delivered int)
	Rejected(kind types.EventKind)
	SendFailed()
}

type nopRecorder struct{}

func (nopRecorder) Published(types.EventKind, int) {}
func (nopRecorder) Rejected(types.EventKind)       {}
func (nopRecorder) SendFailed()                    {}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Hub routes domain events to room members. Delivery is best effort: events
// published to an empty room are dropped, and nothing is persisted or
// replayed.
type Hub struct {
	registry *Registry
	recorder Recorder
	now      func() time.Time

	// adminCheck, when set, guards the admin room and admin-only inbound
	// events.
	adminCheck func(*http.Request) bool

	sendBuffer     int
	maxMessageSize int64

	// pubMu serializes publishes so members of a room observe events in
	// publish order.
	pubMu sync.Mutex

	obsMu     sync.RWMutex
	observers []func(types.DomainEvent)
}

// Option configures a Hub.
type Option func(*Hub)

// WithRecorder reports publish and delivery counts to r.
func WithRecorder(r Recorder) Option {
	return func(h *Hub) { h.recorder = r }
}

// WithAdminCheck restricts the admin room to connections whose upgrade
// request satisfies check.
func WithAdminCheck(check func(*http.Request) bool) Option {
	return func(h *Hub) { h.adminCheck = check }
}

// WithTransport sets the per-connection send buffer depth and the maximum
// inbound message size.
func WithTransport(sendBuffer int, maxMessageSize int64) Option {
	return func(h *Hub) {
		if sendBuffer > 0 {
			h.sendBuffer = sendBuffer
		}
		if maxMessageSize > 0 {
			h.maxMessageSize = maxMessageSize
		}
	}
}

// WithClock overrides the timestamp source for emitted events.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// New creates a Hub with an empty registry.
func New(opts ...Option) *Hub {
	h := &Hub{
		registry:       NewRegistry(),
		recorder:       nopRecorder{},
		now:            time.Now,
		sendBuffer:     defaultSendBuffer,
		maxMessageSize: defaultMaxMessageSize,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Observe registers fn to receive every emitted event after delivery.
func (h *Hub) Observe(fn func(types.DomainEvent)) {
	h.obsMu.Lock()
	h.observers = append(h.observers, fn)
	h.obsMu.Unlock()
}

// Stats returns current room and connection counts.
func (h *Hub) Stats() Stats {
	rooms, conns := h.registry.Stats()
	return Stats{Rooms: rooms, Connections: conns}
}

// JoinRoom adds conn to room. Joining twice is a no-op. Malformed room names
// are ignored, as is an unauthorized attempt to join the admin room.
func (h *Hub) JoinRoom(conn Connection, room string) {
	if !types.ValidRoom(room) {
		slog.Warn("hub: ignoring join with malformed room", "conn", conn.ID(), "room", room)
		return
	}
	if room == types.AdminRoom && !h.isAdmin(conn) {
		slog.Warn("hub: unauthorized admin join ignored", "conn", conn.ID())
		return
	}
	if h.registry.Add(conn, room) {
		slog.Debug("hub: joined room", "conn", conn.ID(), "room", room)
	}
}

// Join handles a join-room request. A customer naming a user id is also
// placed in that user's private room.
func (h *Hub) Join(conn Connection, req types.JoinRoomRequest) {
	h.JoinRoom(conn, req.Room)
	if req.UserType == types.UserTypeCustomer && req.UserID != "" {
		room := types.CustomerRoom(req.UserID)
		if room != req.Room {
			h.JoinRoom(conn, room)
		}
	}
}

// PublishOrderPlaced announces a new order to the admin room.
func (h *Hub) PublishOrderPlaced(order types.OrderSummary) error {
	if err := order.Validate(); err != nil {
		h.recorder.Rejected(types.KindOrderPlaced)
		slog.Warn("hub: rejected order-placed", "order", order.OrderID, "err", err)
		return err
	}
	ev := types.OrderPlaced(order, h.now())
	h.publish(types.AdminRoom, types.EventNewOrder, ev, ev.NewOrderMessage())
	return nil
}

// PublishStatusChanged notifies the order owner's private room.
func (h *Hub) PublishStatusChanged(update types.StatusUpdateRequest) error {
	if err := update.Validate(); err != nil {
		h.recorder.Rejected(types.KindStatusChanged)
		slog.Warn("hub: rejected order-status-update", "order", update.OrderID, "err", err)
		return err
	}
	ev := types.StatusChanged(update, h.now())
	h.publish(types.CustomerRoom(update.UserID), types.EventStatusChanged, ev, ev.StatusChangedMessage())
	return nil
}

// OnDisconnect removes conn from every room. No delivery to conn happens
// after it returns.
func (h *Hub) OnDisconnect(conn Connection) {
	if left := h.registry.RemoveAll(conn); left != nil {
		slog.Debug("hub: connection removed", "conn", conn.ID(), "rooms", len(left))
	}
}

func (h *Hub) publish(room, event string, ev types.DomainEvent, body any) {
	data, err := types.NewEnvelope(event, body)
	if err != nil {
		slog.Error("hub: encode event", "event", event, "err", err)
		return
	}

	var failed []Connection
	delivered := 0

	h.pubMu.Lock()
	h.registry.Each(room, func(c Connection) {
		if err := c.Send(data); err != nil {
			failed = append(failed, c)
			return
		}
		delivered++
	})
	h.pubMu.Unlock()

	// Teardown takes the registry write lock, so it runs outside Each.
	for _, c := range failed {
		h.recorder.SendFailed()
		slog.Warn("hub: send failed, dropping connection", "conn", c.ID(), "room", room)
		go h.drop(c)
	}

	h.recorder.Published(ev.Kind, delivered)
	slog.Debug("hub: published", "event", event, "room", room, "delivered", delivered)

	h.obsMu.RLock()
	observers := h.observers
	h.obsMu.RUnlock()
	for _, fn := range observers {
		fn(ev)
	}
}

func (h *Hub) drop(c Connection) {
	h.OnDisconnect(c)
	c.Close() //nolint:errcheck
}

type privileged interface {
	Admin() bool
}

func (h *Hub) isAdmin(conn Connection) bool {
	if h.adminCheck == nil {
		return true
	}
	p, ok := conn.(privileged)
	return ok && p.Admin()
}
