package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/quickbite/quickbite/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origins are restricted by the HTTP layer's CORS config.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the request to a websocket and serves the connection
// until it closes. The connection belongs to no room until it sends
// join-room.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	admin := h.adminCheck == nil || h.adminCheck(r)
	c := newConn(uuid.NewString(), ws, admin, h.sendBuffer)
	slog.Info("hub: client connected", "conn", c.ID(), "remote", r.RemoteAddr, "admin", admin)

	defer func() {
		h.OnDisconnect(c)
		c.Close() //nolint:errcheck
		slog.Info("hub: client disconnected", "conn", c.ID())
	}()

	go c.writePump()
	c.readPump(h.maxMessageSize, func(msg []byte) { h.dispatch(c, msg) })
}

// dispatch routes one inbound envelope. Malformed input is logged and
// dropped; nothing is reported back to the peer.
func (h *Hub) dispatch(c Connection, msg []byte) {
	if !gjson.ValidBytes(msg) {
		slog.Warn("hub: invalid json frame", "conn", c.ID())
		return
	}
	event := gjson.GetBytes(msg, "event").String()
	data := gjson.GetBytes(msg, "data")
	if !data.IsObject() {
		slog.Warn("hub: frame without data object", "conn", c.ID(), "event", event)
		return
	}

	switch event {
	case types.EventJoinRoom:
		var req types.JoinRoomRequest
		if err := json.Unmarshal([]byte(data.Raw), &req); err != nil {
			slog.Warn("hub: decode join-room", "conn", c.ID(), "err", err)
			return
		}
		h.Join(c, req)

	case types.EventOrderPlaced:
		var order types.OrderSummary
		if err := json.Unmarshal([]byte(data.Raw), &order); err != nil {
			slog.Warn("hub: decode order-placed", "conn", c.ID(), "err", err)
			return
		}
		h.PublishOrderPlaced(order) //nolint:errcheck

	case types.EventStatusUpdate:
		if !h.isAdmin(c) {
			slog.Warn("hub: unauthorized order-status-update ignored", "conn", c.ID())
			return
		}
		var update types.StatusUpdateRequest
		if err := json.Unmarshal([]byte(data.Raw), &update); err != nil {
			slog.Warn("hub: decode order-status-update", "conn", c.ID(), "err", err)
			return
		}
		h.PublishStatusChanged(update) //nolint:errcheck

	default:
		slog.Debug("hub: ignoring unknown event", "conn", c.ID(), "event", event)
	}
}
