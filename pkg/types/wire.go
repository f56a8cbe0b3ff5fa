package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Websocket event names. Inbound names are sent by clients, outbound names
// by the hub.
const (
	EventJoinRoom      = "join-room"
	EventOrderPlaced   = "order-placed"
	EventStatusUpdate  = "order-status-update"
	EventNewOrder      = "new-order"
	EventStatusChanged = "order-status-changed"
)

// Message type tags carried inside outbound payloads.
const (
	TypeNewOrder     = "new-order"
	TypeStatusUpdate = "status-update"
)

// User types accepted in join-room requests.
const (
	UserTypeAdmin    = "admin"
	UserTypeCustomer = "customer"
)

// ErrMalformedEvent is returned for a publish missing a required field.
var ErrMalformedEvent = errors.New("malformed event")

// Envelope frames every websocket message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope marshals data under the given event name.
func NewEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// JoinRoomRequest is the join-room control message.
type JoinRoomRequest struct {
	Room     string `json:"room"`
	UserID   string `json:"userId,omitempty"`
	UserType string `json:"userType"`
}

// StatusUpdateRequest is the admin-originated order-status-update payload.
type StatusUpdateRequest struct {
	OrderID       string      `json:"orderId"`
	Status        Status      `json:"status"`
	UserID        string      `json:"userId"`
	EstimatedTime *int        `json:"estimatedTime,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
}

// Validate rejects updates missing the order id, user id or a known status.
func (u StatusUpdateRequest) Validate() error {
	switch {
	case u.OrderID == "":
		return fmt.Errorf("%w: missing orderId", ErrMalformedEvent)
	case u.UserID == "":
		return fmt.Errorf("%w: missing userId", ErrMalformedEvent)
	case u.Status == "":
		return fmt.Errorf("%w: missing status", ErrMalformedEvent)
	case !u.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrMalformedEvent, u.Status)
	}
	return nil
}

// Validate rejects order announcements without an order or user id.
func (s OrderSummary) Validate() error {
	switch {
	case s.OrderID == "":
		return fmt.Errorf("%w: missing orderId", ErrMalformedEvent)
	case s.UserID == "":
		return fmt.Errorf("%w: missing userId", ErrMalformedEvent)
	}
	return nil
}

// NewOrderMessage is the hub's payload to the admin room.
type NewOrderMessage struct {
	Type      string       `json:"type"`
	Order     OrderSummary `json:"order"`
	Timestamp time.Time    `json:"timestamp"`
	Message   string       `json:"message"`
}

// StatusChangedMessage is the hub's payload to a customer room.
type StatusChangedMessage struct {
	Type          string      `json:"type"`
	OrderID       string      `json:"orderId"`
	Status        Status      `json:"status"`
	EstimatedTime *int        `json:"estimatedTime,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	Message       string      `json:"message"`
}

// NewOrderMessage renders an order-placed event for the wire.
func (e DomainEvent) NewOrderMessage() NewOrderMessage {
	var order OrderSummary
	if e.Payload.Order != nil {
		order = *e.Payload.Order
	}
	return NewOrderMessage{
		Type:      TypeNewOrder,
		Order:     order,
		Timestamp: e.OriginTimestamp,
		Message:   e.Payload.Message,
	}
}

// StatusChangedMessage renders a status-changed event for the wire.
func (e DomainEvent) StatusChangedMessage() StatusChangedMessage {
	return StatusChangedMessage{
		Type:          TypeStatusUpdate,
		OrderID:       e.Payload.OrderID,
		Status:        e.Payload.Status,
		EstimatedTime: e.Payload.EstimatedTime,
		Items:         e.Payload.Items,
		Timestamp:     e.OriginTimestamp,
		Message:       e.Payload.Message,
	}
}

// Event converts a received new-order message back into a DomainEvent.
func (m NewOrderMessage) Event() DomainEvent {
	order := m.Order
	return DomainEvent{
		Kind: KindOrderPlaced,
		Payload: Payload{
			OrderID: order.OrderID,
			UserID:  order.UserID,
			Status:  order.Status,
			Items:   order.Items,
			Order:   &order,
			Message: m.Message,
		},
		OriginTimestamp: m.Timestamp,
	}
}

// Event converts a received status message back into a DomainEvent. The
// wire shape omits the user id; receivers pass the identity they joined as.
func (m StatusChangedMessage) Event(userID string) DomainEvent {
	return DomainEvent{
		Kind: KindStatusChanged,
		Payload: Payload{
			OrderID:       m.OrderID,
			UserID:        userID,
			Status:        m.Status,
			EstimatedTime: m.EstimatedTime,
			Items:         m.Items,
			Message:       m.Message,
		},
		OriginTimestamp: m.Timestamp,
	}
}
