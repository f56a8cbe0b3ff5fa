package types

import (
	"slices"
	"strings"
	"time"
)

// EventKind identifies which lifecycle fact a DomainEvent carries.
type EventKind string

// Event kinds published through the hub.
const (
	KindOrderPlaced   EventKind = "order-placed"
	KindStatusChanged EventKind = "status-changed"
)

// Payload is the body of a DomainEvent. Order is set for order-placed
// events; EstimatedTime and Items are optional on status-changed events.
type Payload struct {
	OrderID       string
	UserID        string
	Status        Status
	EstimatedTime *int
	Items         []OrderItem
	Order         *OrderSummary
	Message       string
}

// DomainEvent is an immutable fact emitted into the hub. Events are never
// persisted; if no connection is present in the target room the event is
// lost.
type DomainEvent struct {
	Kind            EventKind
	Payload         Payload
	OriginTimestamp time.Time

	// NotificationID, when supplied, replaces the derived dedupe key.
	NotificationID string
}

// DedupeKey returns the identifier that collapses repeated deliveries of
// the same logical event: the notification id when one was supplied,
// otherwise kind, order id and status joined by colons.
func (e DomainEvent) DedupeKey() string {
	if e.NotificationID != "" {
		return e.NotificationID
	}
	return DedupeKey(e.Kind, e.Payload.OrderID, e.Payload.Status)
}

// DedupeKey derives the dedupe key for an event without a notification id.
func DedupeKey(kind EventKind, orderID string, status Status) string {
	return strings.Join([]string{string(kind), orderID, string(status)}, ":")
}

// OrderPlaced builds the order-placed event for an order summary.
func OrderPlaced(order OrderSummary, at time.Time) DomainEvent {
	order.Items = slices.Clone(order.Items)
	return DomainEvent{
		Kind: KindOrderPlaced,
		Payload: Payload{
			OrderID: order.OrderID,
			UserID:  order.UserID,
			Status:  order.Status,
			Items:   order.Items,
			Order:   &order,
			Message: NewOrderText(order),
		},
		OriginTimestamp: at,
	}
}

// StatusChanged builds the status-changed event for an admin update.
func StatusChanged(u StatusUpdateRequest, at time.Time) DomainEvent {
	items := slices.Clone(u.Items)
	return DomainEvent{
		Kind: KindStatusChanged,
		Payload: Payload{
			OrderID:       u.OrderID,
			UserID:        u.UserID,
			Status:        u.Status,
			EstimatedTime: copyInt(u.EstimatedTime),
			Items:         items,
			Message:       StatusMessage(u.Status, items, u.EstimatedTime),
		},
		OriginTimestamp: at,
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
