package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quickbite/quickbite/pkg/types"
)

var (
	// ErrNotFound is returned for an unknown order id.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidOrder is returned when a new order fails validation.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the order's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the order storage contract used by the REST API. The hub never
// writes to it.
type Store interface {
	// CreateOrder persists a new order in pending status and assigns its id.
	CreateOrder(ctx context.Context, in NewOrder) (*types.Order, error)
	// UpdateOrderStatus moves an order to status. A nil estimatedTime keeps
	// the current estimate.
	UpdateOrderStatus(ctx context.Context, id string, status types.Status, estimatedTime *int) (*types.Order, error)
	GetOrder(ctx context.Context, id string) (*types.Order, error)
	// ListOrders returns orders newest first. An empty userID lists every
	// order.
	ListOrders(ctx context.Context, userID string) ([]*types.Order, error)
}

// NewOrder is the input for CreateOrder.
type NewOrder struct {
	UserID      string            `json:"userId"`
	UserName    string            `json:"userName"`
	UserEmail   string            `json:"userEmail"`
	Items       []types.OrderItem `json:"items"`
	TotalAmount float64           `json:"totalAmount"`
}

// Validate checks required fields and item lines.
func (n NewOrder) Validate() error {
	if n.UserID == "" {
		return fmt.Errorf("%w: missing userId", ErrInvalidOrder)
	}
	if len(n.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	for i, it := range n.Items {
		if it.Name == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalidOrder, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidOrder, i)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: item %d price is negative", ErrInvalidOrder, i)
		}
	}
	if n.TotalAmount < 0 {
		return fmt.Errorf("%w: negative total", ErrInvalidOrder)
	}
	return nil
}

// build turns validated input into a pending order record. A zero total is
// computed from the item lines.
func (n NewOrder) build(id string, now time.Time) *types.Order {
	items := append([]types.OrderItem(nil), n.Items...)
	total := n.TotalAmount
	if total == 0 {
		for _, it := range items {
			total += float64(it.Quantity) * it.Price
		}
	}
	return &types.Order{
		OrderID:     id,
		UserID:      n.UserID,
		UserName:    n.UserName,
		UserEmail:   n.UserEmail,
		Items:       items,
		TotalAmount: total,
		Status:      types.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// applyStatus validates and applies a status change in place.
func applyStatus(o *types.Order, status types.Status, estimatedTime *int, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	if !o.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, status)
	}
	o.Status = status
	if estimatedTime != nil {
		eta := *estimatedTime
		o.EstimatedTime = &eta
	}
	o.UpdatedAt = now
	return nil
}

func orderID(seq int64) string {
	return fmt.Sprintf("QB-%d", seq)
}

func cloneOrder(o *types.Order) *types.Order {
	c := *o
	c.Items = append([]types.OrderItem(nil), o.Items...)
	if o.EstimatedTime != nil {
		eta := *o.EstimatedTime
		c.EstimatedTime = &eta
	}
	return &c
}
