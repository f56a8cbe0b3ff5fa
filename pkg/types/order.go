package types

import "time"

// Status is the lifecycle state of an order.
type Status string

// Order statuses. The progression is one-directional except for the
// terminal cancelled branch.
const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// statusRank orders the forward progression; cancelled is off the line.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusAccepted:  1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusCompleted: 4,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is legal. Forward
// moves (including skips) and same-status refreshes are allowed; any
// non-terminal order may be cancelled.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return s == next
	}
	if next == StatusCancelled {
		return true
	}
	return statusRank[next] >= statusRank[s]
}

// OrderItem is one line of an order.
type OrderItem struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

// Order is the storage record of a pre-order.
type Order struct {
	OrderID       string      `json:"orderId"`
	UserID        string      `json:"userId"`
	UserName      string      `json:"userName"`
	UserEmail     string      `json:"userEmail"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"totalAmount"`
	Status        Status      `json:"status"`
	EstimatedTime *int        `json:"estimatedTime,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// Summary projects the order onto the payload announced to the admin room.
func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		OrderID:     o.OrderID,
		UserID:      o.UserID,
		UserName:    o.UserName,
		UserEmail:   o.UserEmail,
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

// OrderSummary is the order snapshot embedded in a new-order message.
type OrderSummary struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	UserName    string      `json:"userName"`
	UserEmail   string      `json:"userEmail"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Order converts the summary back into an order record. Used by clients
// that hold the admin order list.
func (s OrderSummary) Order() Order {
	return Order{
		OrderID:     s.OrderID,
		UserID:      s.UserID,
		UserName:    s.UserName,
		UserEmail:   s.UserEmail,
		Items:       s.Items,
		TotalAmount: s.TotalAmount,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.CreatedAt,
	}
}
