package types_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/quickbite/pkg/types"
)

func intPtr(v int) *int { return &v }

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to types.Status
		want     bool
	}{
		{types.StatusPending, types.StatusAccepted, true},
		{types.StatusPending, types.StatusReady, true},
		{types.StatusAccepted, types.StatusAccepted, true},
		{types.StatusPreparing, types.StatusAccepted, false},
		{types.StatusReady, types.StatusCancelled, true},
		{types.StatusCompleted, types.StatusCancelled, false},
		{types.StatusCancelled, types.StatusPending, false},
		{types.StatusPending, types.Status("lost"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestDedupeKey(t *testing.T) {
	at := time.Now()
	ev := types.StatusChanged(types.StatusUpdateRequest{
		OrderID: "QB-1", UserID: "42", Status: types.StatusAccepted,
	}, at)
	assert.Equal(t, "status-changed:QB-1:accepted", ev.DedupeKey())

	again := types.StatusChanged(types.StatusUpdateRequest{
		OrderID: "QB-1", UserID: "42", Status: types.StatusAccepted,
	}, at.Add(time.Second))
	assert.Equal(t, ev.DedupeKey(), again.DedupeKey())

	ev.NotificationID = "n-1"
	assert.Equal(t, "n-1", ev.DedupeKey())
}

func TestStatusMessage(t *testing.T) {
	burger := []types.OrderItem{{Name: "Burger", Quantity: 2, Price: 120}}

	msg := types.StatusMessage(types.StatusAccepted, burger, intPtr(10))
	assert.Contains(t, msg, "accepted")
	assert.Contains(t, msg, "10 minutes")

	assert.Equal(t, "2x Burger is ready for pickup! 🎉",
		types.StatusMessage(types.StatusReady, burger, nil))
	assert.Equal(t, "Your order is being prepared",
		types.StatusMessage(types.StatusPreparing, nil, nil))
}

func TestNewOrderText(t *testing.T) {
	text := types.NewOrderText(types.OrderSummary{
		OrderID:     "QB-7",
		UserName:    "Asha",
		Items:       []types.OrderItem{{Name: "Dosa", Quantity: 2}, {Name: "Tea", Quantity: 1}},
		TotalAmount: 1250,
	})
	assert.Equal(t, "New order QB-7 from Asha: 3 items, total 1,250.00", text)
}

func TestStatusUpdateValidate(t *testing.T) {
	valid := types.StatusUpdateRequest{OrderID: "QB-1", UserID: "42", Status: types.StatusReady}
	assert.NoError(t, valid.Validate())

	for name, req := range map[string]types.StatusUpdateRequest{
		"no_order":  {UserID: "42", Status: types.StatusReady},
		"no_user":   {OrderID: "QB-1", Status: types.StatusReady},
		"no_status": {OrderID: "QB-1", UserID: "42"},
		"bad":       {OrderID: "QB-1", UserID: "42", Status: "eaten"},
	} {
		t.Run(name, func(t *testing.T) {
			err := req.Validate()
			assert.True(t, errors.Is(err, types.ErrMalformedEvent))
		})
	}
}

func TestStatusChangedWireShape(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := types.StatusChanged(types.StatusUpdateRequest{
		OrderID:       "QB-1",
		UserID:        "42",
		Status:        types.StatusAccepted,
		EstimatedTime: intPtr(10),
	}, at)

	raw, err := json.Marshal(ev.StatusChangedMessage())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "status-update", m["type"])
	assert.Equal(t, "QB-1", m["orderId"])
	assert.Equal(t, float64(10), m["estimatedTime"])
	assert.NotContains(t, m, "items")
	assert.Contains(t, m["message"], "10 minutes")

	var back types.StatusChangedMessage
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, ev.DedupeKey(), back.Event("42").DedupeKey())
}

func TestOrderPlacedCopiesItems(t *testing.T) {
	items := []types.OrderItem{{Name: "Tea", Quantity: 1}}
	ev := types.OrderPlaced(types.OrderSummary{OrderID: "QB-2", UserID: "7", Items: items}, time.Now())
	items[0].Name = "Coffee"
	assert.Equal(t, "Tea", ev.Payload.Order.Items[0].Name)
}

func TestValidRoom(t *testing.T) {
	assert.True(t, types.ValidRoom(types.AdminRoom))
	assert.True(t, types.ValidRoom(types.CustomerRoom("42")))
	assert.False(t, types.ValidRoom(""))
	assert.False(t, types.ValidRoom("customer 42"))
	assert.False(t, types.ValidRoom("admin/../x"))
}
