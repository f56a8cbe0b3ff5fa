package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/quickbite/pkg/types"
	"github.com/quickbite/quickbite/server/internal/api"
	"github.com/quickbite/quickbite/server/internal/auth"
	"github.com/quickbite/quickbite/server/internal/hub"
	"github.com/quickbite/quickbite/server/internal/notify"
	"github.com/quickbite/quickbite/server/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- test helpers -----------------------------------------------------------

const adminKey = "s3cret"

type fakeHub struct{ stats hub.Stats }

func (f fakeHub) Stats() hub.Stats { return f.stats }

type fakeNotes []*notify.Notification

func (f fakeNotes) Recent() []*notify.Notification { return f }

func newAPI(t *testing.T) (*api.Handler, store.Store) {
	t.Helper()
	st := store.NewMemory(time.Hour)
	h := api.New(api.Deps{
		Store:         st,
		Hub:           fakeHub{stats: hub.Stats{Rooms: 2, Connections: 3}},
		Notifications: fakeNotes{{ID: "n1", Kind: types.KindOrderPlaced, OrderID: "QB-1"}},
		Auth:          auth.NewAPIKey("apikey", "x-api-key", adminKey),
		Metrics:       http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics\n")) }), //nolint:errcheck
	})
	return h, st
}

func do(t *testing.T, h http.Handler, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("x-api-key", adminKey)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(v), "body: %s", rr.Body.String())
}

func newOrder(userID string) store.NewOrder {
	return store.NewOrder{
		UserID:   userID,
		UserName: "Asha",
		Items:    []types.OrderItem{{MenuItemID: "m1", Name: "Burger", Quantity: 2, Price: 120}},
	}
}

// --- health / stats ---------------------------------------------------------

func TestHealth(t *testing.T) {
	h, _ := newAPI(t)
	rr := do(t, h, http.MethodGet, "/api/v1/health", nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestStats(t *testing.T) {
	h, _ := newAPI(t)
	rr := do(t, h, http.MethodGet, "/api/v1/stats", nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"rooms":2,"connections":3}`, rr.Body.String())
}

// --- orders -----------------------------------------------------------------

func TestCreateOrder(t *testing.T) {
	h, _ := newAPI(t)
	rr := do(t, h, http.MethodPost, "/api/v1/orders", newOrder("u1"), false)
	require.Equal(t, http.StatusCreated, rr.Code)

	var o types.Order
	decode(t, rr, &o)
	assert.Equal(t, "QB-1", o.OrderID)
	assert.Equal(t, types.StatusPending, o.Status)
	assert.Equal(t, 240.0, o.TotalAmount)
}

func TestCreateOrder_Invalid(t *testing.T) {
	h, _ := newAPI(t)

	rr := do(t, h, http.MethodPost, "/api/v1/orders", store.NewOrder{UserID: "u1"}, false)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString("{"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetOrder(t *testing.T) {
	h, st := newAPI(t)
	o, err := st.CreateOrder(context.Background(), newOrder("u1"))
	require.NoError(t, err)

	rr := do(t, h, http.MethodGet, "/api/v1/orders/"+o.OrderID, nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	var got types.Order
	decode(t, rr, &got)
	assert.Equal(t, o.OrderID, got.OrderID)

	rr = do(t, h, http.MethodGet, "/api/v1/orders/QB-999", nil, false)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListOrders(t *testing.T) {
	h, st := newAPI(t)
	ctx := context.Background()
	for _, u := range []string{"u1", "u2", "u1"} {
		_, err := st.CreateOrder(ctx, newOrder(u))
		require.NoError(t, err)
	}

	rr := do(t, h, http.MethodGet, "/api/v1/orders?userId=u1", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	var mine []types.Order
	decode(t, rr, &mine)
	assert.Len(t, mine, 2)

	rr = do(t, h, http.MethodGet, "/api/v1/orders", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "listing all orders is admin-only")

	rr = do(t, h, http.MethodGet, "/api/v1/orders", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	var all []types.Order
	decode(t, rr, &all)
	assert.Len(t, all, 3)
}

func TestUpdateStatus(t *testing.T) {
	h, st := newAPI(t)
	o, err := st.CreateOrder(context.Background(), newOrder("u1"))
	require.NoError(t, err)
	path := "/api/v1/orders/" + o.OrderID + "/status"

	eta := 12
	rr := do(t, h, http.MethodPatch, path, api.StatusRequest{Status: types.StatusAccepted, EstimatedTime: &eta}, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, h, http.MethodPatch, path, api.StatusRequest{Status: types.StatusAccepted, EstimatedTime: &eta}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	var got types.Order
	decode(t, rr, &got)
	assert.Equal(t, types.StatusAccepted, got.Status)
	require.NotNil(t, got.EstimatedTime)
	assert.Equal(t, 12, *got.EstimatedTime)

	rr = do(t, h, http.MethodPatch, path, api.StatusRequest{Status: "burnt"}, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPatch, path, api.StatusRequest{Status: types.StatusPending}, true)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPatch, "/api/v1/orders/QB-999/status", api.StatusRequest{Status: types.StatusReady}, true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- notifications / metrics / cors -----------------------------------------

func TestNotifications(t *testing.T) {
	h, _ := newAPI(t)
	rr := do(t, h, http.MethodGet, "/api/v1/notifications", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/notifications", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	var notes []notify.Notification
	decode(t, rr, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "QB-1", notes[0].OrderID)
}

func TestMetricsMounted(t *testing.T) {
	h, _ := newAPI(t)
	rr := do(t, h, http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "# metrics\n", rr.Body.String())
}

func TestCORS(t *testing.T) {
	st := store.NewMemory(0)
	h := api.New(api.Deps{Store: st, CORSOrigins: []string{"http://app.local"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://app.local")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://app.local", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
