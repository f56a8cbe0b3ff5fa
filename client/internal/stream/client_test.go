package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/quickbite/client/internal/config"
	"github.com/quickbite/quickbite/pkg/types"
)

// fakeHub accepts sockets, records join-room requests and inbound envelopes,
// and exposes each accepted socket so tests can push frames.
type fakeHub struct {
	t       *testing.T
	srv     *httptest.Server
	header  chan http.Header
	joins   chan types.JoinRoomRequest
	inbound chan types.Envelope
	conns   chan *websocket.Conn
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()
	f := &fakeHub{
		t:       t,
		header:  make(chan http.Header, 8),
		joins:   make(chan types.JoinRoomRequest, 8),
		inbound: make(chan types.Envelope, 8),
		conns:   make(chan *websocket.Conn, 8),
	}
	var up websocket.Upgrader
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.header <- r.Header.Clone()
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- ws
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var env types.Envelope
			if json.Unmarshal(msg, &env) != nil {
				continue
			}
			if env.Event == types.EventJoinRoom {
				var req types.JoinRoomRequest
				_ = json.Unmarshal(env.Data, &req)
				f.joins <- req
				continue
			}
			f.inbound <- env
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHub) accept() *websocket.Conn {
	f.t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(2 * time.Second):
		f.t.Fatal("no connection accepted")
		return nil
	}
}

func (f *fakeHub) nextJoin() types.JoinRoomRequest {
	f.t.Helper()
	select {
	case j := <-f.joins:
		return j
	case <-time.After(2 * time.Second):
		f.t.Fatal("no join-room received")
		return types.JoinRoomRequest{}
	}
}

func push(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := types.NewEnvelope(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
}

type recordingSink struct {
	mu     sync.Mutex
	events []types.DomainEvent
}

func (s *recordingSink) Receive(ev types.DomainEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSink) snapshot() []types.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.DomainEvent(nil), s.events...)
}

func clientConfig(url string) config.ClientConfig {
	c := config.Default().Client
	c.ServerURL = url
	c.Reconnect.Initial = 10 * time.Millisecond
	c.Reconnect.Max = 50 * time.Millisecond
	return c
}

func customer(c config.ClientConfig, id string) config.ClientConfig {
	c.Identity = config.IdentityConfig{UserType: types.UserTypeCustomer, UserID: id}
	return c
}

func start(t *testing.T, c *Client) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestClient_AdminReceivesNewOrder(t *testing.T) {
	hub := newFakeHub(t)
	sink := &recordingSink{}
	c, err := New(clientConfig(hub.srv.URL), sink, nil)
	require.NoError(t, err)
	start(t, c)

	ws := hub.accept()
	join := hub.nextJoin()
	assert.Equal(t, types.AdminRoom, join.Room)
	assert.Equal(t, types.UserTypeAdmin, join.UserType)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := types.OrderPlaced(types.OrderSummary{
		OrderID: "QB-1", UserID: "u1", UserName: "Ana", Status: types.StatusPending,
		Items: []types.OrderItem{{Name: "Burger", Quantity: 2}},
	}, at)
	push(t, ws, types.EventNewOrder, ev.NewOrderMessage())

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	got := sink.snapshot()[0]
	assert.Equal(t, types.KindOrderPlaced, got.Kind)
	assert.Equal(t, "QB-1", got.Payload.OrderID)
	assert.Equal(t, ev.DedupeKey(), got.DedupeKey())
	assert.True(t, at.Equal(got.OriginTimestamp))
}

func TestClient_CustomerStatusCarriesIdentity(t *testing.T) {
	hub := newFakeHub(t)
	sink := &recordingSink{}
	c, err := New(customer(clientConfig(hub.srv.URL), "u7"), sink, nil)
	require.NoError(t, err)
	start(t, c)

	ws := hub.accept()
	join := hub.nextJoin()
	assert.Equal(t, types.CustomerSharedRoom, join.Room)
	assert.Equal(t, "u7", join.UserID)

	eta := 15
	ev := types.StatusChanged(types.StatusUpdateRequest{
		OrderID: "QB-9", UserID: "u7", Status: types.StatusAccepted, EstimatedTime: &eta,
	}, time.Now())
	push(t, ws, types.EventStatusChanged, ev.StatusChangedMessage())
	push(t, ws, "something-else", map[string]string{"x": "y"})

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	got := sink.snapshot()[0]
	assert.Equal(t, types.KindStatusChanged, got.Kind)
	assert.Equal(t, "u7", got.Payload.UserID)
	assert.Equal(t, types.StatusAccepted, got.Payload.Status)
	require.NotNil(t, got.Payload.EstimatedTime)
	assert.Equal(t, 15, *got.Payload.EstimatedTime)
}

func TestClient_PublishBeforeConnect(t *testing.T) {
	c, err := New(clientConfig("http://127.0.0.1:1"), &recordingSink{}, nil)
	require.NoError(t, err)

	err = c.PublishOrderPlaced(types.OrderSummary{OrderID: "QB-1", UserID: "u1"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.Connected())

	err = c.PublishStatusUpdate(types.StatusUpdateRequest{OrderID: "QB-1"})
	assert.ErrorIs(t, err, types.ErrMalformedEvent)
}

func TestClient_Publish(t *testing.T) {
	hub := newFakeHub(t)
	c, err := New(clientConfig(hub.srv.URL), &recordingSink{}, nil)
	require.NoError(t, err)
	start(t, c)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.WaitConnected(ctx))
	assert.True(t, c.Connected())

	require.NoError(t, c.PublishOrderPlaced(types.OrderSummary{OrderID: "QB-2", UserID: "u2"}))
	require.NoError(t, c.PublishStatusUpdate(types.StatusUpdateRequest{
		OrderID: "QB-2", UserID: "u2", Status: types.StatusPreparing,
	}))

	var events []string
	for i := 0; i < 2; i++ {
		select {
		case env := <-hub.inbound:
			events = append(events, env.Event)
		case <-time.After(2 * time.Second):
			t.Fatal("publish not received")
		}
	}
	assert.Equal(t, []string{types.EventOrderPlaced, types.EventStatusUpdate}, events)
}

func TestClient_RejoinsAfterDrop(t *testing.T) {
	hub := newFakeHub(t)

	var mu sync.Mutex
	var states []bool
	c, err := New(customer(clientConfig(hub.srv.URL), "u3"), &recordingSink{}, func(up bool) {
		mu.Lock()
		states = append(states, up)
		mu.Unlock()
	})
	require.NoError(t, err)
	start(t, c)

	first := hub.accept()
	hub.nextJoin()
	first.Close()

	hub.accept()
	again := hub.nextJoin()
	assert.Equal(t, "u3", again.UserID)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []bool{true, false, true}, states[:3])
	mu.Unlock()
}

func TestClient_SendsAPIKey(t *testing.T) {
	t.Setenv("QB_TEST_KEY", "letmein")
	hub := newFakeHub(t)

	cfg := clientConfig(hub.srv.URL)
	cfg.Auth = config.AuthConfig{Mode: "apikey", KeyEnv: "QB_TEST_KEY", Header: "x-qb-key"}
	c, err := New(cfg, &recordingSink{}, nil)
	require.NoError(t, err)
	start(t, c)

	select {
	case h := <-hub.header:
		assert.Equal(t, "letmein", h.Get("x-qb-key"))
	case <-time.After(2 * time.Second):
		t.Fatal("no handshake")
	}
}

func TestClient_StopsOnCancel(t *testing.T) {
	c, err := New(clientConfig("http://127.0.0.1:1"), &recordingSink{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	wctx, wcancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer wcancel()
	assert.ErrorIs(t, c.WaitConnected(wctx), context.DeadlineExceeded)
}

func TestBackoff(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 400*time.Millisecond)

	for _, base := range []time.Duration{100, 200, 400, 400} {
		base *= time.Millisecond
		d := b.next()
		assert.GreaterOrEqual(t, d, base*3/4)
		assert.LessOrEqual(t, d, base*5/4)
	}

	b.reset()
	d := b.next()
	assert.LessOrEqual(t, d, 125*time.Millisecond)
}
