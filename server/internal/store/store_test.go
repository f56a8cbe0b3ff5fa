package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/quickbite/pkg/types"
)

// clock returns a controllable time source starting at base.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func burger(userID string) NewOrder {
	return NewOrder{
		UserID:   userID,
		UserName: "Asha",
		Items: []types.OrderItem{
			{MenuItemID: "m1", Name: "Burger", Quantity: 2, Price: 120},
			{MenuItemID: "m2", Name: "Fries", Quantity: 1, Price: 60},
		},
	}
}

// backends runs each contract test against every Store implementation.
func backends(t *testing.T) map[string]func(*clock) Store {
	return map[string]func(*clock) Store{
		"memory": func(c *clock) Store {
			m := NewMemory(time.Hour)
			m.now = c.now
			return m
		},
		"redis": func(c *clock) Store {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { rdb.Close() })
			r := NewRedis(rdb, "qb:", time.Hour)
			r.now = c.now
			return r
		},
	}
}

func TestStore_CreateAssignsIDAndPending(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := mk(&clock{t: base})

			o, err := st.CreateOrder(ctx, burger("u1"))
			require.NoError(t, err)
			assert.Equal(t, "QB-1", o.OrderID)
			assert.Equal(t, types.StatusPending, o.Status)
			assert.Equal(t, 300.0, o.TotalAmount)
			assert.True(t, o.CreatedAt.Equal(base))

			o2, err := st.CreateOrder(ctx, burger("u1"))
			require.NoError(t, err)
			assert.Equal(t, "QB-2", o2.OrderID)
		})
	}
}

func TestStore_CreateRejectsInvalid(t *testing.T) {
	cases := map[string]NewOrder{
		"no user":       {Items: []types.OrderItem{{Name: "Tea", Quantity: 1}}},
		"no items":      {UserID: "u1"},
		"zero quantity": {UserID: "u1", Items: []types.OrderItem{{Name: "Tea"}}},
		"no name":       {UserID: "u1", Items: []types.OrderItem{{Quantity: 1}}},
	}
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st := mk(&clock{t: base})
			for label, in := range cases {
				_, err := st.CreateOrder(context.Background(), in)
				assert.ErrorIs(t, err, ErrInvalidOrder, label)
			}
		})
	}
}

func TestStore_StatusLifecycle(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := &clock{t: base}
			st := mk(clk)
			o, err := st.CreateOrder(ctx, burger("u1"))
			require.NoError(t, err)

			eta := 15
			clk.advance(time.Minute)
			got, err := st.UpdateOrderStatus(ctx, o.OrderID, types.StatusAccepted, &eta)
			require.NoError(t, err)
			assert.Equal(t, types.StatusAccepted, got.Status)
			require.NotNil(t, got.EstimatedTime)
			assert.Equal(t, 15, *got.EstimatedTime)
			assert.True(t, got.UpdatedAt.Equal(base.Add(time.Minute)))

			// Same status refreshes the estimate; a nil estimate keeps it.
			eta = 5
			got, err = st.UpdateOrderStatus(ctx, o.OrderID, types.StatusAccepted, &eta)
			require.NoError(t, err)
			assert.Equal(t, 5, *got.EstimatedTime)
			got, err = st.UpdateOrderStatus(ctx, o.OrderID, types.StatusReady, nil)
			require.NoError(t, err)
			assert.Equal(t, 5, *got.EstimatedTime)

			_, err = st.UpdateOrderStatus(ctx, o.OrderID, types.StatusPreparing, nil)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			_, err = st.UpdateOrderStatus(ctx, o.OrderID, types.StatusCompleted, nil)
			require.NoError(t, err)
			_, err = st.UpdateOrderStatus(ctx, o.OrderID, types.StatusCancelled, nil)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			_, err = st.UpdateOrderStatus(ctx, o.OrderID, types.Status("burnt"), nil)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			fetched, err := st.GetOrder(ctx, o.OrderID)
			require.NoError(t, err)
			assert.Equal(t, types.StatusCompleted, fetched.Status)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := mk(&clock{t: base})
			_, err := st.GetOrder(ctx, "QB-404")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = st.UpdateOrderStatus(ctx, "QB-404", types.StatusAccepted, nil)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_ListNewestFirstAndByUser(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := &clock{t: base}
			st := mk(clk)
			for _, u := range []string{"u1", "u2", "u1"} {
				_, err := st.CreateOrder(ctx, burger(u))
				require.NoError(t, err)
				clk.advance(time.Second)
			}

			all, err := st.ListOrders(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []string{"QB-3", "QB-2", "QB-1"}, ids(all))

			mine, err := st.ListOrders(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, []string{"QB-3", "QB-1"}, ids(mine))

			none, err := st.ListOrders(ctx, "nobody")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_ReturnedOrdersAreCopies(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := mk(&clock{t: base})
			o, err := st.CreateOrder(ctx, burger("u1"))
			require.NoError(t, err)

			o.Items[0].Name = "Changed"
			o.Status = types.StatusReady

			fetched, err := st.GetOrder(ctx, o.OrderID)
			require.NoError(t, err)
			assert.Equal(t, "Burger", fetched.Items[0].Name)
			assert.Equal(t, types.StatusPending, fetched.Status)
		})
	}
}

func TestMemory_EvictsFinishedOrders(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: base}
	m := NewMemory(10 * time.Minute)
	m.now = clk.now

	done, _ := m.CreateOrder(ctx, burger("u1"))
	open, _ := m.CreateOrder(ctx, burger("u2"))
	_, err := m.UpdateOrderStatus(ctx, done.OrderID, types.StatusCompleted, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, m.Evict(base.Add(5*time.Minute)))
	assert.Equal(t, 1, m.Evict(base.Add(11*time.Minute)))
	assert.Equal(t, 1, m.Count())

	_, err = m.GetOrder(ctx, open.OrderID)
	assert.NoError(t, err)
	_, err = m.GetOrder(ctx, done.OrderID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ZeroRetentionKeepsAll(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	o, _ := m.CreateOrder(ctx, burger("u1"))
	_, err := m.UpdateOrderStatus(ctx, o.OrderID, types.StatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Evict(time.Now().Add(24*time.Hour)))
}

func TestMemory_RunStopsOnCancel(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedis_FinishedOrdersExpire(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	r := NewRedis(rdb, "qb:", 10*time.Minute)

	o, err := r.CreateOrder(ctx, burger("u1"))
	require.NoError(t, err)
	_, err = r.UpdateOrderStatus(ctx, o.OrderID, types.StatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, mr.TTL("qb:order:"+o.OrderID))

	mr.FastForward(11 * time.Minute)

	_, err = r.GetOrder(ctx, o.OrderID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := r.ListOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	// The dangling index entry is pruned.
	members, err := rdb.ZRange(ctx, "qb:user:u1:orders", 0, -1).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := DialRedis(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	rdb.Close()

	_, err = DialRedis(context.Background(), "not a url")
	assert.Error(t, err)
}

func ids(orders []*types.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.OrderID
	}
	return out
}
