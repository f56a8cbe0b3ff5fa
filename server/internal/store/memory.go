package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/quickbite/quickbite/pkg/types"
)

// Memory is a thread-safe in-memory order store. A background goroutine
// (Run) evicts completed and cancelled orders once they are older than the
// retention window.
type Memory struct {
	mu        sync.RWMutex
	orders    map[string]*types.Order
	seq       int64
	retention time.Duration
	now       func() time.Time // injectable for deterministic tests
}

// NewMemory creates a Memory store. A zero retention keeps terminal orders
// forever.
func NewMemory(retention time.Duration) *Memory {
	return &Memory{
		orders:    make(map[string]*types.Order),
		retention: retention,
		now:       time.Now,
	}
}

// CreateOrder implements Store.
func (m *Memory) CreateOrder(_ context.Context, in NewOrder) (*types.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	o := in.build(orderID(m.seq), m.now())
	m.orders[o.OrderID] = o
	return cloneOrder(o), nil
}

// UpdateOrderStatus implements Store.
func (m *Memory) UpdateOrderStatus(_ context.Context, id string, status types.Status, estimatedTime *int) (*types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cloneOrder(o)
	if err := applyStatus(next, status, estimatedTime, m.now()); err != nil {
		return nil, err
	}
	m.orders[id] = next
	return cloneOrder(next), nil
}

// GetOrder implements Store.
func (m *Memory) GetOrder(_ context.Context, id string) (*types.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

// ListOrders implements Store.
func (m *Memory) ListOrders(_ context.Context, userID string) ([]*types.Order, error) {
	m.mu.RLock()
	out := make([]*types.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if userID == "" || o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID > out[j].OrderID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Count returns the number of orders currently held.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// Evict removes terminal orders last updated before now minus retention.
// It returns the number of orders removed.
func (m *Memory) Evict(now time.Time) int {
	if m.retention <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := now.Add(-m.retention)
	removed := 0
	for id, o := range m.orders {
		if o.Status.Terminal() && !o.UpdatedAt.After(cutoff) {
			delete(m.orders, id)
			removed++
		}
	}
	return removed
}

// Run starts the background eviction loop. It ticks at half the retention
// interval (minimum 1 second) and blocks until ctx is cancelled.
func (m *Memory) Run(ctx context.Context) {
	if m.retention <= 0 {
		<-ctx.Done()
		return
	}
	interval := m.retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := m.Evict(now); n > 0 {
				slog.Debug("store: evicted finished orders", "count", n)
			}
		}
	}
}
