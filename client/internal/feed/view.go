package feed

import (
	"log/slog"
	"sync"

	"github.com/quickbite/quickbite/pkg/types"
)

// Phase is the reconciler state of a View.
type Phase int

const (
	// Loading waits for the REST snapshot; list mutations are queued.
	Loading Phase = iota
	// Ready applies mutations directly to the baseline list.
	Ready
)

func (p Phase) String() string {
	if p == Ready {
		return "ready"
	}
	return "loading"
}

// Entry is one row of the rendered order list.
type Entry struct {
	types.Order
	Progress int `json:"progress"`
}

// View merges a one-time order snapshot with the live event stream. Its
// Apply method is meant to be installed as both reducer handlers.
type View struct {
	mu      sync.Mutex
	phase   Phase
	orders  []types.Order // newest first
	pending []types.DomainEvent

	countdown *Countdown
	changes   chan struct{}
}

// NewView returns a view in the Loading phase.
func NewView(countdown *Countdown) *View {
	if countdown == nil {
		countdown = NewCountdown()
	}
	return &View{
		countdown: countdown,
		changes:   make(chan struct{}, 1),
	}
}

// Handlers returns reducer handlers bound to this view.
func (v *View) Handlers() Handlers {
	return Handlers{OnOrderPlaced: v.Apply, OnStatusChanged: v.Apply}
}

// Apply mutates the list for ev, or queues it while Loading.
func (v *View) Apply(ev types.DomainEvent) {
	v.mu.Lock()
	if v.phase == Loading {
		v.pending = append(v.pending, ev)
		v.mu.Unlock()
		return
	}
	changed := v.apply(ev)
	v.mu.Unlock()
	if changed {
		v.notify()
	}
}

// LoadSnapshot installs orders as the baseline and replays queued events in
// arrival order. Called again while Ready, it replaces the baseline.
func (v *View) LoadSnapshot(orders []types.Order) {
	v.mu.Lock()
	v.orders = make([]types.Order, 0, len(orders))
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		if seen[o.OrderID] {
			continue
		}
		seen[o.OrderID] = true
		v.orders = append(v.orders, o)
		v.syncCountdown(o)
	}
	queued := v.pending
	v.pending = nil
	v.phase = Ready
	for _, ev := range queued {
		v.apply(ev)
	}
	v.mu.Unlock()

	slog.Debug("feed: snapshot loaded", "orders", len(orders), "replayed", len(queued))
	v.notify()
}

// Phase returns the current reconciler phase.
func (v *View) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// Pending returns the number of queued events.
func (v *View) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

// Orders returns a copy of the list, newest first, with progress.
func (v *View) Orders() []Entry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Entry, len(v.orders))
	for i, o := range v.orders {
		out[i] = Entry{Order: o, Progress: Progress(o.Status)}
	}
	return out
}

// Order returns one entry by id.
func (v *View) Order(id string) (Entry, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.index(id); i >= 0 {
		o := v.orders[i]
		return Entry{Order: o, Progress: Progress(o.Status)}, true
	}
	return Entry{}, false
}

// Countdown exposes the view's presentation timers.
func (v *View) Countdown() *Countdown { return v.countdown }

// Changes is signalled after every visible mutation. Signals coalesce.
func (v *View) Changes() <-chan struct{} { return v.changes }

func (v *View) notify() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

// apply mutates the list. Caller holds v.mu.
func (v *View) apply(ev types.DomainEvent) bool {
	switch ev.Kind {
	case types.KindOrderPlaced:
		return v.insertIfAbsent(ev)
	case types.KindStatusChanged:
		return v.updateInPlace(ev)
	}
	return false
}

func (v *View) insertIfAbsent(ev types.DomainEvent) bool {
	if ev.Payload.OrderID == "" || v.index(ev.Payload.OrderID) >= 0 {
		return false
	}
	var o types.Order
	if ev.Payload.Order != nil {
		o = ev.Payload.Order.Order()
	} else {
		o = types.Order{
			OrderID:   ev.Payload.OrderID,
			UserID:    ev.Payload.UserID,
			Items:     ev.Payload.Items,
			Status:    ev.Payload.Status,
			CreatedAt: ev.OriginTimestamp,
			UpdatedAt: ev.OriginTimestamp,
		}
	}
	if o.Status == "" {
		o.Status = types.StatusPending
	}
	v.orders = append([]types.Order{o}, v.orders...)
	return true
}

func (v *View) updateInPlace(ev types.DomainEvent) bool {
	i := v.index(ev.Payload.OrderID)
	if i < 0 {
		slog.Debug("feed: status for unknown order ignored", "order", ev.Payload.OrderID)
		return false
	}
	o := &v.orders[i]
	o.Status = ev.Payload.Status
	if ev.Payload.EstimatedTime != nil {
		eta := *ev.Payload.EstimatedTime
		o.EstimatedTime = &eta
		v.countdown.Reset(o.OrderID, eta)
	}
	if !ev.OriginTimestamp.IsZero() {
		o.UpdatedAt = ev.OriginTimestamp
	}
	if o.Status == types.StatusReady || o.Status.Terminal() {
		v.countdown.Clear(o.OrderID)
	}
	return true
}

// syncCountdown starts timers for snapshot orders still being worked on.
func (v *View) syncCountdown(o types.Order) {
	if o.EstimatedTime == nil || o.Status == types.StatusReady || o.Status.Terminal() {
		v.countdown.Clear(o.OrderID)
		return
	}
	v.countdown.Reset(o.OrderID, *o.EstimatedTime)
}

func (v *View) index(id string) int {
	for i := range v.orders {
		if v.orders[i].OrderID == id {
			return i
		}
	}
	return -1
}
