package feed

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quickbite/quickbite/pkg/types"
)

// Handlers mutate view state. Exactly one is called per applied event.
type Handlers struct {
	OnOrderPlaced   func(types.DomainEvent)
	OnStatusChanged func(types.DomainEvent)
}

// Reducer applies inbound events at most once per dedupe key.
type Reducer struct {
	mu       sync.Mutex
	ledger   *Ledger
	buffer   *Buffer
	outbox   *Outbox
	handlers Handlers
	now      func() time.Time
}

// NewReducer wires a reducer. outbox may be nil when no toasts are wanted.
func NewReducer(ledger *Ledger, buffer *Buffer, outbox *Outbox, handlers Handlers) *Reducer {
	return &Reducer{
		ledger:   ledger,
		buffer:   buffer,
		outbox:   outbox,
		handlers: handlers,
		now:      time.Now,
	}
}

// Receive applies ev and reports whether it was new. A repeated dedupe key
// is discarded with no state change, notification or toast.
func (r *Reducer) Receive(ev types.DomainEvent) bool {
	var handle func(types.DomainEvent)
	switch ev.Kind {
	case types.KindOrderPlaced:
		handle = r.handlers.OnOrderPlaced
	case types.KindStatusChanged:
		handle = r.handlers.OnStatusChanged
	default:
		slog.Debug("feed: ignoring unknown event kind", "kind", ev.Kind)
		return false
	}

	key := ev.DedupeKey()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.ledger.Mark(key) {
		slog.Debug("feed: duplicate discarded", "key", key)
		return false
	}

	r.buffer.Push(Notification{
		ID:         uuid.NewString(),
		Kind:       ev.Kind,
		OrderID:    ev.Payload.OrderID,
		Status:     ev.Payload.Status,
		Message:    ev.Payload.Message,
		ReceivedAt: r.now(),
	})

	if handle != nil {
		handle(ev)
	}

	if r.outbox != nil {
		r.outbox.Enqueue(Toast{
			Key:     key,
			Kind:    ev.Kind,
			OrderID: ev.Payload.OrderID,
			Status:  ev.Payload.Status,
			Message: ev.Payload.Message,
		})
	}
	return true
}
