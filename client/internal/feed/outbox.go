package feed

import (
	"context"
	"sync"
	"time"

	"github.com/quickbite/quickbite/pkg/types"
)

// DefaultToastDelay defers toasts past the pass that produced them.
const DefaultToastDelay = 50 * time.Millisecond

// Toast is a request to announce an applied event to the user.
type Toast struct {
	Key     string
	Kind    types.EventKind
	OrderID string
	Status  types.Status
	Message string
}

// Outbox queues toast intents produced by the reducer. Producers never
// block; a single EffectRunner drains it.
type Outbox struct {
	mu      sync.Mutex
	pending []Toast
	ready   chan struct{}
}

// NewOutbox returns an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{ready: make(chan struct{}, 1)}
}

// Enqueue appends t and wakes the runner.
func (o *Outbox) Enqueue(t Toast) {
	o.mu.Lock()
	o.pending = append(o.pending, t)
	o.mu.Unlock()
	select {
	case o.ready <- struct{}{}:
	default:
	}
}

// Drain removes and returns every queued toast in enqueue order.
func (o *Outbox) Drain() []Toast {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = nil
	return out
}

// Ready is signalled after Enqueue.
func (o *Outbox) Ready() <-chan struct{} {
	return o.ready
}

// EffectRunner announces queued toasts outside the reducer's pass. It keeps
// the key of the last toast it announced and skips an immediate repeat.
type EffectRunner struct {
	outbox   *Outbox
	delay    time.Duration
	announce func(Toast)

	mu   sync.Mutex
	last string
}

// NewEffectRunner returns a runner that waits delay after each wake-up
// before draining the outbox into announce.
func NewEffectRunner(outbox *Outbox, delay time.Duration, announce func(Toast)) *EffectRunner {
	return &EffectRunner{outbox: outbox, delay: delay, announce: announce}
}

// Run drains the outbox until ctx is cancelled.
func (r *EffectRunner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.outbox.Ready():
		}
		if r.delay > 0 {
			t := time.NewTimer(r.delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		r.Flush()
	}
}

// Flush announces everything currently queued.
func (r *EffectRunner) Flush() {
	for _, t := range r.outbox.Drain() {
		r.mu.Lock()
		repeat := t.Key == r.last
		r.last = t.Key
		r.mu.Unlock()
		if repeat {
			continue
		}
		r.announce(t)
	}
}

// LastAnnounced returns the key of the most recent toast.
func (r *EffectRunner) LastAnnounced() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
