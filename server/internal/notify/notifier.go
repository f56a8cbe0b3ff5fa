package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quickbite/quickbite/pkg/types"
	"github.com/quickbite/quickbite/server/internal/config"
)

const (
	maxHistoryLen = 200

	// sweepThreshold bounds the cooldown map before stale keys are pruned.
	sweepThreshold = 1024
)

// Notification is one forwarded hub event.
type Notification struct {
	ID        string          `json:"id"`
	Kind      types.EventKind `json:"kind"`
	DedupeKey string          `json:"dedupe_key"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Status    types.Status    `json:"status,omitempty"`
	Message   string          `json:"message"`
	SentAt    time.Time       `json:"sent_at"`
}

// Notifier forwards hub events to webhook targets. Repeats of the same
// dedupe key inside the cooldown window are suppressed.
//
// Notifier is safe for concurrent use.
type Notifier struct {
	webhooks []config.WebhookConfig
	cooldown time.Duration
	events   map[types.EventKind]bool // nil forwards every kind

	mu       sync.Mutex
	lastSent map[string]time.Time
	history  []*Notification
	client   *http.Client
	now      func() time.Time
}

// New creates a Notifier from the server notify configuration. A Notifier
// with no webhooks still records history.
func New(cfg config.NotifyConfig) *Notifier {
	n := &Notifier{
		webhooks: cfg.Webhooks,
		cooldown: cfg.Cooldown,
		lastSent: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	if len(cfg.Events) > 0 {
		n.events = make(map[types.EventKind]bool, len(cfg.Events))
		for _, k := range cfg.Events {
			n.events[k] = true
		}
	}
	return n
}

// Handle is registered as a hub observer. Webhook delivery happens
// asynchronously.
func (n *Notifier) Handle(ev types.DomainEvent) {
	if n.events != nil && !n.events[ev.Kind] {
		return
	}
	key := ev.DedupeKey()
	now := n.now()

	n.mu.Lock()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.cooldown {
		n.mu.Unlock()
		slog.Debug("notify: suppressed repeat", "key", key)
		return
	}
	n.lastSent[key] = now
	if len(n.lastSent) > sweepThreshold {
		n.sweep(now)
	}

	note := &Notification{
		ID:        uuid.NewString(),
		Kind:      ev.Kind,
		DedupeKey: key,
		OrderID:   ev.Payload.OrderID,
		UserID:    ev.Payload.UserID,
		Status:    ev.Payload.Status,
		Message:   ev.Payload.Message,
		SentAt:    now,
	}
	n.history = append(n.history, note)
	if len(n.history) > maxHistoryLen {
		n.history = n.history[len(n.history)-maxHistoryLen:]
	}
	noteCopy := *note
	n.mu.Unlock()

	slog.Info("notify: event forwarded", "kind", ev.Kind, "order", note.OrderID, "status", note.Status)
	if len(n.webhooks) > 0 {
		go n.deliver(&noteCopy)
	}
}

// Recent returns copies of the retained notifications, newest first.
func (n *Notifier) Recent() []*Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]*Notification, 0, len(n.history))
	for i := len(n.history) - 1; i >= 0; i-- {
		cp := *n.history[i]
		out = append(out, &cp)
	}
	return out
}

// sweep drops cooldown entries that can no longer suppress anything.
// Caller holds n.mu.
func (n *Notifier) sweep(now time.Time) {
	for k, t := range n.lastSent {
		if now.Sub(t) >= n.cooldown {
			delete(n.lastSent, k)
		}
	}
}
