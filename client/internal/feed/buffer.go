package feed

import (
	"sync"
	"time"

	"github.com/quickbite/quickbite/pkg/types"
)

// Defaults for the visible notification buffer.
const (
	DefaultBufferSize    = 10
	DefaultDisplayWindow = 5 * time.Second
)

// Notification is one client-side record of an applied event.
type Notification struct {
	ID         string
	Kind       types.EventKind
	OrderID    string
	Status     types.Status
	Message    string
	ReceivedAt time.Time
}

// Buffer holds the most recent notifications, newest first. Entries older
// than the display window are hidden and swept. It drives transient badges
// only; evicting an entry never affects deduplication.
type Buffer struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	window   time.Duration
	now      func() time.Time
}

// NewBuffer returns a buffer with the given capacity and display window.
// Non-positive values fall back to the defaults.
func NewBuffer(capacity int, window time.Duration) *Buffer {
	b := &Buffer{now: time.Now}
	b.Resize(capacity, window)
	return b
}

// Resize changes capacity and window, trimming the oldest entries if the
// buffer shrank.
func (b *Buffer) Resize(capacity int, window time.Duration) {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	if window <= 0 {
		window = DefaultDisplayWindow
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capacity = capacity
	b.window = window
	if len(b.items) > capacity {
		b.items = b.items[:capacity]
	}
}

// Push prepends n, evicting the oldest entry beyond capacity.
func (b *Buffer) Push(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append([]Notification{n}, b.items...)
	if len(b.items) > b.capacity {
		b.items = b.items[:b.capacity]
	}
}

// Visible returns entries still inside the display window, newest first,
// and sweeps the rest.
func (b *Buffer) Visible() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := b.now().Add(-b.window)
	keep := b.items[:0]
	for _, n := range b.items {
		if n.ReceivedAt.After(cutoff) {
			keep = append(keep, n)
		}
	}
	b.items = keep
	return append([]Notification(nil), keep...)
}

// Len returns the number of retained entries, expired or not.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
