package feed

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Countdown tracks per-order presentation timers derived from estimated
// minutes. It never changes order status.
type Countdown struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	now       func() time.Time
}

// NewCountdown returns an empty set of timers.
func NewCountdown() *Countdown {
	return &Countdown{deadlines: make(map[string]time.Time), now: time.Now}
}

// Reset starts or restarts the timer for orderID at minutes from now.
func (c *Countdown) Reset(orderID string, minutes int) {
	if minutes < 0 {
		minutes = 0
	}
	c.mu.Lock()
	c.deadlines[orderID] = c.now().Add(time.Duration(minutes) * time.Minute)
	c.mu.Unlock()
}

// Clear removes the timer for orderID.
func (c *Countdown) Clear(orderID string) {
	c.mu.Lock()
	delete(c.deadlines, orderID)
	c.mu.Unlock()
}

// Remaining returns whole seconds left for orderID, floored at zero, and
// whether a timer exists.
func (c *Countdown) Remaining(orderID string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.deadlines[orderID]
	if !ok {
		return 0, false
	}
	left := d.Sub(c.now()).Truncate(time.Second)
	if left < 0 {
		left = 0
	}
	return left, true
}

// active reports whether any timer has time left.
func (c *Countdown) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, d := range c.deadlines {
		if d.After(now) {
			return true
		}
	}
	return false
}

// Run calls tick once per second while any timer is still running. It
// blocks until ctx is cancelled.
func (c *Countdown) Run(ctx context.Context, tick func()) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if c.active() {
				tick()
			}
		}
	}
}

// FormatRemaining renders d as m:ss.
func FormatRemaining(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
