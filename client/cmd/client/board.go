package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/quickbite/quickbite/client/internal/config"
	"github.com/quickbite/quickbite/client/internal/feed"
	"github.com/quickbite/quickbite/pkg/types"
)

// board renders the order list, recent notifications and the connection
// badge as plain text.
type board struct {
	mu       sync.Mutex
	out      io.Writer
	view     *feed.View
	buffer   *feed.Buffer
	identity config.IdentityConfig
	online   func() bool
}

// toast prints one announcement from the effect runner.
func (b *board) toast(t feed.Toast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.out, ">> %s\n", t.Message)
}

func (b *board) render() {
	connected := b.online == nil || b.online()

	b.mu.Lock()
	defer b.mu.Unlock()

	title := "Orders"
	if b.identity.Admin() {
		title = "Kitchen board"
	}
	fmt.Fprintf(b.out, "\n== %s (%s) ==\n", title, time.Now().Format("15:04:05"))
	if !connected {
		fmt.Fprintln(b.out, "[not connected]")
	}
	if b.view.Phase() == feed.Loading {
		fmt.Fprintf(b.out, "loading orders... (%d live events queued)\n", b.view.Pending())
		return
	}

	entries := b.view.Orders()
	if len(entries) == 0 {
		fmt.Fprintln(b.out, "no orders yet")
	} else {
		writeOrders(b.out, entries, b.view.Countdown())
	}

	if recent := b.buffer.Visible(); len(recent) > 0 {
		fmt.Fprintln(b.out, "recent:")
		for _, n := range recent {
			fmt.Fprintf(b.out, "  %s  %s\n", n.ReceivedAt.Format("15:04:05"), n.Message)
		}
	}
}

// writeOrders prints entries as an aligned table.
func writeOrders(w io.Writer, entries []feed.Entry, cd *feed.Countdown) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tCUSTOMER\tSTATUS\tPROGRESS\tREADY IN\tITEMS\tTOTAL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
			e.OrderID,
			customerName(e.Order),
			e.Status,
			progressBar(e.Progress),
			readyIn(e.Order, cd),
			types.ItemsText(e.Items),
			e.TotalAmount,
		)
	}
	tw.Flush() //nolint:errcheck
}

func customerName(o types.Order) string {
	if o.UserName != "" {
		return o.UserName
	}
	return o.UserID
}

func readyIn(o types.Order, cd *feed.Countdown) string {
	if cd != nil {
		if d, ok := cd.Remaining(o.OrderID); ok {
			return feed.FormatRemaining(d)
		}
	}
	if o.EstimatedTime != nil && !o.Status.Terminal() && o.Status != types.StatusReady {
		return fmt.Sprintf("~%dm", *o.EstimatedTime)
	}
	return "-"
}

// progressBar renders pct as ten cells.
func progressBar(pct int) string {
	filled := max(0, min(10, pct/10))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + "]"
}
