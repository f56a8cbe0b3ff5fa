package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quickbite/quickbite/client/internal/config"
	"github.com/quickbite/quickbite/client/internal/feed"
	"github.com/quickbite/quickbite/client/internal/snapshot"
	"github.com/quickbite/quickbite/client/internal/stream"
)

const snapshotRetry = 3 * time.Second

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the live order board (admin) or your orders (customer)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, level, err := setup(g)
			if err != nil {
				return err
			}
			return watch(cmd.Context(), g.configPath, cfg, level)
		},
	}
}

func watch(ctx context.Context, configPath string, cfg *config.ClientConfig, level *slog.LevelVar) error {
	rest, err := snapshot.New(*cfg)
	if err != nil {
		return err
	}

	view := feed.NewView(feed.NewCountdown())
	buffer := feed.NewBuffer(cfg.Feed.BufferSize, cfg.Feed.DisplayWindow)
	outbox := feed.NewOutbox()
	reducer := feed.NewReducer(feed.NewLedger(), buffer, outbox, view.Handlers())

	b := &board{out: os.Stdout, view: view, buffer: buffer, identity: cfg.Identity}

	client, err := stream.New(*cfg, reducer, func(bool) { b.render() })
	if err != nil {
		return err
	}
	b.online = client.Connected

	runner := feed.NewEffectRunner(outbox, cfg.Feed.ToastDelay, b.toast)

	go client.Run(ctx)
	go runner.Run(ctx)
	go view.Countdown().Run(ctx, b.render)
	go loadSnapshot(ctx, rest, cfg.Identity, view)

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(updated *config.Config) {
				level.Set(updated.Client.Level())
				buffer.Resize(updated.Client.Feed.BufferSize, updated.Client.Feed.DisplayWindow)
			})
			if err != nil {
				slog.Error("client config watcher stopped", "err", err)
			}
		}()
	}

	b.render()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-view.Changes():
			b.render()
		}
	}
}

// loadSnapshot fetches the order list once, retrying until it succeeds.
// Live events arriving meanwhile wait in the view's pending queue.
func loadSnapshot(ctx context.Context, rest *snapshot.Client, id config.IdentityConfig, view *feed.View) {
	userID := ""
	if !id.Admin() {
		userID = id.UserID
	}
	for {
		orders, err := rest.ListOrders(ctx, userID)
		if err == nil {
			view.LoadSnapshot(orders)
			slog.Info("snapshot loaded", "orders", len(orders))
			return
		}
		slog.Warn("snapshot fetch failed, will retry", "err", err, "retry_in", snapshotRetry)
		select {
		case <-ctx.Done():
			return
		case <-time.After(snapshotRetry):
		}
	}
}

// printf is used by commands that write plain results to stdout.
func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
