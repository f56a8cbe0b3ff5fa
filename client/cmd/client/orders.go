package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quickbite/quickbite/client/internal/config"
	"github.com/quickbite/quickbite/client/internal/feed"
	"github.com/quickbite/quickbite/client/internal/snapshot"
	"github.com/quickbite/quickbite/client/internal/stream"
	"github.com/quickbite/quickbite/pkg/types"
)

const publishTimeout = 10 * time.Second

func newPlaceCmd(g *globals) *cobra.Command {
	var (
		items []string
		name  string
		email string
	)
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order and announce it to the kitchen",
		Example: `  quickbite place --user u42 --name Dana --item "Burger:2:5.50" --item "Fries:1:2.00"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(g)
			if err != nil {
				return err
			}
			if cfg.Identity.UserID == "" {
				return fmt.Errorf("place needs a customer identity: pass --user or set client.identity.user_id")
			}
			req := snapshot.OrderRequest{
				UserID:    cfg.Identity.UserID,
				UserName:  firstNonEmpty(name, cfg.Identity.UserName),
				UserEmail: firstNonEmpty(email, cfg.Identity.UserEmail),
			}
			for _, raw := range items {
				it, err := parseItem(raw)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, it)
			}
			return place(cmd.Context(), cfg, req)
		},
	}
	cmd.Flags().StringArrayVar(&items, "item", nil, "order line as name:quantity[:price], repeatable")
	cmd.Flags().StringVar(&name, "name", "", "customer display name")
	cmd.Flags().StringVar(&email, "email", "", "customer email")
	return cmd
}

func place(ctx context.Context, cfg *config.ClientConfig, req snapshot.OrderRequest) error {
	rest, err := snapshot.New(*cfg)
	if err != nil {
		return err
	}
	order, err := rest.CreateOrder(ctx, req)
	if err != nil {
		return err
	}
	printf("placed %s (%s, %.2f)\n", order.OrderID, types.ItemsText(order.Items), order.TotalAmount)

	// The order is stored; a failed announcement only delays the kitchen
	// seeing it until their next snapshot.
	summary := order.Summary()
	if err := publish(ctx, cfg, func(c *stream.Client) error { return c.PublishOrderPlaced(summary) }); err != nil {
		fmt.Fprintln(os.Stderr, "warning: order stored but not announced:", err)
	}
	return nil
}

func newStatusCmd(g *globals) *cobra.Command {
	var eta int
	cmd := &cobra.Command{
		Use:   "status ORDER_ID STATUS",
		Short: "Update an order's status and notify its customer (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(g)
			if err != nil {
				return err
			}
			status := types.Status(args[1])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", args[1])
			}
			var etaPtr *int
			if cmd.Flags().Changed("eta") {
				etaPtr = &eta
			}
			return updateStatus(cmd.Context(), cfg, args[0], status, etaPtr)
		},
	}
	cmd.Flags().IntVar(&eta, "eta", 0, "estimated minutes until ready")
	return cmd
}

func updateStatus(ctx context.Context, cfg *config.ClientConfig, id string, status types.Status, eta *int) error {
	rest, err := snapshot.New(*cfg)
	if err != nil {
		return err
	}
	order, err := rest.UpdateStatus(ctx, id, status, eta)
	if err != nil {
		return err
	}
	printf("%s is now %s (%d%%)\n", order.OrderID, order.Status, feed.Progress(order.Status))

	update := types.StatusUpdateRequest{
		OrderID:       order.OrderID,
		Status:        order.Status,
		UserID:        order.UserID,
		EstimatedTime: order.EstimatedTime,
		Items:         order.Items,
	}
	if err := publish(ctx, cfg, func(c *stream.Client) error { return c.PublishStatusUpdate(update) }); err != nil {
		fmt.Fprintln(os.Stderr, "warning: status stored but customer not notified:", err)
	}
	return nil
}

// publish opens a short-lived stream session and runs send once connected.
func publish(ctx context.Context, cfg *config.ClientConfig, send func(*stream.Client) error) error {
	c, err := stream.New(*cfg, discard{}, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := c.WaitConnected(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return send(c)
}

type discard struct{}

func (discard) Receive(types.DomainEvent) bool { return false }

func newOrdersCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Print the current order list once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup(g)
			if err != nil {
				return err
			}
			rest, err := snapshot.New(*cfg)
			if err != nil {
				return err
			}
			userID := ""
			if !cfg.Identity.Admin() {
				userID = cfg.Identity.UserID
			}
			orders, err := rest.ListOrders(cmd.Context(), userID)
			if err != nil {
				return err
			}
			view := feed.NewView(feed.NewCountdown())
			view.LoadSnapshot(orders)
			if len(orders) == 0 {
				printf("no orders\n")
				return nil
			}
			writeOrders(os.Stdout, view.Orders(), view.Countdown())
			return nil
		},
	}
}

// parseItem reads "name:quantity[:price]".
func parseItem(raw string) (types.OrderItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 || strings.TrimSpace(parts[0]) == "" {
		return types.OrderItem{}, fmt.Errorf("item %q: want name:quantity[:price]", raw)
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil || qty < 1 {
		return types.OrderItem{}, fmt.Errorf("item %q: quantity must be a positive integer", raw)
	}
	it := types.OrderItem{Name: strings.TrimSpace(parts[0]), Quantity: qty}
	if len(parts) == 3 {
		price, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || price < 0 {
			return types.OrderItem{}, fmt.Errorf("item %q: invalid price", raw)
		}
		it.Price = price
	}
	return it, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
