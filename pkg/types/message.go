package types

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// ItemsText renders items as "2x Burger, 1x Fries". Empty lists render as
// "Your order" so the status sentences still read naturally.
func ItemsText(items []OrderItem) string {
	if len(items) == 0 {
		return "Your order"
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
	}
	return strings.Join(parts, ", ")
}

// StatusMessage returns the customer-facing sentence for a status change.
// The result depends only on its arguments.
func StatusMessage(status Status, items []OrderItem, estimatedTime *int) string {
	what := ItemsText(items)
	switch status {
	case StatusPending:
		return "Your order is pending confirmation"
	case StatusAccepted:
		if estimatedTime != nil && *estimatedTime > 0 {
			return printer.Sprintf(
				"Your order has been accepted! Estimated time: %d minutes", *estimatedTime,
			)
		}
		return "Your order has been accepted!"
	case StatusPreparing:
		return what + " is being prepared"
	case StatusReady:
		return what + " is ready for pickup! 🎉"
	case StatusCompleted:
		return "Order completed. Enjoy your meal!"
	case StatusCancelled:
		return "Your order has been cancelled"
	default:
		return fmt.Sprintf("Order status updated to %s", status)
	}
}

// NewOrderText returns the admin-facing sentence announcing an order.
func NewOrderText(order OrderSummary) string {
	count := 0
	for _, it := range order.Items {
		count += it.Quantity
	}
	who := order.UserName
	if who == "" {
		who = "customer " + order.UserID
	}
	return printer.Sprintf("New order %s from %s: %d items, total %.2f",
		order.OrderID, who, count, order.TotalAmount)
}
