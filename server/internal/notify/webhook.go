package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quickbite/quickbite/pkg/types"
)

// deliver sends note to all configured targets. Errors are logged but do
// not affect the caller.
func (n *Notifier) deliver(note *Notification) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, note)
		case "teams":
			err = n.sendTeams(url, note)
		case "http":
			err = n.sendHTTP(url, note)
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type,
				"order", note.OrderID,
				"err", err,
			)
		} else {
			slog.Debug("notify: webhook delivered",
				"type", wh.Type,
				"order", note.OrderID,
				"kind", note.Kind,
			)
		}
	}
}

func (n *Notifier) sendSlack(url string, note *Notification) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s", kindLabel(note), note.Message),
	})
	return n.post(url, body)
}

func (n *Notifier) sendTeams(url string, note *Notification) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": statusColor(note.Status),
		"summary":    note.OrderID,
		"title":      fmt.Sprintf("QuickBite %s: %s", kindLabel(note), note.OrderID),
		"text":       note.Message,
	}
	body, _ := json.Marshal(payload)
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, note *Notification) error {
	body, _ := json.Marshal(map[string]interface{}{"notification": note})
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func kindLabel(note *Notification) string {
	if note.Kind == types.KindOrderPlaced {
		return "[NEW ORDER]"
	}
	return "[" + strings.ToUpper(string(note.Status)) + "]"
}

func statusColor(s types.Status) string {
	switch s {
	case types.StatusReady, types.StatusCompleted:
		return "2EB67D"
	case types.StatusCancelled:
		return "FF4F6A"
	default:
		return "00D4FF"
	}
}
