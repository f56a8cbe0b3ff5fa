// Package notify forwards hub events to staff chat webhooks.
//
// A Notifier is registered as a hub observer. Every emitted event becomes a
// Notification carrying the event's user-facing message; repeats of the same
// dedupe key within the configured cooldown are suppressed. The last 200
// notifications are kept for GET /api/v1/notifications.
//
// Supported targets: slack (text payload), teams (MessageCard), http (raw
// JSON). Target URLs are read from environment variables. Delivery is
// asynchronous and failures are only logged.
package notify
