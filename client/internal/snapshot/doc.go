// Package snapshot is the REST side of the client: it fetches the order
// list that seeds the feed view, creates orders, updates statuses, and reads
// the server's stats and Prometheus metrics.
package snapshot
