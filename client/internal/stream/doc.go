// Package stream is the websocket side of the client.
//
// Client dials the hub, sends join-room for its identity on every
// (re)connect, decodes new-order and order-status-changed frames into
// DomainEvents for a Sink, and publishes order-placed and
// order-status-update. Lost sessions are retried with truncated exponential
// backoff; Connected backs the offline badge.
package stream
