// Package types defines the Go types shared by the server and the client.
// Orders and statuses are the canonical in-memory representation of a
// pre-order; DomainEvent is the unit the hub fans out; the *Message and
// *Request types are the exact JSON shapes carried over the websocket.
package types
