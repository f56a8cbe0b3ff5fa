// Package store persists pre-orders for the REST API.
//
// Store is the contract: create an order in pending status, move it through
// its lifecycle with transition checks, fetch one, and list orders newest
// first (all, or one user's). Memory keeps everything in a mutex-guarded
// map and evicts finished orders after a retention window; Redis keeps JSON
// documents with sorted-set indexes and expires finished orders with a TTL.
//
// The store is the source of truth for order state. The event hub never
// writes to it; clients publish events only after a successful store call.
package store
