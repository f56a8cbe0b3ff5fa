// Package api implements the HTTP surface of quickbite-server on gin.
//
// New(deps) returns a handler that serves:
//
//	GET   /api/v1/health               liveness
//	GET   /api/v1/stats                live rooms and connections
//	POST  /api/v1/orders               create an order (201, 400)
//	GET   /api/v1/orders?userId=       one user's orders; all orders are admin-only
//	GET   /api/v1/orders/:id           one order (404)
//	PATCH /api/v1/orders/:id/status    admin: change status (400, 404, 409)
//	GET   /api/v1/notifications        admin: recently forwarded notifications
//	GET   /ws                          websocket hub
//	GET   /metrics                     Prometheus text exposition
//
// The REST routes never publish to the hub. A client that changed an order
// publishes the matching event over its own websocket afterwards.
package api
