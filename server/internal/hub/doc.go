// Package hub implements the real-time event hub for quickbite-server.
//
// A Registry maps room names to connections and connections to the rooms
// they joined. The Hub validates published domain events, renders them into
// wire envelopes and delivers them to every member of the target room:
//
//	order-placed   → "new-order"            → room "admin"
//	status-changed → "order-status-changed" → room "customer-{userId}"
//
// Publishes are serialized, so members of a room observe events in publish
// order. Delivery is best effort: a member whose send buffer is full or
// whose socket is closed is torn down, and events for empty rooms are
// dropped. Nothing is persisted or replayed.
//
// Hub.ServeHTTP upgrades an HTTP request to a websocket. Clients frame every
// message as
//
//	{"event": "<name>", "data": { ... }}
//
// and must send join-room before they receive anything. When the hub is
// built WithAdminCheck, only connections whose upgrade request passes the
// check may join the admin room or send order-status-update.
package hub
