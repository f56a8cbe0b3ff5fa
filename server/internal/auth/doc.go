// Package auth provides admin authentication for quickbite-server.
//
// NewAPIKey(mode, header, key) builds a checker for the admin API key.
// Check(r) validates a raw *http.Request and is used by the websocket hub to
// decide whether a connection may join the admin room. Require() wraps the
// same check as gin middleware for admin-only REST routes, answering 401
// with a JSON error body.
//
// When mode != "apikey" or key == "", every request passes (useful for local
// development with auth disabled).
package auth
