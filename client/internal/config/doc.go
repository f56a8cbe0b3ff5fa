// Package config loads and watches the client section of config.yaml.
//
// ClientConfig covers the server URL, the identity the client joins the hub
// as (admin, or customer with a user id), API-key auth, TLS options, the
// reconnect backoff bounds and the feed tuning (buffer size, display window,
// toast delay). Load applies defaults before validating. Watch re-reads the
// file after editor saves and passes each valid result to a callback.
package config
