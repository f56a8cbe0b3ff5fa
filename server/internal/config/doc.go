// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `client:` key is ignored by the server binary).
//
// Config fields:
//   - HTTPPort         port for the REST API and websocket hub (default 8080)
//   - LogLevel         debug | info | warn | error (default info)
//   - CORSOrigins      allowed browser origins (empty allows all)
//   - Auth.Mode        "apikey" or "none"
//   - Auth.KeyEnv      environment variable holding the admin API key
//   - Auth.Header      HTTP header name (default "x-api-key")
//   - Store.Backend    memory | redis (default memory)
//   - Store.Retention  how long finished orders are kept (default 24h)
//   - Hub.SendBuffer   per-connection outbound queue depth (default 32)
//   - Notify.Webhooks  slack | teams | http targets, URL from env
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, onChange) reloads the file on every write.
package config
