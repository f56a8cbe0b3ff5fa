// Package metrics exposes hub counters at /metrics in the Prometheus text
// format. Families are built directly as client_model protobufs and encoded
// with expfmt, so the server carries no global registry.
package metrics
