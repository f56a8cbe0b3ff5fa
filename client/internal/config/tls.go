package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Build returns the tls.Config shared by the REST and websocket transports.
func (t TLSConfig) Build() (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify, //nolint:gosec // user-configured
		MinVersion:         tls.VersionTLS12,
	}
	if t.CAFile == "" {
		return cfg, nil
	}

	caPEM, err := os.ReadFile(t.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no valid certs found in ca file %q", t.CAFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}
