package byteguard

import (
	"net/http"
	"time"
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	httpClient  *http.Client
	timeout     time.Duration
	retries     int
	keystoreDir string
}

// Option configures the client.
type Option func(*clientConfig)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default timeout for API calls.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for idempotent API calls.
// Non-idempotent calls (share creation, uploads) are never retried.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithKeystoreDir sets the directory for the durable local keystore. The
// default is a "byteguard/keystore" directory under the user config dir.
// Losing this directory means permanent loss of decrypt capability for
// every share addressed to the identity's key.
func WithKeystoreDir(dir string) Option {
	return func(c *clientConfig) {
		c.keystoreDir = dir
	}
}
