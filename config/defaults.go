package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultBrokerPort is the IANA port for MQTT over TLS.
	DefaultBrokerPort = 8883

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultAttempts is the number of connection attempts; 1 disables
	// retries.
	DefaultAttempts = 1

	// DefaultKeyType selects the PKCS#8 parser for --key.
	DefaultKeyType = "ec"

	// DefaultKeepAliveInterval is the SSH keepalive interval.
	DefaultKeepAliveInterval = 30 * time.Second

	// DefaultConnTimeout is the SSH connection timeout used when no
	// overall --timeout is set.
	DefaultConnTimeout = 30 * time.Second

	// DefaultRetryDelay is the first backoff delay between attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 30 * time.Second
)
