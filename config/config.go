// Package config defines the runtime configuration for mqtls and
// provides helpers for parsing bastion specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"mqtls/internal/credential"
	mqerr "mqtls/internal/errors"
)

// Config holds every tuneable for a single mqtls session.
type Config struct {
	// ── Broker ───────────────────────────────────────────────────────
	Host     string
	Port     int
	Timeout  time.Duration // overall deadline for dial + handshake
	Attempts int
	ZeroIO   bool // probe only: report the handshake, relay nothing

	// ── TLS, software backend ────────────────────────────────────────
	CAFile        string
	CertFile      string
	KeyFile       string
	KeyType       string // "rsa" or "ec"
	KeyPass       string
	KeyPassPrompt bool
	ALPN          []string

	// ── TLS, native backend ──────────────────────────────────────────
	PKCS12File       string
	PKCS12Pass       string
	PKCS12PassPrompt bool

	// ── SSH bastion ──────────────────────────────────────────────────
	TunnelSpec     string // raw [user@]host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string
	KeepAlive      time.Duration

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	Stats   bool
}

// Default returns a configuration holding every default value.
func Default() *Config {
	return &Config{
		Port:      DefaultBrokerPort,
		Attempts:  DefaultAttempts,
		KeyType:   DefaultKeyType,
		KeepAlive: DefaultKeepAliveInterval,
	}
}

// HasClientAuth reports whether a PEM client identity was configured.
func (c *Config) HasClientAuth() bool {
	return c.CertFile != "" || c.KeyFile != ""
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q; expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ResolveTunnel parses TunnelSpec into the Tunnel* fields.
func (c *Config) ResolveTunnel() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &mqerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T admin@bastion.example.com:22",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent and
// that it only uses options the compiled TLS backend supports.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &mqerr.ConfigError{
			Field:   "host",
			Message: "broker host is required",
			Hint:    "mqtls [options] <host> [port]; use --help for usage",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &mqerr.ConfigError{Field: "port", Value: c.Port, Message: "port out of range 1-65535"}
	}
	if c.Timeout < 0 {
		return &mqerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "timeout must not be negative"}
	}
	if c.Attempts < 1 {
		return &mqerr.ConfigError{
			Field:   "attempts",
			Value:   c.Attempts,
			Message: "at least one attempt is required",
			Hint:    "--attempts 1 disables retries",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &mqerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	return c.validateBackend()
}

func validateKeyType(s string) error {
	if _, err := credential.ParseKeyKind(s); err != nil {
		return &mqerr.ConfigError{
			Field:   "key-type",
			Value:   s,
			Message: err.Error(),
			Hint:    "PKCS#1 keys are rsa, PKCS#8 keys are ec",
		}
	}
	return nil
}
