package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the MQTLS_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// EnvConfigFile names the variable holding the config file path.
const EnvConfigFile = "MQTLS_CONFIG"

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("MQTLS_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("MQTLS_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envInt("MQTLS_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v := envInt("MQTLS_ATTEMPTS"); v > 0 {
		cfg.Attempts = v
	}

	// TLS
	if v := os.Getenv("MQTLS_CA"); v != "" {
		cfg.CAFile = v
	}
	if v := os.Getenv("MQTLS_CERT"); v != "" {
		cfg.CertFile = v
	}
	if v := os.Getenv("MQTLS_KEY"); v != "" {
		cfg.KeyFile = v
	}
	if v := os.Getenv("MQTLS_KEY_TYPE"); v != "" {
		cfg.KeyType = v
	}
	if v := os.Getenv("MQTLS_KEY_PASS"); v != "" {
		cfg.KeyPass = v
	}
	if v := os.Getenv("MQTLS_ALPN"); v != "" {
		cfg.ALPN = envList(v)
	}
	if v := os.Getenv("MQTLS_PKCS12"); v != "" {
		cfg.PKCS12File = v
	}
	if v := os.Getenv("MQTLS_PKCS12_PASS"); v != "" {
		cfg.PKCS12Pass = v
	}

	// SSH tunnel
	if v := os.Getenv("MQTLS_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("MQTLS_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("MQTLS_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("MQTLS_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("MQTLS_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("MQTLS_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}
	if v := envInt("MQTLS_KEEP_ALIVE"); v > 0 {
		cfg.KeepAlive = secondsDuration(v)
	}

	// Output
	if v := envInt("MQTLS_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if envBool("MQTLS_STATS") {
		cfg.Stats = true
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

// envList splits a comma-separated value, dropping empty items.
func envList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
