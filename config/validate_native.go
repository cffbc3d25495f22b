//go:build nativetls

package config

import mqerr "mqtls/internal/errors"

const softwareHint = "the platform TLS backend uses the system trust store and does not offer ALPN; rebuild without -tags nativetls"

func (c *Config) validateBackend() error {
	switch {
	case c.CAFile != "":
		return &mqerr.ConfigError{Field: "ca", Value: c.CAFile,
			Message: "not supported by the native TLS backend", Hint: softwareHint}
	case c.CertFile != "", c.KeyFile != "":
		return &mqerr.ConfigError{Field: "cert",
			Message: "PEM identities are not supported by the native TLS backend",
			Hint:    "bundle the certificate and key with: openssl pkcs12 -export, then pass --pkcs12"}
	case c.KeyPassPrompt:
		return &mqerr.ConfigError{Field: "key-pass-prompt",
			Message: "not supported by the native TLS backend", Hint: softwareHint}
	case len(c.ALPN) > 0:
		return &mqerr.ConfigError{Field: "alpn", Value: c.ALPN,
			Message: "not supported by the native TLS backend", Hint: softwareHint}
	case c.PKCS12PassPrompt && c.PKCS12File == "":
		return &mqerr.ConfigError{Field: "pkcs12-pass-prompt", Message: "no --pkcs12 archive to unlock"}
	}
	return nil
}
