//go:build !nativetls

package config

import mqerr "mqtls/internal/errors"

const nativeHint = "PKCS#12 identities need the platform TLS backend; rebuild with -tags nativetls, or pass --cert and --key"

func (c *Config) validateBackend() error {
	if c.PKCS12File != "" {
		return &mqerr.ConfigError{Field: "pkcs12", Value: c.PKCS12File,
			Message: "not supported by the software TLS backend", Hint: nativeHint}
	}
	if c.PKCS12PassPrompt {
		return &mqerr.ConfigError{Field: "pkcs12-pass-prompt",
			Message: "not supported by the software TLS backend", Hint: nativeHint}
	}

	if c.CAFile == "" {
		return &mqerr.ConfigError{
			Field:   "ca",
			Message: "a CA bundle is required",
			Hint:    "pass the PEM file holding the broker's issuing CA",
		}
	}

	if c.HasClientAuth() {
		if c.CertFile == "" || c.KeyFile == "" {
			return &mqerr.ConfigError{
				Field:   "cert",
				Message: "client authentication needs both a certificate and a key",
				Hint:    "pass --cert FILE and --key FILE together",
			}
		}
		if err := validateKeyType(c.KeyType); err != nil {
			return err
		}
	} else if c.KeyPassPrompt {
		return &mqerr.ConfigError{Field: "key-pass-prompt", Message: "no --key to decrypt"}
	}
	return nil
}
