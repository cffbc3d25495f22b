//go:build nativetls

package core

import (
	"mqtls/config"
	"mqtls/internal/connector"
	"mqtls/tunnel"
)

// tlsConfiguration selects the platform roots, with the PKCS#12
// identity when one is configured.  The archive itself is read by
// connector.Build.
func tlsConfiguration(cfg *config.Config, prompt tunnel.PromptFunc) (connector.Configuration, error) {
	if cfg.PKCS12File == "" {
		return connector.Native(), nil
	}

	pass := cfg.PKCS12Pass
	if cfg.PKCS12PassPrompt {
		secret, err := prompt("PKCS#12 passphrase: ")
		if err != nil {
			return connector.Configuration{}, err
		}
		pass = string(secret)
	}
	return connector.NativePKCS12(cfg.PKCS12File, pass), nil
}
