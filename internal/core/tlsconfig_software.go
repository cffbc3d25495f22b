//go:build !nativetls

package core

import (
	"os"

	"mqtls/config"
	"mqtls/internal/connector"
	"mqtls/internal/credential"
	mqerr "mqtls/internal/errors"
	"mqtls/tunnel"
)

// tlsConfiguration reads the PEM files named by cfg into a Simple
// configuration.
func tlsConfiguration(cfg *config.Config, prompt tunnel.PromptFunc) (connector.Configuration, error) {
	ca, err := readPEM(cfg.CAFile)
	if err != nil {
		return connector.Configuration{}, err
	}

	var opts []connector.SimpleOption
	if len(cfg.ALPN) > 0 {
		opts = append(opts, connector.WithALPN(cfg.ALPN...))
	}

	if cfg.HasClientAuth() {
		key, cert, err := clientMaterial(cfg, prompt)
		if err != nil {
			return connector.Configuration{}, err
		}
		opts = append(opts, connector.WithClientAuth(cert, key))
	}
	return connector.Simple(ca, opts...), nil
}

func clientMaterial(cfg *config.Config, prompt tunnel.PromptFunc) (connector.Key, []byte, error) {
	kind, err := credential.ParseKeyKind(cfg.KeyType)
	if err != nil {
		return connector.Key{}, nil, &mqerr.ConfigError{Field: "key-type", Value: cfg.KeyType, Message: err.Error()}
	}
	cert, err := readPEM(cfg.CertFile)
	if err != nil {
		return connector.Key{}, nil, err
	}
	keyPEM, err := readPEM(cfg.KeyFile)
	if err != nil {
		return connector.Key{}, nil, err
	}

	pass := []byte(cfg.KeyPass)
	if cfg.KeyPassPrompt {
		if pass, err = prompt("Key passphrase: "); err != nil {
			return connector.Key{}, nil, err
		}
	}

	switch {
	case kind == credential.KeyRSA && len(pass) > 0:
		return connector.Key{}, nil, &mqerr.ConfigError{
			Field:   "key-type",
			Value:   cfg.KeyType,
			Message: "PKCS#1 keys cannot carry a passphrase",
			Hint:    "convert with: openssl pkcs8 -topk8 -v2 aes256, then use --key-type ec",
		}
	case kind == credential.KeyRSA:
		return connector.RSAKey(keyPEM), cert, nil
	case len(pass) > 0:
		return connector.EncryptedECKey(keyPEM, pass), cert, nil
	default:
		return connector.ECKey(keyPEM), cert, nil
	}
}

// readPEM reads a credential file.  Failures are Io errors.
func readPEM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mqerr.NewTLS(mqerr.Io, err)
	}
	return data, nil
}
