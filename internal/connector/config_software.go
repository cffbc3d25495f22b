//go:build !nativetls

package connector

import (
	"crypto/tls"

	"mqtls/internal/credential"
)

const (
	variantSimple variant = iota + 1
	variantPrebuilt
)

// Configuration selects how the software TLS stack is set up.  Build
// one with Simple or Prebuilt.
type Configuration struct {
	variant  variant
	ca       []byte
	alpn     []string
	client   *clientAuth
	prebuilt *tls.Config
}

// Key is a client private key tagged with the parser that must read it.
type Key struct {
	kind     credential.KeyKind
	pem      []byte
	password []byte
}

// RSAKey wraps a PKCS#1 "RSA PRIVATE KEY" PEM.
func RSAKey(pem []byte) Key { return Key{kind: credential.KeyRSA, pem: pem} }

// ECKey wraps a PKCS#8 "PRIVATE KEY" PEM (typically an EC key).
func ECKey(pem []byte) Key { return Key{kind: credential.KeyEC, pem: pem} }

// EncryptedECKey wraps a PKCS#8 "ENCRYPTED PRIVATE KEY" PEM and the
// password that decrypts it.
func EncryptedECKey(pem, password []byte) Key {
	return Key{kind: credential.KeyEC, pem: pem, password: password}
}

type clientAuth struct {
	cert []byte
	key  Key
}

// SimpleOption adds optional material to a Simple configuration.
type SimpleOption func(*Configuration)

// WithALPN appends protocols, in order, to the ALPN list.
func WithALPN(protos ...string) SimpleOption {
	return func(c *Configuration) { c.alpn = append(c.alpn, protos...) }
}

// WithClientAuth sets the PEM certificate chain and key used for
// mutual TLS.
func WithClientAuth(cert []byte, key Key) SimpleOption {
	return func(c *Configuration) { c.client = &clientAuth{cert: cert, key: key} }
}

// Simple trusts the certificates in the PEM bundle ca.
func Simple(ca []byte, opts ...SimpleOption) Configuration {
	c := Configuration{variant: variantSimple, ca: ca}
	for _, fn := range opts {
		fn(&c)
	}
	return c
}

// Prebuilt uses cfg as is.  The caller keeps ownership; Build performs
// no validation and handshakes run on per-connection clones.
func Prebuilt(cfg *tls.Config) Configuration {
	return Configuration{variant: variantPrebuilt, prebuilt: cfg}
}

// Backend reports the compiled backend.
func (c Configuration) Backend() string { return BackendSoftware }

// ALPN returns the configured protocol list.
func (c Configuration) ALPN() []string { return c.alpn }

// HasClientAuth reports whether a client identity was supplied.
func (c Configuration) HasClientAuth() bool { return c.client != nil }
