package credential

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"

	mqerr "mqtls/internal/errors"
)

// KeyKind selects the private-key parser.  The two parsers are not
// interchangeable: an RSA-declared key must be a PKCS#1 "RSA PRIVATE
// KEY" block, an EC-declared key a PKCS#8 "PRIVATE KEY" (or "ENCRYPTED
// PRIVATE KEY") block.
type KeyKind int

const (
	KeyRSA KeyKind = iota + 1
	KeyEC
)

func (k KeyKind) String() string {
	switch k {
	case KeyRSA:
		return "rsa"
	case KeyEC:
		return "ec"
	default:
		return fmt.Sprintf("KeyKind(%d)", int(k))
	}
}

// ParseKeyKind accepts "rsa", "ec" and "ecc".
func ParseKeyKind(s string) (KeyKind, error) {
	switch s {
	case "rsa", "RSA":
		return KeyRSA, nil
	case "ec", "ecc", "EC", "ECC":
		return KeyEC, nil
	}
	return 0, fmt.Errorf("unknown key type %q (want rsa or ec)", s)
}

// ClientIdentity builds a mutual-TLS identity from a PEM certificate
// chain and a PEM private key of the declared kind.  The first key
// found is used; it is not checked against the leaf certificate, so a
// mismatch only surfaces during the handshake.  password is only
// consulted for encrypted PKCS#8 keys.
func ClientIdentity(certPEM []byte, kind KeyKind, keyPEM, password []byte) (tls.Certificate, error) {
	chain := certificateBlocks(certPEM)
	if len(chain) == 0 {
		return tls.Certificate{}, mqerr.NoValidCert(errNoBlocks(pemCertificate))
	}

	keys, err := privateKeys(kind, keyPEM, password)
	if err != nil {
		return tls.Certificate{}, mqerr.NoValidCert(err)
	}
	if len(keys) == 0 {
		return tls.Certificate{}, mqerr.NoValidCert(fmt.Errorf("no %s private key found", kind))
	}

	return tls.Certificate{Certificate: chain, PrivateKey: keys[0]}, nil
}

// privateKeys collects every key block of the declared kind.  A block
// of the right type that fails to parse aborts the whole read.
func privateKeys(kind KeyKind, data, password []byte) ([]crypto.PrivateKey, error) {
	var keys []crypto.PrivateKey
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return keys, nil
		}

		switch kind {
		case KeyRSA:
			if block.Type != pemRSAPrivateKey {
				continue
			}
			k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse PKCS#1 key: %w", err)
			}
			keys = append(keys, k)

		case KeyEC:
			var k interface{}
			var err error
			switch block.Type {
			case pemPrivateKey:
				k, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes)
			case pemEncryptedKey:
				if len(password) == 0 {
					return nil, fmt.Errorf("encrypted PKCS#8 key requires a password")
				}
				k, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, password)
			default:
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("parse PKCS#8 key: %w", err)
			}
			keys = append(keys, k)

		default:
			return nil, fmt.Errorf("unsupported key kind %s", kind)
		}
	}
}
