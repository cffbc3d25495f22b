// Package credential turns caller-supplied certificate material into
// the objects a TLS connector needs: a trust store from a PEM CA
// bundle, a client identity from PEM certificate and key bytes, or an
// identity from a passphrase-protected PKCS#12 archive.
//
// Every parse failure of the PEM paths is reported as the coarse
// NoValidCertInChain kind.  The fine-grained cause stays wrapped inside
// for logging.
package credential

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	mqerr "mqtls/internal/errors"
)

const (
	pemCertificate   = "CERTIFICATE"
	pemRSAPrivateKey = "RSA PRIVATE KEY"
	pemPrivateKey    = "PRIVATE KEY"
	pemEncryptedKey  = "ENCRYPTED PRIVATE KEY"
)

// TrustStore is the set of root certificates accepted from a CA bundle.
type TrustStore struct {
	Pool    *x509.CertPool
	Anchors []*x509.Certificate
	// Skipped holds one plain diagnostic per CERTIFICATE block that
	// could not be parsed.  They carry no Kind, so the NoValidCertInChain
	// error that may wrap them matches only its own sentinel.
	Skipped []error
}

// Len returns the number of accepted trust anchors.
func (s *TrustStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Anchors)
}

// TrustAnchors parses every CERTIFICATE block in ca.  Blocks that fail
// to parse are skipped; the call only fails, with NoValidCertInChain,
// when no anchor at all was accepted.
func TrustAnchors(ca []byte) (*TrustStore, error) {
	store := &TrustStore{Pool: x509.NewCertPool()}

	for i, der := range certificateBlocks(ca) {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			store.Skipped = append(store.Skipped, fmt.Errorf("trust anchor %d: %w", i, err))
			continue
		}
		store.Pool.AddCert(cert)
		store.Anchors = append(store.Anchors, cert)
	}

	if len(store.Anchors) == 0 {
		return nil, mqerr.NoValidCert(errors.Join(store.Skipped...))
	}
	return store, nil
}

// certificateBlocks returns the DER bytes of every CERTIFICATE block,
// ignoring other block types and any non-PEM garbage between blocks.
func certificateBlocks(data []byte) [][]byte {
	var out [][]byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return out
		}
		if block.Type == pemCertificate {
			out = append(out, block.Bytes)
		}
	}
}

// errNoBlocks is the diagnostic used when a PEM input holds no block of
// the expected type.
func errNoBlocks(what string) error {
	return fmt.Errorf("no %s blocks found", what)
}
