package credential

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"os"

	"software.sslmate.com/src/go-pkcs12"

	mqerr "mqtls/internal/errors"
)

// LoadPKCS12 reads the archive at path fully into memory and decodes
// the identity it holds.
//
// Errors: CertNotFound when the file cannot be opened, InvalidCert when
// it cannot be read or decoded, InvalidPass when the passphrase is
// rejected.
func LoadPKCS12(path, passphrase string) (tls.Certificate, error) {
	f, err := os.Open(path)
	if err != nil {
		return tls.Certificate{}, mqerr.CertNotFoundAt(path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return tls.Certificate{}, mqerr.InvalidCertAt(path, err)
	}
	return DecodePKCS12(data, passphrase, path)
}

// DecodePKCS12 decodes an in-memory archive.  label names the archive
// in InvalidCert errors.  Both the legacy 3DES/RC2 layout and the
// PBES2/AES layout written by OpenSSL 3 are accepted.
func DecodePKCS12(data []byte, passphrase, label string) (tls.Certificate, error) {
	key, leaf, chain, err := pkcs12.DecodeChain(data, passphrase)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return tls.Certificate{}, &mqerr.TLSError{Kind: mqerr.InvalidPass, Err: err}
		}
		return tls.Certificate{}, mqerr.InvalidCertAt(label, err)
	}
	if key == nil || leaf == nil {
		return tls.Certificate{}, mqerr.InvalidCertAt(label, errors.New("archive holds no certificate and key pair"))
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return tls.Certificate{}, mqerr.InvalidCertAt(label, err)
	}

	// Leaf first; X509KeyPair also checks the key matches it.
	certPEM := pem.EncodeToMemory(&pem.Block{Type: pemCertificate, Bytes: leaf.Raw})
	for _, c := range chain {
		certPEM = append(certPEM, pem.EncodeToMemory(&pem.Block{Type: pemCertificate, Bytes: c.Raw})...)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, mqerr.InvalidCertAt(label, err)
	}
	return cert, nil
}
