// Package errors provides domain-specific error types for mqtls.
//
// TLSError carries the flat transport taxonomy surfaced by the TLS
// connector and handshake layer.  The remaining types (NetworkError,
// SSHError, ConfigError) carry structured context for the CLI, the SSH
// bastion and configuration validation.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrTunnelClosed    = errors.New("tunnel is closed")
	ErrNotConnected    = errors.New("not connected")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrHostKeyMismatch = errors.New("host key mismatch")
)

// ── TLS taxonomy ─────────────────────────────────────────────────────

// Kind identifies one failure class of the TLS transport.  Callers
// switch on the Kind (or use errors.Is with the Err* sentinels below)
// without caring which backend is compiled in.
type Kind int

const (
	// AddressParse: host is not a valid network address or name.
	AddressParse Kind = iota + 1
	// Io: socket or file operation failed.
	Io
	// TrustAnchorDecode: a CA certificate could not be used as a
	// trust anchor.  Only surfaces wrapped inside NoValidCertInChain.
	TrustAnchorDecode
	// ServerNameInvalid: host is not usable as a TLS server name.
	ServerNameInvalid
	// HandshakeProtocol: the software TLS stack rejected the handshake.
	HandshakeProtocol
	// NoValidCertInChain: CA bundle or client identity yielded nothing
	// usable.
	NoValidCertInChain
	// NativeBackendError: the platform TLS stack reported an error.
	NativeBackendError
	// CertNotFound: the PKCS#12 archive path could not be opened.
	CertNotFound
	// InvalidCert: the PKCS#12 archive could not be decoded.
	InvalidCert
	// InvalidPass: the PKCS#12 passphrase was rejected.
	InvalidPass
)

var kindNames = map[Kind]string{
	AddressParse:       "AddressParse",
	Io:                 "Io",
	TrustAnchorDecode:  "TrustAnchorDecode",
	ServerNameInvalid:  "ServerNameInvalid",
	HandshakeProtocol:  "HandshakeProtocol",
	NoValidCertInChain: "NoValidCertInChain",
	NativeBackendError: "NativeBackendError",
	CertNotFound:       "CertNotFound",
	InvalidCert:        "InvalidCert",
	InvalidPass:        "InvalidPass",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// TLSError is a failure of the TLS transport.  Path is set for the
// PKCS#12 kinds (CertNotFound, InvalidCert).  Err keeps the underlying
// cause for diagnostics; the Kind is what callers match on.
type TLSError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *TLSError) Error() string {
	var msg string
	switch e.Kind {
	case AddressParse:
		msg = "addr"
	case Io:
		msg = "i/o"
	case TrustAnchorDecode:
		msg = "web pki"
	case ServerNameInvalid:
		msg = "dns name"
	case HandshakeProtocol:
		msg = "tls error"
	case NoValidCertInChain:
		return "no valid cert in chain"
	case NativeBackendError:
		msg = "native tls error"
	case CertNotFound:
		return "could not find cert at " + e.Path
	case InvalidCert:
		return "invalid pkcs12 certificate " + e.Path
	case InvalidPass:
		return "invalid pkcs12 password"
	default:
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *TLSError) Unwrap() error { return e.Err }

// Is matches another *TLSError of the same Kind.  A target with a
// non-empty Path additionally requires the same Path, so
// errors.Is(err, &TLSError{Kind: CertNotFound, Path: p}) works.
func (e *TLSError) Is(target error) bool {
	t, ok := target.(*TLSError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Path == "" || t.Path == e.Path)
}

// Kind sentinels for errors.Is.
var (
	ErrAddressParse       = &TLSError{Kind: AddressParse}
	ErrIo                 = &TLSError{Kind: Io}
	ErrTrustAnchorDecode  = &TLSError{Kind: TrustAnchorDecode}
	ErrServerNameInvalid  = &TLSError{Kind: ServerNameInvalid}
	ErrHandshakeProtocol  = &TLSError{Kind: HandshakeProtocol}
	ErrNoValidCertInChain = &TLSError{Kind: NoValidCertInChain}
	ErrNativeBackend      = &TLSError{Kind: NativeBackendError}
	ErrCertNotFound       = &TLSError{Kind: CertNotFound}
	ErrInvalidCert        = &TLSError{Kind: InvalidCert}
	ErrInvalidPass        = &TLSError{Kind: InvalidPass}
)

// NewTLS wraps err under the given kind.
func NewTLS(kind Kind, err error) *TLSError {
	return &TLSError{Kind: kind, Err: err}
}

// NoValidCert returns the coarse NoValidCertInChain error.  The
// optional cause is kept for logging but never changes the Kind.
func NoValidCert(cause error) *TLSError {
	return &TLSError{Kind: NoValidCertInChain, Err: cause}
}

// CertNotFoundAt reports an unopenable PKCS#12 archive.
func CertNotFoundAt(path string, err error) *TLSError {
	return &TLSError{Kind: CertNotFound, Path: path, Err: err}
}

// InvalidCertAt reports an undecodable PKCS#12 archive.
func InvalidCertAt(path string, err error) *TLSError {
	return &TLSError{Kind: InvalidCert, Path: path, Err: err}
}

// KindOf returns the Kind of the outermost *TLSError in err's chain.
func KindOf(err error) (Kind, bool) {
	var te *TLSError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// IsConfigurationKind reports whether k describes bad input rather
// than a transient condition.  Retrying such errors cannot succeed.
func IsConfigurationKind(k Kind) bool {
	switch k {
	case AddressParse, TrustAnchorDecode, ServerNameInvalid,
		NoValidCertInChain, CertNotFound, InvalidCert, InvalidPass:
		return true
	}
	return false
}

// ── Structured error types ───────────────────────────────────────────

// NetworkError represents a failure in a network operation.
type NetworkError struct {
	Op        string // operation: "dial", "handshake", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the caller should retry
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with bastion context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "channel"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, automatically detecting retryability
// from the underlying error.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsRetryable reports whether err is worth retrying.  TLS errors of a
// configuration kind never are; Io errors always are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if k, ok := KindOf(err); ok {
		if IsConfigurationKind(k) {
			return false
		}
		if k == Io {
			return true
		}
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
