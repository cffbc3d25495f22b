// Package connector builds the TLS client connector for a broker
// connection.
//
// Exactly one backend is compiled in:
//
//   - the default build links the software stack: Go's crypto/tls with
//     an explicit trust store parsed from a PEM CA bundle, optional
//     client identity and optional ALPN list;
//   - building with -tags nativetls links the platform-native stack:
//     the operating system's trust roots and verifier, optionally with
//     an identity loaded from a PKCS#12 archive.  It supports neither
//     ALPN nor a custom trust store.
//
// Configuration only exposes the constructors of the compiled backend,
// so a configuration for the other backend cannot be expressed.  The
// zero Configuration is the one remaining misuse; Build rejects it with
// ErrUnsupportedConfiguration.
package connector

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"

	"mqtls/internal/metrics"
	"mqtls/util"
)

// Backend names reported by Configuration.Backend and Connector.Backend.
const (
	BackendSoftware = "software"
	BackendNative   = "native"
)

// ErrUnsupportedConfiguration is a programming error: Build was handed a
// zero Configuration (or a Prebuilt nil *tls.Config).  It is not part of
// the TLS error taxonomy and retrying cannot fix it.
var ErrUnsupportedConfiguration = errors.New("connector: configuration variant not supported by the compiled TLS backend")

// Connector performs TLS client handshakes.  Implementations are
// immutable and safe to reuse for many handshakes.
type Connector interface {
	// Backend returns BackendSoftware or BackendNative.
	Backend() string

	// ServerName derives the server identity used for SNI and
	// certificate verification from the broker host string.
	ServerName(host string) (string, error)

	// Connect runs the handshake over conn.  It does NOT take ownership
	// of conn: on failure the caller must close it.
	Connect(ctx context.Context, serverName string, conn net.Conn) (net.Conn, error)
}

type variant int

// BuildOption customises Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger  *util.Logger
	metrics *metrics.Collector
}

// WithLogger logs connector construction and handshakes.
func WithLogger(l *util.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// WithMetrics records built connectors and handshake timings.
func WithMetrics(m *metrics.Collector) BuildOption {
	return func(o *buildOptions) { o.metrics = m }
}

func newBuildOptions(opts []BuildOption) buildOptions {
	o := buildOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = util.Nop()
	}
	return o
}

// handshake drives a crypto/tls client handshake and logs it in the
// sni/next/cipher/version form.
func handshake(ctx context.Context, conn net.Conn, config *tls.Config, backend string, o buildOptions) (*tls.Conn, error) {
	o.logger.Debug("tls {backend=%s sni=%s next=%v}...", backend, config.ServerName, config.NextProtos)
	start := time.Now()

	tlsConn := tls.Client(conn, config)
	err := tlsConn.HandshakeContext(ctx)
	elapsed := time.Since(start)
	o.metrics.HandshakeDone(backend, elapsed, err)
	if err != nil {
		o.logger.Debug("tls {backend=%s sni=%s next=%v}... %s in %s",
			backend, config.ServerName, config.NextProtos, err, elapsed)
		return nil, err
	}

	state := tlsConn.ConnectionState()
	o.logger.Debug("tls {backend=%s sni=%s next=%v}... ok in %s {next=%s cipher=%s v=%s}",
		backend, config.ServerName, config.NextProtos, elapsed, state.NegotiatedProtocol,
		tls.CipherSuiteName(state.CipherSuite), tls.VersionName(state.Version))
	return tlsConn, nil
}
