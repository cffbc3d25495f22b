//go:build nativetls

package connector

import (
	"context"
	"crypto/tls"
	"net"

	"mqtls/internal/credential"
	mqerr "mqtls/internal/errors"
)

// NativeConnector verifies servers with the operating system's roots.
// RootCAs is left nil so crypto/tls defers to the platform verifier.
type NativeConnector struct {
	config *tls.Config
	opts   buildOptions
}

var _ Connector = &NativeConnector{}

// Build produces a connector for cfg.
func Build(cfg Configuration, opts ...BuildOption) (Connector, error) {
	o := newBuildOptions(opts)

	config := &tls.Config{MinVersion: tls.VersionTLS12}

	switch cfg.variant {
	case variantNative:
	case variantNativePKCS12:
		id, err := credential.LoadPKCS12(cfg.path, cfg.passphrase)
		if err != nil {
			o.logger.Debug("tls: identity %s rejected: %v", cfg.path, err)
			return nil, err
		}
		config.Certificates = []tls.Certificate{id}
	default:
		return nil, ErrUnsupportedConfiguration
	}

	o.logger.Verbose("tls: native connector ready {identity=%t}", len(config.Certificates) > 0)
	o.metrics.ConnectorBuilt(BackendNative)
	return &NativeConnector{config: config, opts: o}, nil
}

// Backend implements Connector.
func (c *NativeConnector) Backend() string { return BackendNative }

// ServerName implements Connector.  The host is handed to the platform
// stack unchanged; it rejects bad names during the handshake.
func (c *NativeConnector) ServerName(host string) (string, error) {
	return host, nil
}

// Connect implements Connector.
func (c *NativeConnector) Connect(ctx context.Context, serverName string, conn net.Conn) (net.Conn, error) {
	config := c.config.Clone()
	config.ServerName = serverName

	tlsConn, err := handshake(ctx, conn, config, BackendNative, c.opts)
	if err != nil {
		return nil, mqerr.NewTLS(mqerr.NativeBackendError, err)
	}
	return tlsConn, nil
}

// HasIdentity reports whether a client identity will be presented.
func (c *NativeConnector) HasIdentity() bool { return len(c.config.Certificates) > 0 }
