//go:build !nativetls

package connector

import (
	"context"
	"crypto/tls"
	"net"

	"mqtls/internal/credential"
	mqerr "mqtls/internal/errors"
)

// safeCipherSuites are the ECDHE/AEAD suites offered for TLS 1.2.
// TLS 1.3 suites are not configurable.
var safeCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

// SoftwareConnector runs handshakes with crypto/tls against an explicit
// trust store.
type SoftwareConnector struct {
	config   *tls.Config
	prebuilt bool
	opts     buildOptions
}

var _ Connector = &SoftwareConnector{}

// Build produces a connector for cfg.
func Build(cfg Configuration, opts ...BuildOption) (Connector, error) {
	o := newBuildOptions(opts)

	switch cfg.variant {
	case variantSimple:
		c, err := buildSimple(cfg, o)
		if err != nil {
			return nil, err
		}
		o.metrics.ConnectorBuilt(BackendSoftware)
		return c, nil

	case variantPrebuilt:
		if cfg.prebuilt == nil {
			return nil, ErrUnsupportedConfiguration
		}
		o.logger.Verbose("tls: using caller-supplied configuration")
		o.metrics.ConnectorBuilt(BackendSoftware)
		return &SoftwareConnector{config: cfg.prebuilt, prebuilt: true, opts: o}, nil

	default:
		return nil, ErrUnsupportedConfiguration
	}
}

func buildSimple(cfg Configuration, o buildOptions) (*SoftwareConnector, error) {
	store, err := credential.TrustAnchors(cfg.ca)
	if err != nil {
		o.logger.Debug("tls: CA bundle rejected: %v", mqerr.Unwrap(err))
		return nil, err
	}
	for _, skipped := range store.Skipped {
		o.logger.Debug("tls: skipping CA entry: %v", skipped)
	}

	config := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: safeCipherSuites,
		RootCAs:      store.Pool,
	}

	if cfg.client != nil {
		id, err := credential.ClientIdentity(cfg.client.cert, cfg.client.key.kind, cfg.client.key.pem, cfg.client.key.password)
		if err != nil {
			o.logger.Debug("tls: client identity rejected: %v", mqerr.Unwrap(err))
			return nil, err
		}
		config.Certificates = []tls.Certificate{id}
	}

	config.NextProtos = append(config.NextProtos, cfg.alpn...)

	o.logger.Verbose("tls: software connector ready {anchors=%d client_auth=%t alpn=%v}",
		store.Len(), cfg.client != nil, config.NextProtos)
	return &SoftwareConnector{config: config, opts: o}, nil
}

// Backend implements Connector.
func (c *SoftwareConnector) Backend() string { return BackendSoftware }

// ServerName implements Connector.  host must be an IP literal or a
// valid DNS name.
func (c *SoftwareConnector) ServerName(host string) (string, error) {
	name, err := ValidServerName(host)
	if err != nil {
		return "", mqerr.NewTLS(mqerr.ServerNameInvalid, err)
	}
	return name, nil
}

// Connect implements Connector.
func (c *SoftwareConnector) Connect(ctx context.Context, serverName string, conn net.Conn) (net.Conn, error) {
	config := c.config.Clone()
	config.ServerName = serverName

	tlsConn, err := handshake(ctx, conn, config, BackendSoftware, c.opts)
	if err != nil {
		return nil, mqerr.NewTLS(mqerr.HandshakeProtocol, err)
	}
	return tlsConn, nil
}

// Config returns a copy of the client configuration.
func (c *SoftwareConnector) Config() *tls.Config { return c.config.Clone() }

// Prebuilt reports whether the configuration was supplied by the caller.
func (c *SoftwareConnector) Prebuilt() bool { return c.prebuilt }
