package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"mqtls/internal/connector"
	mqerr "mqtls/internal/errors"
	"mqtls/internal/metrics"
	"mqtls/util"
)

// TLSOption customises DialTLS and NewTLSDialer.
type TLSOption func(*tlsOptions)

type tlsOptions struct {
	logger  *util.Logger
	metrics *metrics.Collector
}

// WithTLSLogger logs connector construction, dialing and handshakes.
func WithTLSLogger(l *util.Logger) TLSOption {
	return func(o *tlsOptions) { o.logger = l }
}

// WithTLSMetrics records handshakes and classified failures.
func WithTLSMetrics(m *metrics.Collector) TLSOption {
	return func(o *tlsOptions) { o.metrics = m }
}

func newTLSOptions(opts []TLSOption) tlsOptions {
	o := tlsOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = util.Nop()
	}
	return o
}

func (o tlsOptions) build(cfg connector.Configuration) (connector.Connector, error) {
	c, err := connector.Build(cfg, connector.WithLogger(o.logger), connector.WithMetrics(o.metrics))
	if err != nil {
		return nil, o.fail(err)
	}
	return c, nil
}

// fail records err against its kind.
func (o tlsOptions) fail(err error) error {
	if kind, ok := mqerr.KindOf(err); ok {
		o.metrics.RecordError(kind.String(), err.Error())
	}
	return err
}

// DialTLS opens a TLS stream to host:port through d.
//
// The connector is built first, so configuration errors come back
// before any network I/O.  Then the plain stream is dialed, the server
// name is derived from host and the handshake runs.  The plain stream
// is closed on every failure after it was opened.  DialTLS never
// retries.
func DialTLS(ctx context.Context, d Dialer, host string, port uint16, cfg connector.Configuration, opts ...TLSOption) (net.Conn, error) {
	o := newTLSOptions(opts)

	c, err := o.build(cfg)
	if err != nil {
		return nil, err
	}
	return dialWith(ctx, d, c, "tcp", host, port, o)
}

func dialWith(ctx context.Context, d Dialer, c connector.Connector, network, host string, port uint16, o tlsOptions) (net.Conn, error) {
	address := net.JoinHostPort(host, strconv.Itoa(int(port)))
	if host == "" {
		return nil, o.fail(mqerr.NewTLS(mqerr.AddressParse,
			&net.AddrError{Err: "missing host", Addr: address}))
	}

	o.logger.Verbose("connecting to %s", address)
	plain, err := d.Dial(ctx, network, address)
	if err != nil {
		return nil, o.fail(classifyDialError(err))
	}
	o.logger.Debug("connected to %s", plain.RemoteAddr())

	name, err := c.ServerName(host)
	if err != nil {
		plain.Close()
		return nil, o.fail(err)
	}

	conn, err := c.Connect(ctx, name, plain)
	if err != nil {
		plain.Close()
		return nil, o.fail(err)
	}
	return conn, nil
}

// classifyDialError separates malformed addresses from transport
// failures.
func classifyDialError(err error) error {
	var addrErr *net.AddrError
	var parseErr *net.ParseError
	if errors.As(err, &addrErr) || errors.As(err, &parseErr) {
		return mqerr.NewTLS(mqerr.AddressParse, err)
	}
	return mqerr.NewTLS(mqerr.Io, err)
}

// TLSDialer is a Dialer that runs the client handshake over streams
// opened by an inner Dialer.  One connector is built up front and
// shared by every Dial.
type TLSDialer struct {
	dialer    Dialer
	connector connector.Connector
	opts      tlsOptions
}

var _ Dialer = &TLSDialer{}

// NewTLSDialer builds the connector for cfg and wraps d.
func NewTLSDialer(d Dialer, cfg connector.Configuration, opts ...TLSOption) (*TLSDialer, error) {
	o := newTLSOptions(opts)
	c, err := o.build(cfg)
	if err != nil {
		return nil, err
	}
	return &TLSDialer{dialer: d, connector: c, opts: o}, nil
}

// Backend reports the compiled TLS backend.
func (d *TLSDialer) Backend() string { return d.connector.Backend() }

// Dial implements Dialer.  Only stream networks are supported.
func (d *TLSDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("tls: unsupported network %q", network)
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, d.opts.fail(mqerr.NewTLS(mqerr.AddressParse, err))
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, d.opts.fail(mqerr.NewTLS(mqerr.AddressParse,
			&net.AddrError{Err: "invalid port", Addr: address}))
	}
	return dialWith(ctx, d.dialer, d.connector, network, host, uint16(port), d.opts)
}

// Close closes the inner dialer.
func (d *TLSDialer) Close() error { return d.dialer.Close() }
