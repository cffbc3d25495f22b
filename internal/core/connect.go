package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"mqtls/internal/capability"
	"mqtls/internal/connector"
	"mqtls/internal/metrics"
	"mqtls/internal/retry"
	"mqtls/internal/session"
	"mqtls/internal/transport"
	"mqtls/util"
)

// ConnectMode opens a TLS stream to the broker and runs a capability
// on it.
type ConnectMode struct {
	Dialer     transport.Dialer
	TLS        connector.Configuration
	Capability capability.Capability
	Host       string
	Port       uint16

	// Timeout bounds the dial and handshake of each attempt.  Zero
	// means no deadline beyond ctx.
	Timeout time.Duration
	// Retry is consulted when an attempt fails.  Nil means one attempt.
	Retry *retry.Backoff

	Logger  *util.Logger
	Metrics *metrics.Collector

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run opens the encrypted stream, creates a session, and hands it to
// the capability.  The dialer and the stream are closed when Run
// returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	address := util.FormatAddr(m.Host, int(m.Port))
	conn, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", address, err)
	}
	defer conn.Close()

	m.Metrics.ConnectionOpened()
	defer m.Metrics.ConnectionClosed()
	m.Logger.Verbose("connected to %s", conn.RemoteAddr())

	sess := session.New(conn, m.stdin(), m.stdout(), m.Logger)
	sess.Address = address
	sess.Metrics = m.Metrics
	return m.Capability.Handle(ctx, sess)
}

func (m *ConnectMode) dial(ctx context.Context) (net.Conn, error) {
	backoff := m.Retry
	if backoff == nil {
		backoff = &retry.Backoff{MaxAttempts: 1}
	}

	var conn net.Conn
	err := backoff.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			m.Logger.Verbose("attempt %d", attempt)
		}
		c, err := m.attempt(ctx)
		if err != nil {
			return retry.Classify(err)
		}
		conn = c
		return nil
	})
	return conn, err
}

func (m *ConnectMode) attempt(ctx context.Context) (net.Conn, error) {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	return transport.DialTLS(ctx, m.Dialer, m.Host, m.Port, m.TLS,
		transport.WithTLSLogger(m.Logger), transport.WithTLSMetrics(m.Metrics))
}
