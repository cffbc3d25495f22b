// Package session represents a single broker connection lifecycle,
// binding the encrypted stream with I/O endpoints and shared context.
//
// Sessions decouple capabilities from concrete I/O sources: a
// capability doesn't need to know whether it's reading from os.Stdin
// or a test buffer, it just uses the session's Reader/Writer.
package session

import (
	"crypto/tls"
	"io"
	"net"

	"mqtls/internal/metrics"
	"mqtls/util"
)

// Session encapsulates the runtime context for a single connection.
// Capabilities operate on sessions rather than raw connections,
// enabling clean testing and I/O abstraction.
type Session struct {
	Conn    net.Conn
	Address string
	Stdin   io.Reader
	Stdout  io.Writer
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// New creates a Session bound to the given connection and I/O pair.
func New(conn net.Conn, stdin io.Reader, stdout io.Writer, logger *util.Logger) *Session {
	if logger == nil {
		logger = util.Nop()
	}
	return &Session{
		Conn:   conn,
		Stdin:  stdin,
		Stdout: stdout,
		Logger: logger,
	}
}

// TLSState returns the handshake state when the stream is TLS.
func (s *Session) TLSState() (tls.ConnectionState, bool) {
	type stater interface {
		ConnectionState() tls.ConnectionState
	}
	if c, ok := s.Conn.(stater); ok {
		return c.ConnectionState(), true
	}
	return tls.ConnectionState{}, false
}

// Stream returns the connection, counting bytes into Metrics when a
// collector is attached.
func (s *Session) Stream() net.Conn {
	if s.Metrics == nil {
		return s.Conn
	}
	return &countingConn{Conn: s.Conn, metrics: s.Metrics}
}

// countingConn records bytes moved over the broker stream.
type countingConn struct {
	net.Conn
	metrics *metrics.Collector
}

func (c *countingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	c.metrics.BytesReceived(int64(n))
	return n, err
}

func (c *countingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	c.metrics.BytesSent(int64(n))
	return n, err
}

// CloseWrite keeps half-close available through the wrapper.
func (c *countingConn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}
