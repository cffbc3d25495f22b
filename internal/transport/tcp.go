package transport

import (
	"context"
	"net"
	"time"
)

// TCPDialer establishes plain TCP connections to the broker.
type TCPDialer struct {
	// Timeout bounds connection establishment.  Zero leaves the
	// deadline to the context.
	Timeout time.Duration
	// KeepAlive is the TCP keep-alive period.  Zero uses the Go
	// default; negative disables keep-alives.
	KeepAlive time.Duration
}

// Dial connects to address over TCP.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }
