// Package tunnel reaches brokers that are only routable from a jump
// host.  The SSH implementation is backed by golang.org/x/crypto/ssh
// and forwards streams with direct-tcpip channels.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is a session to a jump host through which broker streams are
// forwarded.  A Tunnel carries plain streams only; TLS runs end to end
// between mqtls and the broker on top of them.
type Tunnel interface {
	// Connect authenticates to the jump host.
	Connect(ctx context.Context) error

	// Dial opens a forwarded stream to address, as resolved by the
	// jump host.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close ends the session and every stream forwarded through it.
	Close() error

	// IsAlive reports whether the session still answers.
	IsAlive() bool
}
