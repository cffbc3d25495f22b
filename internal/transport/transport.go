// Package transport opens the streams a broker session runs over.
// Dialers handle plain stream establishment (direct TCP or through an
// SSH bastion); DialTLS and TLSDialer layer the client handshake on
// top of any Dialer.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound stream connections.  Implementations include
// a plain TCP dialer, an SSH-bastion dialer and TLSDialer, which wraps
// either of them.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
