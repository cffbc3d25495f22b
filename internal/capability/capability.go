// Package capability defines what happens over an established broker
// stream.  Each Capability encapsulates a single behaviour (relay
// stdin/stdout, report the handshake) and operates on a Session
// rather than a raw net.Conn, which keeps capabilities testable and
// decoupled from transport details.
package capability

import (
	"context"

	"mqtls/internal/session"
)

// Capability handles a single connection according to a specific
// behaviour.  Implementations include relaying stdin/stdout (Relay)
// and reporting the negotiated TLS parameters (Probe).
type Capability interface {
	// Handle runs the capability against the given session.
	// It blocks until the connection is done or the context is
	// cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}
