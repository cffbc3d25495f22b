// Package core is the orchestration layer.  It composes a plain
// dialer, the TLS connector and a capability into a complete run of
// the mqtls command, and provides a builder that selects them from a
// Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  capability  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of mqtls.  Each mode
// owns its full lifecycle from connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
