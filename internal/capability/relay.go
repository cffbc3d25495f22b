package capability

import (
	"context"

	"mqtls/internal/session"
	"mqtls/util"
)

// Relay copies data bidirectionally between the broker stream and the
// session's stdin/stdout, the default interactive / pipe mode.
type Relay struct{}

// Handle shuttles bytes between the encrypted stream and the local
// I/O endpoints until one side closes or the context is cancelled.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	return util.BidirectionalCopy(ctx, sess.Stream(), sess.Stdin, sess.Stdout)
}
