package capability

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"mqtls/internal/session"
)

// Probe reports the negotiated TLS parameters and closes without
// exchanging application data (-z).
type Probe struct{}

// Handle writes one line describing the handshake to the session's
// stdout.
func (p *Probe) Handle(_ context.Context, sess *session.Session) error {
	state, ok := sess.TLSState()
	if !ok {
		return fmt.Errorf("probe: %s is not a TLS stream", sess.Conn.RemoteAddr())
	}
	_, err := fmt.Fprintln(sess.Stdout, describe(sess.Address, state))
	return err
}

func describe(address string, state tls.ConnectionState) string {
	var b strings.Builder
	if address != "" {
		fmt.Fprintf(&b, "%s ", address)
	}
	fmt.Fprintf(&b, "version=%q cipher=%s", tls.VersionName(state.Version), tls.CipherSuiteName(state.CipherSuite))

	alpn := state.NegotiatedProtocol
	if alpn == "" {
		alpn = "-"
	}
	fmt.Fprintf(&b, " alpn=%s", alpn)

	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		fmt.Fprintf(&b, " subject=%q issuer=%q expires=%s",
			leaf.Subject.String(), leaf.Issuer.String(), leaf.NotAfter.UTC().Format(time.RFC3339))
	}
	return b.String()
}
