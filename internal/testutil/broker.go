package testutil

import (
	"crypto/tls"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Broker is a loopback TLS listener standing in for an MQTT broker.
// Every accepted connection is handshaken and then echoed.
type Broker struct {
	Addr string

	// States receives the server-side state of every completed
	// handshake.
	States chan tls.ConnectionState
	// Failures receives server-side handshake errors.
	Failures chan error

	listener net.Listener
	wg       sync.WaitGroup
}

// StartBroker listens on 127.0.0.1 with config and stops at test
// cleanup.
func StartBroker(t testing.TB, config *tls.Config) *Broker {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "listen")

	b := &Broker{
		Addr:     ln.Addr().String(),
		States:   make(chan tls.ConnectionState, 8),
		Failures: make(chan error, 8),
		listener: ln,
	}

	b.wg.Add(1)
	go b.serve(config)

	t.Cleanup(func() {
		ln.Close()
		b.wg.Wait()
	})
	return b
}

// BrokerConfig returns a server configuration presenting leaf that
// negotiates "mqtt" when the client offers it.
func BrokerConfig(leaf *Leaf) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{leaf.TLS},
		NextProtos:   []string{"mqtt"},
		MinVersion:   tls.VersionTLS12,
	}
}

func (b *Broker) serve(config *tls.Config) {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer conn.Close()

			srv := tls.Server(conn, config)
			defer srv.Close()
			if err := srv.Handshake(); err != nil {
				select {
				case b.Failures <- err:
				default:
				}
				return
			}
			select {
			case b.States <- srv.ConnectionState():
			default:
			}
			io.Copy(srv, srv) //nolint:errcheck
		}()
	}
}
