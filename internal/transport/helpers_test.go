package transport

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
)

// trackedConn records whether Close was called.
type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

// routeDialer sends every dial to target regardless of the requested
// address, the way a resolver pointing broker names at a test listener
// would.
type routeDialer struct {
	target string
	err    error

	mu        sync.Mutex
	networks  []string
	addresses []string
	conns     []*trackedConn
}

func (d *routeDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.networks = append(d.networks, network)
	d.addresses = append(d.addresses, address)
	d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}
	var nd net.Dialer
	c, err := nd.DialContext(ctx, network, d.target)
	if err != nil {
		return nil, err
	}
	tc := &trackedConn{Conn: c}
	d.mu.Lock()
	d.conns = append(d.conns, tc)
	d.mu.Unlock()
	return tc, nil
}

func (d *routeDialer) Close() error { return nil }

func (d *routeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addresses...)
}

func (d *routeDialer) networksDialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.networks...)
}

func (d *routeDialer) allClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.conns {
		if !c.closed.Load() {
			return false
		}
	}
	return len(d.conns) > 0
}

// forbiddenDialer fails the test if any dial is attempted.
type forbiddenDialer struct{ t *testing.T }

func (d forbiddenDialer) Dial(_ context.Context, network, address string) (net.Conn, error) {
	d.t.Errorf("unexpected dial %s %s", network, address)
	return nil, net.ErrClosed
}

func (d forbiddenDialer) Close() error { return nil }

// silentListener accepts TCP connections and never answers, so a
// client handshake blocks until cancelled.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	var held []net.Conn
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			held = append(held, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
		mu.Lock()
		for _, c := range held {
			c.Close()
		}
		mu.Unlock()
	})
	return ln.Addr().String()
}
