package core

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
)

// flakyDialer sends every dial to target after failing the first
// failures attempts.
type flakyDialer struct {
	target   string
	failures int

	mu     sync.Mutex
	calls  int
	closed bool
}

func (d *flakyDialer) Dial(ctx context.Context, network, _ string) (net.Conn, error) {
	d.mu.Lock()
	d.calls++
	fail := d.calls <= d.failures
	d.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset by peer")
	}
	var nd net.Dialer
	return nd.DialContext(ctx, network, d.target)
}

func (d *flakyDialer) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *flakyDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// newSilentListener accepts connections and never answers, so a
// client handshake stalls until its deadline.
func newSilentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var held []net.Conn
	go func() {
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
		mu.Lock()
		for _, c := range held {
			c.Close()
		}
		mu.Unlock()
	})
	return ln.Addr().String()
}
