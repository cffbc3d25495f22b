package util

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func echoListener(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn) //nolint:errcheck
	}()
	return ln
}

// TestBidirectionalCopy_HalfClose relays a CONNECT-sized frame; the
// echo peer only returns once the write side is half-closed.
func TestBidirectionalCopy_HalfClose(t *testing.T) {
	ln := echoListener(t)
	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	frame := mqttPublish()
	output := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := BidirectionalCopy(ctx, conn, bytes.NewReader(frame), output); err != nil {
		t.Fatalf("BidirectionalCopy: %v", err)
	}
	if !bytes.Equal(output.Bytes(), frame) {
		t.Errorf("echoed %d bytes, want %d", output.Len(), len(frame))
	}
}

// TestBidirectionalCopy_PeerCloses ends the relay when the broker
// sends a CONNACK and hangs up.
func TestBidirectionalCopy_PeerCloses(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	connack := []byte{0x20, 0x02, 0x00, 0x00}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write(connack) //nolint:errcheck
		conn.Close()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	output := &bytes.Buffer{}
	if err := BidirectionalCopy(ctx, conn, bytes.NewReader(nil), output); err != nil {
		t.Fatalf("BidirectionalCopy: %v", err)
	}
	if !bytes.Equal(output.Bytes(), connack) {
		t.Errorf("output = %x, want %x", output.Bytes(), connack)
	}
}

func TestIsHarmless(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"eof", io.EOF, true},
		{"closed conn", net.ErrClosed, true},
		{"closed pipe", io.ErrClosedPipe, true},
		{"op on closed conn", &net.OpError{Op: "read", Net: "tcp", Err: net.ErrClosed}, true},
		{"unexpected eof", io.ErrUnexpectedEOF, false},
		{"reset", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isHarmless(tt.err); got != tt.want {
				t.Errorf("isHarmless(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
