package transport

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	mqerr "mqtls/internal/errors"
)

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want mqerr.Kind
	}{
		{"addr error", &net.AddrError{Err: "missing port", Addr: "broker"}, mqerr.AddressParse},
		{"parse error", &net.ParseError{Type: "IP address", Text: "300.1.1.1"}, mqerr.AddressParse},
		{"wrapped addr error", &net.OpError{Op: "dial", Net: "tcp", Err: &net.AddrError{Err: "bad", Addr: "x"}}, mqerr.AddressParse},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, mqerr.Io},
		{"dns", &net.DNSError{Err: "no such host", Name: "broker.invalid", IsNotFound: true}, mqerr.Io},
		{"other", errors.New("boom"), mqerr.Io},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyDialError(tt.err)
			kind, ok := mqerr.KindOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, kind)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
