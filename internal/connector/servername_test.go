package connector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidServerName(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"broker.example.com", "broker.example.com"},
		{"Broker.Example.COM", "broker.example.com"},
		{"broker.example.com.", "broker.example.com"},
		{"localhost", "localhost"},
		{"mqtt-01.eu-west.example.net", "mqtt-01.eu-west.example.net"},
		{"bücher.example", "xn--bcher-kva.example"},
		{"192.0.2.10", "192.0.2.10"},
		{"2001:db8::1", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			got, err := ValidServerName(tt.host)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidServerName_Rejects(t *testing.T) {
	tests := []struct {
		name string
		host string
	}{
		{"empty", ""},
		{"space", "broker example.com"},
		{"bang", "broker!.example.com"},
		{"underscore", "mqtt_broker.example.com"},
		{"container alias", "mqtt_broker"},
		{"empty label", "broker..example.com"},
		{"long label", strings.Repeat("a", 64) + ".example.com"},
		{"long name", strings.Repeat("abcdefghi.", 26) + "com"},
		{"leading hyphen", "-broker.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidServerName(tt.host)
			assert.Error(t, err)
		})
	}
}
