//go:build !nativetls

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mqtls/config"
	"mqtls/internal/testutil"
)

func configForTest() *config.Config { return config.Default() }

func writeCA(t *testing.T, ca *testutil.CA) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, ca.CertPEM, 0o600))
	return path
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	caPath := writeCA(t, testutil.NewCA(t, "root"))
	s := discard()
	err := ExecuteWith(context.Background(), []string{"--ca", caPath, "--dry-run", "broker.example.com"}, s)
	require.NoError(t, err)
	assert.Contains(t, s.Stdout.(*bytes.Buffer).String(), "configuration OK: broker.example.com:8883")
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantSub string
	}{
		{"missing ca", []string{"--dry-run", "broker.example.com"}, "--ca"},
		{"pkcs12", []string{"--ca", "ca.pem", "--pkcs12", "id.p12", "--dry-run", "broker"}, "nativetls"},
		{"cert without key", []string{"--ca", "ca.pem", "--cert", "c.pem", "--dry-run", "broker"}, "--cert"},
		{"zero attempts", []string{"--ca", "ca.pem", "--attempts", "0", "--dry-run", "broker"}, "--attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ExecuteWith(context.Background(), tt.args, discard())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSub)
		})
	}
}

func TestExecute_MissingCAFile(t *testing.T) {
	err := ExecuteWith(context.Background(),
		[]string{"--ca", filepath.Join(t.TempDir(), "none.pem"), "--dry-run", "broker.example.com"}, discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i/o")
}

// TestExecute_ProbeWithStats runs a full probe against a local broker
// and checks the metrics snapshot printed on exit.
func TestExecute_ProbeWithStats(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	broker := testutil.StartBroker(t, testutil.BrokerConfig(ca.Server(t, "127.0.0.1")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := discard()
	err := ExecuteWith(ctx, []string{
		"-z", "--stats", "--ca", writeCA(t, ca), "--alpn", "mqtt", "-w", "3", broker.Addr,
	}, s)
	require.NoError(t, err)

	out := s.Stdout.(*bytes.Buffer).String()
	assert.True(t, strings.HasPrefix(out, broker.Addr+" "), out)
	assert.Contains(t, out, "alpn=mqtt")

	stderr := s.Stderr.(*bytes.Buffer).String()
	start := strings.Index(stderr, "{")
	require.GreaterOrEqual(t, start, 0, "no stats in %q", stderr)

	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stderr[start:]), &snap))
	assert.EqualValues(t, 1, snap["handshakes_ok"])
	assert.EqualValues(t, 1, snap["connections_total"])
}

// TestExecute_ConfigFileAndFlags checks the layering of YAML file,
// environment and flags.
func TestExecute_ConfigFileAndFlags(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	broker := testutil.StartBroker(t, testutil.BrokerConfig(ca.Server(t, "127.0.0.1")))

	cfgPath := filepath.Join(t.TempDir(), "mqtls.yaml")
	body := "broker:\n  host: 127.0.0.1\n  port: 1\ntls:\n  ca: " + writeCA(t, ca) + "\n  alpn: [other]\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	// The file names a dead port; the positional address wins.  The
	// flag list replaces the file's ALPN list.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := discard()
	err := ExecuteWith(ctx, []string{"-f", cfgPath, "-z", "--alpn", "mqtt", broker.Addr}, s)
	require.NoError(t, err)
	assert.Contains(t, s.Stdout.(*bytes.Buffer).String(), "alpn=mqtt")
}

func TestExecute_RelayEcho(t *testing.T) {
	ca := testutil.NewCA(t, "root")
	broker := testutil.StartBroker(t, testutil.BrokerConfig(ca.Server(t, "127.0.0.1")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := &bytes.Buffer{}
	s := Streams{Stdin: bytes.NewReader([]byte{0xc0, 0x00}), Stdout: out, Stderr: &bytes.Buffer{}}
	require.NoError(t, ExecuteWith(ctx, []string{"--ca", writeCA(t, ca), broker.Addr}, s))
	assert.Equal(t, []byte{0xc0, 0x00}, out.Bytes())
}
