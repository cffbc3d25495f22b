package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"mqtls/internal/metrics"
	"mqtls/tunnel"
	"mqtls/util"
)

// SSHDialer routes broker connections through an SSH bastion.  The
// bastion is connected lazily on the first Dial call and torn down on
// Close.  Wrap it in a TLSDialer to run the handshake end to end
// through the tunnel.
type SSHDialer struct {
	tunnel    tunnel.Tunnel
	config    *tunnel.SSHConfig
	logger    *util.Logger
	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH bastion.  The bastion is not contacted until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger, m *metrics.Collector) *SSHDialer {
	if logger == nil {
		logger = util.Nop()
	}
	return &SSHDialer{
		tunnel: tunnel.NewBastion(cfg, logger, m),
		config: cfg,
		logger: logger,
	}
}

// connect establishes the SSH tunnel if not already connected, and
// re-establishes it when the previous session died.
func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.tunnel.IsAlive() {
		return nil
	}
	if d.connected {
		d.logger.Warn("SSH bastion went away, reconnecting")
		d.tunnel.Close() //nolint:errcheck
		d.connected = false
	}

	d.logger.Verbose("establishing SSH tunnel to %s@%s:%d",
		d.config.User, d.config.Host, d.config.Port)

	if err := d.tunnel.Connect(ctx); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}

	d.connected = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial connects to address through the bastion, lazily establishing
// the tunnel on the first call.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	return d.tunnel.Dial(ctx, network, address)
}

// Close tears down the underlying SSH tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		d.connected = false
		return d.tunnel.Close()
	}
	return nil
}
