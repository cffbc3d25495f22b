package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	mqerr "mqtls/internal/errors"
	"mqtls/internal/metrics"
	"mqtls/util"
)

// SSHConfig holds everything needed to dial an SSH bastion.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration

	// KeepAlive is the interval between keepalive@openssh.com
	// requests.  Zero disables them.
	KeepAlive time.Duration

	// Prompt reads secrets (password, key passphrase).  Nil reads
	// from the controlling terminal.
	Prompt PromptFunc
}

func (c *SSHConfig) address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Bastion implements [Tunnel] by opening an SSH connection and
// forwarding broker streams with ssh.Client.DialContext.
type Bastion struct {
	config  *SSHConfig
	client  *ssh.Client
	logger  *util.Logger
	metrics *metrics.Collector
	mu      sync.RWMutex
	alive   bool
	done    chan struct{}
}

var _ Tunnel = &Bastion{}

// NewBastion creates a tunnel that is ready to [Bastion.Connect].
// logger and m may be nil.
func NewBastion(cfg *SSHConfig, logger *util.Logger, m *metrics.Collector) *Bastion {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = util.Nop()
	}
	return &Bastion{config: cfg, logger: logger, metrics: m}
}

// Connect dials the bastion and completes the SSH handshake.
func (b *Bastion) Connect(ctx context.Context) error {
	authMethods, err := BuildAuthMethods(b.config)
	if err != nil {
		return mqerr.WrapSSH("auth", b.config.Host, b.config.Port, err)
	}

	hkCallback, err := hostKeyCallback(b.config)
	if err != nil {
		return mqerr.WrapSSH("hostkey", b.config.Host, b.config.Port, err)
	}

	sshCfg := &ssh.ClientConfig{
		User:            b.config.User,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         b.config.ConnTimeout,
	}

	addr := b.config.address()
	b.logger.Debug("SSH: dialing %s as %s", addr, b.config.User)

	// Use a context-aware TCP dial so callers can cancel.
	dialer := net.Dialer{Timeout: b.config.ConnTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return mqerr.Wrap("dial", addr, err)
	}

	// The SSH handshake itself is not context-aware; bound it with
	// the context deadline.
	if deadline, ok := ctx.Deadline(); ok {
		tcpConn.SetDeadline(deadline) //nolint:errcheck
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, sshCfg)
	if err != nil {
		tcpConn.Close()
		return mqerr.WrapSSH("handshake", b.config.Host, b.config.Port, classifyHandshakeError(err))
	}
	tcpConn.SetDeadline(time.Time{}) //nolint:errcheck

	client := ssh.NewClient(sshConn, chans, reqs)
	b.logger.Verbose("SSH bastion %s ready (server %s)", addr, sshConn.ServerVersion())

	b.mu.Lock()
	b.client = client
	b.alive = true
	b.done = make(chan struct{})
	b.mu.Unlock()

	go b.monitor(client)
	if b.config.KeepAlive > 0 {
		go b.keepaliveLoop(client, b.done)
	}
	return nil
}

// classifyHandshakeError maps host-key and authentication failures to
// the package sentinels.
func classifyHandshakeError(err error) error {
	var keyErr *knownhosts.KeyError
	switch {
	case errors.As(err, &keyErr) && len(keyErr.Want) > 0,
		strings.Contains(err.Error(), "knownhosts: key mismatch"):
		return fmt.Errorf("%w: %v", mqerr.ErrHostKeyMismatch, err)
	case strings.Contains(err.Error(), "unable to authenticate"):
		return fmt.Errorf("%w: %v", mqerr.ErrAuthFailed, err)
	}
	return err
}

// Dial forwards a connection to address through the bastion.
func (b *Bastion) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	b.mu.RLock()
	client := b.client
	alive := b.alive
	b.mu.RUnlock()

	if !alive || client == nil {
		return nil, mqerr.ErrNotConnected
	}

	b.logger.Debug("tunnel: dialing %s %s", network, address)
	conn, err := client.DialContext(ctx, network, address)
	if err != nil {
		return nil, mqerr.Wrap("tunnel dial", address, err)
	}
	b.metrics.TunnelDial()
	return conn, nil
}

// Close shuts down the SSH connection.
func (b *Bastion) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.alive = false
	if b.done != nil {
		close(b.done)
		b.done = nil
	}
	if b.client != nil {
		err := b.client.Close()
		b.client = nil
		return err
	}
	return nil
}

// IsAlive reports whether the tunnel is still connected.
func (b *Bastion) IsAlive() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.alive
}

// monitor blocks until the SSH connection closes and flips the alive flag.
func (b *Bastion) monitor(client *ssh.Client) {
	err := client.Wait()

	b.mu.Lock()
	if b.client == client {
		b.alive = false
	}
	b.mu.Unlock()

	if err != nil {
		b.logger.Debug("SSH bastion closed: %v", err)
	} else {
		b.logger.Debug("SSH bastion closed")
	}
}

// keepaliveLoop sends periodic keep-alive requests and closes the
// client once the bastion stops answering.
func (b *Bastion) keepaliveLoop(client *ssh.Client, done <-chan struct{}) {
	ticker := time.NewTicker(b.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				b.logger.Warn("SSH keepalive failed: %v", err)
				b.metrics.RecordError("SSH", fmt.Sprintf("keepalive: %v", err))
				client.Close()
				return
			}
			b.logger.Debug("SSH keepalive OK")
		}
	}
}
