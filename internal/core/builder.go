package core

import (
	"io"
	"time"

	"mqtls/config"
	"mqtls/internal/capability"
	"mqtls/internal/metrics"
	"mqtls/internal/retry"
	"mqtls/internal/transport"
	"mqtls/tunnel"
	"mqtls/util"
)

// Option customises Build.
type Option func(*options)

type options struct {
	metrics *metrics.Collector
	prompt  tunnel.PromptFunc
	stdin   io.Reader
	stdout  io.Writer
}

// WithMetrics attaches a collector to every layer of the run.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// WithPrompt replaces the terminal prompt used for key, archive and
// bastion passphrases.
func WithPrompt(p tunnel.PromptFunc) Option {
	return func(o *options) { o.prompt = p }
}

// WithIO replaces os.Stdin and os.Stdout for the relay.
func WithIO(stdin io.Reader, stdout io.Writer) Option {
	return func(o *options) { o.stdin, o.stdout = stdin, stdout }
}

// Build constructs the Mode for a validated configuration.  Credential
// files are read here, so a missing CA bundle or key fails before any
// connection is attempted.
func Build(cfg *config.Config, logger *util.Logger, opts ...Option) (Mode, error) {
	o := options{prompt: tunnel.TerminalPrompt}
	for _, fn := range opts {
		fn(&o)
	}
	if logger == nil {
		logger = util.Nop()
	}

	tlsCfg, err := tlsConfiguration(cfg, o.prompt)
	if err != nil {
		return nil, err
	}

	return &ConnectMode{
		Dialer:     buildDialer(cfg, logger, o),
		TLS:        tlsCfg,
		Capability: buildCapability(cfg),
		Host:       cfg.Host,
		Port:       uint16(cfg.Port),
		Timeout:    cfg.Timeout,
		Retry:      buildBackoff(cfg, logger),
		Logger:     logger,
		Metrics:    o.metrics,
		Stdin:      o.stdin,
		Stdout:     o.stdout,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the plain transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger, o options) transport.Dialer {
	if cfg.TunnelEnabled {
		connTimeout := cfg.Timeout
		if connTimeout == 0 {
			connTimeout = config.DefaultConnTimeout
		}
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   connTimeout,
			KeepAlive:     cfg.KeepAlive,
			Prompt:        o.prompt,
		}, logger, o.metrics)
	}

	return &transport.TCPDialer{Timeout: cfg.Timeout}
}

// buildCapability selects what happens on the encrypted stream.
func buildCapability(cfg *config.Config) capability.Capability {
	if cfg.ZeroIO {
		return &capability.Probe{}
	}
	return &capability.Relay{}
}

// buildBackoff turns --attempts into a retry policy.  Only transport
// failures are retried; see retry.Classify.
func buildBackoff(cfg *config.Config, logger *util.Logger) *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: config.DefaultRetryDelay,
		MaxDelay:     config.DefaultMaxRetryDelay,
		Multiplier:   2.0,
		MaxAttempts:  cfg.Attempts,
		Jitter:       true,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logger.Warn("attempt %d failed: %v; retrying in %s", attempt, err, wait.Round(time.Millisecond))
		},
	}
}
