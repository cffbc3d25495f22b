// Package cmd wires up the CLI flags and dispatches to the core
// connect mode.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	flag "github.com/spf13/pflag"

	"mqtls/config"
	"mqtls/internal/core"
	"mqtls/internal/metrics"
	"mqtls/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X mqtls/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Streams are the process I/O endpoints.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Execute parses args and runs mqtls against the process streams.
func Execute(ctx context.Context, args []string) error {
	return ExecuteWith(ctx, args, Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
}

// ExecuteWith parses args and runs mqtls against s.
//
// Settings are layered: defaults, then the YAML file named by
// -f/--config or MQTLS_CONFIG, then MQTLS_* variables, then flags.
func ExecuteWith(ctx context.Context, args []string, s Streams) error {
	cfg := config.Default()
	if path := configPath(args); path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		f.Apply(cfg)
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("mqtls", flag.ContinueOnError)
	fs.SetOutput(s.Stderr)

	var configFile string
	fs.StringVarP(&configFile, "config", "f", "", "YAML config file")

	// ── broker ───────────────────────────────────────────────────
	timeoutSec := int(cfg.Timeout / time.Second)
	fs.IntVarP(&timeoutSec, "timeout", "w", timeoutSec, "Dial and handshake timeout in seconds")
	fs.IntVar(&cfg.Attempts, "attempts", cfg.Attempts, "Connection attempts (transport failures only)")
	fs.BoolVarP(&cfg.ZeroIO, "zero-io", "z", cfg.ZeroIO, "Handshake only; report the negotiated session")

	// ── TLS ──────────────────────────────────────────────────────
	fs.StringVar(&cfg.CAFile, "ca", cfg.CAFile, "PEM CA bundle trusted for the broker")
	fs.StringVar(&cfg.CertFile, "cert", cfg.CertFile, "PEM client certificate chain")
	fs.StringVar(&cfg.KeyFile, "key", cfg.KeyFile, "PEM client private key")
	fs.StringVar(&cfg.KeyType, "key-type", cfg.KeyType, "Client key format: rsa (PKCS#1) or ec (PKCS#8)")
	fs.BoolVar(&cfg.KeyPassPrompt, "key-pass-prompt", false, "Prompt for the client key passphrase")
	fs.StringArrayVar(&cfg.ALPN, "alpn", cfg.ALPN, "ALPN protocol to offer (repeatable)")
	fs.StringVar(&cfg.PKCS12File, "pkcs12", cfg.PKCS12File, "PKCS#12 client identity (nativetls builds)")
	fs.BoolVar(&cfg.PKCS12PassPrompt, "pkcs12-pass-prompt", false, "Prompt for the PKCS#12 passphrase")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the broker via SSH bastion [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.Stats, "stats", cfg.Stats, "Print connection metrics as JSON on exit")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration and exit")

	fs.Usage = func() { printUsage(s.Stderr, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(s.Stderr, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(s.Stdout, "mqtls %s (%s TLS)\n", version, backend)
		return nil
	}

	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}
	if err := cfg.ResolveTunnel(); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(s.Stderr)
	defer logger.Sync() //nolint:errcheck

	var m *metrics.Collector
	if cfg.Stats {
		m = metrics.New()
	}

	mode, err := core.Build(cfg, logger,
		core.WithMetrics(m),
		core.WithIO(s.Stdin, s.Stdout))
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(s.Stdout, "configuration OK: %s (%s TLS)\n", util.FormatAddr(cfg.Host, cfg.Port), backend)
		return nil
	}

	err = mode.Run(ctx)
	if cfg.Stats {
		fmt.Fprintln(s.Stderr, m.JSON())
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// configPath finds -f/--config before the full flag set exists, so
// the file can supply flag defaults.  Unknown flags are skipped.
func configPath(args []string) string {
	pre := flag.NewFlagSet("mqtls-config", flag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	pre.Usage = func() {}

	var path string
	pre.StringVarP(&path, "config", "f", "", "")
	pre.BoolP("help", "h", false, "")
	_ = pre.Parse(args)

	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	return path
}

// parsePositional handles "<host> [port]" and "<host:port>".
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		if cfg.Host == "" {
			return fmt.Errorf("broker host required (use --help for usage)")
		}
		return nil
	case 1:
		host, port, err := util.ParseBrokerAddr(remaining[0], cfg.Port)
		if err != nil {
			return err
		}
		cfg.Host, cfg.Port = host, port
		return nil
	case 2:
		port, err := util.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Host, cfg.Port = remaining[0], port
		return nil
	default:
		return fmt.Errorf("too many arguments: expected <host> [port]")
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `mqtls – TLS client for MQTT brokers v%s (%s TLS)

Opens a verified TLS session to a broker and relays stdin/stdout over it.

Usage:
  mqtls [options] <host> [port]                Relay (port defaults to %s)
  mqtls -z [options] <host> [port]             Handshake probe
  mqtls -T user@bastion [options] <host>       Through an SSH bastion

Options:
`, version, backend, strconv.Itoa(config.DefaultBrokerPort))
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  mqtls -z --ca ca.pem --alpn mqtt broker.example.com
  mqtls --ca ca.pem --cert dev.pem --key dev.key broker.example.com 8883 < connect.bin
  mqtls -T ops@bastion --ca ca.pem mqtt.internal
  mqtls -f /etc/mqtls.yaml --stats -vv broker.example.com
`)
}
