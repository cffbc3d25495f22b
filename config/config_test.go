package config

import (
	"errors"
	"testing"

	mqerr "mqtls/internal/errors"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestResolveTunnel(t *testing.T) {
	cfg := Default()
	cfg.TunnelSpec = "ops@jump.example.com:2200"
	if err := cfg.ResolveTunnel(); err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelUser != "ops" || cfg.TunnelHost != "jump.example.com" || cfg.TunnelPort != 2200 {
		t.Errorf("unexpected tunnel fields: %+v", cfg)
	}

	cfg.TunnelSpec = ""
	if err := cfg.ResolveTunnel(); err != nil {
		t.Fatal(err)
	}
	if cfg.TunnelEnabled {
		t.Error("empty spec should disable the tunnel")
	}
}

func TestResolveTunnel_Invalid(t *testing.T) {
	cfg := Default()
	cfg.TunnelSpec = "ops@jump:0x16"
	err := cfg.ResolveTunnel()
	var ce *mqerr.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("want *ConfigError, got %T (%v)", err, err)
	}
	if ce.Field != "tunnel" {
		t.Errorf("Field = %q", ce.Field)
	}
}

// ── Defaults ─────────────────────────────────────────────────────────

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Port != DefaultBrokerPort || DefaultBrokerPort != 8883 {
		t.Errorf("Port = %d, want 8883", cfg.Port)
	}
	if cfg.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", cfg.Attempts)
	}
	if cfg.KeyType != "ec" {
		t.Errorf("KeyType = %q, want ec", cfg.KeyType)
	}
	if cfg.KeepAlive != DefaultKeepAliveInterval {
		t.Errorf("KeepAlive = %v", cfg.KeepAlive)
	}
}

// ── Validate (backend independent) ───────────────────────────────────

func TestValidate_Common(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"missing host", func(c *Config) { c.Host = "" }, "host"},
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "port"},
		{"negative timeout", func(c *Config) { c.Timeout = -1 }, "timeout"},
		{"no attempts", func(c *Config) { c.Attempts = 0 }, "attempts"},
		{"tunnel without host", func(c *Config) { c.TunnelEnabled = true }, "tunnel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ce *mqerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("want *ConfigError, got %T (%v)", err, err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

func TestValidate_MissingHostHasHint(t *testing.T) {
	cfg := validConfig()
	cfg.Host = ""
	var ce *mqerr.ConfigError
	if !errors.As(cfg.Validate(), &ce) || ce.Hint == "" {
		t.Fatal("missing host should carry a usage hint")
	}
}
