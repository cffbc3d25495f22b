package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML config file layout.  Zero values leave the current
// setting untouched when applied.
type File struct {
	Broker struct {
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Timeout  time.Duration `yaml:"timeout"`
		Attempts int           `yaml:"attempts"`
	} `yaml:"broker"`

	TLS struct {
		CA         string   `yaml:"ca"`
		Cert       string   `yaml:"cert"`
		Key        string   `yaml:"key"`
		KeyType    string   `yaml:"key_type"`
		KeyPass    string   `yaml:"key_pass"`
		ALPN       []string `yaml:"alpn"`
		PKCS12     string   `yaml:"pkcs12"`
		PKCS12Pass string   `yaml:"pkcs12_pass"`
	} `yaml:"tls"`

	Tunnel struct {
		Spec          string        `yaml:"spec"`
		Key           string        `yaml:"key"`
		Agent         bool          `yaml:"agent"`
		StrictHostKey bool          `yaml:"strict_host_key"`
		KnownHosts    string        `yaml:"known_hosts"`
		KeepAlive     time.Duration `yaml:"keepalive"`
	} `yaml:"tunnel"`

	Verbose int  `yaml:"verbose"`
	Stats   bool `yaml:"stats"`
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &f, nil
}

// Apply overlays the non-zero settings of f onto cfg.
func (f *File) Apply(cfg *Config) {
	setString(&cfg.Host, f.Broker.Host)
	if f.Broker.Port > 0 {
		cfg.Port = f.Broker.Port
	}
	if f.Broker.Timeout > 0 {
		cfg.Timeout = f.Broker.Timeout
	}
	if f.Broker.Attempts > 0 {
		cfg.Attempts = f.Broker.Attempts
	}

	setString(&cfg.CAFile, f.TLS.CA)
	setString(&cfg.CertFile, f.TLS.Cert)
	setString(&cfg.KeyFile, f.TLS.Key)
	setString(&cfg.KeyType, f.TLS.KeyType)
	setString(&cfg.KeyPass, f.TLS.KeyPass)
	if len(f.TLS.ALPN) > 0 {
		cfg.ALPN = append([]string(nil), f.TLS.ALPN...)
	}
	setString(&cfg.PKCS12File, f.TLS.PKCS12)
	setString(&cfg.PKCS12Pass, f.TLS.PKCS12Pass)

	setString(&cfg.TunnelSpec, f.Tunnel.Spec)
	setString(&cfg.SSHKeyPath, f.Tunnel.Key)
	cfg.UseSSHAgent = cfg.UseSSHAgent || f.Tunnel.Agent
	cfg.StrictHostKey = cfg.StrictHostKey || f.Tunnel.StrictHostKey
	setString(&cfg.KnownHostsPath, f.Tunnel.KnownHosts)
	if f.Tunnel.KeepAlive > 0 {
		cfg.KeepAlive = f.Tunnel.KeepAlive
	}

	if f.Verbose > 0 {
		cfg.Verbose = f.Verbose
	}
	cfg.Stats = cfg.Stats || f.Stats
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
