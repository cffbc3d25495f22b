package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// FormatAddr returns "host:port", bracketing IPv6 literals.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ParseBrokerAddr splits "host", "host:port" or "[v6]:port" into its
// parts.  defaultPort is used when spec carries no port.
func ParseBrokerAddr(spec string, defaultPort int) (string, int, error) {
	if spec == "" {
		return "", 0, fmt.Errorf("broker host is required")
	}
	// Bare IPv6 literal or plain host.
	if ip := net.ParseIP(spec); ip != nil || !strings.Contains(spec, ":") {
		return spec, defaultPort, nil
	}
	host, portStr, err := net.SplitHostPort(spec)
	if err != nil {
		return "", 0, fmt.Errorf("invalid broker address %q: %w", spec, err)
	}
	port, err := ParsePort(portStr)
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		return "", 0, fmt.Errorf("broker host is required")
	}
	return host, port, nil
}

// ParsePort parses a decimal TCP port in 1-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}
