package connector

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

const (
	maxNameLength  = 253
	maxLabelLength = 63
)

// ValidServerName checks that host is a literal IP address or a
// syntactically valid DNS name and returns the form used for SNI (the
// IDNA ASCII form, without a trailing dot).
//
// Labels follow the STD3 host rules, so names with underscores, such
// as container DNS aliases like mqtt_broker, are rejected.  Connect to
// such brokers by a hostname or IP address the certificate covers.
func ValidServerName(host string) (string, error) {
	if host == "" {
		return "", fmt.Errorf("empty server name")
	}
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	name := strings.TrimSuffix(host, ".")
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("invalid server name %q: %w", host, err)
	}
	if ascii == "" || len(ascii) > maxNameLength {
		return "", fmt.Errorf("invalid server name %q: bad length", host)
	}
	for _, label := range strings.Split(ascii, ".") {
		if label == "" || len(label) > maxLabelLength ||
			strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", fmt.Errorf("invalid server name %q: bad label %q", host, label)
		}
	}
	return ascii, nil
}
