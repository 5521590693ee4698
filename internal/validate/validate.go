// Package validate provides input validation helpers for medtrack.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/manav03panchal/medtrack/internal/errors"
)

// MaxURLLength is the maximum length for a webhook URL.
const MaxURLLength = 2048

// URL validates a URL for use as a webhook endpoint.
func URL(rawURL string) error {
	if rawURL == "" {
		return errors.NewInvalidField("url", "", "URL cannot be empty", errors.ErrMissingField)
	}
	if len(rawURL) > MaxURLLength {
		return errors.NewInvalidField("url", rawURL[:32]+"...", "URL too long", errors.ErrInvalidField)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewInvalidField("url", rawURL, "invalid URL format", errors.ErrInvalidField)
	}

	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.NewInvalidField("url", rawURL, "URL must use https://", errors.ErrInvalidField)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return errors.NewInvalidField("url", rawURL, "URL is missing a hostname", errors.ErrInvalidField)
	}

	isLocalhost := hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"

	// Plain HTTP only for localhost.
	if parsed.Scheme == "http" && !isLocalhost {
		return errors.NewInvalidField("url", rawURL, "HTTP is only allowed for localhost", errors.ErrInvalidField)
	}

	if !isLocalhost {
		return checkInternalIP(hostname)
	}
	return nil
}

// checkInternalIP rejects hosts that are, or resolve to, private addresses.
// Hosts that do not resolve are accepted; delivery fails later.
func checkInternalIP(hostname string) error {
	if ip := net.ParseIP(hostname); ip != nil {
		if isInternalIP(ip) {
			return errors.NewInvalidField("url", hostname, "internal IP addresses are not allowed", errors.ErrInvalidField)
		}
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.NewInvalidField("url", hostname, "hostname resolves to an internal IP", errors.ErrInvalidField)
		}
	}
	return nil
}

var privateRanges = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",     // RFC 1918
		"172.16.0.0/12",  // RFC 1918
		"192.168.0.0/16", // RFC 1918
		"127.0.0.0/8",    // Loopback
		"169.254.0.0/16", // Link-local
		"fc00::/7",       // IPv6 private
		"fe80::/10",      // IPv6 link-local
		"::1/128",        // IPv6 loopback
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			nets = append(nets, network)
		}
	}
	return nets
}()

func isInternalIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// NonEmpty validates that a string is not blank.
func NonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewInvalidField(field, "", field+" cannot be empty", errors.ErrMissingField)
	}
	return nil
}

// InRange validates that an integer lies in [min, max].
func InRange(field string, value, min, max int) error {
	if value < min || value > max {
		return errors.NewInvalidField(field, fmt.Sprint(value),
			fmt.Sprintf("must be between %d and %d", min, max), errors.ErrInvalidField)
	}
	return nil
}
