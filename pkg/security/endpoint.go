// Package security checks the provider and storage endpoints read from
// configuration before any request is sent to them.
package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// EndpointPolicy configures ValidateEndpoint.
type EndpointPolicy struct {
	// AllowLocal permits plain http, localhost names and loopback or private
	// addresses, as used by local S3 emulators and self-hosted gateways.
	AllowLocal bool
}

// ValidateEndpoint rejects endpoints that are not absolute http(s) URLs, and
// unless the policy allows it, plain http and local-network targets.
// Host names are not resolved.
func ValidateEndpoint(rawURL string, policy EndpointPolicy) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %q", rawURL)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !policy.AllowLocal {
			return errors.Errorf("endpoint %q uses plain http", rawURL)
		}
	default:
		return errors.Errorf("endpoint %q has unsupported scheme %q", rawURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errors.Errorf("endpoint %q has no host", rawURL)
	}
	if policy.AllowLocal {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return errors.Errorf("endpoint %q targets a local host name", rawURL)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		// not an IP literal
		return nil
	}
	if addr.Zone() != "" {
		return errors.Errorf("endpoint %q uses a zoned address", rawURL)
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsMulticast() ||
		addr.IsLoopback() || addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return errors.Errorf("endpoint %q targets a local network address", rawURL)
	}
	return nil
}
