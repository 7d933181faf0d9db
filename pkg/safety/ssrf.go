// Package safety holds the defensive facilities for the two dangerous node
// types: the SSRF guard and rebind-proof transport for outbound HTTP, the
// source validator for sandboxed code, and the boot-time self-test.
package safety

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrBlockedAddress marks a URL whose host resolves into a private,
// link-local or otherwise internal network.
var ErrBlockedAddress = errors.New("destination address is blocked")

// ErrDomainNotAllowed marks a host outside the configured allowlist.
var ErrDomainNotAllowed = errors.New("domain is not in the allowlist")

// blockedPrefixes covers loopback, RFC1918, CGNAT, link-local, benchmarking,
// multicast and their IPv6 equivalents. IPv4-mapped IPv6 addresses are
// unmapped before matching.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

// AddressBlocked reports whether an address falls in the blocklist.
func AddressBlocked(addr netip.Addr) bool {
	addr = addr.Unmap()

	for _, prefix := range blockedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

// EnsureURLSafe validates an outbound URL before a node may request it:
// scheme must be http or https, the host must match the allowlist when one
// is configured, and every resolved address must clear the blocklist.
// Numeric IP literals funnel through the same resolution path.
func EnsureURLSafe(ctx context.Context, rawURL string, allowDomains []string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return "", errors.New("url has no host")
	}

	if err := checkAllowlist(host, allowDomains); err != nil {
		return "", err
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", host, err)
	}

	if len(addrs) == 0 {
		return "", fmt.Errorf("host %q resolved to no addresses", host)
	}

	for _, addr := range addrs {
		ip, ok := netip.AddrFromSlice(addr.IP)
		if !ok || AddressBlocked(ip) {
			return "", fmt.Errorf("ssrf rejected: host %q resolves to %s: %w", host, addr.IP, ErrBlockedAddress)
		}
	}

	return parsed.String(), nil
}

func checkAllowlist(host string, allowDomains []string) error {
	if len(allowDomains) == 0 {
		return nil
	}

	host = strings.ToLower(host)

	for _, domain := range allowDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}

		if host == domain || strings.HasSuffix(host, "."+domain) {
			return nil
		}
	}

	return fmt.Errorf("ssrf rejected: host %q: %w", host, ErrDomainNotAllowed)
}

// NewSafeTransport builds an http.Transport whose dialer re-applies the
// address blocklist at connect time. DNS rebinding between the EnsureURLSafe
// preflight and the actual connect therefore still fails: the control hook
// sees the address of every individual connection attempt.
func NewSafeTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			addrPort, err := netip.ParseAddrPort(address)
			if err != nil {
				return fmt.Errorf("refusing unparseable dial address %q: %w", address, err)
			}

			if AddressBlocked(addrPort.Addr()) {
				return fmt.Errorf("ssrf rejected at connect: %s: %w", addrPort.Addr(), ErrBlockedAddress)
			}

			return nil
		},
	}

	return &http.Transport{
		DialContext:       dialer.DialContext,
		Proxy:             nil, // never trust proxy env
		ForceAttemptHTTP2: true,
	}
}

// NewSafeClient wraps the safe transport in a client that refuses redirects,
// so a permitted host cannot bounce the request to a blocked one.
func NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewSafeTransport(),
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
