package tools

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHosts denies well-known cloud metadata endpoints outright, since
// their IPs are link-local and would otherwise pass the private-range check
// only by coincidence of address space.
var blockedHosts = map[string]bool{
	"metadata.google.internal": true,
	"metadata.goog":            true,
}

// checkSSRF rejects URLs that resolve to loopback, private, link-local, or
// otherwise non-public addresses, preventing the fetch/search tools from
// being used to reach internal services.
func checkSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("missing hostname")
	}
	if blockedHosts[strings.ToLower(host)] {
		return fmt.Errorf("host %q is not allowed", host)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Let the HTTP client surface the real DNS failure; we only
		// block hosts we can positively identify as non-public.
		return nil
	}

	for _, ip := range ips {
		if isBlockedIP(ip) {
			return fmt.Errorf("host %q resolves to a disallowed address", host)
		}
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() {
		return true
	}
	// IPv4-mapped cloud metadata address (169.254.169.254) is already
	// covered by IsLinkLocalUnicast, kept here for clarity of intent.
	if ip4 := ip.To4(); ip4 != nil && ip4[0] == 169 && ip4[1] == 254 {
		return true
	}
	return false
}
