package pipeline

import (
	"fmt"
	"net/netip"
	"strings"
)

// Scope bounds what a scan may touch. A Scope with no rules allows anything.
type Scope struct {
	// AllowedDomains holds exact names ("example.com") or wildcard suffixes
	// ("*.example.com", matching any depth of subdomain but not the apex).
	AllowedDomains []string

	AllowedCIDRs []string
}

// ValidateTarget returns an error when target matches no allowed domain.
func (s *Scope) ValidateTarget(target string) error {
	if s.AllowsHost(target) {
		return nil
	}
	return fmt.Errorf("target %q is outside allowed scope (domains: %s)",
		target, strings.Join(s.AllowedDomains, ", "))
}

// AllowsHost reports whether host is in scope. IP literals are checked
// against AllowedCIDRs, names against AllowedDomains.
func (s *Scope) AllowsHost(host string) bool {
	if addr, err := netip.ParseAddr(host); err == nil {
		return s.allowsAddr(addr)
	}
	if len(s.AllowedDomains) == 0 {
		return true
	}
	for _, pattern := range s.AllowedDomains {
		if domainMatches(host, pattern) {
			return true
		}
	}
	return false
}

// ValidateIP returns an error when ip falls outside every allowed CIDR.
func (s *Scope) ValidateIP(ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("scope: %q is not a valid IP address", ip)
	}
	if !s.allowsAddr(addr) {
		return fmt.Errorf("IP %q is outside allowed CIDR scope (%s)",
			ip, strings.Join(s.AllowedCIDRs, ", "))
	}
	return nil
}

// FilterHosts keeps the in-scope hosts and returns the rest separately.
func (s *Scope) FilterHosts(hosts []string) (kept, dropped []string) {
	kept = make([]string, 0, len(hosts))
	for _, h := range hosts {
		if s.AllowsHost(h) {
			kept = append(kept, h)
		} else {
			dropped = append(dropped, h)
		}
	}
	return kept, dropped
}

func (s *Scope) allowsAddr(addr netip.Addr) bool {
	if len(s.AllowedCIDRs) == 0 {
		return true
	}
	for _, cidr := range s.AllowedCIDRs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		if prefix.Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}

// domainMatches compares case-insensitively and ignores a trailing dot.
func domainMatches(host, pattern string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	pattern = strings.TrimSuffix(strings.ToLower(pattern), ".")

	suffix, wildcard := strings.CutPrefix(pattern, "*.")
	if !wildcard {
		return host == pattern
	}
	return strings.HasSuffix(host, "."+suffix)
}
