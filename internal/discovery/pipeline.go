package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/tools"
)

// DiscoveryResult contains the complete results of subdomain discovery
type DiscoveryResult struct {
	Target      string             `json:"target"`
	Subdomains  []models.Subdomain `json:"subdomains"`
	TotalFound  int                `json:"total_found"`
	UniqueCount int                `json:"unique_count"`
	OutOfScope  int                `json:"out_of_scope"`
	Sources     map[string]int     `json:"sources"`
}

// Hosts returns the discovered hostnames in discovery order.
func (r *DiscoveryResult) Hosts() []string {
	hosts := make([]string, 0, len(r.Subdomains))
	for _, s := range r.Subdomains {
		hosts = append(hosts, s.Name)
	}
	return hosts
}

// DiscoveryConfig contains configuration for the discovery pipeline
type DiscoveryConfig struct {
	AssetfinderPath  string
	AssetfinderArgs  []string
	SubfinderPath    string
	SubfinderArgs    []string
	SubfinderThreads int
	SkipSubfinder    bool
}

// RunDiscovery enumerates subdomains of domain with assetfinder and, unless
// skipped, subfinder. Results are normalized, deduplicated (first source
// wins) and restricted to domain and its subdomains. Order follows tool
// output so later stages see hosts in a stable order.
func RunDiscovery(ctx context.Context, domain string, cfg DiscoveryConfig) (*DiscoveryResult, error) {
	domain = normalizeSubdomain(domain)
	result := &DiscoveryResult{
		Target:     domain,
		Subdomains: []models.Subdomain{},
		Sources:    make(map[string]int),
	}

	seen := make(map[string]bool)
	add := func(name, source string) {
		normalized := normalizeSubdomain(name)
		if normalized == "" {
			return
		}
		result.TotalFound++
		if !inScope(normalized, domain) {
			result.OutOfScope++
			return
		}
		if seen[normalized] {
			return
		}
		seen[normalized] = true
		result.Subdomains = append(result.Subdomains, models.Subdomain{
			Name:   normalized,
			Domain: domain,
			Source: source,
		})
	}

	fmt.Printf("    [>] Running assetfinder for %s...\n", domain)
	found, err := tools.RunAssetfinder(ctx, domain, cfg.AssetfinderArgs, cfg.AssetfinderPath)
	if err != nil {
		return nil, fmt.Errorf("assetfinder execution failed: %w", err)
	}
	for _, host := range found {
		add(host, "assetfinder")
	}
	result.Sources["assetfinder"] = len(found)

	if !cfg.SkipSubfinder {
		fmt.Printf("    [>] Running subfinder for %s...\n", domain)
		sfResults, err := tools.RunSubfinder(ctx, domain, cfg.SubfinderThreads, cfg.SubfinderArgs, cfg.SubfinderPath)
		if err != nil {
			fmt.Printf("[!] Warning: subfinder execution failed: %v\n", err)
		} else {
			for _, sf := range sfResults {
				source := "subfinder"
				if sf.Source != "" {
					source = "subfinder:" + sf.Source
				}
				add(sf.Host, source)
			}
			result.Sources["subfinder"] = len(sfResults)
		}
	}

	result.UniqueCount = len(result.Subdomains)

	fmt.Printf("    [>] Found %d unique subdomains (total: %d, out of scope: %d)\n",
		result.UniqueCount, result.TotalFound, result.OutOfScope)

	return result, nil
}

// normalizeSubdomain lowercases, trims whitespace and trailing dots.
// Wildcards yield "".
func normalizeSubdomain(subdomain string) string {
	s := strings.TrimSpace(subdomain)
	if strings.HasPrefix(s, "*") {
		return ""
	}
	s = strings.ToLower(s)
	return strings.TrimSuffix(s, ".")
}

// inScope reports whether host is domain itself or one of its subdomains.
func inScope(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
