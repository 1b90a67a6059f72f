package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/hakim/secureval/internal/config"
	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/pipeline"
	"github.com/hakim/secureval/internal/storage"
)

// errNoConfig is returned by commands that ran without a loaded config.
var errNoConfig = fmt.Errorf("config not loaded. Run 'secureval init' first to create config")

// toolPaths maps tool names to the binaries configured for them.
func toolPaths() map[string]string {
	t := cfg.Tools
	return map[string]string{
		"assetfinder": t.Assetfinder.Path,
		"subfinder":   t.Subfinder.Path,
		"whatweb":     t.Whatweb.Path,
		"httpx":       t.Httpx.Path,
		"nmap":        t.Nmap.Path,
		"tlsx":        t.Tlsx.Path,
	}
}

// toolContext bounds one tool invocation by its configured timeout.
func toolContext(ctx context.Context, tc config.ToolConfig) (context.Context, context.CancelFunc) {
	if d := tc.TimeoutDuration(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// scopeFromConfig returns the configured scope, narrowed to the target
// domain when no domains are configured.
func scopeFromConfig(target string) *pipeline.Scope {
	domains := cfg.Scope.AllowedDomains
	if len(domains) == 0 {
		domains = []string{target, "*." + target}
	}
	return &pipeline.Scope{
		AllowedDomains: domains,
		AllowedCIDRs:   cfg.Scope.AllowedCIDRs,
	}
}

// splitCSV splits a comma-separated string into a trimmed, non-empty slice.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// findLatestScanDir returns the newest {domain}_{timestamp} directory under baseDir.
func findLatestScanDir(baseDir, domain string) (string, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return "", fmt.Errorf("reading scan directory: %w", err)
	}

	prefix := storage.SanitizeTarget(domain) + "_"

	var matching []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			matching = append(matching, entry.Name())
		}
	}

	if len(matching) == 0 {
		return "", fmt.Errorf("no scan directories found for domain %s", domain)
	}

	// timestamps sort lexically
	sort.Sort(sort.Reverse(sort.StringSlice(matching)))

	return filepath.Join(baseDir, matching[0]), nil
}

// resolveScanDir returns dir when set, otherwise the latest scan for domain.
func resolveScanDir(dir, domain string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if domain == "" {
		return "", fmt.Errorf("either --domain or --scan-dir is required")
	}
	latest, err := findLatestScanDir(cfg.ScanDir, domain)
	if err != nil {
		return "", fmt.Errorf("finding latest scan directory: %w. Run 'secureval analyze -d %s' first", err, domain)
	}
	return latest, nil
}

// previousScanDir returns the scan directory recorded just before current,
// or "" when there is none. Scans are listed newest first.
func previousScanDir(store *storage.Store, domain, current string) (string, error) {
	scans, err := store.ListScans(domain)
	if err != nil {
		return "", fmt.Errorf("listing scans: %w", err)
	}

	seen := !slices.ContainsFunc(scans, func(s *models.ScanMeta) bool { return s.ScanDir == current })
	for _, scan := range scans {
		if scan.ScanDir == current {
			seen = true
			continue
		}
		if seen && scan.ScanDir != "" {
			return scan.ScanDir, nil
		}
	}
	return "", nil
}
