package fingerprint

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/tools"
)

// FingerprintConfig holds configuration for the fingerprint stage.
type FingerprintConfig struct {
	WhatwebPath    string
	WhatwebArgs    []string
	WhatwebThreads int
	HttpxPath      string
	HttpxArgs      []string
	HttpxThreads   int
	// SkipHttpx falls back to whatweb's HTTPServer plugin for the Server header.
	SkipHttpx bool
}

// FingerprintResult is the output of the fingerprint stage.
type FingerprintResult struct {
	Target            string            `json:"target"`
	Endpoints         []models.Endpoint `json:"endpoints"`
	TotalTechnologies int               `json:"total_technologies"`
}

// RunFingerprint fingerprints every host with whatweb and builds one endpoint
// per distinct URL whatweb reported, in report order.
func RunFingerprint(ctx context.Context, target string, hosts []string, cfg FingerprintConfig) (*FingerprintResult, error) {
	result := &FingerprintResult{
		Target:    target,
		Endpoints: []models.Endpoint{},
	}

	if len(hosts) == 0 {
		fmt.Println("    [>] No hosts to fingerprint")
		return result, nil
	}

	fmt.Printf("    [>] Running whatweb against %d hosts...\n", len(hosts))
	wwResults, err := tools.RunWhatweb(ctx, hosts, cfg.WhatwebThreads, cfg.WhatwebArgs, cfg.WhatwebPath)
	if err != nil {
		return nil, fmt.Errorf("whatweb execution failed: %w", err)
	}

	var probes []tools.HttpxResult
	if !cfg.SkipHttpx {
		fmt.Printf("    [>] Probing %d hosts with httpx for Server headers...\n", len(hosts))
		probes, err = tools.RunHttpx(ctx, hosts, cfg.HttpxThreads, cfg.HttpxArgs, cfg.HttpxPath)
		if err != nil {
			fmt.Printf("[!] Warning: httpx failed, using whatweb Server header: %v\n", err)
			probes = nil
		}
	}

	result.Endpoints = BuildEndpoints(wwResults, probes)
	for _, ep := range result.Endpoints {
		result.TotalTechnologies += len(ep.Technologies)
	}

	fmt.Printf("    [>] Fingerprinted %d endpoints, %d technologies\n",
		len(result.Endpoints), result.TotalTechnologies)

	return result, nil
}

// BuildEndpoints merges whatweb results with optional httpx probes. The
// httpx Server header for a host wins over whatweb's HTTPServer plugin.
// Duplicate URLs keep their first occurrence.
func BuildEndpoints(results []tools.WhatwebResult, probes []tools.HttpxResult) []models.Endpoint {
	serverByHost := make(map[string]string)
	for _, p := range probes {
		if p.WebServer == "" {
			continue
		}
		for _, key := range []string{p.Input, HostOf(p.URL)} {
			key = strings.ToLower(key)
			if key != "" && serverByHost[key] == "" {
				serverByHost[key] = p.WebServer
			}
		}
	}

	seen := make(map[string]bool)
	endpoints := make([]models.Endpoint, 0, len(results))
	for _, r := range results {
		if r.Target == "" || seen[r.Target] {
			continue
		}
		seen[r.Target] = true

		host := HostOf(r.Target)
		ep := models.Endpoint{
			URL:          r.Target,
			Host:         host,
			StatusCode:   r.HTTPStatus,
			Technologies: []models.Technology{},
		}

		if title, ok := r.Plugin("Title"); ok && len(title.Strings) > 0 {
			ep.Title = title.Strings[0]
		}

		ep.ServerHeader = serverByHost[strings.ToLower(host)]
		if ep.ServerHeader == "" {
			if srv, ok := r.Plugin("HTTPServer"); ok && len(srv.Strings) > 0 {
				ep.ServerHeader = srv.Strings[0]
			}
		}
		ep.OperatingSystem = DetectOS(ep.ServerHeader)

		for _, p := range r.Plugins {
			ep.Technologies = append(ep.Technologies, models.Technology{
				Name:     p.Name,
				Versions: p.Versions,
				Version:  BestVersion(p.Versions),
				Source:   "whatweb",
			})
		}

		endpoints = append(endpoints, ep)
	}

	return endpoints
}

// HostOf returns the lowercase hostname of a URL or bare host[:port].
func HostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
