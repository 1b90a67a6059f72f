package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultNVDURL is the NVD CVE API 2.0 endpoint
const DefaultNVDURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		ScanDir:      "scans",
		DBPath:       "secureval.db",
		CVECachePath: "cve-cache.db",
		MetricsFile:  "",
		Tools: ToolsConfig{
			Assetfinder: ToolConfig{
				Path:    "assetfinder",
				Args:    []string{"--subs-only"},
				Timeout: "5m",
			},
			Subfinder: ToolConfig{
				Path:    "subfinder",
				Args:    []string{"-silent"},
				Timeout: "5m",
			},
			Whatweb: ToolConfig{
				Path:    "whatweb",
				Args:    []string{"--color=never", "-q"},
				Timeout: "15m",
			},
			Httpx: ToolConfig{
				Path:    "httpx",
				Args:    []string{"-silent"},
				Timeout: "5m",
			},
			Nmap: ToolConfig{
				Path:    "nmap",
				Args:    []string{"-sV", "-Pn", "--top-ports", "100"},
				Timeout: "10m",
			},
			Tlsx: ToolConfig{
				Path:    "tlsx",
				Args:    []string{"-silent"},
				Timeout: "5m",
			},
		},
		RateLimits: RateLimitConfig{
			SubfinderThreads: 10,
			WhatwebThreads:   10,
			HttpxThreads:     25,
			NmapMaxParallel:  5,
			TlsxMaxParallel:  5,
		},
		NVD: NVDConfig{
			APIURL:         DefaultNVDURL,
			APIKey:         "",
			ResultsPerPage: 3,
			Timeout:        "15s",
			Concurrency:    1,
			CacheTTL:       "24h",
			VersionFilter:  false,
		},
		Risk: RiskConfig{
			IncludeServiceProducts: false,
		},
		Stages: StagesConfig{
			Enable: []string{},
			Skip:   []string{},
		},
		Scope: ScopeConfig{
			AllowedDomains: []string{},
			AllowedCIDRs:   []string{},
		},
		Notify: NotifyConfig{
			WebhookURL: "",
		},
	}
}

// WriteDefault writes a default configuration to the specified path
func WriteDefault(path string) error {
	cfg := DefaultConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
