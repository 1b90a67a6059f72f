package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvNVDAPIKey overrides nvd.api_key when set (also read from .env).
const EnvNVDAPIKey = "NVD_API_KEY"

// Config represents the application configuration
type Config struct {
	ScanDir      string          `mapstructure:"scan_dir" yaml:"scan_dir"`
	DBPath       string          `mapstructure:"db_path" yaml:"db_path"`
	CVECachePath string          `mapstructure:"cve_cache_path" yaml:"cve_cache_path"`
	MetricsFile  string          `mapstructure:"metrics_file" yaml:"metrics_file"`
	Tools        ToolsConfig     `mapstructure:"tools" yaml:"tools"`
	RateLimits   RateLimitConfig `mapstructure:"rate_limits" yaml:"rate_limits"`
	NVD          NVDConfig       `mapstructure:"nvd" yaml:"nvd"`
	Risk         RiskConfig      `mapstructure:"risk" yaml:"risk"`
	Stages       StagesConfig    `mapstructure:"stages" yaml:"stages"`
	Scope        ScopeConfig     `mapstructure:"scope" yaml:"scope"`
	Notify       NotifyConfig    `mapstructure:"notify" yaml:"notify"`
}

// ToolConfig represents configuration for a single tool
type ToolConfig struct {
	Path    string   `mapstructure:"path" yaml:"path"`
	Args    []string `mapstructure:"args" yaml:"args"`
	Timeout string   `mapstructure:"timeout" yaml:"timeout"`
}

// TimeoutDuration parses Timeout, returning zero when it is unset
func (t ToolConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ToolsConfig contains configuration for all external tools
type ToolsConfig struct {
	Assetfinder ToolConfig `mapstructure:"assetfinder" yaml:"assetfinder"`
	Subfinder   ToolConfig `mapstructure:"subfinder" yaml:"subfinder"`
	Whatweb     ToolConfig `mapstructure:"whatweb" yaml:"whatweb"`
	Httpx       ToolConfig `mapstructure:"httpx" yaml:"httpx"`
	Nmap        ToolConfig `mapstructure:"nmap" yaml:"nmap"`
	Tlsx        ToolConfig `mapstructure:"tlsx" yaml:"tlsx"`
}

// RateLimitConfig contains rate limiting settings for tools
type RateLimitConfig struct {
	SubfinderThreads int `mapstructure:"subfinder_threads" yaml:"subfinder_threads"`
	WhatwebThreads   int `mapstructure:"whatweb_threads" yaml:"whatweb_threads"`
	HttpxThreads     int `mapstructure:"httpx_threads" yaml:"httpx_threads"`
	NmapMaxParallel  int `mapstructure:"nmap_max_parallel" yaml:"nmap_max_parallel"`
	TlsxMaxParallel  int `mapstructure:"tlsx_max_parallel" yaml:"tlsx_max_parallel"`
}

// NVDConfig controls CVE lookups against the NVD 2.0 API
type NVDConfig struct {
	APIURL         string `mapstructure:"api_url" yaml:"api_url"`
	APIKey         string `mapstructure:"api_key" yaml:"api_key"`
	ResultsPerPage int    `mapstructure:"results_per_page" yaml:"results_per_page"`
	Timeout        string `mapstructure:"timeout" yaml:"timeout"`
	Concurrency    int    `mapstructure:"concurrency" yaml:"concurrency"`
	CacheTTL       string `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	VersionFilter  bool   `mapstructure:"version_filter" yaml:"version_filter"`
}

// TimeoutDuration parses Timeout, falling back to 15s
func (n NVDConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(n.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// CacheTTLDuration parses CacheTTL. Zero disables expiry of persisted entries.
func (n NVDConfig) CacheTTLDuration() time.Duration {
	d, err := time.ParseDuration(n.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

// RiskConfig tunes how observations are fed to the risk engine
type RiskConfig struct {
	// IncludeServiceProducts adds nmap-detected products (e.g. "OpenSSH")
	// as technologies of the endpoint they were found on.
	IncludeServiceProducts bool `mapstructure:"include_service_products" yaml:"include_service_products"`
}

// StagesConfig controls which pipeline stages to run
type StagesConfig struct {
	Enable []string `mapstructure:"enable" yaml:"enable"`
	Skip   []string `mapstructure:"skip" yaml:"skip"`
}

// ScopeConfig lists the targets a scan may touch. Empty lists allow anything.
type ScopeConfig struct {
	AllowedDomains []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`
	AllowedCIDRs   []string `mapstructure:"allowed_cidrs" yaml:"allowed_cidrs"`
}

// NotifyConfig holds the optional completion webhook
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// Load reads and parses configuration from a YAML file
// If path is empty, searches for secureval.yaml in current directory and ~/.config/secureval/
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("secureval")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "secureval"))
		}
	}

	v.SetEnvPrefix("SECUREVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv copies secrets from the environment into the config
func (c *Config) ApplyEnv() {
	if key := os.Getenv(EnvNVDAPIKey); key != "" {
		c.NVD.APIKey = key
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.ScanDir == "" {
		errs = append(errs, errors.New("scan_dir cannot be empty"))
	}

	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path cannot be empty"))
	}

	if c.RateLimits.SubfinderThreads <= 0 {
		errs = append(errs, errors.New("subfinder_threads must be positive"))
	}

	if c.RateLimits.WhatwebThreads <= 0 {
		errs = append(errs, errors.New("whatweb_threads must be positive"))
	}

	if c.RateLimits.HttpxThreads <= 0 {
		errs = append(errs, errors.New("httpx_threads must be positive"))
	}

	if c.RateLimits.NmapMaxParallel <= 0 {
		errs = append(errs, errors.New("nmap_max_parallel must be positive"))
	}

	if c.RateLimits.TlsxMaxParallel <= 0 {
		errs = append(errs, errors.New("tlsx_max_parallel must be positive"))
	}

	if c.NVD.APIURL == "" {
		errs = append(errs, errors.New("nvd.api_url cannot be empty"))
	}

	if c.NVD.ResultsPerPage < 1 || c.NVD.ResultsPerPage > 2000 {
		errs = append(errs, errors.New("nvd.results_per_page must be between 1 and 2000"))
	}

	if c.NVD.Concurrency <= 0 {
		errs = append(errs, errors.New("nvd.concurrency must be positive"))
	}

	if c.NVD.Timeout != "" {
		if _, err := time.ParseDuration(c.NVD.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("nvd.timeout: %w", err))
		}
	}

	if c.NVD.CacheTTL != "" {
		if _, err := time.ParseDuration(c.NVD.CacheTTL); err != nil {
			errs = append(errs, fmt.Errorf("nvd.cache_ttl: %w", err))
		}
	}

	for _, cidr := range c.Scope.AllowedCIDRs {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			errs = append(errs, fmt.Errorf("scope.allowed_cidrs: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
