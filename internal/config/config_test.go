package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.NVD.ResultsPerPage)
	assert.Equal(t, DefaultNVDURL, cfg.NVD.APIURL)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	t.Setenv(EnvNVDAPIKey, "")
	path := filepath.Join(t.TempDir(), "secureval.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scans", cfg.ScanDir)
	assert.Equal(t, "secureval.db", cfg.DBPath)
	assert.Equal(t, "assetfinder", cfg.Tools.Assetfinder.Path)
	assert.Equal(t, []string{"--subs-only"}, cfg.Tools.Assetfinder.Args)
	assert.Equal(t, 5, cfg.RateLimits.NmapMaxParallel)
	assert.Equal(t, 24*time.Hour, cfg.NVD.CacheTTLDuration())
	assert.Equal(t, 15*time.Minute, cfg.Tools.Whatweb.TimeoutDuration())
}

func TestLoadAppliesAPIKeyFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secureval.yaml")
	require.NoError(t, WriteDefault(path))

	t.Setenv(EnvNVDAPIKey, "secret-key")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.NVD.APIKey)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScanDir = ""
	cfg.RateLimits.NmapMaxParallel = 0
	cfg.NVD.ResultsPerPage = 0
	cfg.NVD.Timeout = "soon"
	cfg.Scope.AllowedCIDRs = []string{"10.0.0.0/33"}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "scan_dir")
	assert.Contains(t, msg, "nmap_max_parallel")
	assert.Contains(t, msg, "results_per_page")
	assert.Contains(t, msg, "nvd.timeout")
	assert.Contains(t, msg, "scope.allowed_cidrs")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan_dir: \"\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestDurationFallbacks(t *testing.T) {
	assert.Equal(t, 15*time.Second, NVDConfig{}.TimeoutDuration())
	assert.Equal(t, time.Duration(0), NVDConfig{}.CacheTTLDuration())
	assert.Equal(t, time.Duration(0), ToolConfig{}.TimeoutDuration())
}
