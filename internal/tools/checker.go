package tools

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// ToolRequirement represents an external tool dependency
type ToolRequirement struct {
	Name       string // Display name
	Binary     string // Executable name
	Required   bool   // Whether the tool is required
	InstallCmd string // Installation command
	Purpose    string // One-line description
}

// CheckResult represents the result of checking a single tool
type CheckResult struct {
	Tool    ToolRequirement
	Found   bool
	Path    string
	Version string
}

// DefaultTools returns the external tools secureval drives. whatweb and
// assetfinder are needed for every analysis; the rest enrich it.
func DefaultTools() []ToolRequirement {
	return []ToolRequirement{
		{
			Name:       "assetfinder",
			Binary:     "assetfinder",
			Required:   true,
			InstallCmd: "go install -v github.com/tomnomnom/assetfinder@latest",
			Purpose:    "Subdomain discovery",
		},
		{
			Name:       "whatweb",
			Binary:     "whatweb",
			Required:   true,
			InstallCmd: "apt install whatweb (or brew install whatweb on macOS)",
			Purpose:    "Technology fingerprinting",
		},
		{
			Name:       "subfinder",
			Binary:     "subfinder",
			Required:   false,
			InstallCmd: "go install -v github.com/projectdiscovery/subfinder/v2/cmd/subfinder@latest",
			Purpose:    "Passive subdomain discovery",
		},
		{
			Name:       "httpx",
			Binary:     "httpx",
			Required:   false,
			InstallCmd: "go install -v github.com/projectdiscovery/httpx/cmd/httpx@latest",
			Purpose:    "Server header probing for OS detection",
		},
		{
			Name:       "nmap",
			Binary:     "nmap",
			Required:   false,
			InstallCmd: "apt install nmap (or brew install nmap on macOS)",
			Purpose:    "Service fingerprinting",
		},
		{
			Name:       "tlsx",
			Binary:     "tlsx",
			Required:   false,
			InstallCmd: "go install -v github.com/projectdiscovery/tlsx/cmd/tlsx@latest",
			Purpose:    "TLS inspection",
		},
	}
}

// WithBinaries overrides the executable of each tool whose name appears in
// paths with a non-empty value.
func WithBinaries(tools []ToolRequirement, paths map[string]string) []ToolRequirement {
	out := make([]ToolRequirement, len(tools))
	for i, t := range tools {
		if p := paths[t.Name]; p != "" {
			t.Binary = p
		}
		out[i] = t
	}
	return out
}

// CheckTools looks up every tool in parallel. Results keep the input order.
func CheckTools(tools []ToolRequirement) []CheckResult {
	results := make([]CheckResult, len(tools))
	p := pool.New()
	for i, tool := range tools {
		p.Go(func() {
			results[i] = CheckTool(tool)
		})
	}
	p.Wait()
	return results
}

// CheckTool resolves a tool on PATH and asks it for its version.
func CheckTool(tool ToolRequirement) CheckResult {
	result := CheckResult{Tool: tool}

	path, err := exec.LookPath(tool.Binary)
	if err != nil {
		return result
	}
	result.Found = true
	result.Path = path
	result.Version = probeVersion(path)
	return result
}

// versionFlags are tried in order until one prints something and exits 0.
var versionFlags = []string{"--version", "-version", "-v", "version"}

const versionProbeTimeout = 5 * time.Second

// probeVersion returns the first output line of the tool's version flag,
// capped at 50 characters, or "unknown".
func probeVersion(binary string) string {
	for _, flag := range versionFlags {
		ctx, cancel := context.WithTimeout(context.Background(), versionProbeTimeout)
		out, err := exec.CommandContext(ctx, binary, flag).CombinedOutput()
		cancel()
		if err != nil || len(out) == 0 {
			continue
		}

		line, _, _ := strings.Cut(string(out), "\n")
		version := strings.TrimSpace(line)
		if len(version) > 50 {
			version = version[:50] + "..."
		}
		return version
	}
	return "unknown"
}
