package portscan

import (
	"context"
	"fmt"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/tools"
	"github.com/sourcegraph/conc/pool"
)

// PortScanConfig contains configuration for the port scanning pipeline
type PortScanConfig struct {
	NmapPath        string
	NmapArgs        []string
	NmapMaxParallel int
}

// PortScanResult contains the complete results of port scanning
type PortScanResult struct {
	Target       string                   `json:"target"`
	Ports        map[string][]models.Port `json:"ports"`
	ScannedCount int                      `json:"scanned_count"`
	FailedCount  int                      `json:"failed_count"`
	TotalPorts   int                      `json:"total_ports"`
}

// scanner runs nmap against one host; replaced in tests.
type scanner func(ctx context.Context, host string, args []string, binaryPath string) ([]tools.NmapResult, error)

// RunPortScan runs nmap service detection once per distinct endpoint host,
// at most NmapMaxParallel at a time. A failure on one host is reported and
// the remaining hosts are still scanned.
func RunPortScan(ctx context.Context, target string, endpoints []models.Endpoint, cfg PortScanConfig) (*PortScanResult, error) {
	return runPortScan(ctx, target, endpoints, cfg, tools.RunNmap)
}

func runPortScan(ctx context.Context, target string, endpoints []models.Endpoint, cfg PortScanConfig, scan scanner) (*PortScanResult, error) {
	result := &PortScanResult{
		Target: target,
		Ports:  make(map[string][]models.Port),
	}

	hosts := UniqueHosts(endpoints)
	if len(hosts) == 0 {
		fmt.Println("    [>] No hosts to port scan")
		return result, nil
	}

	parallel := cfg.NmapMaxParallel
	if parallel <= 0 {
		parallel = 1
	}

	fmt.Printf("    [>] Running nmap on %d hosts (max %d parallel)...\n", len(hosts), parallel)

	perHost := make([][]models.Port, len(hosts))
	failed := make([]bool, len(hosts))

	p := pool.New().WithMaxGoroutines(parallel)
	for i, host := range hosts {
		p.Go(func() {
			nmapResults, err := scan(ctx, host, cfg.NmapArgs, cfg.NmapPath)
			if err != nil {
				fmt.Printf("[!] Warning: nmap failed for %s: %v\n", host, err)
				failed[i] = true
				return
			}
			perHost[i] = toPorts(nmapResults)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("port scan interrupted: %w", err)
	}

	for i, host := range hosts {
		if failed[i] {
			result.FailedCount++
			continue
		}
		result.ScannedCount++
		result.Ports[host] = perHost[i]
		result.TotalPorts += len(perHost[i])
	}

	fmt.Printf("    [>] Port scan complete: %d hosts scanned, %d open ports\n", result.ScannedCount, result.TotalPorts)

	return result, nil
}

// Apply copies the scanned ports onto the endpoints of each host.
func (r *PortScanResult) Apply(endpoints []models.Endpoint) {
	for i := range endpoints {
		if ports, ok := r.Ports[endpoints[i].Host]; ok {
			endpoints[i].Ports = ports
		}
	}
}

// UniqueHosts returns the distinct endpoint hosts in first-seen order.
func UniqueHosts(endpoints []models.Endpoint) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, ep := range endpoints {
		if ep.Host == "" || seen[ep.Host] {
			continue
		}
		seen[ep.Host] = true
		hosts = append(hosts, ep.Host)
	}
	return hosts
}

// toPorts keeps open ports only.
func toPorts(results []tools.NmapResult) []models.Port {
	ports := []models.Port{}
	for _, r := range results {
		if r.State != "open" {
			continue
		}
		ports = append(ports, models.Port{
			Number:   r.Port,
			Protocol: r.Protocol,
			Service:  r.Service,
			Product:  r.Product,
			Version:  r.Version,
			State:    r.State,
		})
	}
	return ports
}
