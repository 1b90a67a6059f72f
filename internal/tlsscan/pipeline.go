// Package tlsscan inspects the TLS endpoint of every fingerprinted host.
package tlsscan

import (
	"context"
	"fmt"
	"strings"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/portscan"
	"github.com/hakim/secureval/internal/tools"
	"github.com/sourcegraph/conc/pool"
)

// TLSScanConfig holds configuration for the TLS inspection stage.
type TLSScanConfig struct {
	TlsxPath        string
	TlsxArgs        []string
	TlsxMaxParallel int
}

// TLSScanResult maps host to what its handshake revealed.
type TLSScanResult struct {
	Target       string                     `json:"target"`
	Hosts        map[string]*models.TLSInfo `json:"hosts"`
	ExpiredCount int                        `json:"expired_count"`
	SelfSigned   int                        `json:"self_signed_count"`
}

type inspector func(ctx context.Context, hosts []string, args []string, binaryPath string) ([]tools.TlsxResult, error)

// RunTLSScan runs tlsx once per distinct endpoint host with bounded
// parallelism. Hosts without TLS simply have no entry.
func RunTLSScan(ctx context.Context, target string, endpoints []models.Endpoint, cfg TLSScanConfig) (*TLSScanResult, error) {
	return runTLSScan(ctx, target, endpoints, cfg, tools.RunTlsx)
}

func runTLSScan(ctx context.Context, target string, endpoints []models.Endpoint, cfg TLSScanConfig, inspect inspector) (*TLSScanResult, error) {
	result := &TLSScanResult{
		Target: target,
		Hosts:  make(map[string]*models.TLSInfo),
	}

	hosts := portscan.UniqueHosts(endpoints)
	if len(hosts) == 0 {
		return result, nil
	}

	parallel := cfg.TlsxMaxParallel
	if parallel <= 0 {
		parallel = 1
	}

	fmt.Printf("    [>] Inspecting TLS on %d hosts...\n", len(hosts))

	infos := make([]*models.TLSInfo, len(hosts))
	p := pool.New().WithMaxGoroutines(parallel)
	for i, host := range hosts {
		p.Go(func() {
			res, err := inspect(ctx, []string{host}, cfg.TlsxArgs, cfg.TlsxPath)
			if err != nil {
				fmt.Printf("[!] Warning: tlsx failed for %s: %v\n", host, err)
				return
			}
			for _, r := range res {
				if strings.EqualFold(r.Host, host) || len(res) == 1 {
					infos[i] = toTLSInfo(r)
					return
				}
			}
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tls scan interrupted: %w", err)
	}

	for i, host := range hosts {
		info := infos[i]
		if info == nil {
			continue
		}
		result.Hosts[host] = info
		if info.Expired {
			result.ExpiredCount++
		}
		if info.SelfSigned {
			result.SelfSigned++
		}
	}

	fmt.Printf("    [>] TLS inspection complete: %d hosts, %d expired, %d self-signed\n",
		len(result.Hosts), result.ExpiredCount, result.SelfSigned)

	return result, nil
}

// Apply attaches the TLS details to every endpoint of an inspected host.
func (r *TLSScanResult) Apply(endpoints []models.Endpoint) {
	for i := range endpoints {
		if info, ok := r.Hosts[endpoints[i].Host]; ok {
			endpoints[i].TLS = info
		}
	}
}

func toTLSInfo(r tools.TlsxResult) *models.TLSInfo {
	return &models.TLSInfo{
		Port:       r.Port,
		Version:    r.TLSVersion,
		Cipher:     r.Cipher,
		SubjectCN:  r.SubjectCN,
		IssuerCN:   r.IssuerCN,
		NotAfter:   r.NotAfter,
		Expired:    r.Expired,
		SelfSigned: r.SelfSigned,
	}
}
