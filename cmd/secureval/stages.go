package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/hakim/secureval/internal/analysis"
	"github.com/hakim/secureval/internal/cve"
	"github.com/hakim/secureval/internal/discovery"
	"github.com/hakim/secureval/internal/fingerprint"
	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/pipeline"
	"github.com/hakim/secureval/internal/portscan"
	"github.com/hakim/secureval/internal/storage"
	"github.com/hakim/secureval/internal/tlsscan"
)

// stageOptions carries the flag-derived settings the stage closures need.
type stageOptions struct {
	Target          string
	SkipSubfinder   bool
	SkipHttpx       bool
	IncludeServices bool
	VersionFilter   bool
	NoCache         bool
	SkipPDF         bool
}

// buildStages returns every stage in canonical order. Each stage reads the
// raw output of earlier stages from the scan directory, so any suffix of the
// list can run against an existing scan.
func buildStages(opts stageOptions, store *storage.Store) []pipeline.Stage {
	discoverStage := pipeline.Stage{
		Name: pipeline.StageDiscover,
		Run: func(ctx context.Context, scanDir string) error {
			result, err := runDiscoverStage(ctx, opts)
			if err != nil {
				return err
			}
			return storage.WriteJSON(storage.RawPath(scanDir, storage.FileSubdomains), result)
		},
	}

	fingerprintStage := pipeline.Stage{
		Name: pipeline.StageFingerprint,
		Run: func(ctx context.Context, scanDir string) error {
			var disc discovery.DiscoveryResult
			found, err := storage.ReadOptionalJSON(storage.RawPath(scanDir, storage.FileSubdomains), &disc)
			if err != nil {
				return fmt.Errorf("reading %s: %w", storage.FileSubdomains, err)
			}

			hosts := disc.Hosts()
			if !found || len(hosts) == 0 {
				fmt.Printf("    [>] No discovered subdomains, fingerprinting %s only\n", opts.Target)
				hosts = []string{opts.Target}
			}

			ctx, cancel := toolContext(ctx, cfg.Tools.Whatweb)
			defer cancel()

			result, err := fingerprint.RunFingerprint(ctx, opts.Target, hosts, fingerprint.FingerprintConfig{
				WhatwebPath:    cfg.Tools.Whatweb.Path,
				WhatwebArgs:    cfg.Tools.Whatweb.Args,
				WhatwebThreads: cfg.RateLimits.WhatwebThreads,
				HttpxPath:      cfg.Tools.Httpx.Path,
				HttpxArgs:      cfg.Tools.Httpx.Args,
				HttpxThreads:   cfg.RateLimits.HttpxThreads,
				SkipHttpx:      opts.SkipHttpx,
			})
			if err != nil {
				return fmt.Errorf("fingerprint pipeline: %w", err)
			}
			return storage.WriteJSON(storage.RawPath(scanDir, storage.FileFingerprint), result)
		},
	}

	portscanStage := pipeline.Stage{
		Name: pipeline.StagePortScan,
		Run: func(ctx context.Context, scanDir string) error {
			fp, err := readFingerprint(scanDir)
			if err != nil {
				return err
			}

			endpoints := inScopeEndpoints(opts.Target, fp.Endpoints)

			ctx, cancel := toolContext(ctx, cfg.Tools.Nmap)
			defer cancel()

			result, err := portscan.RunPortScan(ctx, opts.Target, endpoints, portscan.PortScanConfig{
				NmapPath:        cfg.Tools.Nmap.Path,
				NmapArgs:        cfg.Tools.Nmap.Args,
				NmapMaxParallel: cfg.RateLimits.NmapMaxParallel,
			})
			if err != nil {
				return fmt.Errorf("port scan pipeline: %w", err)
			}
			return storage.WriteJSON(storage.RawPath(scanDir, storage.FilePorts), result)
		},
	}

	tlsStage := pipeline.Stage{
		Name: pipeline.StageTLS,
		Run: func(ctx context.Context, scanDir string) error {
			fp, err := readFingerprint(scanDir)
			if err != nil {
				return err
			}

			endpoints := inScopeEndpoints(opts.Target, fp.Endpoints)

			ctx, cancel := toolContext(ctx, cfg.Tools.Tlsx)
			defer cancel()

			result, err := tlsscan.RunTLSScan(ctx, opts.Target, endpoints, tlsscan.TLSScanConfig{
				TlsxPath:        cfg.Tools.Tlsx.Path,
				TlsxArgs:        cfg.Tools.Tlsx.Args,
				TlsxMaxParallel: cfg.RateLimits.TlsxMaxParallel,
			})
			if err != nil {
				return fmt.Errorf("tls pipeline: %w", err)
			}
			return storage.WriteJSON(storage.RawPath(scanDir, storage.FileTLS), result)
		},
	}

	evaluateStage := pipeline.Stage{
		Name: pipeline.StageEvaluate,
		Run: func(ctx context.Context, scanDir string) error {
			endpoints, err := loadEndpoints(scanDir)
			if err != nil {
				return err
			}

			assets, err := store.ListAssets()
			if err != nil {
				return fmt.Errorf("listing assets: %w", err)
			}
			if len(assets) == 0 {
				fmt.Println("[!] Warning: no assets registered, every endpoint is valued at the default 2.0")
			}

			source, closeSource := newCVESource(opts.NoCache)
			defer closeSource()

			analyzer := analysis.New(source, assets, analysis.Config{
				Concurrency:            cfg.NVD.Concurrency,
				VersionFilter:          opts.VersionFilter,
				IncludeServiceProducts: opts.IncludeServices,
				Verbose:                verbose,
			})

			result, err := analyzer.Run(ctx, opts.Target, endpoints)
			if err != nil {
				return fmt.Errorf("risk evaluation: %w", err)
			}

			if err := writeEvaluation(scanDir, result); err != nil {
				return err
			}

			k := result.KPIs
			fmt.Printf("    [>] %d findings, %d CVEs, average risk %.2f, %d high-risk endpoints\n",
				len(result.Records), k.TotalCVEs, k.AverageRisk, k.HighRiskEndpoints)
			return nil
		},
	}

	reportStage := pipeline.Stage{
		Name: pipeline.StageReport,
		Run: func(ctx context.Context, scanDir string) error {
			data, err := loadReportData(store, scanDir, opts.Target)
			if err != nil {
				return err
			}
			if err := writeReports(data, scanDir, opts.SkipPDF); err != nil {
				return err
			}

			prev, err := previousScanDir(store, opts.Target, scanDir)
			if err != nil {
				fmt.Printf("    [!] Warning: could not look up previous scan: %v\n", err)
				return nil
			}
			if prev != "" {
				if _, err := writeDiff(scanDir, prev); err != nil {
					fmt.Printf("    [!] Warning: diff against %s failed: %v\n", prev, err)
				}
			}
			return nil
		},
	}

	return []pipeline.Stage{discoverStage, fingerprintStage, portscanStage, tlsStage, evaluateStage, reportStage}
}

// runDiscoverStage runs discovery and narrows the result to the configured scope.
func runDiscoverStage(ctx context.Context, opts stageOptions) (*discovery.DiscoveryResult, error) {
	ctx, cancel := toolContext(ctx, cfg.Tools.Assetfinder)
	defer cancel()

	result, err := discovery.RunDiscovery(ctx, opts.Target, discovery.DiscoveryConfig{
		AssetfinderPath:  cfg.Tools.Assetfinder.Path,
		AssetfinderArgs:  cfg.Tools.Assetfinder.Args,
		SubfinderPath:    cfg.Tools.Subfinder.Path,
		SubfinderArgs:    cfg.Tools.Subfinder.Args,
		SubfinderThreads: cfg.RateLimits.SubfinderThreads,
		SkipSubfinder:    opts.SkipSubfinder,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery pipeline: %w", err)
	}

	scope := scopeFromConfig(opts.Target)
	kept := result.Subdomains[:0]
	for _, sub := range result.Subdomains {
		if scope.AllowsHost(sub.Name) {
			kept = append(kept, sub)
			continue
		}
		result.OutOfScope++
		if verbose {
			fmt.Printf("    [>] Dropping out-of-scope host %s\n", sub.Name)
		}
	}
	result.Subdomains = kept
	result.UniqueCount = len(kept)

	fmt.Printf("    [>] %d in-scope subdomains (%d out of scope)\n", result.UniqueCount, result.OutOfScope)
	return result, nil
}

// inScopeEndpoints drops endpoints whose host falls outside the scope,
// notably IP literals outside the allowed CIDRs, before anything is probed.
func inScopeEndpoints(target string, endpoints []models.Endpoint) []models.Endpoint {
	hosts := make([]string, len(endpoints))
	for i, ep := range endpoints {
		hosts[i] = ep.Host
	}
	_, dropped := scopeFromConfig(target).FilterHosts(hosts)
	if len(dropped) == 0 {
		return endpoints
	}
	for _, h := range dropped {
		fmt.Printf("    [>] Skipping out-of-scope host %s\n", h)
	}
	kept := make([]models.Endpoint, 0, len(endpoints)-len(dropped))
	for _, ep := range endpoints {
		if !slices.Contains(dropped, ep.Host) {
			kept = append(kept, ep)
		}
	}
	return kept
}

// newCVESource builds the NVD client, wrapped in the persistent cache unless
// disabled. The returned func releases the cache.
func newCVESource(noCache bool) (cve.Source, func()) {
	client := cve.NewClient(cfg.NVD.APIURL, cfg.NVD.APIKey, cfg.NVD.ResultsPerPage, cfg.NVD.TimeoutDuration())
	if noCache || cfg.CVECachePath == "" {
		return client, func() {}
	}

	cache, err := cve.OpenSQLiteCache(cfg.CVECachePath, client, cfg.NVD.CacheTTLDuration())
	if err != nil {
		fmt.Printf("[!] Warning: CVE cache unavailable, querying NVD directly: %v\n", err)
		return client, func() {}
	}
	return cache, func() {
		if err := cache.Close(); err != nil {
			fmt.Printf("[!] Warning: closing CVE cache: %v\n", err)
		}
	}
}
