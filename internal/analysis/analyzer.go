// Package analysis runs the evaluate stage: it looks up CVEs for every
// fingerprinted technology, scores each (endpoint, technology) pair against
// the asset inventory and derives summaries, KPIs and the treatment plan.
package analysis

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hakim/secureval/internal/cve"
	"github.com/hakim/secureval/internal/fingerprint"
	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/risk"
	"github.com/hakim/secureval/internal/telemetry"
	"github.com/sourcegraph/conc/pool"
)

// Config tunes an analysis run.
type Config struct {
	// Concurrency bounds parallel CVE lookups. Values below 1 mean 1.
	Concurrency int
	// VersionFilter drops CVEs whose CPE ranges exclude the observed version.
	VersionFilter bool
	// IncludeServiceProducts scores nmap-detected products as technologies.
	IncludeServiceProducts bool
	Verbose                bool
}

// Result is everything one evaluate run produces.
type Result struct {
	Records   []models.RiskRecord               `json:"records"`
	Summaries map[string]models.EndpointSummary `json:"summaries"`
	KPIs      models.KPIs                       `json:"kpis"`
	Treatment []models.TreatmentEntry           `json:"treatment"`
	Metadata  models.RunMetadata                `json:"metadata"`
}

// Analyzer scores endpoints. It is safe to reuse across runs; each Run gets
// its own CVE cache.
type Analyzer struct {
	source cve.Source
	assets []models.Asset
	cfg    Config
}

// New creates an Analyzer over a CVE source and the asset inventory in
// registration order.
func New(source cve.Source, assets []models.Asset, cfg Config) *Analyzer {
	return &Analyzer{source: source, assets: assets, cfg: cfg}
}

// Observations flattens endpoints into (endpoint, technology) pairs in
// discovery order. With includeServices, open-port products not already
// reported by the fingerprinter are appended per endpoint.
func Observations(endpoints []models.Endpoint, includeServices bool) []risk.Observation {
	var out []risk.Observation
	for _, ep := range endpoints {
		seen := make(map[string]bool)
		for _, tech := range ep.Technologies {
			seen[strings.ToLower(tech.Name)] = true
			out = append(out, risk.Observation{
				Endpoint:        ep.URL,
				Technology:      tech.Name,
				Version:         tech.Version,
				ServiceType:     fingerprint.ClassifyService(tech.Name, ep.URL),
				OperatingSystem: ep.OperatingSystem,
			})
		}

		if !includeServices {
			continue
		}
		for _, port := range ep.Ports {
			if port.Product == "" || seen[strings.ToLower(port.Product)] {
				continue
			}
			seen[strings.ToLower(port.Product)] = true
			out = append(out, risk.Observation{
				Endpoint:        ep.URL,
				Technology:      port.Product,
				Version:         port.Version,
				ServiceType:     fingerprint.ClassifyService(port.Product+" "+port.Service, ep.URL),
				OperatingSystem: ep.OperatingSystem,
			})
		}
	}
	return out
}

// Run evaluates endpoints for target. A failed CVE lookup scores the
// technology as having no CVEs and is listed in the run metadata. Record
// order follows endpoint and technology order whatever the lookup
// scheduling.
func (a *Analyzer) Run(ctx context.Context, target string, endpoints []models.Endpoint) (*Result, error) {
	observations := Observations(endpoints, a.cfg.IncludeServiceProducts)
	cache := cve.NewRunCache(a.source)

	failed, err := a.prefetch(ctx, cache, observations)
	if err != nil {
		return nil, err
	}

	records := make([]models.RiskRecord, 0, len(observations))
	for _, obs := range observations {
		if _, bad := failed[obs.Technology]; !bad {
			vulns, err := cache.Lookup(ctx, obs.Technology)
			if err != nil {
				failed[obs.Technology] = err
			} else {
				if a.cfg.VersionFilter && obs.Version != "" {
					vulns = cve.FilterByVersion(vulns, obs.Technology, obs.Version)
				}
				obs.Vulnerabilities = vulns
			}
		}

		rec := risk.BuildRecord(obs, a.assets)
		telemetry.RiskRecords.WithLabelValues(string(rec.Criticality)).Inc()
		records = append(records, rec)
	}

	summaries := risk.Aggregate(records)

	result := &Result{
		Records:   records,
		Summaries: summaries,
		KPIs:      risk.ComputeKPIs(records, summaries),
		Treatment: risk.BuildTreatmentPlan(records),
		Metadata:  a.metadata(target, records, failed),
	}

	fmt.Printf("    [>] Evaluated %d technologies on %d endpoints (%d CVE lookups, %d failed)\n",
		len(records), len(summaries), cache.Len()+len(failed), len(failed))

	return result, nil
}

// prefetch resolves every distinct technology once, with bounded
// parallelism, and returns the keywords whose lookup failed.
func (a *Analyzer) prefetch(ctx context.Context, cache *cve.RunCache, observations []risk.Observation) (map[string]error, error) {
	var keywords []string
	seen := make(map[string]bool)
	for _, obs := range observations {
		if !seen[obs.Technology] {
			seen[obs.Technology] = true
			keywords = append(keywords, obs.Technology)
		}
	}

	parallel := a.cfg.Concurrency
	if parallel < 1 {
		parallel = 1
	}

	var mu sync.Mutex
	failed := make(map[string]error)

	p := pool.New().WithMaxGoroutines(parallel)
	for _, kw := range keywords {
		p.Go(func() {
			records, err := cache.Lookup(ctx, kw)
			if err != nil {
				fmt.Printf("[!] Warning: CVE lookup failed for %s: %v\n", kw, err)
				mu.Lock()
				failed[kw] = err
				mu.Unlock()
				return
			}
			if a.cfg.Verbose {
				fmt.Printf("    [>] %s: %d CVEs (max CVSS %.1f)\n", kw, len(records), risk.MaxCVSS(records))
			}
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("CVE lookups interrupted: %w", err)
	}
	return failed, nil
}

func (a *Analyzer) metadata(target string, records []models.RiskRecord, failed map[string]error) models.RunMetadata {
	matched := make(map[string]bool)
	for _, r := range records {
		if r.AssetName != "" {
			matched[r.AssetName] = true
		}
	}

	lookupErrors := make([]string, 0, len(failed))
	for kw, err := range failed {
		lookupErrors = append(lookupErrors, fmt.Sprintf("%s: %v", kw, err))
	}
	slices.Sort(lookupErrors)

	return models.RunMetadata{
		Target:       target,
		GeneratedAt:  time.Now().UTC(),
		TotalResults: len(records),
		TotalErrors:  len(failed),
		LookupErrors: lookupErrors,
		OptionsUsed: map[string]bool{
			"version_filter":           a.cfg.VersionFilter,
			"include_service_products": a.cfg.IncludeServiceProducts,
		},
		AssetsMatched: len(matched),
	}
}
