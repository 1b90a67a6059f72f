// Package diff computes the delta between two evaluated scans. It reads the
// risk records and endpoints a scan left in {scanDir}/raw and reports which
// endpoints and findings appeared, disappeared or changed risk.
package diff

import (
	"fmt"
	"slices"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/risk"
	"github.com/hakim/secureval/internal/storage"
)

type fingerprintFile struct {
	Endpoints []models.Endpoint `json:"endpoints"`
}

// ScanSnapshot holds the structured output of one scan. Fields are empty
// when the corresponding file is absent.
type ScanSnapshot struct {
	ScanDir   string
	Endpoints []models.Endpoint
	Records   []models.RiskRecord
}

// LoadSnapshot reads risk.json and fingerprint.json from {scanDir}/raw.
// Missing files are not an error: a scan that stopped early diffs as empty.
func LoadSnapshot(scanDir string) (*ScanSnapshot, error) {
	snap := &ScanSnapshot{ScanDir: scanDir}

	var fp fingerprintFile
	if _, err := storage.ReadOptionalJSON(storage.RawPath(scanDir, storage.FileFingerprint), &fp); err != nil {
		return nil, fmt.Errorf("loading %s: %w", storage.FileFingerprint, err)
	}
	snap.Endpoints = fp.Endpoints

	if _, err := storage.ReadOptionalJSON(storage.RawPath(scanDir, storage.FileRisk), &snap.Records); err != nil {
		return nil, fmt.Errorf("loading %s: %w", storage.FileRisk, err)
	}

	return snap, nil
}

// RiskChange is a finding present in both scans whose risk moved.
type RiskChange struct {
	Endpoint            string             `json:"endpoint"`
	Technology          string             `json:"technology"`
	PreviousRisk        float64            `json:"previous_risk"`
	CurrentRisk         float64            `json:"current_risk"`
	PreviousCriticality models.Criticality `json:"previous_criticality"`
	CurrentCriticality  models.Criticality `json:"current_criticality"`
}

// Delta is CurrentRisk - PreviousRisk, rounded to 2 decimals.
func (c RiskChange) Delta() float64 {
	return risk.Round2(c.CurrentRisk - c.PreviousRisk)
}

// DiffResult is the delta between a current and a previous snapshot. Slices
// are never nil and follow the order of the snapshot they come from.
type DiffResult struct {
	NewEndpoints     []string
	RemovedEndpoints []string

	NewFindings      []models.RiskRecord
	ResolvedFindings []models.RiskRecord
	RiskChanges      []RiskChange

	NewCVEs      []string
	ResolvedCVEs []string

	CurrentEndpointCount  int
	PreviousEndpointCount int
	CurrentFindingCount   int
	PreviousFindingCount  int
	CurrentMaxRisk        float64
	PreviousMaxRisk       float64
}

// IsEmpty reports whether nothing changed between the scans.
func (d *DiffResult) IsEmpty() bool {
	return len(d.NewEndpoints) == 0 &&
		len(d.RemovedEndpoints) == 0 &&
		len(d.NewFindings) == 0 &&
		len(d.ResolvedFindings) == 0 &&
		len(d.RiskChanges) == 0 &&
		len(d.NewCVEs) == 0 &&
		len(d.ResolvedCVEs) == 0
}

// ComputeDiff calculates the delta between current and previous. Pass an
// empty ScanSnapshot for the "no previous scan" case.
func ComputeDiff(current, previous *ScanSnapshot) *DiffResult {
	dr := &DiffResult{
		NewEndpoints:     []string{},
		RemovedEndpoints: []string{},
		NewFindings:      []models.RiskRecord{},
		ResolvedFindings: []models.RiskRecord{},
		RiskChanges:      []RiskChange{},
	}

	currEndpoints := endpointURLs(current)
	prevEndpoints := endpointURLs(previous)
	dr.NewEndpoints = minus(currEndpoints, prevEndpoints)
	dr.RemovedEndpoints = minus(prevEndpoints, currEndpoints)

	diffFindings(dr, current.Records, previous.Records)

	currCVEs := cveSet(current.Records)
	prevCVEs := cveSet(previous.Records)
	dr.NewCVEs = minus(currCVEs, prevCVEs)
	dr.ResolvedCVEs = minus(prevCVEs, currCVEs)

	dr.CurrentEndpointCount = len(currEndpoints)
	dr.PreviousEndpointCount = len(prevEndpoints)
	dr.CurrentFindingCount = len(current.Records)
	dr.PreviousFindingCount = len(previous.Records)
	dr.CurrentMaxRisk = maxRisk(current.Records)
	dr.PreviousMaxRisk = maxRisk(previous.Records)

	return dr
}

// findingKey identifies a finding across scans: "endpoint|technology".
func findingKey(r models.RiskRecord) string {
	return r.Endpoint + "|" + r.Technology
}

func diffFindings(dr *DiffResult, current, previous []models.RiskRecord) {
	prev := make(map[string]models.RiskRecord, len(previous))
	for _, r := range previous {
		if _, ok := prev[findingKey(r)]; !ok {
			prev[findingKey(r)] = r
		}
	}
	curr := make(map[string]bool, len(current))

	for _, r := range current {
		key := findingKey(r)
		if curr[key] {
			continue
		}
		curr[key] = true

		p, existed := prev[key]
		if !existed {
			dr.NewFindings = append(dr.NewFindings, r)
			continue
		}
		if p.Risk != r.Risk {
			dr.RiskChanges = append(dr.RiskChanges, RiskChange{
				Endpoint:            r.Endpoint,
				Technology:          r.Technology,
				PreviousRisk:        p.Risk,
				CurrentRisk:         r.Risk,
				PreviousCriticality: p.Criticality,
				CurrentCriticality:  r.Criticality,
			})
		}
	}

	seen := make(map[string]bool)
	for _, r := range previous {
		key := findingKey(r)
		if curr[key] || seen[key] {
			continue
		}
		seen[key] = true
		dr.ResolvedFindings = append(dr.ResolvedFindings, r)
	}
}

// endpointURLs lists endpoints from the fingerprint output, falling back to
// the endpoints named by risk records when no fingerprint file was found.
func endpointURLs(s *ScanSnapshot) []string {
	if len(s.Endpoints) > 0 {
		urls := make([]string, 0, len(s.Endpoints))
		seen := make(map[string]bool)
		for _, ep := range s.Endpoints {
			if !seen[ep.URL] {
				seen[ep.URL] = true
				urls = append(urls, ep.URL)
			}
		}
		return urls
	}
	return risk.Endpoints(s.Records)
}

func cveSet(records []models.RiskRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range records {
		for _, id := range r.CVEs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return ids
}

// minus returns the elements of a not in b, in a's order.
func minus(a, b []string) []string {
	out := []string{}
	for _, s := range a {
		if !slices.Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}

func maxRisk(records []models.RiskRecord) float64 {
	highest := 0.0
	for _, r := range records {
		if r.Risk > highest {
			highest = r.Risk
		}
	}
	return highest
}
