package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hakim/secureval/internal/diff"
	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() *Data {
	records := []models.RiskRecord{
		{Endpoint: "https://shop.example.com", Technology: "PHP", Version: "7.4.3", AssetName: "shop",
			AssetValue: 4.33, CVSSMax: 9.8, Probability: 5, Vulnerability: 5, Risk: 108.25,
			Criticality: models.CriticalityCritical, CVEs: []string{"CVE-2019-11043"}},
		{Endpoint: "https://shop.example.com", Technology: "Title|Tag", AssetValue: 4.33,
			Probability: 1, Vulnerability: 1, Risk: 4.33, Criticality: models.CriticalityLow},
		{Endpoint: "https://blog.example.com", Technology: "WordPress", ServiceType: models.ServiceCMS,
			AssetValue: 2.0, CVSSMax: 6.1, Probability: 3, Vulnerability: 3, Risk: 18.0,
			Criticality: models.CriticalityLow, CVEs: []string{"CVE-2020-11022"}},
	}
	summaries := risk.Aggregate(records)
	return &Data{
		Target:      "example.com",
		GeneratedAt: time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC),
		Records:     records,
		Summaries:   summaries,
		KPIs:        risk.ComputeKPIs(records, summaries),
		Treatment:   risk.BuildTreatmentPlan(records),
		Assets: []models.Asset{
			{Name: "shop", Type: models.AssetPrimary, Status: models.AssetInUse, Owner: "Ventas",
				Confidentiality: 4, Integrity: 4, Availability: 5, Value: 4.33},
		},
		History: []models.ScanMeta{
			{Target: "example.com", StartedAt: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
				Status: models.StatusComplete, StagesRun: []string{"discover", "fingerprint", "evaluate"}},
		},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWriteRiskReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.md")
	require.NoError(t, WriteRiskReport(sampleData(), path))

	out := readFile(t, path)
	assert.Contains(t, out, "# Risk Assessment Report")
	assert.Contains(t, out, "**Target:** example.com")
	assert.Contains(t, out, "**Date:** 2026-03-01 14:05:09")
	assert.Contains(t, out, "| Critical | 1 |")
	assert.Contains(t, out, "| Low | 2 |")
	assert.Contains(t, out, "| https://shop.example.com | 2 | 1 | 108.25 | 56.29 | Critical |")
	assert.Contains(t, out, "| PHP | 7.4.3 | - | - | shop | 4.33 | 9.8 | 5 | 5 | 108.25 | Critical | CVE-2019-11043 |")
	assert.Contains(t, out, `Title\|Tag`)
	assert.Less(t, strings.Index(out, "### https://shop.example.com"), strings.Index(out, "### https://blog.example.com"))
}

func TestWriteRiskReportEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.md")
	d := &Data{Target: "example.com", Summaries: map[string]models.EndpointSummary{}}
	require.NoError(t, WriteRiskReport(d, path))
	assert.Contains(t, readFile(t, path), "None found.")
}

func TestWriteTreatmentReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treatment.md")
	require.NoError(t, WriteTreatmentReport(sampleData(), path))

	out := readFile(t, path)
	assert.Contains(t, out, "| https://shop.example.com | PHP | 108.25 | Critical | Avoid |")
	assert.Contains(t, out, "### Avoid (1)")
	assert.Contains(t, out, "### Accept or Mitigate (1)")
	assert.Contains(t, out, "### Accept (1)")
	assert.Less(t, strings.Index(out, "| PHP |"), strings.Index(out, "| WordPress |"))
}

func TestWriteKPIReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kpis.md")
	require.NoError(t, WriteKPIReport(sampleData(), path))

	out := readFile(t, path)
	assert.Contains(t, out, "| Endpoints | 2 |")
	assert.Contains(t, out, "| Highest CVSS | 9.8 |")
	assert.Contains(t, out, "| High-risk endpoints | 1 |")
	assert.Contains(t, out, "| Vulnerable technologies | 2 |")
}

func TestWriteRiskPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.pdf")
	require.NoError(t, WriteRiskPDF(sampleData(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestWriteRiskPDFManyRows(t *testing.T) {
	d := sampleData()
	for i := 0; i < 120; i++ {
		d.Records = append(d.Records, d.Records[0])
	}
	path := filepath.Join(t.TempDir(), "risk.pdf")
	require.NoError(t, WriteRiskPDF(d, path))
}

func TestWriteRiskPDFBadPath(t *testing.T) {
	err := WriteRiskPDF(sampleData(), filepath.Join(t.TempDir(), "missing", "risk.pdf"))
	assert.Error(t, err)
}

func TestWriteDiffReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diff.md")

	empty := diff.ComputeDiff(&diff.ScanSnapshot{}, &diff.ScanSnapshot{})
	require.NoError(t, WriteDiffReport(empty, path))
	assert.Contains(t, readFile(t, path), "No changes detected.")

	d := sampleData()
	prev := &diff.ScanSnapshot{Records: []models.RiskRecord{
		{Endpoint: "https://shop.example.com", Technology: "PHP", Risk: 75.0, Criticality: models.CriticalityHigh},
	}}
	result := diff.ComputeDiff(&diff.ScanSnapshot{Records: d.Records}, prev)
	require.NoError(t, WriteDiffReport(result, path))

	out := readFile(t, path)
	assert.Contains(t, out, "## New Endpoints (+1)")
	assert.Contains(t, out, "| Endpoints | 1 | 2 | +1 |")
	assert.Contains(t, out, "| https://shop.example.com | PHP | 75.00 (High) | 108.25 (Critical) | +33.25 |")
	assert.Contains(t, out, "## New CVEs (+2)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
