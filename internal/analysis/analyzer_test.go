package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hakim/secureval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu    sync.Mutex
	calls map[string]int
	data  map[string][]models.VulnerabilityRecord
	fail  map[string]bool
}

func (s *stubSource) Lookup(_ context.Context, keyword string) ([]models.VulnerabilityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[keyword]++
	if s.fail[keyword] {
		return nil, errors.New("nvd unavailable")
	}
	return s.data[keyword], nil
}

func cvss(v float64) *float64 { return &v }

func newStub() *stubSource {
	return &stubSource{
		data: map[string][]models.VulnerabilityRecord{
			"Apache": {
				{ID: "CVE-2021-41773", CVSS: cvss(7.5), Affected: []models.CPERange{
					{Criteria: "cpe:2.3:a:apache:http_server:2.4.49:*:*:*:*:*:*:*"},
				}},
				{ID: "CVE-2021-42013", CVSS: cvss(9.8), Affected: []models.CPERange{
					{Criteria: "cpe:2.3:a:apache:http_server:2.4.50:*:*:*:*:*:*:*"},
				}},
			},
			"PHP":     {{ID: "CVE-2019-11043", CVSS: cvss(9.8)}},
			"jQuery":  {{ID: "CVE-2020-11022", CVSS: cvss(6.1)}},
			"OpenSSH": {{ID: "CVE-2023-38408", CVSS: cvss(9.8)}},
		},
		fail: map[string]bool{"WordPress": true},
	}
}

func testEndpoints() []models.Endpoint {
	return []models.Endpoint{
		{
			URL:             "https://shop.example.com",
			Host:            "shop.example.com",
			OperatingSystem: models.OSLinux,
			Technologies: []models.Technology{
				{Name: "Apache", Version: "2.4.49"},
				{Name: "PHP"},
			},
			Ports: []models.Port{
				{Number: 22, Product: "OpenSSH", Version: "8.2p1", Service: "ssh"},
				{Number: 80, Product: "Apache", Service: "http"},
			},
		},
		{
			URL:  "https://blog.example.com",
			Host: "blog.example.com",
			Technologies: []models.Technology{
				{Name: "WordPress"},
				{Name: "jQuery"},
				{Name: "Apache"},
			},
		},
	}
}

func testAssets() []models.Asset {
	return []models.Asset{
		{Name: "shop", Value: 4.33},
		{Name: "example", Value: 3.0},
	}
}

func TestRun(t *testing.T) {
	src := newStub()
	a := New(src, testAssets(), Config{Concurrency: 3})

	result, err := a.Run(context.Background(), "example.com", testEndpoints())
	require.NoError(t, err)
	require.Len(t, result.Records, 5)

	got := make([]string, 0, len(result.Records))
	for _, r := range result.Records {
		got = append(got, r.Endpoint+"|"+r.Technology)
	}
	assert.Equal(t, []string{
		"https://shop.example.com|Apache",
		"https://shop.example.com|PHP",
		"https://blog.example.com|WordPress",
		"https://blog.example.com|jQuery",
		"https://blog.example.com|Apache",
	}, got)

	apache := result.Records[0]
	assert.Equal(t, "shop", apache.AssetName)
	assert.Equal(t, 9.8, apache.CVSSMax)
	assert.Equal(t, 5, apache.Probability)
	assert.Equal(t, 108.25, apache.Risk)
	assert.Equal(t, models.CriticalityCritical, apache.Criticality)
	assert.Equal(t, []string{"CVE-2021-41773", "CVE-2021-42013"}, apache.CVEs)
	assert.Equal(t, models.OSLinux, apache.OperatingSystem)

	wp := result.Records[2]
	assert.Equal(t, 0.0, wp.CVSSMax)
	assert.Equal(t, 3.0, wp.Risk)
	assert.Equal(t, models.ServiceCMS, wp.ServiceType)

	assert.Equal(t, 1, src.calls["Apache"])
	assert.Equal(t, 1, src.calls["WordPress"])

	assert.Equal(t, 1, result.Metadata.TotalErrors)
	require.Len(t, result.Metadata.LookupErrors, 1)
	assert.Contains(t, result.Metadata.LookupErrors[0], "WordPress")
	assert.Equal(t, 2, result.Metadata.AssetsMatched)
	assert.Equal(t, 5, result.Metadata.TotalResults)

	require.Len(t, result.Summaries, 2)
	assert.Equal(t, 3, result.Summaries["https://blog.example.com"].TotalTechnologies)
	assert.Equal(t, 2, result.KPIs.TotalEndpoints)
	require.Len(t, result.Treatment, 5)
	assert.Equal(t, models.TreatmentAvoid, result.Treatment[0].Strategy)
}

func TestRunIndependentOfConcurrency(t *testing.T) {
	serial, err := New(newStub(), testAssets(), Config{Concurrency: 1}).Run(context.Background(), "example.com", testEndpoints())
	require.NoError(t, err)
	parallel, err := New(newStub(), testAssets(), Config{Concurrency: 8}).Run(context.Background(), "example.com", testEndpoints())
	require.NoError(t, err)

	assert.Equal(t, serial.Records, parallel.Records)
	assert.Equal(t, serial.Summaries, parallel.Summaries)
}

func TestRunVersionFilter(t *testing.T) {
	result, err := New(newStub(), testAssets(), Config{VersionFilter: true}).Run(context.Background(), "example.com", testEndpoints())
	require.NoError(t, err)

	apache := result.Records[0]
	assert.Equal(t, []string{"CVE-2021-41773"}, apache.CVEs)
	assert.Equal(t, 7.5, apache.CVSSMax)

	// no version observed on blog, nothing filtered
	assert.Len(t, result.Records[4].CVEs, 2)
}

func TestRunIncludeServiceProducts(t *testing.T) {
	result, err := New(newStub(), testAssets(), Config{IncludeServiceProducts: true}).Run(context.Background(), "example.com", testEndpoints())
	require.NoError(t, err)
	require.Len(t, result.Records, 6)

	ssh := result.Records[2]
	assert.Equal(t, "OpenSSH", ssh.Technology)
	assert.Equal(t, "8.2p1", ssh.Version)
	assert.Equal(t, "https://shop.example.com", ssh.Endpoint)
	assert.True(t, result.Metadata.OptionsUsed["include_service_products"])
}

func TestRunEmpty(t *testing.T) {
	result, err := New(newStub(), nil, Config{}).Run(context.Background(), "example.com", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.NotNil(t, result.Summaries)
	assert.Empty(t, result.Summaries)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(newStub(), nil, Config{}).Run(ctx, "example.com", testEndpoints())
	assert.ErrorIs(t, err, context.Canceled)
}
