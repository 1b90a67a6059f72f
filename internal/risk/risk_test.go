package risk

import (
	"math"
	"testing"

	"github.com/hakim/secureval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 { return &v }

func TestAssetValue(t *testing.T) {
	tests := []struct {
		name    string
		c, i, a int
		want    float64
	}{
		{"mixed ratings round to two decimals", 3, 4, 4, 3.67},
		{"all minimum", 1, 1, 1, 1.0},
		{"all maximum", 5, 5, 5, 5.0},
		{"out of range still computes", 0, 0, 10, 3.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssetValue(tt.c, tt.i, tt.a))
		})
	}
}

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name       string
		assetValue float64
		cvss       float64
		wantBand   int
		wantRisk   float64
		wantCrit   models.Criticality
	}{
		{"critical", 5.0, 9.5, 5, 125.0, models.CriticalityCritical},
		{"high", 4.0, 7.5, 4, 64.0, models.CriticalityHigh},
		{"medium", 3.0, 5.2, 3, 27.0, models.CriticalityMedium},
		{"low", 2.0, 2.1, 2, 8.0, models.CriticalityLow},
		{"no cvss", 1.0, 0.0, 1, 1.0, models.CriticalityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, v, r := Evaluate(tt.assetValue, tt.cvss)
			assert.Equal(t, tt.wantBand, p)
			assert.Equal(t, tt.wantBand, v)
			assert.Equal(t, tt.wantRisk, r)
			assert.Equal(t, tt.wantCrit, Classify(r))
		})
	}
}

func TestEvaluateBandCoverage(t *testing.T) {
	want := map[float64]int{
		-1: 1, 0: 1, 0.05: 1,
		0.1: 2, 3.99: 2,
		4.0: 3, 6.99: 3,
		7.0: 4, 8.99: 4,
		9.0: 5, 10.0: 5, 15.0: 5,
	}

	for cvss, band := range want {
		p, v, _ := Evaluate(1.0, cvss)
		assert.Equal(t, band, p, "probability for cvss %v", cvss)
		assert.Equal(t, p, v, "vulnerability must equal probability for cvss %v", cvss)
	}
}

func TestEvaluateNaN(t *testing.T) {
	p, v, r := Evaluate(2.0, math.NaN())
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2.0, r)
}

func TestEvaluateMonotonic(t *testing.T) {
	points := []float64{0, 0.1, 4.0, 7.0, 9.0, 10.0}
	for _, av := range []float64{1.0, 2.0, 3.67, 5.0} {
		prev := -1.0
		for _, cvss := range points {
			_, _, r := Evaluate(av, cvss)
			assert.GreaterOrEqual(t, r, prev, "asset value %v cvss %v", av, cvss)
			prev = r
		}
	}
}

func TestEvaluateRoundsRisk(t *testing.T) {
	_, _, r := Evaluate(3.67, 5.0)
	assert.Equal(t, 33.03, r)
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		risk float64
		want models.Criticality
	}{
		{125, models.CriticalityCritical},
		{80, models.CriticalityCritical},
		{79.99, models.CriticalityHigh},
		{50, models.CriticalityHigh},
		{49.99, models.CriticalityMedium},
		{25, models.CriticalityMedium},
		{24.99, models.CriticalityLow},
		{0, models.CriticalityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.risk), "risk %v", tt.risk)
	}
}

func TestMaxCVSS(t *testing.T) {
	records := []models.VulnerabilityRecord{
		{ID: "CVE-1", CVSS: score(5.3)},
		{ID: "CVE-2"},
		{ID: "CVE-3", CVSS: score(9.8)},
		{ID: "CVE-4", CVSS: score(7.1)},
	}
	assert.Equal(t, 9.8, MaxCVSS(records))
	assert.Equal(t, 0.0, MaxCVSS(nil))
	assert.Equal(t, 0.0, MaxCVSS([]models.VulnerabilityRecord{{ID: "CVE-5"}}))
}

func TestMatchAsset(t *testing.T) {
	assets := []models.Asset{
		{Name: "shop", Value: 3.0},
		{Name: "shop-admin", Value: 5.0},
		{Name: "Mail", Value: 4.33},
	}

	t.Run("first registered match wins", func(t *testing.T) {
		a, ok := MatchAsset(assets, "shop-admin.example.com")
		require.True(t, ok)
		assert.Equal(t, "shop", a.Name)
		assert.Equal(t, 3.0, AssetValueFor(assets, "shop-admin.example.com"))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, 4.33, AssetValueFor(assets, "https://MAIL.example.com"))
	})

	t.Run("no match uses default", func(t *testing.T) {
		_, ok := MatchAsset(assets, "blog.example.com")
		assert.False(t, ok)
		assert.Equal(t, DefaultAssetValue, AssetValueFor(assets, "blog.example.com"))
	})

	t.Run("empty inventory uses default", func(t *testing.T) {
		assert.Equal(t, 2.0, AssetValueFor(nil, "shop.example.com"))
	})
}

func TestAggregateCounts(t *testing.T) {
	records := []models.RiskRecord{
		{Endpoint: "E", Technology: "nginx", CVEs: []string{"CVE-1"}, Risk: 8.0},
		{Endpoint: "E", Technology: "nginx", CVEs: []string{"CVE-1", "CVE-2"}, Risk: 27.0},
	}

	out := Aggregate(records)
	require.Len(t, out, 1)

	s := out["E"]
	assert.Equal(t, 1, s.TotalTechnologies)
	assert.Equal(t, 2, s.TotalCVEs)
	assert.Equal(t, 27.0, s.MaxRisk)
	assert.Equal(t, 17.5, s.AverageRisk)
	assert.Equal(t, []string{"nginx"}, s.Technologies)
	assert.Equal(t, []string{"CVE-1", "CVE-2"}, s.CVEs)
	assert.Equal(t, models.CriticalityMedium, s.Criticality)
}

func TestAggregateIdempotent(t *testing.T) {
	records := []models.RiskRecord{
		{Endpoint: "a.example.com", Technology: "Apache", CVEs: []string{"CVE-9"}, Risk: 64},
		{Endpoint: "b.example.com", Technology: "PHP", Risk: 2},
		{Endpoint: "a.example.com", Technology: "jQuery", Risk: 18},
	}

	first := Aggregate(records)
	second := Aggregate(records)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
	assert.Equal(t, 41.0, first["a.example.com"].AverageRisk)
}

func TestAggregateEmpty(t *testing.T) {
	out := Aggregate(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestAggregateAverageRounded(t *testing.T) {
	records := []models.RiskRecord{
		{Endpoint: "E", Technology: "a", Risk: 1.0},
		{Endpoint: "E", Technology: "b", Risk: 2.0},
		{Endpoint: "E", Technology: "c", Risk: 2.0},
	}
	assert.Equal(t, 1.67, Aggregate(records)["E"].AverageRisk)
}

func TestEndpointsFirstSeenOrder(t *testing.T) {
	records := []models.RiskRecord{
		{Endpoint: "c"}, {Endpoint: "a"}, {Endpoint: "c"}, {Endpoint: "b"},
	}
	assert.Equal(t, []string{"c", "a", "b"}, Endpoints(records))
}

func TestBuildRecord(t *testing.T) {
	assets := []models.Asset{{Name: "portal", Value: 4.0}}

	r := BuildRecord(Observation{
		Endpoint:   "https://portal.example.com",
		Technology: "Apache",
		Version:    "2.4.49",
		Vulnerabilities: []models.VulnerabilityRecord{
			{ID: "CVE-2021-41773", CVSS: score(7.5)},
			{ID: "CVE-2021-0000"},
		},
	}, assets)

	assert.Equal(t, "portal", r.AssetName)
	assert.Equal(t, 4.0, r.AssetValue)
	assert.Equal(t, 7.5, r.CVSSMax)
	assert.Equal(t, 4, r.Probability)
	assert.Equal(t, 4, r.Vulnerability)
	assert.Equal(t, 64.0, r.Risk)
	assert.Equal(t, models.CriticalityHigh, r.Criticality)
	assert.Equal(t, []string{"CVE-2021-41773", "CVE-2021-0000"}, r.CVEs)

	unmatched := BuildRecord(Observation{Endpoint: "cdn.example.org", Technology: "HTML5"}, assets)
	assert.Equal(t, DefaultAssetValue, unmatched.AssetValue)
	assert.Equal(t, "", unmatched.AssetName)
	assert.Equal(t, 2.0, unmatched.Risk)
	assert.NotNil(t, unmatched.CVEs)
}
