package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriticality(t *testing.T) {
	tests := []struct {
		name  string
		c     Criticality
		valid bool
		rank  int
	}{
		{"critical", CriticalityCritical, true, 4},
		{"high", CriticalityHigh, true, 3},
		{"medium", CriticalityMedium, true, 2},
		{"low", CriticalityLow, true, 1},
		{"unknown", Criticality("Severe"), false, 0},
		{"empty", Criticality(""), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.c.IsValid())
			assert.Equal(t, tt.rank, tt.c.Rank())
		})
	}
}

func TestParseCriticality(t *testing.T) {
	c, ok := ParseCriticality("high")
	assert.True(t, ok)
	assert.Equal(t, CriticalityHigh, c)

	_, ok = ParseCriticality("extreme")
	assert.False(t, ok)
}

func TestAssetCIAImpact(t *testing.T) {
	a := Asset{Confidentiality: 3, Integrity: 4, Availability: 5}
	assert.Equal(t, "C:3 I:4 A:5", a.CIAImpact())
}

func TestVulnerabilityRecordScore(t *testing.T) {
	score := 7.5
	assert.Equal(t, 7.5, VulnerabilityRecord{ID: "CVE-2024-0001", CVSS: &score}.Score())
	assert.Equal(t, 0.0, VulnerabilityRecord{ID: "CVE-2024-0002"}.Score())
}
