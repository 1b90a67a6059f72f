package cve

import (
	"testing"

	"github.com/hakim/secureval/internal/models"
	"github.com/stretchr/testify/assert"
)

func ids(records []models.VulnerabilityRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterByVersion(t *testing.T) {
	records := []models.VulnerabilityRecord{
		{ID: "exact-2.4.49", Affected: []models.CPERange{
			{Criteria: "cpe:2.3:a:apache:http_server:2.4.49:*:*:*:*:*:*:*"},
		}},
		{ID: "range-below-2.4.50", Affected: []models.CPERange{
			{Criteria: "cpe:2.3:a:apache:http_server:*:*:*:*:*:*:*:*", VersionStartIncluding: "2.4.0", VersionEndExcluding: "2.4.50"},
		}},
		{ID: "range-below-2.4.30", Affected: []models.CPERange{
			{Criteria: "cpe:2.3:a:apache:http_server:*:*:*:*:*:*:*:*", VersionEndIncluding: "2.4.30"},
		}},
		{ID: "other-product", Affected: []models.CPERange{
			{Criteria: "cpe:2.3:a:php:php:*:*:*:*:*:*:*:*", VersionEndExcluding: "5.0"},
		}},
		{ID: "no-ranges"},
	}

	tests := []struct {
		name     string
		product  string
		observed string
		want     []string
	}{
		{"matches exact and range", "http_server", "2.4.49", []string{"exact-2.4.49", "range-below-2.4.50", "other-product", "no-ranges"}},
		{"newer version filtered", "http_server", "2.4.58", []string{"other-product", "no-ranges"}},
		{"vendor name matches", "Apache", "2.4.20", []string{"range-below-2.4.50", "range-below-2.4.30", "other-product", "no-ranges"}},
		{"unparseable version keeps all", "http_server", "unknown", []string{"exact-2.4.49", "range-below-2.4.50", "range-below-2.4.30", "other-product", "no-ranges"}},
		{"unrelated product keeps all", "nginx", "1.18.0", []string{"exact-2.4.49", "range-below-2.4.50", "range-below-2.4.30", "other-product", "no-ranges"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterByVersion(records, tt.product, tt.observed)))
		})
	}
}

func TestParseCPE(t *testing.T) {
	vendor, product, ver, ok := parseCPE("cpe:2.3:a:nginx:nginx:1.18.0:*:*:*:*:*:*:*")
	assert.True(t, ok)
	assert.Equal(t, "nginx", vendor)
	assert.Equal(t, "nginx", product)
	assert.Equal(t, "1.18.0", ver)

	_, _, _, ok = parseCPE("cpe:2.3:a")
	assert.False(t, ok)
}
