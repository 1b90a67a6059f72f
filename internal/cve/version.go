package cve

import (
	"strings"

	"github.com/hakim/secureval/internal/models"
	"github.com/hashicorp/go-version"
)

// FilterByVersion drops records whose affected CPE ranges name the product
// but exclude the observed version. Records that carry no ranges for the
// product, and every record when the version cannot be parsed, are kept.
func FilterByVersion(records []models.VulnerabilityRecord, product, observed string) []models.VulnerabilityRecord {
	cur, err := version.NewVersion(strings.TrimSpace(observed))
	if err != nil {
		return records
	}
	product = normalizeProduct(product)

	out := make([]models.VulnerabilityRecord, 0, len(records))
	for _, r := range records {
		relevant, affected := false, false
		for _, rng := range r.Affected {
			vendor, prod, ver, ok := parseCPE(rng.Criteria)
			if !ok || (prod != product && vendor != product) {
				continue
			}
			relevant = true
			if rangeContains(cur, ver, rng) {
				affected = true
				break
			}
		}
		if !relevant || affected {
			out = append(out, r)
		}
	}
	return out
}

// parseCPE extracts vendor, product and version from a CPE 2.3 string:
// cpe:2.3:part:vendor:product:version:...
func parseCPE(cpe string) (vendor, product, ver string, ok bool) {
	parts := strings.Split(cpe, ":")
	if len(parts) < 6 {
		return "", "", "", false
	}
	return parts[3], parts[4], parts[5], true
}

func rangeContains(cur *version.Version, cpeVersion string, rng models.CPERange) bool {
	hasRange := rng.VersionStartIncluding != "" || rng.VersionStartExcluding != "" ||
		rng.VersionEndIncluding != "" || rng.VersionEndExcluding != ""

	if cpeVersion != "*" && cpeVersion != "-" && !hasRange {
		exact, err := version.NewVersion(cpeVersion)
		if err != nil {
			return true
		}
		return cur.Equal(exact)
	}
	if !hasRange {
		return true
	}

	checks := []struct {
		bound string
		fails func(b *version.Version) bool
	}{
		{rng.VersionStartIncluding, cur.LessThan},
		{rng.VersionStartExcluding, cur.LessThanOrEqual},
		{rng.VersionEndIncluding, cur.GreaterThan},
		{rng.VersionEndExcluding, cur.GreaterThanOrEqual},
	}
	for _, c := range checks {
		if c.bound == "" {
			continue
		}
		b, err := version.NewVersion(c.bound)
		if err != nil {
			// Unparseable bounds cannot rule the version out.
			continue
		}
		if c.fails(b) {
			return false
		}
	}
	return true
}

// normalizeProduct maps a fingerprinted name to CPE product spelling.
func normalizeProduct(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
