package risk

import (
	"sort"

	"github.com/hakim/secureval/internal/models"
)

// endpointAccumulator collects per-endpoint state while records are folded.
type endpointAccumulator struct {
	technologies map[string]struct{}
	cves         map[string]struct{}
	risks        []float64
}

// Aggregate groups records by endpoint. Technologies and CVEs are counted as
// distinct sets while every record's risk contributes to the maximum and the
// average. The result never contains an endpoint without records and is
// non-nil for empty input.
func Aggregate(records []models.RiskRecord) map[string]models.EndpointSummary {
	acc := make(map[string]*endpointAccumulator)

	for _, r := range records {
		a, ok := acc[r.Endpoint]
		if !ok {
			a = &endpointAccumulator{
				technologies: make(map[string]struct{}),
				cves:         make(map[string]struct{}),
			}
			acc[r.Endpoint] = a
		}
		a.technologies[r.Technology] = struct{}{}
		for _, id := range r.CVEs {
			a.cves[id] = struct{}{}
		}
		a.risks = append(a.risks, r.Risk)
	}

	out := make(map[string]models.EndpointSummary, len(acc))
	for endpoint, a := range acc {
		maxRisk, sum := a.risks[0], 0.0
		for _, v := range a.risks {
			if v > maxRisk {
				maxRisk = v
			}
			sum += v
		}

		out[endpoint] = models.EndpointSummary{
			Endpoint:          endpoint,
			Technologies:      sortedKeys(a.technologies),
			CVEs:              sortedKeys(a.cves),
			TotalTechnologies: len(a.technologies),
			TotalCVEs:         len(a.cves),
			MaxRisk:           maxRisk,
			AverageRisk:       Round2(sum / float64(len(a.risks))),
			Criticality:       Classify(maxRisk),
		}
	}

	return out
}

// Endpoints returns the distinct endpoints of records in first-seen order.
func Endpoints(records []models.RiskRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Endpoint] {
			seen[r.Endpoint] = true
			out = append(out, r.Endpoint)
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
