package risk

import "github.com/hakim/secureval/internal/models"

// ComputeKPIs derives the monitoring dashboard for one run. AverageRisk is the
// mean of per-endpoint averages, not of individual records.
func ComputeKPIs(records []models.RiskRecord, summaries map[string]models.EndpointSummary) models.KPIs {
	k := models.KPIs{
		TotalEndpoints:    len(summaries),
		CriticalityCounts: make(map[models.Criticality]int),
	}

	sumAvg := 0.0
	for _, s := range summaries {
		k.TotalTechnologies += s.TotalTechnologies
		k.TotalCVEs += s.TotalCVEs
		sumAvg += s.AverageRisk
		if Classify(s.MaxRisk).Rank() >= models.CriticalityHigh.Rank() {
			k.HighRiskEndpoints++
		}
	}
	if len(summaries) > 0 {
		k.AverageRisk = Round2(sumAvg / float64(len(summaries)))
	}

	vulnerable := make(map[string]bool)
	for _, r := range records {
		k.CriticalityCounts[Classify(r.Risk)]++
		if r.CVSSMax > 0 {
			vulnerable[r.Technology] = true
		}
		if r.CVSSMax > k.MaxCVSS {
			k.MaxCVSS = r.CVSSMax
		}
	}
	k.VulnerableTechnologies = len(vulnerable)

	return k
}
