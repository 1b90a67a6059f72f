package risk

import (
	"sort"

	"github.com/hakim/secureval/internal/models"
)

// Recommend returns the treatment strategy for a risk value.
func Recommend(risk float64) models.Treatment {
	switch {
	case risk < 10:
		return models.TreatmentAccept
	case risk < MediumThreshold:
		return models.TreatmentAcceptOrMitigate
	case risk < HighThreshold:
		return models.TreatmentMitigateTransfer
	case risk < CriticalThreshold:
		return models.TreatmentMitigate
	default:
		return models.TreatmentAvoid
	}
}

// Actions returns the recommended remediation steps for a risk value.
func Actions(risk float64) []string {
	switch {
	case risk >= CriticalThreshold:
		return []string{
			"Disable or isolate the exposed service immediately",
			"Put a web application firewall in front of the endpoint",
			"Run a full security audit of the affected asset",
		}
	case risk >= HighThreshold:
		return []string{
			"Apply vendor security patches urgently",
			"Enable continuous (24x7) monitoring",
			"Review the service configuration",
		}
	case risk >= MediumThreshold:
		return []string{
			"Schedule updates in the next maintenance window",
			"Enable basic monitoring",
			"Review access logs periodically",
		}
	default:
		return []string{
			"Keep routine monitoring",
			"Apply updates on the regular schedule",
		}
	}
}

// BuildTreatmentPlan produces one entry per record, highest risk first.
// Records with equal risk keep their input order.
func BuildTreatmentPlan(records []models.RiskRecord) []models.TreatmentEntry {
	plan := make([]models.TreatmentEntry, 0, len(records))
	for _, r := range records {
		plan = append(plan, models.TreatmentEntry{
			Endpoint:    r.Endpoint,
			Technology:  r.Technology,
			Risk:        r.Risk,
			Criticality: Classify(r.Risk),
			Strategy:    Recommend(r.Risk),
			Actions:     Actions(r.Risk),
		})
	}
	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].Risk > plan[j].Risk
	})
	return plan
}
