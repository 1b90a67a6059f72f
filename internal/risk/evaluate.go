// Package risk scores technologies found on endpoints and aggregates the
// results per endpoint.
//
// Risk is the product of the matched asset value and two 1-5 factors derived
// from the highest CVSS score known for a technology. Probability and
// vulnerability are always derived from the same band and are therefore equal.
// Everything in this package is pure and never returns an error: unknown CVSS
// is 0.0 and an unmatched endpoint uses DefaultAssetValue.
package risk

import (
	"math"

	"github.com/hakim/secureval/internal/models"
)

// Criticality thresholds on the risk scale (maximum 5.0 * 5 * 5 = 125).
const (
	CriticalThreshold = 80.0
	HighThreshold     = 50.0
	MediumThreshold   = 25.0
)

// AssetValue returns the mean of the confidentiality, integrity and
// availability ratings rounded to two decimals. Inputs are not validated.
func AssetValue(confidentiality, integrity, availability int) float64 {
	return Round2(float64(confidentiality+integrity+availability) / 3)
}

// Evaluate maps a CVSS score to probability and vulnerability factors and
// computes the resulting risk for an asset of the given value.
func Evaluate(assetValue, cvss float64) (probability, vulnerability int, risk float64) {
	band := cvssBand(cvss)
	probability, vulnerability = band, band
	risk = Round2(assetValue * float64(probability) * float64(vulnerability))
	return probability, vulnerability, risk
}

// cvssBand checks bands top-down. NaN fails every comparison and lands in 1.
func cvssBand(cvss float64) int {
	switch {
	case cvss >= 9.0:
		return 5
	case cvss >= 7.0:
		return 4
	case cvss >= 4.0:
		return 3
	case cvss >= 0.1:
		return 2
	default:
		return 1
	}
}

// Classify returns the criticality band of a risk value.
func Classify(risk float64) models.Criticality {
	switch {
	case risk >= CriticalThreshold:
		return models.CriticalityCritical
	case risk >= HighThreshold:
		return models.CriticalityHigh
	case risk >= MediumThreshold:
		return models.CriticalityMedium
	default:
		return models.CriticalityLow
	}
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// MaxCVSS returns the highest score among records, 0.0 for none.
func MaxCVSS(records []models.VulnerabilityRecord) float64 {
	highest := 0.0
	for _, r := range records {
		if s := r.Score(); s > highest {
			highest = s
		}
	}
	return highest
}
