package risk

import "github.com/hakim/secureval/internal/models"

// Observation is one technology seen on one endpoint together with the CVEs
// the lookup returned for it.
type Observation struct {
	Endpoint        string
	Technology      string
	Version         string
	ServiceType     models.ServiceType
	OperatingSystem string
	Vulnerabilities []models.VulnerabilityRecord
}

// BuildRecord scores an observation against the asset inventory.
func BuildRecord(obs Observation, assets []models.Asset) models.RiskRecord {
	value := DefaultAssetValue
	assetName := ""
	if a, ok := MatchAsset(assets, obs.Endpoint); ok {
		value = a.Value
		assetName = a.Name
	}

	cvss := MaxCVSS(obs.Vulnerabilities)
	p, v, r := Evaluate(value, cvss)

	ids := make([]string, 0, len(obs.Vulnerabilities))
	for _, vr := range obs.Vulnerabilities {
		ids = append(ids, vr.ID)
	}

	return models.RiskRecord{
		Endpoint:        obs.Endpoint,
		Technology:      obs.Technology,
		Version:         obs.Version,
		ServiceType:     obs.ServiceType,
		OperatingSystem: obs.OperatingSystem,
		AssetName:       assetName,
		AssetValue:      value,
		CVSSMax:         cvss,
		Probability:     p,
		Vulnerability:   v,
		Risk:            r,
		Criticality:     Classify(r),
		CVEs:            ids,
	}
}
