package models

// VulnerabilityRecord is a single CVE returned for a technology keyword.
type VulnerabilityRecord struct {
	ID          string     `json:"id"`
	CVSS        *float64   `json:"cvss,omitempty"`
	CVSSVersion string     `json:"cvss_version,omitempty"`
	Severity    string     `json:"severity,omitempty"`
	Description string     `json:"description,omitempty"`
	Published   string     `json:"published,omitempty"`
	Affected    []CPERange `json:"affected,omitempty"`
}

// Score returns the CVSS base score, or 0.0 when the record carries none.
func (v VulnerabilityRecord) Score() float64 {
	if v.CVSS == nil {
		return 0.0
	}
	return *v.CVSS
}

// CPERange is one vulnerable cpeMatch entry from an NVD configuration node.
type CPERange struct {
	Criteria              string `json:"criteria"`
	VersionStartIncluding string `json:"version_start_including,omitempty"`
	VersionStartExcluding string `json:"version_start_excluding,omitempty"`
	VersionEndIncluding   string `json:"version_end_including,omitempty"`
	VersionEndExcluding   string `json:"version_end_excluding,omitempty"`
}

// RiskRecord is the evaluation of one technology observed on one endpoint.
type RiskRecord struct {
	Endpoint        string      `json:"endpoint"`
	Technology      string      `json:"technology"`
	Version         string      `json:"version,omitempty"`
	ServiceType     ServiceType `json:"service_type,omitempty"`
	OperatingSystem string      `json:"operating_system,omitempty"`
	AssetName       string      `json:"asset_name,omitempty"`
	AssetValue      float64     `json:"asset_value"`
	CVSSMax         float64     `json:"cvss_max"`
	Probability     int         `json:"probability"`
	Vulnerability   int         `json:"vulnerability"`
	Risk            float64     `json:"risk"`
	Criticality     Criticality `json:"criticality"`
	CVEs            []string    `json:"cves"`
}

// EndpointSummary aggregates every RiskRecord of a single endpoint.
type EndpointSummary struct {
	Endpoint          string      `json:"endpoint"`
	Technologies      []string    `json:"technologies"`
	CVEs              []string    `json:"cves"`
	TotalTechnologies int         `json:"total_technologies"`
	TotalCVEs         int         `json:"total_cves"`
	MaxRisk           float64     `json:"max_risk"`
	AverageRisk       float64     `json:"average_risk"`
	Criticality       Criticality `json:"criticality"`
}

// TreatmentEntry is one row of a treatment plan.
type TreatmentEntry struct {
	Endpoint    string      `json:"endpoint"`
	Technology  string      `json:"technology"`
	Risk        float64     `json:"risk"`
	Criticality Criticality `json:"criticality"`
	Strategy    Treatment   `json:"strategy"`
	Actions     []string    `json:"actions"`
}

// KPIs is the monitoring dashboard computed over one evaluate run.
type KPIs struct {
	TotalEndpoints         int                 `json:"total_endpoints"`
	TotalTechnologies      int                 `json:"total_technologies"`
	TotalCVEs              int                 `json:"total_cves"`
	AverageRisk            float64             `json:"average_risk"`
	MaxCVSS                float64             `json:"max_cvss"`
	HighRiskEndpoints      int                 `json:"high_risk_endpoints"`
	VulnerableTechnologies int                 `json:"vulnerable_technologies"`
	CriticalityCounts      map[Criticality]int `json:"criticality_counts"`
}
