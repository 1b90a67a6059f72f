package models

import "strings"

// ScanStatus represents the current state of a scan
type ScanStatus string

const (
	StatusPending  ScanStatus = "pending"
	StatusRunning  ScanStatus = "running"
	StatusComplete ScanStatus = "complete"
	StatusFailed   ScanStatus = "failed"
)

// Criticality is the qualitative band assigned to a numeric risk value.
type Criticality string

const (
	CriticalityLow      Criticality = "Low"
	CriticalityMedium   Criticality = "Medium"
	CriticalityHigh     Criticality = "High"
	CriticalityCritical Criticality = "Critical"
)

// AllCriticalities lists the bands from most to least severe.
func AllCriticalities() []Criticality {
	return []Criticality{CriticalityCritical, CriticalityHigh, CriticalityMedium, CriticalityLow}
}

// IsValid reports whether c is one of the four known bands.
func (c Criticality) IsValid() bool {
	switch c {
	case CriticalityLow, CriticalityMedium, CriticalityHigh, CriticalityCritical:
		return true
	}
	return false
}

func (c Criticality) String() string {
	return string(c)
}

// Rank orders bands so that a higher rank is more severe. Unknown values rank 0.
func (c Criticality) Rank() int {
	switch c {
	case CriticalityCritical:
		return 4
	case CriticalityHigh:
		return 3
	case CriticalityMedium:
		return 2
	case CriticalityLow:
		return 1
	}
	return 0
}

// ParseCriticality converts a case-insensitive band name into a Criticality.
func ParseCriticality(s string) (Criticality, bool) {
	for _, c := range AllCriticalities() {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Treatment is the recommended risk-treatment strategy for a risk value.
type Treatment string

const (
	TreatmentAccept           Treatment = "Accept"
	TreatmentAcceptOrMitigate Treatment = "Accept or Mitigate"
	TreatmentMitigateTransfer Treatment = "Mitigate or Transfer"
	TreatmentMitigate         Treatment = "Mitigate"
	TreatmentAvoid            Treatment = "Avoid"
)

// AssetType classifies an asset by its role in the organization.
type AssetType string

const (
	AssetPrimary   AssetType = "Primary"
	AssetSecondary AssetType = "Secondary"
	AssetSupport   AssetType = "Support"
)

// AssetStatus describes where an asset is in its lifecycle.
type AssetStatus string

const (
	AssetInUse      AssetStatus = "In use"
	AssetCurrent    AssetStatus = "Current"
	AssetNotCurrent AssetStatus = "Not current"
	AssetRemoved    AssetStatus = "Removed"
)

// ServiceType is the coarse service category derived from a technology name.
type ServiceType string

const (
	ServiceMail         ServiceType = "Mail Server"
	ServiceFTP          ServiceType = "FTP Server"
	ServiceDatabase     ServiceType = "Database"
	ServiceCMS          ServiceType = "Content Management"
	ServiceAccessPortal ServiceType = "Access Portal"
	ServiceOther        ServiceType = "Other"
)

// Operating system guesses derived from the HTTP Server header.
const (
	OSWindows    = "Windows"
	OSLinux      = "Linux"
	OSLinuxUnix  = "Linux/Unix"
	OSWindowsIIS = "Windows/IIS"
	OSProxyCDN   = "Proxy/CDN"
	OSUnknown    = "Unknown"
)
