package models

import (
	"fmt"
	"time"
)

// Asset is a named organizational resource under evaluation. Name is matched
// case-insensitively as a substring of endpoint identifiers.
type Asset struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Type            AssetType   `json:"type,omitempty"`
	Description     string      `json:"description,omitempty"`
	Status          AssetStatus `json:"status,omitempty"`
	Area            string      `json:"area,omitempty"`
	Processes       string      `json:"processes,omitempty"`
	Owner           string      `json:"owner,omitempty"`
	Confidentiality int         `json:"confidentiality"`
	Integrity       int         `json:"integrity"`
	Availability    int         `json:"availability"`
	Value           float64     `json:"value"`
	RegisteredAt    time.Time   `json:"registered_at"`
}

// CIAImpact renders the three ratings the way the asset register displays them.
func (a Asset) CIAImpact() string {
	return fmt.Sprintf("C:%d I:%d A:%d", a.Confidentiality, a.Integrity, a.Availability)
}
