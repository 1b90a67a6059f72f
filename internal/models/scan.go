package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanMeta contains metadata about a scan
type ScanMeta struct {
	ID           string            `json:"id"`
	Target       string            `json:"target"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Status       ScanStatus        `json:"status"`
	ScanDir      string            `json:"scan_dir"`
	ToolVersions map[string]string `json:"tool_versions,omitempty"`
	StagesRun    []string          `json:"stages_run,omitempty"`
}

// Scan represents a complete scan with everything the evaluate stage produced
type Scan struct {
	ScanMeta
	Endpoints []Endpoint                 `json:"endpoints,omitempty"`
	Records   []RiskRecord               `json:"records,omitempty"`
	Summaries map[string]EndpointSummary `json:"summaries,omitempty"`
}

// NewScan creates a new scan instance with initialized metadata
func NewScan(target string) *Scan {
	return &Scan{
		ScanMeta: ScanMeta{
			ID:           uuid.New().String(),
			Target:       target,
			StartedAt:    time.Now(),
			Status:       StatusPending,
			ToolVersions: make(map[string]string),
			StagesRun:    []string{},
		},
		Endpoints: []Endpoint{},
		Records:   []RiskRecord{},
		Summaries: map[string]EndpointSummary{},
	}
}

// RunMetadata is written next to the raw results of an evaluate run.
type RunMetadata struct {
	Target        string          `json:"target"`
	GeneratedAt   time.Time       `json:"generated_at"`
	TotalResults  int             `json:"total_results"`
	TotalErrors   int             `json:"total_errors"`
	LookupErrors  []string        `json:"lookup_errors,omitempty"`
	OptionsUsed   map[string]bool `json:"options_used"`
	AssetsMatched int             `json:"assets_matched"`
}
