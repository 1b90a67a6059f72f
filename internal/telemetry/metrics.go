package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CVELookups counts CVE lookups by the layer that answered and the outcome
	CVELookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secureval",
			Name:      "cve_lookups_total",
			Help:      "Total number of CVE lookups by source and result",
		},
		[]string{"source", "result"},
	)

	// RiskRecords counts evaluated (endpoint, technology) pairs by criticality
	RiskRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secureval",
			Name:      "risk_records_total",
			Help:      "Total number of risk records produced, by criticality",
		},
		[]string{"criticality"},
	)

	// ToolRuns counts external tool executions
	ToolRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "secureval",
			Name:      "tool_runs_total",
			Help:      "Total number of external tool executions",
		},
		[]string{"tool", "result"},
	)

	// StageDuration observes wall time spent in each pipeline stage
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "secureval",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of pipeline stages",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"stage", "result"},
	)

	// Registry holds every secureval collector. It is separate from the
	// default registry so textfile output carries only these series.
	Registry = prometheus.NewRegistry()

	once sync.Once
)

// InitMetrics registers all collectors with Registry. Safe to call repeatedly.
func InitMetrics() {
	once.Do(func() {
		Registry.MustRegister(CVELookups, RiskRecords, ToolRuns, StageDuration)
	})
}

// WriteTextfile writes the current values in the node_exporter textfile format
func WriteTextfile(path string) error {
	InitMetrics()
	return prometheus.WriteToTextfile(path, Registry)
}
