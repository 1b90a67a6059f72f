package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsIdempotent(t *testing.T) {
	InitMetrics()
	InitMetrics()
}

func TestWriteTextfile(t *testing.T) {
	CVELookups.WithLabelValues("nvd", "hit").Inc()
	RiskRecords.WithLabelValues("High").Add(2)

	path := filepath.Join(t.TempDir(), "secureval.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "secureval_cve_lookups_total")
	assert.Contains(t, string(data), `criticality="High"`)
	assert.GreaterOrEqual(t, testutil.ToFloat64(RiskRecords.WithLabelValues("High")), 2.0)
}
