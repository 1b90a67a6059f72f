package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/pipeline"
	"github.com/hakim/secureval/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"evaluate", []string{"evaluate"}},
		{" evaluate , report ,", []string{"evaluate", "report"}},
		{",,", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitCSV(tt.in), "input %q", tt.in)
	}
}

func TestStageSelection(t *testing.T) {
	assert.Equal(t, pipeline.StageDiscover, toolStage("subfinder"))
	assert.Equal(t, pipeline.StageTLS, toolStage("tlsx"))
	assert.Empty(t, toolStage("nuclei"))

	assert.True(t, stageSelected(pipeline.StagePortScan, nil, nil))
	assert.False(t, stageSelected(pipeline.StagePortScan, nil, []string{pipeline.StagePortScan}))
	assert.False(t, stageSelected(pipeline.StagePortScan, []string{pipeline.StageEvaluate}, nil))
	assert.True(t, stageSelected(pipeline.StageEvaluate, []string{pipeline.StageEvaluate}, nil))

	assert.True(t, isStage("report"))
	assert.False(t, isStage("vulnscan"))

	assert.Equal(t, []string{"a", "b"}, appendIfMissing([]string{"a", "b"}, "b"))
	assert.Equal(t, []string{"a", "b"}, appendIfMissing([]string{"a"}, "b"))
}

func TestFindLatestScanDir(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{
		"example.com_20260101_090000",
		"example.com_20260301_140000",
		"example.org_20261201_000000",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, name), 0o755))
	}

	got, err := findLatestScanDir(base, "example.com")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "example.com_20260301_140000"), got)

	_, err = findLatestScanDir(base, "example.net")
	assert.ErrorContains(t, err, "no scan directories")
}

func TestPreviousScanDir(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "secureval.db"))
	require.NoError(t, err)
	defer store.Close()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, dir := range []string{"scans/one", "scans/two", "scans/three"} {
		require.NoError(t, store.SaveScan(&models.ScanMeta{
			ID:        dir,
			Target:    "example.com",
			StartedAt: start.Add(time.Duration(i) * time.Hour),
			Status:    models.StatusComplete,
			ScanDir:   dir,
		}))
	}

	tests := []struct {
		name    string
		current string
		want    string
	}{
		{"newest", "scans/three", "scans/two"},
		{"middle", "scans/two", "scans/one"},
		{"oldest", "scans/one", ""},
		{"unknown dir uses newest", "elsewhere", "scans/three"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := previousScanDir(store, "example.com", tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
