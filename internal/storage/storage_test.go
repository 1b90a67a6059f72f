package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssetsKeepRegistrationOrder(t *testing.T) {
	s := newTestStore(t)

	names := []string{"shop", "shop-admin", "mail", "vpn", "intranet", "api", "blog", "crm", "erp", "wiki", "git"}
	for i, n := range names {
		require.NoError(t, s.AddAsset(&models.Asset{Name: n, Value: float64(i)}))
	}

	assets, err := s.ListAssets()
	require.NoError(t, err)
	require.Len(t, assets, len(names))
	for i, a := range assets {
		assert.Equal(t, names[i], a.Name)
	}
}

func TestListAssetsEmpty(t *testing.T) {
	s := newTestStore(t)
	assets, err := s.ListAssets()
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}

func TestGetAsset(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAsset(&models.Asset{Name: "Portal", Value: 4.33}))

	a, err := s.GetAsset("portal")
	require.NoError(t, err)
	assert.Equal(t, 4.33, a.Value)

	_, err = s.GetAsset("missing")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestScanLifecycle(t *testing.T) {
	s := newTestStore(t)

	older := models.NewScan("example.com")
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := models.NewScan("example.com")

	require.NoError(t, s.SaveScan(&older.ScanMeta))
	require.NoError(t, s.SaveScan(&newer.ScanMeta))

	scans, err := s.ListScans("example.com")
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, newer.ID, scans[0].ID)

	require.NoError(t, s.UpdateScanStatus(newer.ID, models.StatusComplete))
	got, err := s.GetScan(newer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, got.Status)
	assert.NotNil(t, got.CompletedAt)

	require.NoError(t, s.RecordToolVersions(newer.ID, map[string]string{"whatweb": "0.5.5"}))
	got, err = s.GetScan(newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.5.5", got.ToolVersions["whatweb"])

	_, err = s.GetScan("nope")
	assert.ErrorIs(t, err, ErrScanNotFound)
	assert.NoError(t, s.UpdateScanStatus("nope", models.StatusFailed))
}

func TestScanDirLayout(t *testing.T) {
	base := t.TempDir()
	started := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)

	dir, err := CreateScanDir(base, "https://example.com/x", started)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "https_example.com_x_20260301_140509"), dir)

	for _, sub := range []string{"raw", "reports"} {
		info, err := os.Stat(filepath.Join(dir, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestJSONHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	in := []models.RiskRecord{{Endpoint: "a", Technology: "nginx", Risk: 8}}
	require.NoError(t, WriteJSON(path, in))

	var out []models.RiskRecord
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, in[0].Endpoint, out[0].Endpoint)

	found, err := ReadOptionalJSON(filepath.Join(t.TempDir(), "absent.json"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}
