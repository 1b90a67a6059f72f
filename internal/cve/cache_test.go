package cve

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string][]models.VulnerabilityRecord
	err     error
}

func newFakeSource(results map[string][]models.VulnerabilityRecord) *fakeSource {
	return &fakeSource{calls: map[string]int{}, results: results}
}

func (f *fakeSource) Lookup(_ context.Context, keyword string) ([]models.VulnerabilityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[keyword]++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[keyword], nil
}

func ptr(v float64) *float64 { return &v }

func TestRunCacheMemoizes(t *testing.T) {
	src := newFakeSource(map[string][]models.VulnerabilityRecord{
		"nginx": {{ID: "CVE-1", CVSS: ptr(5.0)}},
	})
	c := NewRunCache(src)
	ctx := context.Background()

	first, err := c.Lookup(ctx, "nginx")
	require.NoError(t, err)
	second, err := c.Lookup(ctx, "nginx")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls["nginx"])
	assert.Equal(t, 1, c.Len())
}

func TestRunCacheDoesNotCacheErrors(t *testing.T) {
	src := newFakeSource(nil)
	src.err = errors.New("timeout")
	c := NewRunCache(src)

	_, err := c.Lookup(context.Background(), "php")
	require.Error(t, err)
	_, err = c.Lookup(context.Background(), "php")
	require.Error(t, err)

	assert.Equal(t, 2, src.calls["php"])
	assert.Equal(t, 0, c.Len())
}

func TestRunCachesAreIndependent(t *testing.T) {
	src := newFakeSource(map[string][]models.VulnerabilityRecord{"iis": {{ID: "CVE-2"}}})
	ctx := context.Background()

	_, _ = NewRunCache(src).Lookup(ctx, "iis")
	_, _ = NewRunCache(src).Lookup(ctx, "iis")

	assert.Equal(t, 2, src.calls["iis"])
}

func openTestCache(t *testing.T, src Source, ttl time.Duration) *SQLiteCache {
	t.Helper()
	c, err := OpenSQLiteCache(filepath.Join(t.TempDir(), "cve.db"), src, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSQLiteCacheServesFreshEntries(t *testing.T) {
	src := newFakeSource(map[string][]models.VulnerabilityRecord{
		"Apache": {{ID: "CVE-2021-41773", CVSS: ptr(7.5)}},
	})
	c := openTestCache(t, src, time.Hour)
	ctx := context.Background()

	first, err := c.Lookup(ctx, "Apache")
	require.NoError(t, err)
	second, err := c.Lookup(ctx, "apache ")
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls["Apache"])
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 7.5, second[0].Score())
}

func TestSQLiteCacheRefreshesExpired(t *testing.T) {
	src := newFakeSource(map[string][]models.VulnerabilityRecord{"nginx": {{ID: "CVE-1"}}})
	c := openTestCache(t, src, time.Hour)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	_, err := c.Lookup(ctx, "nginx")
	require.NoError(t, err)

	c.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = c.Lookup(ctx, "nginx")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls["nginx"])
}

func TestSQLiteCacheServesStaleOnError(t *testing.T) {
	src := newFakeSource(map[string][]models.VulnerabilityRecord{"php": {{ID: "CVE-7", CVSS: ptr(9.8)}}})
	c := openTestCache(t, src, time.Minute)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	_, err := c.Lookup(ctx, "php")
	require.NoError(t, err)

	src.err = errors.New("rate limited")
	c.now = func() time.Time { return now.Add(time.Hour) }
	records, err := c.Lookup(ctx, "php")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CVE-7", records[0].ID)

	_, err = c.Lookup(ctx, "never-seen")
	assert.Error(t, err)
}

func TestSQLiteCachePurge(t *testing.T) {
	c := openTestCache(t, newFakeSource(nil), time.Hour)
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now.Add(-3 * time.Hour) }
	require.NoError(t, c.Put(ctx, "old", nil))
	c.now = func() time.Time { return now }
	require.NoError(t, c.Put(ctx, "new", []models.VulnerabilityRecord{{ID: "CVE-3"}}))

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, _, found, err := c.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, found)

	records, _, found, err := c.Get(ctx, "new")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, records, 1)
}
