package cve

import (
	"context"
	"sync"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/telemetry"
)

// RunCache memoizes lookups for the duration of one evaluate run. Create one
// per run; it never expires entries. Failed lookups are not cached.
type RunCache struct {
	source Source

	mu      sync.Mutex
	entries map[string][]models.VulnerabilityRecord
}

// NewRunCache wraps source with an in-memory, run-scoped cache.
func NewRunCache(source Source) *RunCache {
	return &RunCache{
		source:  source,
		entries: make(map[string][]models.VulnerabilityRecord),
	}
}

// Lookup returns the cached result for keyword or asks the wrapped source.
func (c *RunCache) Lookup(ctx context.Context, keyword string) ([]models.VulnerabilityRecord, error) {
	c.mu.Lock()
	records, ok := c.entries[keyword]
	c.mu.Unlock()
	if ok {
		telemetry.CVELookups.WithLabelValues("run_cache", "hit").Inc()
		return records, nil
	}

	records, err := c.source.Lookup(ctx, keyword)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[keyword] = records
	c.mu.Unlock()

	return records, nil
}

// Len reports how many keywords are cached.
func (c *RunCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
