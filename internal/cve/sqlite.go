package cve

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/telemetry"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteCache persists lookup results across runs. Entries older than ttl are
// refreshed from the upstream source; when the refresh fails the stale entry
// is served instead.
type SQLiteCache struct {
	db       *sql.DB
	upstream Source
	ttl      time.Duration
	now      func() time.Time
}

// OpenSQLiteCache opens (or creates) the cache database at path. A zero ttl
// keeps entries forever.
func OpenSQLiteCache(path string, upstream Source, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCache{db: db, upstream: upstream, ttl: ttl, now: time.Now}, nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// Lookup serves keyword from the database when fresh, otherwise from upstream.
func (c *SQLiteCache) Lookup(ctx context.Context, keyword string) ([]models.VulnerabilityRecord, error) {
	key := cacheKey(keyword)

	records, fetchedAt, found, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found && !c.expired(fetchedAt) {
		telemetry.CVELookups.WithLabelValues("sqlite", "hit").Inc()
		return records, nil
	}

	fresh, upErr := c.upstream.Lookup(ctx, keyword)
	if upErr != nil {
		if found {
			telemetry.CVELookups.WithLabelValues("sqlite", "stale").Inc()
			return records, nil
		}
		return nil, upErr
	}

	if err := c.Put(ctx, key, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Get returns the stored records for a normalized key.
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]models.VulnerabilityRecord, time.Time, bool, error) {
	var raw string
	var fetched int64

	err := c.db.QueryRowContext(ctx,
		`SELECT records, fetched_at FROM cve_lookups WHERE keyword = ?`, key,
	).Scan(&raw, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("query failed: %w", err)
	}

	var records []models.VulnerabilityRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("decoding cached records for %q: %w", key, err)
	}

	return records, time.Unix(fetched, 0), true, nil
}

// Put stores records under a normalized key, replacing any previous entry.
func (c *SQLiteCache) Put(ctx context.Context, key string, records []models.VulnerabilityRecord) error {
	if records == nil {
		records = []models.VulnerabilityRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding records for %q: %w", key, err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cve_lookups (keyword, records, fetched_at) VALUES (?, ?, ?)`,
		key, string(data), c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	return nil
}

// Purge removes entries older than the ttl and returns how many were deleted.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM cve_lookups WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge failed: %w", err)
	}
	return res.RowsAffected()
}

func (c *SQLiteCache) expired(fetchedAt time.Time) bool {
	return c.ttl > 0 && c.now().Sub(fetchedAt) > c.ttl
}

// cacheKey normalizes keywords; NVD keyword search is case-insensitive.
func cacheKey(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}
