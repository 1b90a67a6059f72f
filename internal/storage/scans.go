package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/hakim/secureval/internal/models"
	"go.etcd.io/bbolt"
)

// ErrScanNotFound is returned when no scan is stored under an ID.
var ErrScanNotFound = errors.New("scan not found")

// SaveScan stores a scan record and adds it to its target's index.
func (s *Store) SaveScan(meta *models.ScanMeta) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := putScan(tx, meta); err != nil {
			return err
		}

		index := tx.Bucket([]byte(bucketScanIndex))
		targetKey := []byte(meta.Target)

		var scanIDs []string
		if existing := index.Get(targetKey); existing != nil {
			if err := json.Unmarshal(existing, &scanIDs); err != nil {
				return fmt.Errorf("decoding scan index for %s: %w", meta.Target, err)
			}
		}
		if slices.Contains(scanIDs, meta.ID) {
			return nil
		}

		indexData, err := json.Marshal(append(scanIDs, meta.ID))
		if err != nil {
			return err
		}
		return index.Put(targetKey, indexData)
	})
}

// GetScan returns the scan stored under id, or ErrScanNotFound.
func (s *Store) GetScan(id string) (*models.ScanMeta, error) {
	var meta *models.ScanMeta
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		meta, err = getScan(tx, id)
		return err
	})
	return meta, err
}

// ListScans returns every scan of target, newest first.
func (s *Store) ListScans(target string) ([]*models.ScanMeta, error) {
	var scans []*models.ScanMeta

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketScanIndex)).Get([]byte(target))
		if data == nil {
			return nil
		}

		var scanIDs []string
		if err := json.Unmarshal(data, &scanIDs); err != nil {
			return fmt.Errorf("decoding scan index for %s: %w", target, err)
		}

		for _, id := range scanIDs {
			meta, err := getScan(tx, id)
			if errors.Is(err, ErrScanNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			scans = append(scans, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scans, func(i, j int) bool {
		return scans[i].StartedAt.After(scans[j].StartedAt)
	})
	return scans, nil
}

// UpdateScanStatus sets the status of a scan. Moving to complete or failed
// stamps CompletedAt once. Unknown IDs are ignored.
func (s *Store) UpdateScanStatus(id string, status models.ScanStatus) error {
	return s.updateScan(id, func(meta *models.ScanMeta) {
		meta.Status = status
		if (status == models.StatusComplete || status == models.StatusFailed) && meta.CompletedAt == nil {
			now := time.Now()
			meta.CompletedAt = &now
		}
	})
}

// RecordToolVersions merges the versions of the tools a scan ran with into
// its record. Unknown IDs are ignored.
func (s *Store) RecordToolVersions(id string, versions map[string]string) error {
	return s.updateScan(id, func(meta *models.ScanMeta) {
		if meta.ToolVersions == nil {
			meta.ToolVersions = make(map[string]string, len(versions))
		}
		maps.Copy(meta.ToolVersions, versions)
	})
}

func (s *Store) updateScan(id string, fn func(meta *models.ScanMeta)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := getScan(tx, id)
		if errors.Is(err, ErrScanNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(meta)
		return putScan(tx, meta)
	})
}

func getScan(tx *bbolt.Tx, id string) (*models.ScanMeta, error) {
	data := tx.Bucket([]byte(bucketScans)).Get([]byte(id))
	if data == nil {
		return nil, ErrScanNotFound
	}
	meta := &models.ScanMeta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("decoding scan %s: %w", id, err)
	}
	return meta, nil
}

func putScan(tx *bbolt.Tx, meta *models.ScanMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(bucketScans)).Put([]byte(meta.ID), data)
}
