package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hakim/secureval/internal/models"
	"go.etcd.io/bbolt"
)

// ErrAssetNotFound is returned when no asset carries the requested name.
var ErrAssetNotFound = errors.New("asset not found")

// AddAsset appends an asset to the inventory. Keys are big-endian sequence
// numbers, so cursor order equals registration order.
func (s *Store) AddAsset(asset *models.Asset) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketAssets))

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(asset)
		if err != nil {
			return err
		}

		return b.Put(sequenceKey(seq), data)
	})
}

// ListAssets returns every registered asset in registration order.
func (s *Store) ListAssets() ([]models.Asset, error) {
	assets := []models.Asset{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketAssets)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var a models.Asset
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			assets = append(assets, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return assets, nil
}

// GetAsset returns the first asset whose name equals name, ignoring case.
func (s *Store) GetAsset(name string) (*models.Asset, error) {
	assets, err := s.ListAssets()
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if strings.EqualFold(assets[i].Name, name) {
			return &assets[i], nil
		}
	}
	return nil, ErrAssetNotFound
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
