// Package inventory registers business assets and keeps them in the order
// they were registered, which is the order asset matching relies on.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/risk"
)

var (
	ErrEmptyName     = errors.New("asset name cannot be empty")
	ErrInvalidRating = errors.New("CIA ratings must be between 1 and 5")
)

// Repository is the persistence the inventory needs.
type Repository interface {
	AddAsset(asset *models.Asset) error
	ListAssets() ([]models.Asset, error)
}

// Input is the data entered for a new asset.
type Input struct {
	Name            string             `json:"name"`
	Type            models.AssetType   `json:"type,omitempty"`
	Description     string             `json:"description,omitempty"`
	Status          models.AssetStatus `json:"status,omitempty"`
	Area            string             `json:"area,omitempty"`
	Processes       string             `json:"processes,omitempty"`
	Owner           string             `json:"owner,omitempty"`
	Confidentiality int                `json:"confidentiality"`
	Integrity       int                `json:"integrity"`
	Availability    int                `json:"availability"`
}

// Validate checks the name and the three 1-5 ratings.
func (in Input) Validate() error {
	var errs []error
	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, ErrEmptyName)
	}
	ratings := []struct {
		label string
		value int
	}{
		{"confidentiality", in.Confidentiality},
		{"integrity", in.Integrity},
		{"availability", in.Availability},
	}
	for _, r := range ratings {
		if r.value < 1 || r.value > 5 {
			errs = append(errs, fmt.Errorf("%s=%d: %w", r.label, r.value, ErrInvalidRating))
		}
	}
	return errors.Join(errs...)
}

// NewAsset builds the immutable asset record for a validated input.
func NewAsset(in Input) models.Asset {
	if in.Type == "" {
		in.Type = models.AssetPrimary
	}
	if in.Status == "" {
		in.Status = models.AssetInUse
	}
	return models.Asset{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(in.Name),
		Type:            in.Type,
		Description:     in.Description,
		Status:          in.Status,
		Area:            in.Area,
		Processes:       in.Processes,
		Owner:           in.Owner,
		Confidentiality: in.Confidentiality,
		Integrity:       in.Integrity,
		Availability:    in.Availability,
		Value:           risk.AssetValue(in.Confidentiality, in.Integrity, in.Availability),
		RegisteredAt:    time.Now().UTC(),
	}
}

// Register validates in and appends the resulting asset to repo.
func Register(repo Repository, in Input) (*models.Asset, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	asset := NewAsset(in)
	if err := repo.AddAsset(&asset); err != nil {
		return nil, fmt.Errorf("saving asset %q: %w", asset.Name, err)
	}
	return &asset, nil
}

// ImportFile registers every entry of a JSON array of inputs, in file order.
// Invalid entries are skipped and reported; the count of imported assets is
// returned alongside the joined validation errors.
func ImportFile(repo Repository, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	var inputs []Input
	if err := json.Unmarshal(data, &inputs); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	imported := 0
	var errs []error
	for i, in := range inputs {
		if _, err := Register(repo, in); err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%q): %w", i, in.Name, err))
			continue
		}
		imported++
	}

	return imported, errors.Join(errs...)
}

// ExportFile writes the full inventory as a JSON array.
func ExportFile(repo Repository, path string) (int, error) {
	assets, err := repo.ListAssets()
	if err != nil {
		return 0, fmt.Errorf("listing assets: %w", err)
	}
	data, err := json.MarshalIndent(assets, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshaling assets: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return len(assets), nil
}
