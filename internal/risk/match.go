package risk

import (
	"strings"

	"github.com/hakim/secureval/internal/models"
)

// DefaultAssetValue is used for endpoints that no registered asset matches.
const DefaultAssetValue = 2.0

// MatchAsset returns the first asset, in registration order, whose name is a
// case-insensitive substring of endpoint. A shorter name registered earlier
// wins over a longer, more specific one registered later.
func MatchAsset(assets []models.Asset, endpoint string) (models.Asset, bool) {
	target := strings.ToLower(endpoint)
	for _, a := range assets {
		if strings.Contains(target, strings.ToLower(a.Name)) {
			return a, true
		}
	}
	return models.Asset{}, false
}

// AssetValueFor returns the value of the asset matching endpoint, or
// DefaultAssetValue when none matches.
func AssetValueFor(assets []models.Asset, endpoint string) float64 {
	if a, ok := MatchAsset(assets, endpoint); ok {
		return a.Value
	}
	return DefaultAssetValue
}
