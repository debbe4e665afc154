package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"buildcost/core/types"
)

// Snapshot identifies the committed pricing state. Two results computed
// with equal snapshots were priced from identical data.
type Snapshot struct {
	Region      string    `json:"region"`
	CatalogHash string    `json:"catalog_hash"`
	FactorsHash string    `json:"factors_hash"`
	CommittedAt time.Time `json:"committed_at"`
}

// state is replaced as a whole on every commit; readers never see a
// half-updated value
type state struct {
	catalog  types.PriceCatalog
	factors  *types.RegionalFactorSet
	snapshot Snapshot
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// ParseCatalog decodes a base catalog document. Top-level keys starting
// with "_" or holding non-object values are treated as metadata.
func ParseCatalog(data []byte) (types.PriceCatalog, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog is not a JSON object: %w", err)
	}

	catalog := make(types.PriceCatalog, len(raw))
	for category, body := range raw {
		if strings.HasPrefix(category, "_") || !isObject(body) {
			continue
		}
		var items map[string]types.PriceEntry
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("catalog category %q: %w", category, err)
		}
		catalog[category] = items
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}
	return catalog, nil
}

// ParseFactors decodes a regional factor set document
func ParseFactors(region string, data []byte) (*types.RegionalFactorSet, error) {
	var set types.RegionalFactorSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("factor set %s: %w", region, err)
	}
	set.Region = region
	return &set, nil
}

func isObject(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
