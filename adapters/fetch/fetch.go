// Package fetch retrieves pricing documents for the pricing engine from a
// directory tree or an HTTP endpoint. Both lay documents out the same way:
//
//	catalog.json
//	regions/<code>.json
package fetch

import (
	"regexp"

	"buildcost/core/pricing"
	apperrors "buildcost/internal/errors"
)

const (
	// CatalogPath is the base catalog document
	CatalogPath = "catalog.json"

	// RegionsDir holds one factor document per region
	RegionsDir = "regions"
)

var regionPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

var (
	_ pricing.Fetcher = (*FSFetcher)(nil)
	_ pricing.Fetcher = (*HTTPFetcher)(nil)
)

// RegionPath returns the document path for a region code
func RegionPath(region string) (string, error) {
	if !regionPattern.MatchString(region) {
		return "", apperrors.Newf(apperrors.TypeValidation, "invalid region code %q", region)
	}
	return RegionsDir + "/" + region + ".json", nil
}
