// Package pricing resolves region-adjusted unit prices from a base
// catalog and the active regional factor set.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"buildcost/core/types"
)

// Fetcher retrieves the raw pricing documents. Retry policy, if any,
// belongs to the fetcher.
type Fetcher interface {
	// FetchCatalog returns the base price catalog document
	FetchCatalog(ctx context.Context) ([]byte, error)

	// FetchFactors returns the factor set document for a region
	FetchFactors(ctx context.Context, region string) ([]byte, error)
}

// Resolver is the read side used by the aggregation pipeline
type Resolver interface {
	// Ready reports whether a catalog and factor set are committed
	Ready() bool

	// Region returns the active region code
	Region() string

	// Resolve returns the adjusted unit price or a PRICING_ERROR
	Resolve(category, item, unit string) (types.ResolvedPrice, error)

	// CalculateMaterialCost prices a quantity with its base/adjustment split
	CalculateMaterialCost(category, item string, quantity decimal.Decimal, unit string) types.MaterialCost

	// Snapshot identifies the catalog and factor state prices come from
	Snapshot() Snapshot
}

var _ Resolver = (*Engine)(nil)
