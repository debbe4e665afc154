package pricing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"buildcost/core/events"
	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

// Engine loads the base catalog once per process, keeps one active
// regional factor set, and resolves adjusted prices.
//
// Lookups for missing entries are fail-soft: GetPrice and GetBasePrice log
// a warning and return zero. Resolve reports the gap as an error instead.
type Engine struct {
	fetcher Fetcher
	bus     *events.Bus
	logger  *zap.Logger
	now     func() time.Time

	flight singleflight.Group

	catalogMu   sync.Mutex
	catalog     types.PriceCatalog
	catalogHash string

	current atomic.Pointer[state]

	// seq orders factor-set requests; commits older than committed are stale
	seq       atomic.Uint64
	commitMu  sync.Mutex
	committed uint64
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the commit timestamp source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. bus may be nil.
func NewEngine(fetcher Fetcher, bus *events.Bus, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		fetcher: fetcher,
		bus:     bus,
		logger:  logging.Component(logger, "pricing"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init loads the base catalog (memoized, with concurrent callers sharing
// one fetch) and the factor set for region. On failure the engine keeps
// its previous state, a data-error event is published and the error is
// returned.
func (e *Engine) Init(ctx context.Context, region string) error {
	seq := e.seq.Add(1)

	catalog, catalogHash, err := e.loadCatalog(ctx)
	if err != nil {
		return e.fail("init", region, err)
	}

	factors, factorsHash, err := e.loadFactors(ctx, region)
	if err != nil {
		return e.fail("init", region, err)
	}

	if err := e.commit(seq, catalog, catalogHash, factors, factorsHash); err != nil {
		return err
	}

	e.logger.Info("pricing ready", zap.String("region", region), zap.Int("categories", len(catalog)))
	e.emit(events.DataLoaded, events.PricingPayload{Region: region})
	e.emit(events.PricingUpdated, events.PricingPayload{Region: region})
	return nil
}

// SwitchRegion replaces the active factor set without reloading the
// catalog. On failure the previous factor set stays active.
func (e *Engine) SwitchRegion(ctx context.Context, region string) error {
	seq := e.seq.Add(1)

	st := e.current.Load()
	if st == nil {
		err := apperrors.New(apperrors.TypeNotReady, "pricing has not been initialized")
		return e.fail("switch-region", region, err)
	}

	factors, factorsHash, err := e.loadFactors(ctx, region)
	if err != nil {
		return e.fail("switch-region", region, err)
	}

	if err := e.commit(seq, st.catalog, st.snapshot.CatalogHash, factors, factorsHash); err != nil {
		return err
	}

	e.logger.Info("region switched", zap.String("region", region))
	e.emit(events.PricingUpdated, events.PricingPayload{Region: region})
	return nil
}

func (e *Engine) loadCatalog(ctx context.Context) (types.PriceCatalog, string, error) {
	e.catalogMu.Lock()
	if e.catalog != nil {
		catalog, hash := e.catalog, e.catalogHash
		e.catalogMu.Unlock()
		return catalog, hash, nil
	}
	e.catalogMu.Unlock()

	v, err, shared := e.flight.Do("catalog", func() (interface{}, error) {
		e.catalogMu.Lock()
		memo := e.catalog
		e.catalogMu.Unlock()
		if memo != nil {
			return memo, nil
		}

		data, err := e.fetcher.FetchCatalog(context.WithoutCancel(ctx))
		if err != nil {
			return nil, apperrors.DataLoad("fetch catalog", err)
		}
		catalog, err := ParseCatalog(data)
		if err != nil {
			return nil, apperrors.DataLoad("parse catalog", err)
		}
		hash := contentHash(data)

		e.catalogMu.Lock()
		e.catalog, e.catalogHash = catalog, hash
		e.catalogMu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return nil, "", err
	}
	if shared {
		e.logger.Debug("joined in-flight catalog load")
	}

	e.catalogMu.Lock()
	hash := e.catalogHash
	e.catalogMu.Unlock()
	return v.(types.PriceCatalog), hash, nil
}

type loadedFactors struct {
	set  *types.RegionalFactorSet
	hash string
}

func (e *Engine) loadFactors(ctx context.Context, region string) (*types.RegionalFactorSet, string, error) {
	v, err, _ := e.flight.Do("factors:"+region, func() (interface{}, error) {
		data, err := e.fetcher.FetchFactors(context.WithoutCancel(ctx), region)
		if err != nil {
			return nil, apperrors.DataLoad("fetch factors for "+region, err)
		}
		set, err := ParseFactors(region, data)
		if err != nil {
			return nil, apperrors.DataLoad("parse factors for "+region, err)
		}
		return loadedFactors{set: set, hash: contentHash(data)}, nil
	})
	if err != nil {
		return nil, "", err
	}
	lf := v.(loadedFactors)
	return lf.set, lf.hash, nil
}

func (e *Engine) commit(seq uint64, catalog types.PriceCatalog, catalogHash string, factors *types.RegionalFactorSet, factorsHash string) error {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	if seq < e.committed {
		if cur := e.current.Load(); cur != nil && cur.snapshot.Region == factors.Region {
			return nil
		}
		e.logger.Warn("discarding stale factor set", zap.String("region", factors.Region), zap.Uint64("seq", seq), zap.Uint64("committed", e.committed))
		return apperrors.Newf(apperrors.TypeStale, "region %s was superseded by a newer request", factors.Region)
	}

	e.committed = seq
	e.current.Store(&state{
		catalog: catalog,
		factors: factors,
		snapshot: Snapshot{
			Region:      factors.Region,
			CatalogHash: catalogHash,
			FactorsHash: factorsHash,
			CommittedAt: e.now().UTC(),
		},
	})
	return nil
}

func (e *Engine) fail(op, region string, err error) error {
	e.logger.Error("pricing data load failed", zap.String("op", op), zap.String("region", region), zap.Error(err))
	e.emit(events.DataError, events.DataErrorPayload{Operation: op, Region: region, Err: err})
	return err
}

func (e *Engine) emit(name events.Name, payload any) {
	if e.bus != nil {
		e.bus.Emit(name, payload)
	}
}

// Ready reports whether a catalog and factor set are committed
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Region returns the active region, or "" before Init succeeds
func (e *Engine) Region() string {
	if st := e.current.Load(); st != nil {
		return st.snapshot.Region
	}
	return ""
}

// Snapshot identifies the committed catalog and factor set
func (e *Engine) Snapshot() Snapshot {
	if st := e.current.Load(); st != nil {
		return st.snapshot
	}
	return Snapshot{}
}

// Catalog returns the loaded base catalog. Callers must not modify it.
func (e *Engine) Catalog() types.PriceCatalog {
	if st := e.current.Load(); st != nil {
		return st.catalog
	}
	return nil
}

// Resolve returns base price x regional factor, or an error naming the gap
func (e *Engine) Resolve(category, item, unit string) (types.ResolvedPrice, error) {
	st := e.current.Load()
	if st == nil {
		return types.ResolvedPrice{}, apperrors.New(apperrors.TypeNotReady, "pricing data not loaded")
	}
	return resolve(st, category, item, unit)
}

func resolve(st *state, category, item, unit string) (types.ResolvedPrice, error) {
	entry, ok := st.catalog.Lookup(category, item)
	if !ok {
		return types.ResolvedPrice{}, apperrors.Newf(apperrors.TypePricing, "no catalog entry for %s.%s", category, item).
			WithContext("category", category).WithContext("item", item)
	}
	base, ok := entry.Resolve(unit)
	if !ok {
		return types.ResolvedPrice{}, apperrors.Newf(apperrors.TypePricing, "no %q price for %s.%s", unit, category, item).
			WithContext("category", category).WithContext("item", item).WithContext("unit", unit)
	}
	factor, source := st.factors.Factor(category, item)
	return types.ResolvedPrice{
		UnitPrice:      base.Mul(factor),
		BasePrice:      base,
		RegionalFactor: factor,
		FactorSource:   source,
		Region:         st.snapshot.Region,
	}, nil
}

// GetPrice returns the region-adjusted unit price, or zero with a warning
// when pricing is not ready or the entry is missing
func (e *Engine) GetPrice(category, item, unit string) decimal.Decimal {
	price, err := e.Resolve(category, item, unit)
	if err != nil {
		e.warnGap(err, category, item, unit)
		return decimal.Zero
	}
	return price.UnitPrice
}

// GetBasePrice returns the unadjusted catalog price, or zero with a warning
func (e *Engine) GetBasePrice(category, item, unit string) decimal.Decimal {
	st := e.current.Load()
	if st == nil {
		e.warnGap(apperrors.New(apperrors.TypeNotReady, "pricing data not loaded"), category, item, unit)
		return decimal.Zero
	}
	entry, ok := st.catalog.Lookup(category, item)
	if !ok {
		e.warnGap(apperrors.Newf(apperrors.TypePricing, "no catalog entry for %s.%s", category, item), category, item, unit)
		return decimal.Zero
	}
	base, ok := entry.Resolve(unit)
	if !ok {
		e.warnGap(apperrors.Newf(apperrors.TypePricing, "no %q price for %s.%s", unit, category, item), category, item, unit)
		return decimal.Zero
	}
	return base
}

// GetRegionalFactor returns the most specific multiplier for category/item
func (e *Engine) GetRegionalFactor(category, item string) decimal.Decimal {
	var factors *types.RegionalFactorSet
	if st := e.current.Load(); st != nil {
		factors = st.factors
	}
	f, _ := factors.Factor(category, item)
	return f
}

// CalculateMaterialCost prices quantity units of category/item
func (e *Engine) CalculateMaterialCost(category, item string, quantity decimal.Decimal, unit string) types.MaterialCost {
	price, err := e.Resolve(category, item, unit)
	if err != nil {
		e.warnGap(err, category, item, unit)
		price = types.ResolvedPrice{
			UnitPrice:      decimal.Zero,
			BasePrice:      decimal.Zero,
			RegionalFactor: e.GetRegionalFactor(category, item),
			Region:         e.Region(),
		}
	}
	return MaterialCost(price, quantity)
}

// MaterialCost splits quantity x price into base cost and regional adjustment
func MaterialCost(price types.ResolvedPrice, quantity decimal.Decimal) types.MaterialCost {
	return types.MaterialCost{
		UnitPrice:      price.UnitPrice,
		Quantity:       quantity,
		TotalCost:      price.UnitPrice.Mul(quantity),
		BasePrice:      price.BasePrice,
		RegionalFactor: price.RegionalFactor,
		Region:         price.Region,
		Breakdown: types.CostSplit{
			Base:       price.BasePrice.Mul(quantity),
			Adjustment: price.UnitPrice.Sub(price.BasePrice).Mul(quantity),
		},
	}
}

func (e *Engine) warnGap(err error, category, item, unit string) {
	e.logger.Warn("price unresolved, using zero",
		zap.String("category", category),
		zap.String("item", item),
		zap.String("unit", unit),
		zap.Error(err),
	)
}
