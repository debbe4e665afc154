package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"buildcost/core/events"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

const testCatalog = `{
  "_meta": {"version": "2024-01"},
  "concrete": {
    "ready_mix_4000psi": {"per_cubic_yard": 140, "description": "4000 psi"},
    "fiber_mesh": 12.5
  },
  "lumber": {
    "stud_2x4_8ft": {"price": 4.25, "unit": "each"},
    "plywood_cdx": {"per_sheet": 38, "price": 40}
  },
  "hardware": {
    "anchor_bolt": 1.75
  }
}`

// fakeFetcher serves documents from memory and counts calls
type fakeFetcher struct {
	catalog      string
	factors      map[string]string
	catalogCalls atomic.Int32
	factorCalls  atomic.Int32

	mu    sync.Mutex
	gates map[string]chan struct{}
	ready map[string]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		catalog: testCatalog,
		factors: map[string]string{
			"national":   `{"general": 1.0}`,
			"west_coast": `{"general": 1.2, "concrete": {"ready_mix_4000psi": 1.1}, "lumber": 1.3}`,
			"northeast":  `{"concrete": 1.15}`,
		},
		gates: map[string]chan struct{}{},
		ready: map[string]chan struct{}{},
	}
}

// block makes fetches of key wait until the returned release func is called
func (f *fakeFetcher) block(key string) (started <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	s := make(chan struct{}, 64)
	f.gates[key] = gate
	f.ready[key] = s
	return s, func() { close(gate) }
}

func (f *fakeFetcher) wait(key string) {
	f.mu.Lock()
	gate, s := f.gates[key], f.ready[key]
	f.mu.Unlock()
	if gate != nil {
		s <- struct{}{}
		<-gate
	}
}

func (f *fakeFetcher) FetchCatalog(ctx context.Context) ([]byte, error) {
	f.catalogCalls.Add(1)
	f.wait("catalog")
	if f.catalog == "" {
		return nil, errors.New("connection refused")
	}
	return []byte(f.catalog), nil
}

func (f *fakeFetcher) FetchFactors(ctx context.Context, region string) ([]byte, error) {
	f.factorCalls.Add(1)
	f.wait(region)
	doc, ok := f.factors[region]
	if !ok {
		return nil, fmt.Errorf("404 region %s", region)
	}
	return []byte(doc), nil
}

func newEngine(t *testing.T, f *fakeFetcher) (*Engine, *events.Bus) {
	t.Helper()
	bus := events.NewBus(logging.NewNop())
	return NewEngine(f, bus, logging.NewNop()), bus
}

func mustInit(t *testing.T, e *Engine, region string) {
	t.Helper()
	if err := e.Init(context.Background(), region); err != nil {
		t.Fatalf("init %s: %v", region, err)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGetPriceAppliesRegionalFactor(t *testing.T) {
	e, _ := newEngine(t, newFakeFetcher())
	mustInit(t, e, "west_coast")

	got := e.GetPrice("concrete", "ready_mix_4000psi", "per_cubic_yard")
	if !got.Equal(dec("154")) {
		t.Errorf("expected 154, got %s", got)
	}
}

func TestCalculateMaterialCostSplit(t *testing.T) {
	e, _ := newEngine(t, newFakeFetcher())
	mustInit(t, e, "west_coast")

	cost := e.CalculateMaterialCost("concrete", "ready_mix_4000psi", dec("2.593"), "per_cubic_yard")

	if !cost.UnitPrice.Equal(dec("154")) {
		t.Errorf("unit price: expected 154, got %s", cost.UnitPrice)
	}
	if !cost.TotalCost.Round(2).Equal(dec("399.32")) {
		t.Errorf("total: expected ~399.32, got %s", cost.TotalCost)
	}
	if !cost.Breakdown.Base.Equal(dec("363.02")) {
		t.Errorf("base: expected 363.02, got %s", cost.Breakdown.Base)
	}
	if !cost.Breakdown.Base.Add(cost.Breakdown.Adjustment).Equal(cost.TotalCost) {
		t.Errorf("base %s + adjustment %s != total %s", cost.Breakdown.Base, cost.Breakdown.Adjustment, cost.TotalCost)
	}
	if cost.Region != "west_coast" {
		t.Errorf("expected region west_coast, got %q", cost.Region)
	}
}

func TestRegionalFactorFallbackChain(t *testing.T) {
	tests := []struct {
		name     string
		factors  string
		expected string
	}{
		{
			name:     "item level wins over category and general",
			factors:  `{"general": 1.5, "concrete": {"ready_mix_4000psi": 1.1}}`,
			expected: "1.1",
		},
		{
			name:     "category scalar when item missing",
			factors:  `{"general": 1.5, "concrete": 1.2}`,
			expected: "1.2",
		},
		{
			name:     "category table without the item falls to general",
			factors:  `{"general": 1.5, "concrete": {"fiber_mesh": 2}}`,
			expected: "1.5",
		},
		{
			name:     "general when category missing",
			factors:  `{"general": 1.5}`,
			expected: "1.5",
		},
		{
			name:     "one when nothing matches",
			factors:  `{"lumber": 1.3}`,
			expected: "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			f.factors["r"] = tt.factors
			e, _ := newEngine(t, f)
			mustInit(t, e, "r")

			got := e.GetRegionalFactor("concrete", "ready_mix_4000psi")
			if !got.Equal(dec(tt.expected)) {
				t.Errorf("expected factor %s, got %s", tt.expected, got)
			}
			price := e.GetPrice("concrete", "ready_mix_4000psi", "per_cubic_yard")
			if !price.Equal(dec("140").Mul(dec(tt.expected))) {
				t.Errorf("expected price 140 x %s, got %s", tt.expected, price)
			}
		})
	}
}

func TestBasePriceResolutionOrder(t *testing.T) {
	e, _ := newEngine(t, newFakeFetcher())
	mustInit(t, e, "national")

	tests := []struct {
		name     string
		category string
		item     string
		unit     string
		expected string
	}{
		{"bare number ignores unit", "concrete", "fiber_mesh", "per_bag", "12.5"},
		{"unit key", "concrete", "ready_mix_4000psi", "per_cubic_yard", "140"},
		{"unit key wins over price field", "lumber", "plywood_cdx", "per_sheet", "38"},
		{"price field fallback", "lumber", "stud_2x4_8ft", "each", "4.25"},
		{"no unit and no price field", "concrete", "ready_mix_4000psi", "per_ton", "0"},
		{"missing item", "concrete", "ready_mix_5000psi", "per_cubic_yard", "0"},
		{"missing category", "steel", "rebar_4", "per_lf", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.GetBasePrice(tt.category, tt.item, tt.unit)
			if !got.Equal(dec(tt.expected)) {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestResolveReportsGaps(t *testing.T) {
	e, _ := newEngine(t, newFakeFetcher())

	if _, err := e.Resolve("concrete", "ready_mix_4000psi", "per_cubic_yard"); !apperrors.IsType(err, apperrors.TypeNotReady) {
		t.Errorf("expected NOT_READY before init, got %v", err)
	}
	if got := e.GetPrice("concrete", "ready_mix_4000psi", "per_cubic_yard"); !got.IsZero() {
		t.Errorf("expected zero price before init, got %s", got)
	}

	mustInit(t, e, "national")
	if _, err := e.Resolve("concrete", "nope", "per_cubic_yard"); !apperrors.IsType(err, apperrors.TypePricing) {
		t.Errorf("expected PRICING_ERROR for missing item, got %v", err)
	}
}

func TestMaterialCostIsLinear(t *testing.T) {
	e, _ := newEngine(t, newFakeFetcher())
	mustInit(t, e, "west_coast")

	quantities := [][2]string{
		{"0", "0"},
		{"1", "2"},
		{"2.593", "0.407"},
		{"0.333333", "17.25"},
		{"1000", "0.001"},
	}
	for _, q := range quantities {
		q1, q2 := dec(q[0]), dec(q[1])
		sum := e.CalculateMaterialCost("lumber", "stud_2x4_8ft", q1.Add(q2), "each").TotalCost
		parts := e.CalculateMaterialCost("lumber", "stud_2x4_8ft", q1, "each").TotalCost.
			Add(e.CalculateMaterialCost("lumber", "stud_2x4_8ft", q2, "each").TotalCost)
		if !sum.Equal(parts) {
			t.Errorf("cost(%s+%s)=%s but cost(%s)+cost(%s)=%s", q[0], q[1], sum, q[0], q[1], parts)
		}
	}
}

func TestSwitchRegionChangesPriceNotBasePrice(t *testing.T) {
	f := newFakeFetcher()
	e, _ := newEngine(t, f)
	mustInit(t, e, "national")

	type key struct{ category, item, unit string }
	keys := []key{
		{"concrete", "ready_mix_4000psi", "per_cubic_yard"},
		{"concrete", "fiber_mesh", ""},
		{"lumber", "stud_2x4_8ft", "each"},
		{"lumber", "plywood_cdx", "per_sheet"},
		{"hardware", "anchor_bolt", ""},
	}
	base := map[key]decimal.Decimal{}
	for _, k := range keys {
		base[k] = e.GetBasePrice(k.category, k.item, k.unit)
	}
	before := e.GetPrice("concrete", "ready_mix_4000psi", "per_cubic_yard")

	if err := e.SwitchRegion(context.Background(), "west_coast"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	after := e.GetPrice("concrete", "ready_mix_4000psi", "per_cubic_yard")
	if before.Equal(after) {
		t.Errorf("expected price to change after region switch, stayed %s", after)
	}
	for _, k := range keys {
		if got := e.GetBasePrice(k.category, k.item, k.unit); !got.Equal(base[k]) {
			t.Errorf("base price of %v changed from %s to %s", k, base[k], got)
		}
	}
	if n := f.catalogCalls.Load(); n != 1 {
		t.Errorf("expected catalog fetched once, got %d", n)
	}
}

func TestConcurrentInitSharesOneCatalogLoad(t *testing.T) {
	f := newFakeFetcher()
	e, _ := newEngine(t, f)
	started, release := f.block("catalog")

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- e.Init(context.Background(), "national")
		}()
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("init failed: %v", err)
		}
	}
	if n := f.catalogCalls.Load(); n != 1 {
		t.Errorf("expected a single catalog fetch, got %d", n)
	}
	if !e.Ready() {
		t.Error("expected engine to be ready")
	}
}

func TestInitFailurePublishesDataError(t *testing.T) {
	f := newFakeFetcher()
	f.catalog = ""
	e, bus := newEngine(t, f)

	var payload events.DataErrorPayload
	updated := 0
	bus.OnFunc(events.DataError, func(ev events.Event) { payload = ev.Payload.(events.DataErrorPayload) })
	bus.OnFunc(events.PricingUpdated, func(events.Event) { updated++ })

	err := e.Init(context.Background(), "national")
	if !apperrors.IsType(err, apperrors.TypeDataLoad) {
		t.Fatalf("expected DATA_LOAD_ERROR, got %v", err)
	}
	if e.Ready() {
		t.Error("engine must stay not-ready after a failed init")
	}
	if payload.Operation != "init" || payload.Err == nil {
		t.Errorf("unexpected data-error payload %+v", payload)
	}
	if updated != 0 {
		t.Error("pricing-updated must not be published on failure")
	}

	f.catalog = testCatalog
	mustInit(t, e, "national")
	if n := f.catalogCalls.Load(); n != 2 {
		t.Errorf("expected failed catalog load to be retried, got %d fetches", n)
	}
}

func TestInitPublishesPricingUpdated(t *testing.T) {
	e, bus := newEngine(t, newFakeFetcher())

	var regions []string
	bus.OnFunc(events.PricingUpdated, func(ev events.Event) {
		regions = append(regions, ev.Payload.(events.PricingPayload).Region)
	})

	mustInit(t, e, "national")
	if err := e.SwitchRegion(context.Background(), "northeast"); err != nil {
		t.Fatal(err)
	}

	if len(regions) != 2 || regions[0] != "national" || regions[1] != "northeast" {
		t.Errorf("unexpected pricing-updated sequence %v", regions)
	}
}

func TestSwitchRegionFailureKeepsPreviousFactors(t *testing.T) {
	e, _ := newEngine(t, newFakeFetcher())
	mustInit(t, e, "west_coast")
	before := e.Snapshot()

	err := e.SwitchRegion(context.Background(), "atlantis")
	if !apperrors.IsType(err, apperrors.TypeDataLoad) {
		t.Fatalf("expected DATA_LOAD_ERROR, got %v", err)
	}
	if e.Region() != "west_coast" {
		t.Errorf("expected west_coast to stay active, got %q", e.Region())
	}
	if e.Snapshot() != before {
		t.Error("snapshot changed after failed switch")
	}
	if got := e.GetPrice("concrete", "ready_mix_4000psi", "per_cubic_yard"); !got.Equal(dec("154")) {
		t.Errorf("expected west_coast price 154, got %s", got)
	}
}

func TestSwitchRegionBeforeInitFails(t *testing.T) {
	e, _ := newEngine(t, newFakeFetcher())
	if err := e.SwitchRegion(context.Background(), "national"); !apperrors.IsType(err, apperrors.TypeNotReady) {
		t.Errorf("expected NOT_READY, got %v", err)
	}
}

func TestStaleRegionResponseIsDiscarded(t *testing.T) {
	f := newFakeFetcher()
	e, _ := newEngine(t, f)
	mustInit(t, e, "national")

	started, release := f.block("northeast")
	slow := make(chan error, 1)
	go func() { slow <- e.SwitchRegion(context.Background(), "northeast") }()
	<-started

	if err := e.SwitchRegion(context.Background(), "west_coast"); err != nil {
		t.Fatalf("fast switch: %v", err)
	}
	release()

	if err := <-slow; !apperrors.IsType(err, apperrors.TypeStale) {
		t.Errorf("expected STALE_RESPONSE for superseded switch, got %v", err)
	}
	if e.Region() != "west_coast" {
		t.Errorf("expected newest request to win, active region %q", e.Region())
	}
}

func TestParseCatalogRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{{`},
		{"no categories", `{"_meta": {"v": 1}}`},
		{"array price", `{"concrete": {"mix": [1, 2]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.doc)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
