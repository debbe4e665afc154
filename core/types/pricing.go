// Package types - Pricing data model
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// GeneralFactorKey is the factor-set key holding the fallback multiplier
const GeneralFactorKey = "general"

// GenericPriceKey is the price-entry field used when no unit matches
const GenericPriceKey = "price"

// PriceEntry is one catalog price. The document form is either a bare
// number, a map of unit name to number, or an object with a "price" field.
// Non-numeric fields (descriptions, unit labels) are ignored.
type PriceEntry struct {
	flat   *decimal.Decimal
	fields map[string]decimal.Decimal
}

// FlatPrice creates an entry from a bare number
func FlatPrice(price decimal.Decimal) PriceEntry {
	return PriceEntry{flat: &price}
}

// UnitPrices creates an entry from a unit -> price map
func UnitPrices(prices map[string]decimal.Decimal) PriceEntry {
	fields := make(map[string]decimal.Decimal, len(prices))
	for k, v := range prices {
		fields[k] = v
	}
	return PriceEntry{fields: fields}
}

// Resolve applies the lookup order: bare number, exact unit, generic price
func (e PriceEntry) Resolve(unit string) (decimal.Decimal, bool) {
	if e.flat != nil {
		return *e.flat, true
	}
	if p, ok := e.fields[unit]; ok && unit != "" {
		return p, true
	}
	if p, ok := e.fields[GenericPriceKey]; ok {
		return p, true
	}
	return decimal.Zero, false
}

// Units returns the unit names carried by the entry, sorted
func (e PriceEntry) Units() []string {
	units := make([]string, 0, len(e.fields))
	for k := range e.fields {
		units = append(units, k)
	}
	sort.Strings(units)
	return units
}

// UnmarshalJSON implements json.Unmarshaler
func (e *PriceEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var d decimal.Decimal
		if err := d.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("price must be a number or object: %w", err)
		}
		e.flat = &d
		e.fields = nil
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.flat = nil
	e.fields = make(map[string]decimal.Decimal, len(raw))
	for key, value := range raw {
		if d, ok := numeric(value); ok {
			e.fields[key] = d
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (e PriceEntry) MarshalJSON() ([]byte, error) {
	if e.flat != nil {
		return []byte(e.flat.String()), nil
	}
	out := make(map[string]json.RawMessage, len(e.fields))
	for k, v := range e.fields {
		out[k] = json.RawMessage(v.String())
	}
	return json.Marshal(out)
}

// PriceCatalog maps category -> item -> price entry. Immutable after load.
type PriceCatalog map[string]map[string]PriceEntry

// Lookup finds the entry for category/item
func (c PriceCatalog) Lookup(category, item string) (PriceEntry, bool) {
	items, ok := c[category]
	if !ok {
		return PriceEntry{}, false
	}
	entry, ok := items[item]
	return entry, ok
}

// Categories returns the sorted category names
func (c PriceCatalog) Categories() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FactorSource names which level of the factor set produced a multiplier
type FactorSource string

const (
	FactorItem     FactorSource = "item"
	FactorCategory FactorSource = "category"
	FactorGeneral  FactorSource = "general"
	FactorDefault  FactorSource = "default"
)

// CategoryFactor is either a scalar multiplier or a per-item table
type CategoryFactor struct {
	Scalar *decimal.Decimal
	Items  map[string]decimal.Decimal
}

// RegionalFactorSet is the multiplier table for one region
type RegionalFactorSet struct {
	Region     string
	General    *decimal.Decimal
	Categories map[string]CategoryFactor
}

// Factor resolves the multiplier for category/item: item level, then
// category scalar, then general, then 1.
func (f *RegionalFactorSet) Factor(category, item string) (decimal.Decimal, FactorSource) {
	if f == nil {
		return decimal.NewFromInt(1), FactorDefault
	}
	if cf, ok := f.Categories[category]; ok {
		if v, ok := cf.Items[item]; ok {
			return v, FactorItem
		}
		if cf.Scalar != nil {
			return *cf.Scalar, FactorCategory
		}
	}
	if f.General != nil {
		return *f.General, FactorGeneral
	}
	return decimal.NewFromInt(1), FactorDefault
}

// UnmarshalJSON implements json.Unmarshaler
func (f *RegionalFactorSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.General = nil
	f.Categories = make(map[string]CategoryFactor, len(raw))
	for key, value := range raw {
		if d, ok := numeric(value); ok {
			if key == GeneralFactorKey {
				f.General = &d
				continue
			}
			f.Categories[key] = CategoryFactor{Scalar: &d}
			continue
		}
		value = bytes.TrimSpace(value)
		if len(value) == 0 || value[0] != '{' {
			// metadata such as "region" or "updated"
			continue
		}
		var items map[string]json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return fmt.Errorf("factor category %q: %w", key, err)
		}
		cf := CategoryFactor{Items: make(map[string]decimal.Decimal, len(items))}
		for item, v := range items {
			d, ok := numeric(v)
			if !ok {
				return fmt.Errorf("factor %s.%s is not a number", key, item)
			}
			cf.Items[item] = d
		}
		f.Categories[key] = cf
	}
	return nil
}

// ResolvedPrice is an adjusted unit price. Never persisted.
type ResolvedPrice struct {
	UnitPrice      decimal.Decimal `json:"unit_price"`
	BasePrice      decimal.Decimal `json:"base_price"`
	RegionalFactor decimal.Decimal `json:"regional_factor"`
	FactorSource   FactorSource    `json:"factor_source"`
	Region         string          `json:"region"`
}

// MaterialCost is a priced quantity with its base/adjustment split
type MaterialCost struct {
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       decimal.Decimal `json:"quantity"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	BasePrice      decimal.Decimal `json:"base_price"`
	RegionalFactor decimal.Decimal `json:"regional_factor"`
	Region         string          `json:"region"`
	Breakdown      CostSplit       `json:"breakdown"`
}

// CostSplit divides a total into base cost and regional adjustment
type CostSplit struct {
	Base       decimal.Decimal `json:"base"`
	Adjustment decimal.Decimal `json:"adjustment"`
}

func numeric(raw json.RawMessage) (decimal.Decimal, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '{' || raw[0] == '[' || raw[0] == '"' || raw[0] == 'n' || raw[0] == 't' || raw[0] == 'f' {
		return decimal.Zero, false
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, false
	}
	return d, true
}
