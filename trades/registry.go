// Package trades registers the built-in calculators. Each trade is a
// pipeline definition; adding one does not touch the core.
package trades

import (
	"fmt"
	"sort"
	"sync"

	"buildcost/core/pipeline"
	apperrors "buildcost/internal/errors"
	"buildcost/trades/concrete"
	"buildcost/trades/earthwork"
	"buildcost/trades/framing"
	"buildcost/trades/roofing"
)

// Registry manages calculator registration
type Registry struct {
	mu          sync.RWMutex
	calculators map[string]pipeline.Calculator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{calculators: make(map[string]pipeline.Calculator)}
}

// Default returns a registry holding every built-in calculator
func Default() *Registry {
	r := NewRegistry()
	for _, c := range []pipeline.Calculator{
		concrete.Calculator(),
		earthwork.Calculator(),
		roofing.Calculator(),
		framing.Calculator(),
	} {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a calculator. IDs must be unique.
func (r *Registry) Register(c pipeline.Calculator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID() == "" {
		return fmt.Errorf("calculator has no id")
	}
	if _, exists := r.calculators[c.ID()]; exists {
		return fmt.Errorf("calculator already registered: %s", c.ID())
	}
	r.calculators[c.ID()] = c
	return nil
}

// Get returns a calculator by id or a NOT_FOUND error
func (r *Registry) Get(id string) (pipeline.Calculator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.calculators[id]
	if !ok {
		return nil, apperrors.NotFound("calculator", id)
	}
	return c, nil
}

// IDs returns the registered ids, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.calculators))
	for id := range r.calculators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns the registered calculators ordered by id
func (r *Registry) All() []pipeline.Calculator {
	ids := r.IDs()
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]pipeline.Calculator, 0, len(ids))
	for _, id := range ids {
		all = append(all, r.calculators[id])
	}
	return all
}
