package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"buildcost/core/pricing"
	"buildcost/core/types"
	"buildcost/internal/logging"
)

// Pipeline runs calculators against one pricing resolver
type Pipeline struct {
	prices pricing.Resolver
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithClock overrides the result timestamp source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline
func New(prices pricing.Resolver, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		prices: prices,
		logger: logging.Component(logger, "pipeline"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prices returns the resolver the pipeline prices against
func (p *Pipeline) Prices() pricing.Resolver {
	return p.prices
}

// Run evaluates calc for raw and stamps the result. Validation failures
// return before any price is resolved.
func (p *Pipeline) Run(ctx context.Context, calc Calculator, raw types.Inputs) (*types.CalculationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := calc.Evaluate(p.prices, raw)
	if err != nil {
		p.logger.Debug("calculation rejected", zap.String("calculator", calc.ID()), zap.Error(err))
		return nil, err
	}
	result.Timestamp = p.now().UTC()

	for _, w := range result.Warnings {
		p.logger.Warn("calculation warning", zap.String("calculator", calc.ID()), zap.String("warning", w))
	}
	p.logger.Debug("calculation complete",
		zap.String("calculator", calc.ID()),
		zap.String("region", result.Region),
		zap.String("total", result.Costs.Total.StringFixed(2)),
	)
	return result, nil
}
