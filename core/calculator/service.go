// Package calculator binds a pipeline definition to the shared runtime:
// pricing, event bus and state store.
package calculator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"buildcost/core/events"
	"buildcost/core/pipeline"
	"buildcost/core/pricing"
	"buildcost/core/state"
	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

// Services is the explicit context every calculator instance shares
type Services struct {
	Pricing pricing.Resolver
	Bus     *events.Bus
	Store   *state.Store
	Logger  *zap.Logger

	// Clock stamps results; defaults to time.Now
	Clock func() time.Time
}

// Outcome is the result of a calculation run
type Outcome struct {
	Result *types.CalculationResult

	// Persisted is false when the result could not be written to the store.
	// The calculation itself still succeeded.
	Persisted bool
}

// Service is one live calculator instance
type Service struct {
	calc     pipeline.Calculator
	services Services
	pipeline *pipeline.Pipeline
	logger   *zap.Logger

	mu     sync.Mutex
	form   types.Inputs
	inputs types.Inputs
	last   *types.CalculationResult

	unsubscribe func()
}

// New creates a calculator instance and subscribes it to pricing updates
func New(calc pipeline.Calculator, services Services) *Service {
	if services.Bus == nil {
		services.Bus = events.NewBus(services.Logger)
	}
	if services.Store == nil {
		services.Store = state.NewMemoryStore(services.Logger)
	}
	logger := logging.Component(services.Logger, "calculator", zap.String("calculator", calc.ID()))

	var opts []pipeline.Option
	if services.Clock != nil {
		opts = append(opts, pipeline.WithClock(services.Clock))
	}

	s := &Service{
		calc:     calc,
		services: services,
		pipeline: pipeline.New(services.Pricing, services.Logger, opts...),
		logger:   logger,
		form:     types.Inputs{},
	}
	s.unsubscribe = services.Bus.OnFunc(events.PricingUpdated, s.onPricingUpdated)
	s.emit(events.CalculatorLoaded, events.CalculatorPayload{CalculatorID: calc.ID()})
	return s
}

// ID returns the calculator slug
func (s *Service) ID() string { return s.calc.ID() }

// Calculator returns the underlying definition
func (s *Service) Calculator() pipeline.Calculator { return s.calc }

// Close stops listening for pricing updates
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// CanCompute reports whether pricing is loaded. Calculation is disabled
// until it is.
func (s *Service) CanCompute() bool {
	return s.services.Pricing != nil && s.services.Pricing.Ready()
}

// Form returns a copy of the current form values
func (s *Service) Form() types.Inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Clone()
}

// Last returns the most recent result, or nil
func (s *Service) Last() *types.CalculationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// UpdateField sets one form value and validates it
func (s *Service) UpdateField(name string, value any) error {
	s.mu.Lock()
	s.form[name] = value
	form := s.form.Clone()
	s.mu.Unlock()

	s.emit(events.FormChanged, events.FormPayload{CalculatorID: s.ID(), Field: name, Value: value})

	var fieldErr error
	if err := s.calc.Validate(form); err != nil {
		for _, f := range apperrors.FieldsOf(err) {
			if f.Field == name {
				fieldErr = apperrors.Newf(apperrors.TypeValidation, "%s %s", f.Field, f.Message)
				break
			}
		}
	}
	s.emit(events.FormValidated, events.FormPayload{
		CalculatorID: s.ID(),
		Field:        name,
		Value:        value,
		Valid:        fieldErr == nil,
		Err:          fieldErr,
	})
	return fieldErr
}

// Validate checks the whole form
func (s *Service) Validate() error {
	err := s.calc.Validate(s.Form())
	s.emit(events.FormValidated, events.FormPayload{CalculatorID: s.ID(), Valid: err == nil, Err: err})
	return err
}

// Calculate runs the pipeline for raw, or for the current form when raw is
// nil, and persists the result.
func (s *Service) Calculate(ctx context.Context, raw types.Inputs) (Outcome, error) {
	if raw == nil {
		raw = s.Form()
	} else {
		s.mu.Lock()
		s.form = raw.Clone()
		s.mu.Unlock()
	}

	s.emit(events.CalculatorCalculatedStarted, events.CalculatorPayload{CalculatorID: s.ID()})

	if !s.CanCompute() {
		err := apperrors.New(apperrors.TypeNotReady, "pricing data not loaded; calculation disabled")
		return Outcome{}, s.failed(err)
	}

	result, err := s.pipeline.Run(ctx, s.calc, raw)
	if err != nil {
		return Outcome{}, s.failed(err)
	}

	outcome := s.commit(ctx, result)
	s.emit(events.CalculatorCalculatedCompleted, events.CalculatorPayload{CalculatorID: s.ID(), Result: result})
	s.emit(events.ResultsUpdated, events.CalculatorPayload{CalculatorID: s.ID(), Result: result})
	return outcome, nil
}

func (s *Service) failed(err error) error {
	s.logger.Debug("calculation failed", zap.Error(err))
	s.emit(events.CalculatorCalculatedError, events.CalculatorPayload{CalculatorID: s.ID(), Err: err})
	return err
}

func (s *Service) commit(ctx context.Context, result *types.CalculationResult) Outcome {
	s.mu.Lock()
	s.inputs = result.Inputs.Clone()
	s.last = result
	s.mu.Unlock()

	persisted := s.services.Store.SaveCalculator(ctx, types.PersistedCalculatorState{
		CalculatorID: s.ID(),
		Inputs:       result.Inputs,
		LastResult:   result,
	})
	if !persisted {
		s.logger.Warn("result not persisted; continuing with in-memory state")
	}
	return Outcome{Result: result, Persisted: persisted}
}

// onPricingUpdated re-runs the last successful inputs against the new
// factor set so displayed results never mix regions
func (s *Service) onPricingUpdated(ev events.Event) {
	s.mu.Lock()
	inputs := s.inputs
	s.mu.Unlock()
	if inputs == nil {
		return
	}

	region := ""
	if p, ok := ev.Payload.(events.PricingPayload); ok {
		region = p.Region
	}

	ctx := context.Background()
	result, err := s.pipeline.Run(ctx, s.calc, inputs)
	if err != nil {
		s.logger.Warn("recompute after pricing update failed", zap.String("region", region), zap.Error(err))
		s.emit(events.CalculatorCalculatedError, events.CalculatorPayload{CalculatorID: s.ID(), Err: err})
		return
	}

	s.commit(ctx, result)
	s.logger.Debug("recomputed after pricing update", zap.String("region", region))
	s.emit(events.ResultsUpdated, events.CalculatorPayload{CalculatorID: s.ID(), Result: result})
}

// Restore loads persisted inputs and the last result. It returns false
// when nothing was saved.
func (s *Service) Restore(ctx context.Context) bool {
	st, ok := s.services.Store.LoadCalculator(ctx, s.ID())
	if !ok {
		return false
	}

	s.mu.Lock()
	s.form = st.Inputs.Clone()
	if s.form == nil {
		s.form = types.Inputs{}
	}
	s.inputs = st.Inputs.Clone()
	s.last = st.LastResult
	s.mu.Unlock()

	if st.LastResult != nil {
		s.emit(events.ResultsUpdated, events.CalculatorPayload{CalculatorID: s.ID(), Result: st.LastResult})
	}
	return true
}

// Reset clears the form, the last result and the persisted state
func (s *Service) Reset(ctx context.Context) bool {
	s.mu.Lock()
	s.form = types.Inputs{}
	s.inputs = nil
	s.last = nil
	s.mu.Unlock()

	return s.services.Store.Clear(ctx, s.ID())
}

func (s *Service) emit(name events.Name, payload any) {
	s.services.Bus.Emit(name, payload)
}
