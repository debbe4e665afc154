// Package app wires the shared runtime from configuration: pricing engine,
// event bus, state store, calculator registry and exporter. The CLI and
// the HTTP API both run on an App.
package app

import (
	"context"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"buildcost/adapters/fetch"
	"buildcost/core/calculator"
	"buildcost/core/events"
	"buildcost/core/export"
	"buildcost/core/pricing"
	"buildcost/core/state"
	"buildcost/core/state/sqlite"
	"buildcost/data"
	"buildcost/internal/config"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
	"buildcost/trades"
)

// App is one process's runtime
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Bus      *events.Bus
	Engine   *pricing.Engine
	Store    *state.Store
	Registry *trades.Registry
	Exporter *export.Exporter

	fetcher  pricing.Fetcher
	mu       sync.Mutex
	services map[string]*calculator.Service
	closers  []func() error
}

// Option customizes New
type Option func(*App)

// WithFetcher replaces the fetcher derived from configuration
func WithFetcher(f pricing.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithRegistry replaces the built-in calculator registry
func WithRegistry(r *trades.Registry) Option {
	return func(a *App) { a.Registry = r }
}

// New builds the runtime. Pricing is not loaded until Start.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = logging.OrDefault(logger)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Bus:      events.NewBus(logger),
		services: make(map[string]*calculator.Service),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Registry == nil {
		a.Registry = trades.Default()
	}
	if a.fetcher == nil {
		f, err := NewFetcher(cfg.Pricing, logger)
		if err != nil {
			return nil, err
		}
		a.fetcher = f
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.Engine = pricing.NewEngine(a.fetcher, a.Bus, logger)
	a.Exporter = export.NewExporter(a.Bus, logger, export.CSVEncoder{}, export.NewTextEncoder(cfg.Export.Locale))

	for _, calc := range a.Registry.All() {
		a.services[calc.ID()] = calculator.New(calc, calculator.Services{
			Pricing: a.Engine,
			Bus:     a.Bus,
			Store:   a.Store,
			Logger:  logger,
		})
	}
	return a, nil
}

// NewFetcher picks the pricing source: HTTP when a base URL is set, the
// data directory when one is set, the embedded data set otherwise
func NewFetcher(cfg config.PricingConfig, logger *zap.Logger) (pricing.Fetcher, error) {
	switch {
	case cfg.BaseURL != "":
		return fetch.NewHTTPFetcher(cfg.BaseURL, fetch.HTTPOptions{
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, logger), nil
	case cfg.DataDir != "":
		info, err := os.Stat(cfg.DataDir)
		if err != nil || !info.IsDir() {
			return nil, apperrors.Newf(apperrors.TypeConfig, "pricing.data_dir %q is not a directory", cfg.DataDir)
		}
		return fetch.NewFSFetcher(os.DirFS(cfg.DataDir), logger), nil
	default:
		return fetch.NewFSFetcher(data.FS(), logger), nil
	}
}

func (a *App) openStore() (*state.Store, error) {
	path := a.Config.Storage.Path
	if path == "" {
		return state.NewStore(nil, a.Config.Storage.Prefix, a.Logger), nil
	}
	backend, err := sqlite.Open(path, a.Logger)
	if err != nil {
		return nil, apperrors.Storage("open state database", err)
	}
	a.closers = append(a.closers, backend.Close)
	return state.NewStore(backend, a.Config.Storage.Prefix, a.Logger), nil
}

// Start loads pricing for the configured region and restores every
// calculator's persisted state
func (a *App) Start(ctx context.Context) error {
	region := a.Config.Pricing.Region
	if region == "" {
		region = data.DefaultRegion
	}
	if err := a.Engine.Init(ctx, region); err != nil {
		return err
	}

	restored := 0
	for _, svc := range a.Calculators() {
		if svc.Restore(ctx) {
			restored++
		}
	}
	a.Logger.Info("runtime started",
		zap.String("region", a.Engine.Region()),
		zap.Int("calculators", len(a.services)),
		zap.Int("restored", restored))
	return nil
}

// Calculator returns the live instance for id
func (a *App) Calculator(id string) (*calculator.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	svc, ok := a.services[id]
	if !ok {
		return nil, apperrors.NotFound("calculator", id)
	}
	return svc, nil
}

// Calculators returns every live instance ordered by id
func (a *App) Calculators() []*calculator.Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*calculator.Service, 0, len(a.services))
	for _, svc := range a.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Close detaches calculators from the bus and closes the state database
func (a *App) Close() error {
	a.mu.Lock()
	for _, svc := range a.services {
		svc.Close()
	}
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
