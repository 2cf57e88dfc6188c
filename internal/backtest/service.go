// Package backtest runs configured backtests end to end: it loads bars,
// drives the engine and keeps the run record up to date.
package backtest

import (
	"barsim/internal/config"
	"barsim/internal/engine"
	"barsim/internal/repository"
	"barsim/internal/store"
	"barsim/types"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// RunStore persists run records. A Service without one runs without
// persistence and returns empty run ids.
type RunStore interface {
	CreateRun(ctx context.Context, symbol, strategy string, params engine.Params) (string, error)
	UpdateStatus(ctx context.Context, runID string, next types.RunStatus, cause error) error
	SaveResults(ctx context.Context, runID string, results *engine.Results) error
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgress renders the engine progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(s *Service) { s.progress = w }
}

func WithRunStore(runs RunStore) Option {
	return func(s *Service) { s.runs = runs }
}

type Service struct {
	source   repository.BarSource
	registry *engine.Registry
	runs     RunStore
	logger   *slog.Logger
	progress io.Writer
}

func NewService(source repository.BarSource, registry *engine.Registry, opts ...Option) *Service {
	s := &Service{
		source:   source,
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the backtest described by cfg. Backtest parameters are
// layered over the strategy parameters. The run id is returned even when
// the run fails so the failure can be looked up.
func (s *Service) Run(ctx context.Context, cfg *config.Config) (string, *engine.Results, error) {
	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	req, err := cfg.BarRequest()
	if err != nil {
		return "", nil, err
	}
	portfolio, err := cfg.PortfolioConfig()
	if err != nil {
		return "", nil, err
	}
	params := engine.MergeParams(cfg.Strategy.Parameters, cfg.Backtest.Parameters)

	runID, err := s.create(ctx, req.Symbol, cfg.Strategy.Tag, params)
	if err != nil {
		return "", nil, fmt.Errorf("create run: %w", err)
	}
	logger := s.logger.With(slog.String("run", runID))

	if err := s.updateStatus(ctx, runID, types.StatusRunning, nil); err != nil {
		return runID, nil, err
	}

	raw, err := s.source.LoadBars(ctx, req)
	if err != nil {
		err = fmt.Errorf("load bars: %w", err)
		s.fail(ctx, logger, runID, err)
		return runID, nil, err
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if s.progress != nil {
		opts = append(opts, engine.WithProgress(s.progress))
	}
	if s.runs != nil {
		opts = append(opts, engine.WithStatusRecorder(store.NewRecorder(ctx, s.runs, runID, logger)))
	}
	eng := engine.NewEngine(s.registry, engine.RunConfig{
		Symbol:      req.Symbol,
		StrategyTag: cfg.Strategy.Tag,
		Params:      params,
		Portfolio:   portfolio,
	}, opts...)

	results, err := eng.Run(raw)
	if err != nil {
		// the engine recorder has already marked the run failed
		return runID, nil, err
	}

	if s.runs != nil {
		if err := s.runs.SaveResults(ctx, runID, results); err != nil {
			err = fmt.Errorf("save results: %w", err)
			s.fail(ctx, logger, runID, err)
			return runID, nil, err
		}
	}
	return runID, results, nil
}

func (s *Service) create(ctx context.Context, symbol, tag string, params engine.Params) (string, error) {
	if s.runs == nil {
		return "", nil
	}
	return s.runs.CreateRun(ctx, symbol, tag, params)
}

func (s *Service) updateStatus(ctx context.Context, runID string, status types.RunStatus, cause error) error {
	if s.runs == nil {
		return nil
	}
	return s.runs.UpdateStatus(ctx, runID, status, cause)
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, runID string, cause error) {
	logger.Error("backtest failed", slog.Any("error", cause))
	if err := s.updateStatus(ctx, runID, types.StatusFailed, cause); err != nil {
		logger.Warn("recording run failure", slog.Any("error", err))
	}
}
