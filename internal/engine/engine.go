package engine

import (
	"barsim/internal/data"
	"barsim/types"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrAlreadyRun       = errors.New("engine has already run")
	ErrStrategyFailed   = errors.New("strategy failed")
	ErrMissingPortfolio = errors.New("portfolio config is required")
)

// RunConfig describes one simulation. Params are merged over the strategy
// defaults.
type RunConfig struct {
	Symbol      string
	StrategyTag string
	Params      Params
	Portfolio   *PortfolioConfig
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress renders a progress bar of the bar loop to w.
func WithProgress(w io.Writer) Option {
	return func(e *Engine) { e.progress = w }
}

func WithProcessor(p *data.Processor) Option {
	return func(e *Engine) {
		if p != nil {
			e.processor = p
		}
	}
}

func WithStatusRecorder(r StatusRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// Engine runs a single backtest. It moves pending -> running -> completed or
// failed and cannot be rerun; build a new Engine for every run.
type Engine struct {
	registry  *Registry
	config    RunConfig
	processor *data.Processor
	logger    *slog.Logger
	progress  io.Writer
	recorder  StatusRecorder

	mu     sync.Mutex
	status types.RunStatus
	err    error
}

func NewEngine(registry *Registry, config RunConfig, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		config:    config,
		processor: data.NewProcessor(),
		logger:    slog.New(slog.DiscardHandler),
		status:    types.StatusPending,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Status() types.RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Err is the error that failed the run, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine) transition(next types.RunStatus, cause error) {
	e.mu.Lock()
	e.status = next
	e.err = cause
	e.mu.Unlock()
	if e.recorder != nil {
		e.recorder.RecordStatus(next, cause)
	}
}

// Run simulates the strategy over raw. On failure no Results are returned;
// the error is also kept on the engine.
func (e *Engine) Run(raw data.RawSeries) (*Results, error) {
	e.mu.Lock()
	if e.status != types.StatusPending {
		e.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	e.mu.Unlock()
	e.transition(types.StatusRunning, nil)

	if raw.Symbol == "" {
		raw.Symbol = e.config.Symbol
	}
	logger := e.logger.With(slog.String("symbol", raw.Symbol), slog.String("strategy", e.config.StrategyTag))
	logger.Info("backtest started", slog.Int("bars", len(raw.Bars)))
	started := time.Now()

	results, err := e.run(raw, logger)
	if err != nil {
		logger.Error("backtest failed", slog.Any("error", err))
		e.transition(types.StatusFailed, err)
		return nil, err
	}

	logger.Info("backtest completed",
		slog.Int("trades", len(results.Trades)),
		slog.String("final_equity", results.Metrics.FinalEquity.String()),
		slog.Duration("elapsed", time.Since(started)),
	)
	e.transition(types.StatusCompleted, nil)
	return results, nil
}

func (e *Engine) run(raw data.RawSeries, logger *slog.Logger) (*Results, error) {
	if e.config.Portfolio == nil {
		return nil, ErrMissingPortfolio
	}
	strat, err := e.registry.Create(e.config.StrategyTag, e.config.Params)
	if err != nil {
		return nil, err
	}
	frame, err := e.processor.Process(raw)
	if err != nil {
		return nil, fmt.Errorf("process bars: %w", err)
	}
	if err := strat.Prepare(frame); err != nil {
		return nil, fmt.Errorf("%w: prepare %s: %w", ErrStrategyFailed, strat.Name(), err)
	}

	portfolio := NewPortfolio(e.config.Portfolio, logger)
	if err := newBacktester(frame, strat, portfolio, e.progress).run(); err != nil {
		return nil, err
	}

	curve := portfolio.EquityCurve()
	trades := portfolio.Trades()
	return &Results{
		Symbol:      frame.Symbol(),
		Strategy:    strat.Name(),
		Parameters:  strat.Parameters(),
		EquityCurve: curve,
		Trades:      trades,
		Metrics:     CalculatePerformance(curve, trades),
	}, nil
}
