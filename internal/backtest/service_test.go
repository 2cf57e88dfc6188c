package backtest

import (
	"barsim/internal/config"
	"barsim/internal/data"
	"barsim/internal/engine"
	"barsim/internal/repository"
	"barsim/internal/store"
	"barsim/strategies"
	"barsim/types"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type memorySource struct {
	series map[string]data.RawSeries
	seen   []types.BarRequest
}

func (m *memorySource) LoadBars(_ context.Context, req types.BarRequest) (data.RawSeries, error) {
	m.seen = append(m.seen, req)
	s, ok := m.series[req.Symbol]
	if !ok {
		return data.RawSeries{}, repository.ErrNoBars
	}
	return s, nil
}

func closes(symbol string, values ...float64) data.RawSeries {
	bars := make([]data.RawBar, len(values))
	for i, c := range values {
		bars[i] = data.RawBarFromFloats(testStart.AddDate(0, 0, i), c, c, c, c, 1000)
	}
	return data.NewRawSeries(symbol, bars)
}

func testConfig(symbol string) *config.Config {
	cfg := config.Default()
	cfg.Backtest.Symbol = symbol
	cfg.Backtest.Parameters = engine.Params{"short_window": 2}
	cfg.Strategy.Tag = "moving_average"
	cfg.Strategy.Parameters = engine.Params{"short_window": 5, "long_window": 3}
	return cfg
}

func newTestService(t *testing.T) (*Service, *store.SQLiteStore, *memorySource) {
	t.Helper()
	runs, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = runs.Close() })

	src := &memorySource{series: map[string]data.RawSeries{
		"AAPL": closes("AAPL", 100, 102, 101, 105, 110, 108),
	}}
	return NewService(src, strategies.NewRegistry(), WithRunStore(runs)), runs, src
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	svc, runs, src := newTestService(t)

	runID, res, err := svc.Run(ctx, testConfig("aapl"))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.Len(t, src.seen, 1)
	assert.Equal(t, "AAPL", src.seen[0].Symbol)
	assert.Equal(t, types.Day, src.seen[0].Interval)

	assert.Equal(t, engine.Params{"short_window": 2, "long_window": 3}, res.Parameters)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Metrics.FinalEquity.Equal(decimal.NewFromInt(10007)))

	run, err := runs.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, run.Status)
	assert.Equal(t, float64(2), run.Parameters["short_window"])
	require.NotNil(t, run.Results)
	assert.Len(t, run.Results.EquityCurve, 6)
}

func TestService_Run_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{"missing bars", func(c *config.Config) { c.Backtest.Symbol = "MSFT" }, repository.ErrNoBars},
		{"unknown strategy", func(c *config.Config) { c.Strategy.Tag = "bollinger" }, engine.ErrUnknownStrategy},
		{"invalid parameters", func(c *config.Config) { c.Backtest.Parameters["short_window"] = 9 }, engine.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, runs, _ := newTestService(t)
			cfg := testConfig("AAPL")
			tt.mutate(cfg)

			runID, res, err := svc.Run(ctx, cfg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)

			run, err := runs.GetRun(ctx, runID)
			require.NoError(t, err)
			assert.Equal(t, types.StatusFailed, run.Status)
			assert.NotEmpty(t, run.Error)
			assert.Nil(t, run.Results)
		})
	}
}

func TestService_Run_InvalidConfig(t *testing.T) {
	svc, runs, _ := newTestService(t)
	cfg := testConfig("")

	runID, _, err := svc.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrMissingSymbol)
	assert.Empty(t, runID)

	list, err := runs.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_Run_WithoutStore(t *testing.T) {
	src := &memorySource{series: map[string]data.RawSeries{
		"AAPL": closes("AAPL", 100, 102, 101, 105, 110, 108),
	}}
	svc := NewService(src, strategies.NewRegistry())

	runID, res, err := svc.Run(context.Background(), testConfig("AAPL"))
	require.NoError(t, err)
	assert.Empty(t, runID)
	assert.Len(t, res.Trades, 1)
}
