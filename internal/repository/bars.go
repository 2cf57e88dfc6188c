package repository

import (
	"barsim/internal/data"
	"barsim/types"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.FourHours:      "4 hours",
	types.Day:            "1 day",
	types.Week:           "1 week",
}

// open-ended requests are clamped to these bounds
var (
	earliest = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	latest   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// GetAggregates returns bars of the given interval for an asset between
// start and end inclusive.
func (db *Database) GetAggregates(ctx context.Context, assetId int, ticker string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIntervalNotSupported, interval)
	}
	if start.IsZero() {
		start = earliest
	}
	if end.IsZero() {
		end = latest
	}
	args := aggregatesParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		StartTime:  start,
		EndTime:    end,
	}
	rows, err := db.bars.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoBars
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoBars
	}
	return convertBars(rows, ticker), nil
}

// LoadBars implements BarSource on top of the asset and aggregate queries.
func (db *Database) LoadBars(ctx context.Context, req types.BarRequest) (data.RawSeries, error) {
	interval := req.Interval
	if interval == "" {
		interval = types.Day
	}
	asset, err := db.GetAssetByTicker(ctx, req.Symbol)
	if err != nil {
		return data.RawSeries{}, err
	}
	bars, err := db.GetAggregates(ctx, asset.Id, asset.Ticker, interval, req.Start, req.End)
	if err != nil {
		return data.RawSeries{}, fmt.Errorf("%s %s: %w", req.Symbol, interval, err)
	}
	raw := make([]data.RawBar, len(bars))
	for i, b := range bars {
		raw[i] = data.RawBar{
			Timestamp: b.Timestamp,
			Open:      data.Valid(b.Open),
			High:      data.Valid(b.High),
			Low:       data.Valid(b.Low),
			Close:     data.Valid(b.Close),
			Volume:    data.Valid(b.Volume),
		}
	}
	return data.NewRawSeries(asset.Ticker, raw), nil
}

func convertBars(rows []aggregateRow, ticker string) []types.Bar {
	bars := make([]types.Bar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, types.Bar{
			Symbol:    ticker,
			Timestamp: row.Bucket.UTC(),
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		})
	}
	return bars
}
