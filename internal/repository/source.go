package repository

import (
	"barsim/internal/data"
	"barsim/types"
	"context"
	"errors"
)

// Global error declarations.
var (
	ErrIntervalNotSupported = errors.New("interval not supported")
	ErrAssetNotFound        = errors.New("not found in datasource")
	ErrNoBars               = errors.New("no bars found in datasource")
	ErrMalformedRow         = errors.New("malformed row")
)

// BarSource loads the raw bar sequence for a symbol and time range. Sources
// return bars as stored; cleaning is left to data.Processor.
type BarSource interface {
	LoadBars(ctx context.Context, req types.BarRequest) (data.RawSeries, error)
}
