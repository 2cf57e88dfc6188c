package store

import (
	"barsim/internal/engine"
	"barsim/types"
	"context"
	"log/slog"
	"sync"
)

var _ engine.StatusRecorder = (*Recorder)(nil)

// StatusUpdater is the part of a run store the Recorder writes to.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, runID string, next types.RunStatus, cause error) error
}

// Recorder mirrors engine status transitions into a run store.
// Completion is skipped: SaveResults writes it together with the results.
type Recorder struct {
	updater StatusUpdater
	ctx     context.Context
	runID   string
	logger  *slog.Logger

	mu  sync.Mutex
	err error
}

func NewRecorder(ctx context.Context, updater StatusUpdater, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{updater: updater, ctx: ctx, runID: runID, logger: logger}
}

func (r *Recorder) RecordStatus(status types.RunStatus, cause error) {
	if status == types.StatusCompleted {
		return
	}
	if err := r.updater.UpdateStatus(r.ctx, r.runID, status, cause); err != nil {
		r.logger.Warn("recording run status", slog.String("run", r.runID), slog.String("status", string(status)), slog.Any("error", err))
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
}

// Err returns the first error hit while recording.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
