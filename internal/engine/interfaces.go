package engine

import (
	"barsim/internal/data"
	"barsim/types"
)

// Strategy turns the history up to the current bar into a signal.
// Implementations must not keep state between runs; the registry builds a
// fresh instance for every run.
type Strategy interface {
	Name() string
	Parameters() Params
	// Prepare computes the indicator columns the strategy reads, once for the
	// whole frame, before the bar loop starts.
	Prepare(frame *data.Frame) error
	GenerateSignal(history data.History) (types.Signal, error)
}

// StatusRecorder receives run status transitions.
type StatusRecorder interface {
	RecordStatus(status types.RunStatus, err error)
}
