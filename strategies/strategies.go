// Package strategies wires the built-in strategies into a registry.
package strategies

import (
	"barsim/internal/engine"
	"barsim/strategies/donchian"
	"barsim/strategies/movingaverage"
	"barsim/strategies/rsi"
)

// Builtin lists the registrations of every bundled strategy.
func Builtin() []engine.Registration {
	return []engine.Registration{
		movingaverage.Registration(),
		rsi.Registration(),
		donchian.Registration(),
	}
}

// Register adds the bundled strategies to r.
func Register(r *engine.Registry) error {
	for _, reg := range Builtin() {
		if err := r.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the bundled strategies.
func NewRegistry() *engine.Registry {
	r := engine.NewRegistry()
	if err := Register(r); err != nil {
		// tags are unique constants
		panic(err)
	}
	return r
}
