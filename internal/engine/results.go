package engine

import (
	"barsim/types"
)

// Results is the output of a completed run.
type Results struct {
	Symbol      string              `json:"symbol"`
	Strategy    string              `json:"strategy"`
	Parameters  Params              `json:"parameters"`
	EquityCurve []types.EquityPoint `json:"equityCurve"`
	Trades      []types.Trade       `json:"trades"`
	Metrics     Metrics             `json:"metrics"`
}
