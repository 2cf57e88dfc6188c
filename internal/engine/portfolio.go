package engine

import (
	"barsim/types"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownAction = errors.New("unknown signal action")
	ErrOutOfOrderBar = errors.New("bar is not after the previous bar")
)

var one = decimal.NewFromInt(1)

// Portfolio is the cash, positions, trade log and equity curve of one run.
// Every symbol is either flat or long a single position: no shorting, no
// averaging in. All state changes go through Update.
type Portfolio struct {
	config    *PortfolioConfig
	cash      decimal.Decimal
	positions map[string]*types.Position
	trades    []types.Trade
	equity    []types.EquityPoint
	lastTime  time.Time
	logger    *slog.Logger
}

func NewPortfolio(config *PortfolioConfig, logger *slog.Logger) *Portfolio {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Portfolio{
		config:    config,
		cash:      config.initialCash,
		positions: make(map[string]*types.Position),
		logger:    logger,
	}
}

// Update applies signal at bar's close and appends exactly one equity point.
// Orders that cannot be filled are skipped without error and leave no trade.
func (p *Portfolio) Update(bar types.Bar, signal types.Signal) error {
	if !signal.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, signal.Action)
	}
	if len(p.equity) > 0 && !bar.Timestamp.After(p.lastTime) {
		return fmt.Errorf("%w: %s after %s", ErrOutOfOrderBar, bar.Timestamp.Format(time.RFC3339), p.lastTime.Format(time.RFC3339))
	}

	switch signal.Action {
	case types.ActionBuy:
		p.buy(bar, signal)
	case types.ActionSell:
		p.sell(bar, signal)
	}

	if pos, ok := p.positions[bar.Symbol]; ok {
		pos.LastPrice = bar.Close
	}
	p.lastTime = bar.Timestamp
	p.equity = append(p.equity, types.EquityPoint{Timestamp: bar.Timestamp, Equity: p.Equity()})
	return nil
}

func (p *Portfolio) buy(bar types.Bar, signal types.Signal) {
	qty := signal.Quantity
	if !qty.IsPositive() {
		p.skip(bar, signal, "non-positive quantity")
		return
	}
	if _, ok := p.positions[bar.Symbol]; ok {
		p.skip(bar, signal, "position already open")
		return
	}

	price := bar.Close.Mul(one.Add(p.config.slippage))
	value := price.Mul(qty)
	commission := p.config.commission.Fee(value)
	cost := value.Add(commission)
	if cost.GreaterThan(p.cash) {
		p.skip(bar, signal, "insufficient cash", slog.String("cost", cost.String()), slog.String("cash", p.cash.String()))
		return
	}

	p.cash = p.cash.Sub(cost)
	p.positions[bar.Symbol] = &types.Position{
		Symbol:     bar.Symbol,
		Quantity:   qty,
		EntryPrice: price,
		EntryTime:  bar.Timestamp,
		LastPrice:  bar.Close,
	}
	p.record(bar, types.ActionBuy, qty, price, commission)
}

func (p *Portfolio) sell(bar types.Bar, signal types.Signal) {
	pos, ok := p.positions[bar.Symbol]
	if !ok {
		p.skip(bar, signal, "no open position")
		return
	}

	qty := pos.Quantity
	price := bar.Close.Mul(one.Sub(p.config.slippage))
	value := price.Mul(qty)
	commission := p.config.commission.Fee(value)

	p.cash = p.cash.Add(value.Sub(commission))
	delete(p.positions, bar.Symbol)
	p.record(bar, types.ActionSell, qty, price, commission)
}

func (p *Portfolio) record(bar types.Bar, action types.Action, qty, price, commission decimal.Decimal) {
	trade := types.Trade{
		Timestamp:  bar.Timestamp,
		Symbol:     bar.Symbol,
		Action:     action,
		Quantity:   qty,
		Price:      price,
		Commission: commission,
	}
	p.trades = append(p.trades, trade)
	p.logger.Debug("order filled",
		slog.String("symbol", bar.Symbol),
		slog.String("action", string(action)),
		slog.String("quantity", qty.String()),
		slog.String("price", price.String()),
		slog.String("commission", commission.String()),
		slog.Time("time", bar.Timestamp),
	)
}

func (p *Portfolio) skip(bar types.Bar, signal types.Signal, reason string, attrs ...any) {
	args := append([]any{
		slog.String("symbol", bar.Symbol),
		slog.String("action", string(signal.Action)),
		slog.String("reason", reason),
		slog.Time("time", bar.Timestamp),
	}, attrs...)
	p.logger.Debug("order skipped", args...)
}

func (p *Portfolio) Cash() decimal.Decimal { return p.cash }

// Equity is cash plus open positions marked at their last close.
func (p *Portfolio) Equity() decimal.Decimal {
	value := p.cash
	for _, pos := range p.positions {
		value = value.Add(pos.MarketValue())
	}
	return value
}

func (p *Portfolio) Position(symbol string) (types.Position, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return types.Position{}, false
	}
	return *pos, true
}

func (p *Portfolio) Trades() []types.Trade {
	return append([]types.Trade(nil), p.trades...)
}

func (p *Portfolio) EquityCurve() []types.EquityPoint {
	return append([]types.EquityPoint(nil), p.equity...)
}

func (p *Portfolio) Snapshot() types.PortfolioView {
	view := types.PortfolioView{
		Cash:      p.cash,
		Positions: make(map[string]types.Position, len(p.positions)),
		Time:      p.lastTime,
	}
	for sym, pos := range p.positions {
		view.Positions[sym] = *pos
	}
	return view
}
