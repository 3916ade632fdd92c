// Package portfolio tracks cash, open positions, closed trades, and the
// equity curve of a simulated account. Each strategy id owns at most one
// open position at a time; signal processing, stop handling, and equity
// snapshots follow a fixed per-bar ordering driven by the backtest engine.
package portfolio

import (
	"fmt"
	"sort"
	"time"

	"ganymede/internal/domain"
)

// Portfolio is the account state machine. It is not safe for concurrent use;
// each backtest run owns its own instance.
type Portfolio struct {
	initialCapital float64
	cash           float64
	commissionRate float64
	slippagePct    float64

	positions map[string]domain.Position
	trades    []domain.Trade
	equity    []domain.EquityPoint
}

// New creates a portfolio with the given starting cash. commissionRate is
// applied per side on the traded notional; slippagePct adjusts execution
// prices against the trade direction.
func New(initialCapital, commissionRate, slippagePct float64) (*Portfolio, error) {
	if initialCapital <= 0 {
		return nil, &domain.ValidationError{Type: "portfolio", Reason: fmt.Sprintf("non-positive initial capital %v", initialCapital)}
	}
	if commissionRate < 0 || slippagePct < 0 {
		return nil, &domain.ValidationError{Type: "portfolio", Reason: "commission rate and slippage must be non-negative"}
	}
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		commissionRate: commissionRate,
		slippagePct:    slippagePct,
		positions:      make(map[string]domain.Position),
	}, nil
}

// InitialCapital returns the starting cash.
func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }

// Cash returns the current free cash.
func (p *Portfolio) Cash() float64 { return p.cash }

// Position returns the open position for a strategy, if any.
func (p *Portfolio) Position(strategy string) (domain.Position, bool) {
	pos, ok := p.positions[strategy]
	return pos, ok
}

// OpenPositions returns the number of currently open positions.
func (p *Portfolio) OpenPositions() int { return len(p.positions) }

// Trades returns the closed trades in close order.
func (p *Portfolio) Trades() []domain.Trade { return p.trades }

// Equity returns the recorded equity curve.
func (p *Portfolio) Equity() []domain.EquityPoint { return p.equity }

// ExecutionPrice returns the slippage-adjusted fill price for a signal:
// longs buy above the quoted price, shorts sell below it, and neutral
// signals use the raw price.
func (p *Portfolio) ExecutionPrice(sig domain.Signal) float64 {
	switch sig.Kind {
	case domain.SignalLong:
		return sig.Price * (1 + p.slippagePct)
	case domain.SignalShort:
		return sig.Price * (1 - p.slippagePct)
	}
	return sig.Price
}

// ProcessSignal applies one signal to the account. Any open position for
// the signal's strategy is closed first, then a long or short signal opens
// a new position in the same call, so a reversal never skips a bar. The
// close and the open share one execution price.
func (p *Portfolio) ProcessSignal(sig domain.Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	execPrice := p.ExecutionPrice(sig)

	if pos, open := p.positions[sig.Strategy]; open {
		if err := p.closePosition(pos, execPrice, sig.Timestamp, sig.Kind); err != nil {
			return err
		}
	}

	if sig.IsNeutral() {
		return nil
	}
	return p.openPosition(sig, execPrice)
}

// CheckStops closes every position whose stop-loss or take-profit level is
// breached at price. Exits fill at the raw price with a neutral exit marker.
// Returns the trades closed by this sweep.
func (p *Portfolio) CheckStops(price float64, ts time.Time) ([]domain.Trade, error) {
	if len(p.positions) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(p.positions))
	for name := range p.positions {
		names = append(names, name)
	}
	sort.Strings(names)

	var closed []domain.Trade
	for _, name := range names {
		pos := p.positions[name]
		if !pos.StopLossHit(price) && !pos.TakeProfitHit(price) {
			continue
		}
		if err := p.closePosition(pos, price, ts, domain.SignalNeutral); err != nil {
			return closed, err
		}
		closed = append(closed, p.trades[len(p.trades)-1])
	}
	return closed, nil
}

// TotalValue returns cash plus the marked value of all open positions at
// price.
func (p *Portfolio) TotalValue(price float64) float64 {
	total := p.cash
	for _, pos := range p.positions {
		total += pos.Notional() + pos.UnrealizedPnL(price)
	}
	return total
}

// RecordEquity appends and returns an equity snapshot at the raw price.
func (p *Portfolio) RecordEquity(price float64, ts time.Time) domain.EquityPoint {
	var unrealized float64
	for _, pos := range p.positions {
		unrealized += pos.UnrealizedPnL(price)
	}
	point := domain.EquityPoint{
		Timestamp:     ts,
		Cash:          p.cash,
		TotalValue:    p.TotalValue(price),
		UnrealizedPnL: unrealized,
		OpenPositions: len(p.positions),
	}
	p.equity = append(p.equity, point)
	return point
}

// Summary returns a one-line account snapshot at price.
func (p *Portfolio) Summary(price float64) string {
	total := p.TotalValue(price)
	return fmt.Sprintf("cash=%.2f total=%.2f return=%.2f%% open=%d trades=%d",
		p.cash, total, (total-p.initialCapital)/p.initialCapital*100,
		len(p.positions), len(p.trades))
}

// openPosition debits the notional from cash and records the position,
// sizing it as a fraction of current cash at the execution price. Stop and
// target levels are taken from the signal metadata when present. A signal
// that cannot buy a positive size (no cash left) is dropped.
func (p *Portfolio) openPosition(sig domain.Signal, execPrice float64) error {
	size := p.cash * sig.Size / execPrice
	if size <= 0 {
		return nil
	}
	stopLoss, _ := sig.MetaFloat("stop_loss")
	takeProfit, _ := sig.MetaFloat("take_profit")

	pos, err := domain.NewPosition(sig.Strategy, sig.Kind, execPrice, size,
		sig.Timestamp, sig.Confidence, stopLoss, takeProfit)
	if err != nil {
		return err
	}
	p.cash -= pos.Notional()
	p.positions[sig.Strategy] = pos
	return nil
}

// closePosition realizes the position at exitPrice: cash is credited with
// the entry notional plus the directional pnl, commission is deducted on
// both sides of the round trip, and an immutable trade is appended.
func (p *Portfolio) closePosition(pos domain.Position, exitPrice float64, ts time.Time, exitSignal domain.SignalKind) error {
	pnl := pos.UnrealizedPnL(exitPrice)
	pnlPct := pos.UnrealizedPct(exitPrice)

	trade, err := domain.NewTrade(pos.Strategy, pos.Kind, exitSignal,
		pos.EntryPrice, exitPrice, pos.Size, pos.OpenedAt, ts, pnl, pnlPct)
	if err != nil {
		return err
	}

	p.cash += pos.Notional() + pnl
	p.cash -= p.commissionRate * pos.Size * (pos.EntryPrice + exitPrice)
	p.trades = append(p.trades, trade)
	delete(p.positions, pos.Strategy)
	return nil
}
