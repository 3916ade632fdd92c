// Package domain defines the core value types shared across the ganymede
// backtesting engine: candles, signals, positions, trades, and equity
// snapshots. All types validate their invariants at construction time and
// are treated as immutable afterwards.
package domain

import (
	"fmt"
	"time"
)

// SignalKind identifies the direction of a trading signal or position.
type SignalKind string

const (
	SignalLong    SignalKind = "LONG"
	SignalShort   SignalKind = "SHORT"
	SignalNeutral SignalKind = "NEUTRAL"
)

// ValidationError reports a violated construction-time invariant on a domain
// value. A ValidationError is fatal to the run that produced it; the engine
// never skips over malformed input.
type ValidationError struct {
	Type   string // which value type was being constructed
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Type, e.Reason)
}

// ---------------------------------------------------------------------------
// Candle
// ---------------------------------------------------------------------------

// Candle is a single OHLCV bar. Immutable once constructed.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// NewCandle validates and constructs a Candle. The high must be at least the
// maximum of open, close, and low; the low at most their minimum; volume
// must be non-negative.
func NewCandle(ts time.Time, open, high, low, close, volume float64) (Candle, error) {
	c := Candle{Timestamp: ts, Open: open, High: high, Low: low, Close: close, Volume: volume}
	if err := c.Validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

// Validate checks the OHLCV invariants.
func (c Candle) Validate() error {
	if c.High < c.Open || c.High < c.Close || c.High < c.Low {
		return &ValidationError{Type: "candle", Reason: fmt.Sprintf("high %v below open/close/low", c.High)}
	}
	if c.Low > c.Open || c.Low > c.Close {
		return &ValidationError{Type: "candle", Reason: fmt.Sprintf("low %v above open/close", c.Low)}
	}
	if c.Volume < 0 {
		return &ValidationError{Type: "candle", Reason: fmt.Sprintf("negative volume %v", c.Volume)}
	}
	return nil
}

// Range returns high minus low.
func (c Candle) Range() float64 { return c.High - c.Low }

// Body returns close minus open.
func (c Candle) Body() float64 { return c.Close - c.Open }

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool { return c.Close > c.Open }

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool { return c.Close < c.Open }

// ---------------------------------------------------------------------------
// Signal
// ---------------------------------------------------------------------------

// Signal is the standardized output of one strategy evaluation. It is
// created fresh each bar and never mutated.
type Signal struct {
	Strategy   string         `json:"strategy"`
	Kind       SignalKind     `json:"signal"`
	Confidence float64        `json:"confidence"` // [0, 1]
	Size       float64        `json:"size"`       // fraction of capital, (0, 1]; 0 for NEUTRAL
	Timestamp  time.Time      `json:"timestamp"`
	Price      float64        `json:"price"` // reference price at emission
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewSignal validates and constructs a Signal.
func NewSignal(strategy string, kind SignalKind, confidence, size float64, ts time.Time, price float64, metadata map[string]any) (Signal, error) {
	s := Signal{
		Strategy:   strategy,
		Kind:       kind,
		Confidence: confidence,
		Size:       size,
		Timestamp:  ts,
		Price:      price,
		Metadata:   metadata,
	}
	if err := s.Validate(); err != nil {
		return Signal{}, err
	}
	return s, nil
}

// Validate checks the Signal invariants.
func (s Signal) Validate() error {
	if s.Confidence < 0 || s.Confidence > 1 {
		return &ValidationError{Type: "signal", Reason: fmt.Sprintf("confidence %v outside [0, 1]", s.Confidence)}
	}
	if s.Size < 0 || s.Size > 1 {
		return &ValidationError{Type: "signal", Reason: fmt.Sprintf("size %v outside [0, 1]", s.Size)}
	}
	if s.Price <= 0 {
		return &ValidationError{Type: "signal", Reason: fmt.Sprintf("non-positive price %v", s.Price)}
	}
	return nil
}

// IsEntry reports whether the signal opens a directional position.
func (s Signal) IsEntry() bool { return s.Kind == SignalLong || s.Kind == SignalShort }

// IsNeutral reports whether the signal is neutral.
func (s Signal) IsNeutral() bool { return s.Kind == SignalNeutral }

// MetaFloat returns the named metadata entry as a float64. The second return
// value is false when the key is absent or holds a non-numeric value.
func (s Signal) MetaFloat(key string) (float64, bool) {
	v, ok := s.Metadata[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Position
// ---------------------------------------------------------------------------

// Position is an open directional holding owned by exactly one strategy.
// StopLoss and TakeProfit are zero when unset.
type Position struct {
	Strategy        string     `json:"strategy"`
	Kind            SignalKind `json:"signal_type"` // LONG or SHORT, never NEUTRAL
	EntryPrice      float64    `json:"entry_price"`
	Size            float64    `json:"size"` // base-asset units
	OpenedAt        time.Time  `json:"timestamp"`
	EntryConfidence float64    `json:"entry_confidence"`
	StopLoss        float64    `json:"stop_loss,omitempty"`
	TakeProfit      float64    `json:"take_profit,omitempty"`
}

// NewPosition validates and constructs a Position.
func NewPosition(strategy string, kind SignalKind, entryPrice, size float64, openedAt time.Time, confidence, stopLoss, takeProfit float64) (Position, error) {
	if kind == SignalNeutral {
		return Position{}, &ValidationError{Type: "position", Reason: "kind must be LONG or SHORT"}
	}
	if entryPrice <= 0 {
		return Position{}, &ValidationError{Type: "position", Reason: fmt.Sprintf("non-positive entry price %v", entryPrice)}
	}
	if size <= 0 {
		return Position{}, &ValidationError{Type: "position", Reason: fmt.Sprintf("non-positive size %v", size)}
	}
	return Position{
		Strategy:        strategy,
		Kind:            kind,
		EntryPrice:      entryPrice,
		Size:            size,
		OpenedAt:        openedAt,
		EntryConfidence: confidence,
		StopLoss:        stopLoss,
		TakeProfit:      takeProfit,
	}, nil
}

// UnrealizedPnL returns the open profit or loss at the given price, in quote
// currency. Exactly zero when price equals the entry price.
func (p Position) UnrealizedPnL(price float64) float64 {
	switch p.Kind {
	case SignalLong:
		return (price - p.EntryPrice) * p.Size
	case SignalShort:
		return (p.EntryPrice - price) * p.Size
	}
	return 0
}

// UnrealizedPct returns the open profit or loss as a percentage of the entry
// price.
func (p Position) UnrealizedPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	switch p.Kind {
	case SignalLong:
		return (price - p.EntryPrice) / p.EntryPrice * 100
	case SignalShort:
		return (p.EntryPrice - price) / p.EntryPrice * 100
	}
	return 0
}

// Notional returns the capital committed at entry.
func (p Position) Notional() float64 { return p.Size * p.EntryPrice }

// StopLossHit reports whether the stop-loss level is breached at price.
// Always false when no stop-loss is set.
func (p Position) StopLossHit(price float64) bool {
	if p.StopLoss == 0 {
		return false
	}
	if p.Kind == SignalLong {
		return price <= p.StopLoss
	}
	return price >= p.StopLoss
}

// TakeProfitHit reports whether the take-profit level is reached at price.
// Always false when no take-profit is set.
func (p Position) TakeProfitHit(price float64) bool {
	if p.TakeProfit == 0 {
		return false
	}
	if p.Kind == SignalLong {
		return price >= p.TakeProfit
	}
	return price <= p.TakeProfit
}

// ---------------------------------------------------------------------------
// Trade
// ---------------------------------------------------------------------------

// Trade is an immutable closed round-trip. Appended once to the portfolio's
// trade list, never mutated.
type Trade struct {
	Strategy    string     `json:"strategy"`
	EntrySignal SignalKind `json:"entry_signal"`
	ExitSignal  SignalKind `json:"exit_signal"`
	EntryPrice  float64    `json:"entry_price"`
	ExitPrice   float64    `json:"exit_price"`
	Size        float64    `json:"size"`
	EntryTime   time.Time  `json:"entry_time"`
	ExitTime    time.Time  `json:"exit_time"`
	PnL         float64    `json:"pnl"`
	PnLPct      float64    `json:"pnl_pct"`
}

// NewTrade validates and constructs a Trade.
func NewTrade(strategy string, entrySignal, exitSignal SignalKind, entryPrice, exitPrice, size float64, entryTime, exitTime time.Time, pnl, pnlPct float64) (Trade, error) {
	if entryPrice <= 0 || exitPrice <= 0 {
		return Trade{}, &ValidationError{Type: "trade", Reason: "prices must be positive"}
	}
	if size <= 0 {
		return Trade{}, &ValidationError{Type: "trade", Reason: fmt.Sprintf("non-positive size %v", size)}
	}
	if exitTime.Before(entryTime) {
		return Trade{}, &ValidationError{Type: "trade", Reason: "exit time before entry time"}
	}
	return Trade{
		Strategy:    strategy,
		EntrySignal: entrySignal,
		ExitSignal:  exitSignal,
		EntryPrice:  entryPrice,
		ExitPrice:   exitPrice,
		Size:        size,
		EntryTime:   entryTime,
		ExitTime:    exitTime,
		PnL:         pnl,
		PnLPct:      pnlPct,
	}, nil
}

// IsWin reports whether the trade realized a profit.
func (t Trade) IsWin() bool { return t.PnL > 0 }

// IsLoss reports whether the trade realized a loss.
func (t Trade) IsLoss() bool { return t.PnL < 0 }

// Duration returns the time the position was held. Never negative.
func (t Trade) Duration() time.Duration { return t.ExitTime.Sub(t.EntryTime) }

// ---------------------------------------------------------------------------
// EquityPoint
// ---------------------------------------------------------------------------

// EquityPoint is one snapshot of the portfolio's value, recorded once per
// processed bar.
type EquityPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Cash          float64   `json:"cash"`
	TotalValue    float64   `json:"total_value"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	OpenPositions int       `json:"positions_count"`
}
