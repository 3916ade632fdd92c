// Package backtest replays a candle series through a strategy, drives the
// portfolio state machine bar by bar, and derives summary performance
// statistics from the completed run.
package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"ganymede/internal/domain"
)

// Ratio is a float64 whose positive-infinity sentinel survives JSON
// round-trips: an unbounded ratio is encoded as null and decoded back to
// +Inf.
type Ratio float64

// IsInf reports whether the ratio is the unbounded sentinel.
func (r Ratio) IsInf() bool { return math.IsInf(float64(r), 1) }

// MarshalJSON encodes +Inf as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.IsInf() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(r))
}

// UnmarshalJSON decodes null back to +Inf.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio(math.Inf(1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Ratio(v)
	return nil
}

// Result is the read-only summary of one completed run, including the full
// trade list and equity curve.
type Result struct {
	Strategy       string    `json:"strategy"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	InitialCapital float64   `json:"initial_capital"`
	FinalCash      float64   `json:"final_cash"`
	FinalValue     float64   `json:"final_value"`
	TotalReturnPct float64   `json:"total_return_pct"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRatePct    float64 `json:"win_rate_pct"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	GrossProfit   float64 `json:"gross_profit"`
	GrossLoss     float64 `json:"gross_loss"`
	ProfitFactor  Ratio   `json:"profit_factor"`

	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`

	Trades      []domain.Trade       `json:"trades"`
	EquityCurve []domain.EquityPoint `json:"equity_curve"`
}

// Summary renders a human-readable report of the run.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Strategy:        %s\n", r.Strategy)
	fmt.Fprintf(&b, "Period:          %s to %s\n",
		r.StartTime.Format("2006-01-02 15:04"), r.EndTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Initial capital: %.2f\n", r.InitialCapital)
	fmt.Fprintf(&b, "Final value:     %.2f\n", r.FinalValue)
	fmt.Fprintf(&b, "Total return:    %.2f%%\n", r.TotalReturnPct)
	fmt.Fprintf(&b, "Trades:          %d (%d wins, %d losses)\n",
		r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Fprintf(&b, "Win rate:        %.1f%%\n", r.WinRatePct)
	if r.ProfitFactor.IsInf() {
		b.WriteString("Profit factor:   inf\n")
	} else {
		fmt.Fprintf(&b, "Profit factor:   %.2f\n", float64(r.ProfitFactor))
	}
	fmt.Fprintf(&b, "Max drawdown:    %.2f%%\n", r.MaxDrawdownPct)
	fmt.Fprintf(&b, "Sharpe ratio:    %.2f\n", r.SharpeRatio)
	return b.String()
}
