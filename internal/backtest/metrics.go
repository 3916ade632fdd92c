package backtest

import (
	"math"
	"time"

	"ganymede/internal/domain"
	"ganymede/internal/portfolio"
	"ganymede/internal/util"
)

// computeResult derives the summary statistics from a completed portfolio.
// With zero trades every derived ratio is 0 and the final value equals the
// ending cash.
func computeResult(name string, pf *portfolio.Portfolio, start, end time.Time, interval time.Duration) *Result {
	trades := pf.Trades()
	equity := pf.Equity()

	finalValue := pf.Cash()
	if len(equity) > 0 {
		finalValue = equity[len(equity)-1].TotalValue
	}

	r := &Result{
		Strategy:       name,
		StartTime:      start,
		EndTime:        end,
		InitialCapital: pf.InitialCapital(),
		FinalCash:      pf.Cash(),
		FinalValue:     finalValue,
		TotalReturnPct: (finalValue - pf.InitialCapital()) / pf.InitialCapital() * 100,
		TotalTrades:    len(trades),
		Trades:         trades,
		EquityCurve:    equity,
		MaxDrawdownPct: MaxDrawdown(equity),
		SharpeRatio:    SharpeRatio(equity, interval),
	}
	if len(trades) == 0 {
		return r
	}

	var grossProfit, grossLoss float64
	for _, tr := range trades {
		switch {
		case tr.IsWin():
			r.WinningTrades++
			grossProfit += tr.PnL
		case tr.IsLoss():
			r.LosingTrades++
			grossLoss += -tr.PnL
		}
	}
	r.GrossProfit = grossProfit
	r.GrossLoss = grossLoss
	r.WinRatePct = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	if r.WinningTrades > 0 {
		r.AvgWin = grossProfit / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = grossLoss / float64(r.LosingTrades)
	}
	r.ProfitFactor = ProfitFactor(grossProfit, grossLoss, r.TotalTrades)
	return r
}

// ProfitFactor is gross profit over gross loss. With no trades it is 0; with
// trades but no losses it is the +Inf sentinel.
func ProfitFactor(grossProfit, grossLoss float64, totalTrades int) Ratio {
	if totalTrades == 0 {
		return 0
	}
	if grossLoss > 0 {
		return Ratio(grossProfit / grossLoss)
	}
	if grossProfit > 0 {
		return Ratio(math.Inf(1))
	}
	return 0
}

// MaxDrawdown returns the largest peak-to-trough decline of the equity
// curve, as a percentage of the running peak. It is monotonically
// non-decreasing as points are appended.
func MaxDrawdown(equity []domain.EquityPoint) float64 {
	var peak, maxDD float64
	for _, pt := range equity {
		if pt.TotalValue > peak {
			peak = pt.TotalValue
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - pt.TotalValue) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// SharpeRatio annualizes mean over standard deviation of the per-bar
// percentage returns of the equity curve. Zero variance yields 0.
func SharpeRatio(equity []domain.EquityPoint, interval time.Duration) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].TotalValue
		if prev == 0 {
			continue
		}
		returns = append(returns, (equity[i].TotalValue-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	stdev := math.Sqrt(ss / float64(len(returns)-1))
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(util.PeriodsPerYear(interval))
}
