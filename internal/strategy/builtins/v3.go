package builtins

import (
	"math"
	"time"

	"ganymede/internal/domain"
	"ganymede/internal/indicator"
	"ganymede/internal/strategy"
	"ganymede/internal/util"
)

// Compile-time interface check.
var _ strategy.Strategy = (*V3Aggressive)(nil)

// V3Aggressive is a high-activity strategy that scores weighted entry factors
// (trend alignment with ADX, RSI momentum, volume, position versus a rolling
// VWAP, short-term momentum) against a confidence threshold. It
// is stateful: a minimum holding period and a per-day trade cap are enforced
// through internal counters, reset on each new calendar day and by Reset.
//
// Parameters (with defaults): ema_fast 5, ema_slow 13, rsi_period 10,
// adx_period 14, atr_period 14, min_confidence 0.65, min_adx 25,
// max_daily_trades 2, min_hold_periods 6.
type V3Aggressive struct {
	base
	emaFast   int
	emaSlow   int
	rsiPeriod int
	adxPeriod int
	atrPeriod int

	lastTradeTime   time.Time
	lastTradeDate   time.Time
	dailyTradeCount int
}

// NewV3Aggressive constructs the strategy from its configuration.
func NewV3Aggressive(cfg strategy.Config) (strategy.Strategy, error) {
	b, err := newBase(cfg, "v3-aggressive")
	if err != nil {
		return nil, err
	}
	s := &V3Aggressive{
		base:      b,
		emaFast:   b.params.Int("ema_fast", 5),
		emaSlow:   b.params.Int("ema_slow", 13),
		rsiPeriod: b.params.Int("rsi_period", 10),
		adxPeriod: b.params.Int("adx_period", 14),
		atrPeriod: b.params.Int("atr_period", 14),
	}
	for key, period := range map[string]int{
		"ema_fast": s.emaFast, "ema_slow": s.emaSlow, "rsi_period": s.rsiPeriod,
		"adx_period": s.adxPeriod, "atr_period": s.atrPeriod,
	} {
		if err := requirePeriod(s.name, key, period); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Reset clears the cooldown and daily-trade state.
func (s *V3Aggressive) Reset() {
	s.lastTradeTime = time.Time{}
	s.lastTradeDate = time.Time{}
	s.dailyTradeCount = 0
}

// Prepare computes the full factor set.
func (s *V3Aggressive) Prepare(candles []domain.Candle) (*strategy.Frame, error) {
	closes := indicator.Closes(candles)
	volumes := indicator.Volumes(candles)

	f := strategy.NewFrame(candles)
	f.Set("ema_fast", indicator.EMA(closes, s.emaFast))
	f.Set("ema_slow", indicator.EMA(closes, s.emaSlow))
	f.Set("rsi", indicator.RSI(closes, s.rsiPeriod))
	f.Set("adx", indicator.ADX(candles, s.adxPeriod))

	emaDiffNorm := make([]float64, len(candles))
	for i := range closes {
		emaDiffNorm[i] = (f.At("ema_fast", i) - f.At("ema_slow", i)) / closes[i]
	}
	f.Set("ema_diff_norm", emaDiffNorm)

	atr := indicator.ATR(candles, s.atrPeriod)
	atrPct := make([]float64, len(candles))
	for i := range atr {
		atrPct[i] = atr[i] / closes[i]
	}
	f.Set("atr", atr)
	f.Set("atr_pct", atrPct)
	f.Set("atr_percentile", rollingRankPct(atrPct, 50))

	volSMA := indicator.SMA(volumes, 20)
	ratio := make([]float64, len(candles))
	for i := range ratio {
		ratio[i] = volumes[i] / volSMA[i]
	}
	f.Set("volume_ratio", ratio)

	f.Set("vwap", indicator.VWAP(candles, 20))

	momentum := make([]float64, len(closes))
	for i := range closes {
		if i < 3 {
			momentum[i] = math.NaN()
			continue
		}
		momentum[i] = (closes[i] - closes[i-3]) / closes[i]
	}
	f.Set("momentum_3_norm", momentum)
	return f, nil
}

// Generate scores long and short entry factors and emits a signal when the
// better side clears the confidence threshold, subject to the daily cap,
// minimum holding period, and volatility-regime filters.
func (s *V3Aggressive) Generate(candles []domain.Candle) (domain.Signal, error) {
	if len(candles) < 30 {
		return s.neutral(candles, ""), nil
	}
	f, err := s.Prepare(candles)
	if err != nil {
		return domain.Signal{}, err
	}

	minConfidence := s.params.Float("min_confidence", 0.65)
	minADX := s.params.Float("min_adx", 25.0)
	maxDailyTrades := s.params.Int("max_daily_trades", 2)
	minHoldPeriods := s.params.Int("min_hold_periods", 6)

	n := len(candles)
	last := candles[n-1]
	now := last.Timestamp
	price := last.Close

	// New calendar day resets the trade counter.
	if s.lastTradeDate.IsZero() || !util.SameDay(now, s.lastTradeDate) {
		s.dailyTradeCount = 0
		s.lastTradeDate = now
	}
	if s.dailyTradeCount >= maxDailyTrades {
		return s.neutral(candles, "daily trade limit reached"), nil
	}

	// Minimum holding period since the last emitted entry.
	if !s.lastTradeTime.IsZero() {
		periodsSince := 0
		for i := n - 1; i >= 0 && candles[i].Timestamp.After(s.lastTradeTime); i-- {
			periodsSince++
		}
		if periodsSince < minHoldPeriods {
			return s.neutral(candles, "minimum holding period not met"), nil
		}
	}

	// Avoid extreme volatility regimes.
	atrPctile := f.Last("atr_percentile")
	if !math.IsNaN(atrPctile) && (atrPctile > 0.95 || atrPctile < 0.05) {
		return s.neutral(candles, "extreme volatility regime"), nil
	}

	atrPct := f.Last("atr_pct")
	stopLossPct, takeProfitPct := 0.02, 0.04
	if !math.IsNaN(atrPct) {
		stopLossPct = 1.5 * atrPct
		takeProfitPct = 3.0 * atrPct
	}

	adx := f.Last("adx")
	rsi := f.Last("rsi")
	rsiPrev := f.Prev("rsi")
	volumeRatio := f.Last("volume_ratio")
	momentum := f.Last("momentum_3_norm")
	diffNorm := f.Last("ema_diff_norm")
	aboveVWAP := price > f.Last("vwap")
	belowVWAP := price < f.Last("vwap")

	var longScore float64
	var longConditions int
	if f.Last("ema_fast") > f.Last("ema_slow") && diffNorm > 0.001 && adx > minADX {
		longScore += 0.30
		longConditions++
	}
	if rsiPrev < 60 && rsi > rsiPrev && rsi < 70 {
		longScore += 0.25
		longConditions++
	}
	if volumeRatio > 1.2 {
		longScore += 0.20
		longConditions++
	}
	if aboveVWAP {
		longScore += 0.15
		longConditions++
	}
	if momentum > 0.001 {
		longScore += 0.10
		longConditions++
	}

	var shortScore float64
	var shortConditions int
	if f.Last("ema_fast") < f.Last("ema_slow") && diffNorm < -0.001 && adx > minADX {
		shortScore += 0.30
		shortConditions++
	}
	if rsiPrev > 40 && rsi < rsiPrev && rsi > 30 {
		shortScore += 0.25
		shortConditions++
	}
	if volumeRatio > 1.2 {
		shortScore += 0.20
		shortConditions++
	}
	if belowVWAP {
		shortScore += 0.15
		shortConditions++
	}
	if momentum < -0.001 {
		shortScore += 0.10
		shortConditions++
	}

	volatilityFactor := 1.0
	if !math.IsNaN(atrPct) {
		volatilityFactor = clamp(1.0-atrPct*10, 0.5, 1.0)
	}

	buildMeta := func(conditions int, stopLoss, takeProfit float64) map[string]any {
		meta := map[string]any{
			"conditions_met":    conditions,
			"rsi":               rsi,
			"stop_loss":         stopLoss,
			"take_profit":       takeProfit,
			"volatility_factor": volatilityFactor,
		}
		if !math.IsNaN(adx) {
			meta["adx"] = adx
		}
		if !math.IsNaN(atrPct) {
			meta["atr_pct"] = atrPct
		}
		return meta
	}

	if longScore > shortScore && longScore >= minConfidence {
		size := math.Min(s.positionSize*volatilityFactor*(1+float64(longConditions)*0.05), 0.3)
		s.lastTradeTime = now
		s.dailyTradeCount++
		return domain.NewSignal(s.name, domain.SignalLong,
			math.Min(longScore+0.05, 0.95), size, now, price,
			buildMeta(longConditions, price*(1-stopLossPct), price*(1+takeProfitPct)))
	}

	if shortScore > longScore && shortScore >= minConfidence {
		size := math.Min(s.positionSize*volatilityFactor*(1+float64(shortConditions)*0.05), 0.3)
		s.lastTradeTime = now
		s.dailyTradeCount++
		return domain.NewSignal(s.name, domain.SignalShort,
			math.Min(shortScore+0.05, 0.95), size, now, price,
			buildMeta(shortConditions, price*(1+stopLossPct), price*(1-takeProfitPct)))
	}
	return s.neutral(candles, ""), nil
}

// rollingRankPct returns the percentile rank of each value within its
// trailing window, NaN during warm-up. NaN inputs are excluded from the
// ranking.
func rollingRankPct(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := window - 1; i < len(x); i++ {
		if math.IsNaN(x[i]) {
			continue
		}
		var le, total int
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(x[j]) {
				continue
			}
			total++
			if x[j] <= x[i] {
				le++
			}
		}
		if total > 0 {
			out[i] = float64(le) / float64(total)
		}
	}
	return out
}
