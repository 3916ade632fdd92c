package builtins

import (
	"ganymede/internal/domain"
	"ganymede/internal/indicator"
	"ganymede/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*V4FixedStop)(nil)

// V4FixedStop trades EMA crossovers confirmed by trend strength and attaches
// fixed percentage stop-loss and take-profit levels to every entry, giving a
// constant risk-reward ratio.
//
// Parameters (with defaults): ema_fast 12, ema_slow 26, rsi_period 14,
// atr_period 14, adx_period 14, stop_loss_pct 2.0, take_profit_pct 4.0,
// min_adx 25.
type V4FixedStop struct {
	base
	emaFast   int
	emaSlow   int
	rsiPeriod int
	atrPeriod int
	adxPeriod int
}

// NewV4FixedStop constructs the strategy from its configuration.
func NewV4FixedStop(cfg strategy.Config) (strategy.Strategy, error) {
	b, err := newBase(cfg, "v4-fixed-stop")
	if err != nil {
		return nil, err
	}
	s := &V4FixedStop{
		base:      b,
		emaFast:   b.params.Int("ema_fast", 12),
		emaSlow:   b.params.Int("ema_slow", 26),
		rsiPeriod: b.params.Int("rsi_period", 14),
		atrPeriod: b.params.Int("atr_period", 14),
		adxPeriod: b.params.Int("adx_period", 14),
	}
	for key, period := range map[string]int{
		"ema_fast": s.emaFast, "ema_slow": s.emaSlow, "rsi_period": s.rsiPeriod,
		"atr_period": s.atrPeriod, "adx_period": s.adxPeriod,
	} {
		if err := requirePeriod(s.name, key, period); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Prepare computes the crossover and confirmation columns.
func (s *V4FixedStop) Prepare(candles []domain.Candle) (*strategy.Frame, error) {
	closes := indicator.Closes(candles)
	f := strategy.NewFrame(candles)
	f.Set("ema_fast", indicator.EMA(closes, s.emaFast))
	f.Set("ema_slow", indicator.EMA(closes, s.emaSlow))
	f.Set("rsi", indicator.RSI(closes, s.rsiPeriod))
	f.Set("atr", indicator.ATR(candles, s.atrPeriod))
	f.Set("adx", indicator.ADX(candles, s.adxPeriod))
	return f, nil
}

// Generate emits an entry on an EMA crossover when ADX confirms a trend,
// with fixed stop and target prices carried in the signal metadata.
func (s *V4FixedStop) Generate(candles []domain.Candle) (domain.Signal, error) {
	if len(candles) < 2 {
		return s.neutral(candles, ""), nil
	}
	f, err := s.Prepare(candles)
	if err != nil {
		return domain.Signal{}, err
	}

	stopLossPct := s.params.Float("stop_loss_pct", 2.0) / 100
	takeProfitPct := s.params.Float("take_profit_pct", 4.0) / 100
	minADX := s.params.Float("min_adx", 25.0)

	last := candles[len(candles)-1]
	price := last.Close

	currDiff := f.Last("ema_fast") - f.Last("ema_slow")
	prevDiff := f.Prev("ema_fast") - f.Prev("ema_slow")
	rsi := f.Last("rsi")
	adx := f.Last("adx")
	atr := f.Last("atr")

	goldenCross := prevDiff < 0 && currDiff > 0
	deathCross := prevDiff > 0 && currDiff < 0
	trending := adx > minADX

	// Lower confidence contribution when volatility is elevated relative
	// to price.
	volRegime := 0.5
	if atr/price < 0.02 {
		volRegime = 1.0
	}

	meta := func(stopLoss, takeProfit float64) map[string]any {
		return map[string]any{
			"stop_loss":         stopLoss,
			"take_profit":       takeProfit,
			"risk_reward_ratio": takeProfitPct / stopLossPct,
			"adx":               adx,
			"atr":               atr,
		}
	}

	if goldenCross && trending && rsi < 70 {
		return domain.NewSignal(s.name, domain.SignalLong,
			confidence(adx/100, 0, volRegime), s.positionSize,
			last.Timestamp, price,
			meta(price*(1-stopLossPct), price*(1+takeProfitPct)))
	}
	if deathCross && trending && rsi > 30 {
		return domain.NewSignal(s.name, domain.SignalShort,
			confidence(adx/100, 0, volRegime), s.positionSize,
			last.Timestamp, price,
			meta(price*(1+stopLossPct), price*(1-takeProfitPct)))
	}
	return s.neutral(candles, ""), nil
}
