package builtins

import (
	"math"

	"ganymede/internal/domain"
	"ganymede/internal/indicator"
	"ganymede/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*V1Momentum)(nil)

// V1Momentum is the baseline momentum strategy: a fast/slow EMA crossover
// confirmed by an RSI that is not overextended.
//
// Parameters (with defaults): ema_fast 9, ema_slow 21, rsi_period 14,
// rsi_overbought 70, rsi_oversold 30.
type V1Momentum struct {
	base
	emaFast   int
	emaSlow   int
	rsiPeriod int
}

// NewV1Momentum constructs the strategy from its configuration.
func NewV1Momentum(cfg strategy.Config) (strategy.Strategy, error) {
	b, err := newBase(cfg, "v1-momentum")
	if err != nil {
		return nil, err
	}
	s := &V1Momentum{
		base:      b,
		emaFast:   b.params.Int("ema_fast", 9),
		emaSlow:   b.params.Int("ema_slow", 21),
		rsiPeriod: b.params.Int("rsi_period", 14),
	}
	for key, period := range map[string]int{
		"ema_fast": s.emaFast, "ema_slow": s.emaSlow, "rsi_period": s.rsiPeriod,
	} {
		if err := requirePeriod(s.name, key, period); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Prepare computes the EMAs and RSI.
func (s *V1Momentum) Prepare(candles []domain.Candle) (*strategy.Frame, error) {
	closes := indicator.Closes(candles)
	f := strategy.NewFrame(candles)
	f.Set("ema_fast", indicator.EMA(closes, s.emaFast))
	f.Set("ema_slow", indicator.EMA(closes, s.emaSlow))
	f.Set("rsi", indicator.RSI(closes, s.rsiPeriod))
	return f, nil
}

// Generate emits a Long on a golden cross with RSI below the overbought
// threshold, a Short on a death cross with RSI above the oversold threshold,
// and Neutral otherwise.
func (s *V1Momentum) Generate(candles []domain.Candle) (domain.Signal, error) {
	if len(candles) < 2 {
		return s.neutral(candles, ""), nil
	}
	f, err := s.Prepare(candles)
	if err != nil {
		return domain.Signal{}, err
	}

	overbought := s.params.Float("rsi_overbought", 70)
	oversold := s.params.Float("rsi_oversold", 30)

	prevDiff := f.Prev("ema_fast") - f.Prev("ema_slow")
	currDiff := f.Last("ema_fast") - f.Last("ema_slow")
	goldenCross := prevDiff < 0 && currDiff > 0
	deathCross := prevDiff > 0 && currDiff < 0

	last := candles[len(candles)-1]
	rsi := f.Last("rsi")
	trendStrength := math.Abs(currDiff) / f.Last("ema_slow")

	switch {
	case goldenCross && rsi < overbought:
		return domain.NewSignal(s.name, domain.SignalLong,
			confidence(trendStrength, 0, 0), s.positionSize,
			last.Timestamp, last.Close, map[string]any{
				"ema_fast":    f.Last("ema_fast"),
				"ema_slow":    f.Last("ema_slow"),
				"rsi":         rsi,
				"signal_type": "ema_crossover",
			})

	case deathCross && rsi > oversold:
		return domain.NewSignal(s.name, domain.SignalShort,
			confidence(trendStrength, 0, 0), s.positionSize,
			last.Timestamp, last.Close, map[string]any{
				"ema_fast":    f.Last("ema_fast"),
				"ema_slow":    f.Last("ema_slow"),
				"rsi":         rsi,
				"signal_type": "ema_crossover",
			})
	}
	return s.neutral(candles, ""), nil
}
