package builtins

import (
	"math"

	"ganymede/internal/domain"
	"ganymede/internal/indicator"
	"ganymede/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*V2ProfitMax)(nil)

// V2ProfitMax is a profit-focused momentum strategy: tighter EMAs for quicker
// entries, aggressive take-profit targets, and a confidence boost on volume
// spikes.
//
// Parameters (with defaults): ema_fast 8, ema_slow 20, rsi_period 12,
// take_profit_pct 3.0, trailing_stop_pct 1.5.
type V2ProfitMax struct {
	base
	emaFast   int
	emaSlow   int
	rsiPeriod int
}

// NewV2ProfitMax constructs the strategy from its configuration.
func NewV2ProfitMax(cfg strategy.Config) (strategy.Strategy, error) {
	b, err := newBase(cfg, "v2-profit-max")
	if err != nil {
		return nil, err
	}
	s := &V2ProfitMax{
		base:      b,
		emaFast:   b.params.Int("ema_fast", 8),
		emaSlow:   b.params.Int("ema_slow", 20),
		rsiPeriod: b.params.Int("rsi_period", 12),
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

// Prepare computes EMAs, RSI, ATR and volume-ratio columns.
func (s *V2ProfitMax) Prepare(candles []domain.Candle) (*strategy.Frame, error) {
	closes := indicator.Closes(candles)
	volumes := indicator.Volumes(candles)

	f := strategy.NewFrame(candles)
	f.Set("ema_fast", indicator.EMA(closes, s.emaFast))
	f.Set("ema_slow", indicator.EMA(closes, s.emaSlow))
	f.Set("rsi", indicator.RSI(closes, s.rsiPeriod))
	f.Set("atr", indicator.ATR(candles, 14))

	volSMA := indicator.SMA(volumes, 20)
	ratio := make([]float64, len(candles))
	for i := range ratio {
		ratio[i] = volumes[i] / volSMA[i]
	}
	f.Set("volume_ratio", ratio)
	return f, nil
}

// Generate emits entries on sustained EMA alignment with one-bar momentum
// confirmation, attaching aggressive take-profit and trailing-stop levels.
func (s *V2ProfitMax) Generate(candles []domain.Candle) (domain.Signal, error) {
	// The alignment check looks five bars back.
	if len(candles) < 5 {
		return s.neutral(candles, ""), nil
	}
	f, err := s.Prepare(candles)
	if err != nil {
		return domain.Signal{}, err
	}

	takeProfitPct := s.params.Float("take_profit_pct", 3.0)
	trailingStopPct := s.params.Float("trailing_stop_pct", 1.5)

	n := f.Len()
	last := candles[n-1]
	prevClose := candles[n-2].Close
	priceChange := (last.Close - prevClose) / prevClose

	alignedBull := f.Last("ema_fast") > f.Last("ema_slow") && f.Last("ema_slow") > f.At("ema_slow", n-5)
	alignedBear := f.Last("ema_fast") < f.Last("ema_slow") && f.Last("ema_slow") < f.At("ema_slow", n-5)

	volumeRatio := f.Last("volume_ratio")
	volumeSpike := volumeRatio > 1.3
	rsi := f.Last("rsi")
	trendStrength := math.Abs(last.Close-f.Last("ema_slow")) / f.Last("ema_slow")

	price := last.Close

	if alignedBull && priceChange > 0.001 && rsi < 75 {
		conf := confidence(trendStrength, volumeRatio, 0)
		if volumeSpike {
			conf = math.Min(conf+0.15, 1)
		}
		return domain.NewSignal(s.name, domain.SignalLong, conf, s.positionSize,
			last.Timestamp, price, map[string]any{
				"take_profit":       price * (1 + takeProfitPct/100),
				"stop_loss":         price * (1 - trailingStopPct/100),
				"trailing_stop_pct": trailingStopPct,
				"volume_ratio":      volumeRatio,
				"price_momentum":    priceChange,
			})
	}

	if alignedBear && priceChange < -0.001 && rsi > 25 {
		conf := confidence(trendStrength, volumeRatio, 0)
		if volumeSpike {
			conf = math.Min(conf+0.15, 1)
		}
		return domain.NewSignal(s.name, domain.SignalShort, conf, s.positionSize,
			last.Timestamp, price, map[string]any{
				"take_profit":       price * (1 - takeProfitPct/100),
				"stop_loss":         price * (1 + trailingStopPct/100),
				"trailing_stop_pct": trailingStopPct,
				"volume_ratio":      volumeRatio,
				"price_momentum":    priceChange,
			})
	}
	return s.neutral(candles, ""), nil
}
