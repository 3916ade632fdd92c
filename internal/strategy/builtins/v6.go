package builtins

import (
	"math"

	"ganymede/internal/domain"
	"ganymede/internal/indicator"
	"ganymede/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*V6Breakout)(nil)

// V6Breakout enters when price closes through the rolling high or low of a
// lookback window, optionally requiring a volume surge to confirm the move.
// The broken level becomes the stop reference and the target is set at twice
// the stop distance.
//
// Parameters (with defaults): lookback_periods 20, volume_confirmation true,
// momentum_threshold 0.005.
type V6Breakout struct {
	base
	lookback           int
	volumeConfirmation bool
}

// NewV6Breakout constructs the strategy from its configuration.
func NewV6Breakout(cfg strategy.Config) (strategy.Strategy, error) {
	b, err := newBase(cfg, "v6-breakout")
	if err != nil {
		return nil, err
	}
	s := &V6Breakout{
		base:               b,
		lookback:           b.params.Int("lookback_periods", 20),
		volumeConfirmation: b.params.Bool("volume_confirmation", true),
	}
	if err := requirePeriod(s.name, "lookback_periods", s.lookback); err != nil {
		return nil, err
	}
	return s, nil
}

// Prepare computes the rolling channel and volume columns.
func (s *V6Breakout) Prepare(candles []domain.Candle) (*strategy.Frame, error) {
	volumes := indicator.Volumes(candles)

	f := strategy.NewFrame(candles)
	f.Set("resistance", indicator.RollingMax(indicator.Highs(candles), s.lookback))
	f.Set("support", indicator.RollingMin(indicator.Lows(candles), s.lookback))

	volSMA := indicator.SMA(volumes, 20)
	ratio := make([]float64, len(candles))
	for i := range ratio {
		ratio[i] = volumes[i] / volSMA[i]
	}
	f.Set("volume_ratio", ratio)
	return f, nil
}

// Generate detects a close through the prior bar's channel boundary. The
// prior boundary is used so the breakout candle itself does not move the
// level it is breaking.
func (s *V6Breakout) Generate(candles []domain.Candle) (domain.Signal, error) {
	if len(candles) < 25 {
		return s.neutral(candles, ""), nil
	}
	f, err := s.Prepare(candles)
	if err != nil {
		return domain.Signal{}, err
	}

	momentumThreshold := s.params.Float("momentum_threshold", 0.005)

	n := len(candles)
	last := candles[n-1]
	price := last.Close
	prevClose := candles[n-2].Close

	resistance := f.At("resistance", n-2)
	support := f.At("support", n-2)
	volumeRatio := f.Last("volume_ratio")
	volumeOK := !s.volumeConfirmation || volumeRatio > 1.2

	momentum := (price - candles[n-4].Close) / candles[n-4].Close

	brokeResistance := price > resistance && prevClose <= resistance
	brokeSupport := price < support && prevClose >= support

	score := func(strength float64) float64 {
		conf := 0.6 + math.Min(strength*10, 0.2)
		if volumeRatio > 1.5 {
			conf += 0.1
		}
		if math.Abs(momentum) > 0.01 {
			conf += 0.05
		}
		return math.Min(conf, 0.95)
	}

	meta := func(level, strength, stopLoss, takeProfit float64, signalType string) map[string]any {
		return map[string]any{
			"breakout_level":        level,
			"breakout_strength_pct": strength * 100,
			"stop_loss":             stopLoss,
			"take_profit":           takeProfit,
			"volume_ratio":          volumeRatio,
			"lookback_periods":      s.lookback,
			"signal_type":           signalType,
		}
	}

	if brokeResistance && volumeOK && momentum > momentumThreshold {
		strength := (price - resistance) / resistance
		stopLoss := resistance * 0.995
		takeProfit := price + (price-stopLoss)*2
		return domain.NewSignal(s.name, domain.SignalLong,
			score(strength), s.positionSize, last.Timestamp, price,
			meta(resistance, strength, stopLoss, takeProfit, "resistance_breakout"))
	}
	if brokeSupport && volumeOK && momentum < -momentumThreshold {
		strength := (support - price) / support
		stopLoss := support * 1.005
		takeProfit := price - (stopLoss-price)*2
		return domain.NewSignal(s.name, domain.SignalShort,
			score(strength), s.positionSize, last.Timestamp, price,
			meta(support, strength, stopLoss, takeProfit, "support_breakdown"))
	}
	return s.neutral(candles, ""), nil
}
