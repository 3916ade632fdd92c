package builtins

import (
	"math"

	"ganymede/internal/domain"
	"ganymede/internal/indicator"
	"ganymede/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*V5VWAPRevert)(nil)

// V5VWAPRevert is a mean-reversion strategy around a rolling VWAP. When price
// deviates beyond a threshold from fair value it fades the move, targeting a
// reversion back to the VWAP itself.
//
// Parameters (with defaults): vwap_period 14, rsi_period 14,
// mean_reversion_threshold 0.005, volume_spike_factor 1.5.
type V5VWAPRevert struct {
	base
	vwapPeriod int
	rsiPeriod  int
}

// NewV5VWAPRevert constructs the strategy from its configuration.
func NewV5VWAPRevert(cfg strategy.Config) (strategy.Strategy, error) {
	b, err := newBase(cfg, "v5-vwap-revert")
	if err != nil {
		return nil, err
	}
	s := &V5VWAPRevert{
		base:       b,
		vwapPeriod: b.params.Int("vwap_period", 14),
		rsiPeriod:  b.params.Int("rsi_period", 14),
	}
	for key, period := range map[string]int{
		"vwap_period": s.vwapPeriod, "rsi_period": s.rsiPeriod,
	} {
		if err := requirePeriod(s.name, key, period); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Prepare computes the VWAP deviation and confirmation columns.
func (s *V5VWAPRevert) Prepare(candles []domain.Candle) (*strategy.Frame, error) {
	closes := indicator.Closes(candles)
	volumes := indicator.Volumes(candles)

	f := strategy.NewFrame(candles)
	vwap := indicator.VWAP(candles, s.vwapPeriod)
	f.Set("vwap", vwap)

	deviation := make([]float64, len(closes))
	for i := range deviation {
		deviation[i] = (closes[i] - vwap[i]) / vwap[i]
	}
	f.Set("vwap_deviation", deviation)
	f.Set("rsi", indicator.RSI(closes, s.rsiPeriod))

	volSMA := indicator.SMA(volumes, 20)
	ratio := make([]float64, len(candles))
	for i := range ratio {
		ratio[i] = volumes[i] / volSMA[i]
	}
	f.Set("volume_ratio", ratio)
	return f, nil
}

// Generate fades a stretched deviation from the VWAP, with the VWAP itself
// as the take-profit target.
func (s *V5VWAPRevert) Generate(candles []domain.Candle) (domain.Signal, error) {
	if len(candles) < 20 {
		return s.neutral(candles, ""), nil
	}
	f, err := s.Prepare(candles)
	if err != nil {
		return domain.Signal{}, err
	}

	threshold := s.params.Float("mean_reversion_threshold", 0.005)
	spikeFactor := s.params.Float("volume_spike_factor", 1.5)

	last := candles[len(candles)-1]
	price := last.Close
	vwap := f.Last("vwap")
	deviation := f.Last("vwap_deviation")
	rsi := f.Last("rsi")
	volumeRatio := f.Last("volume_ratio")
	volumeConfirmed := volumeRatio > spikeFactor

	score := func() float64 {
		conf := 0.5 + math.Min(math.Abs(deviation)/0.02, 1)*0.3
		if volumeConfirmed {
			conf += 0.15
		}
		if rsi < 35 || rsi > 65 {
			conf += 0.05
		}
		return math.Min(conf, 0.95)
	}

	meta := func(stopLoss float64, signalType string) map[string]any {
		return map[string]any{
			"vwap":          vwap,
			"deviation_pct": deviation * 100,
			"take_profit":   vwap,
			"stop_loss":     stopLoss,
			"volume_ratio":  volumeRatio,
			"signal_type":   signalType,
		}
	}

	// Stretched below fair value: buy the dip back toward the VWAP.
	if deviation < -threshold && rsi < 45 {
		return domain.NewSignal(s.name, domain.SignalLong,
			score(), s.positionSize, last.Timestamp, price,
			meta(price*0.985, "vwap_revert_long"))
	}
	// Stretched above fair value: fade the extension.
	if deviation > threshold && rsi > 55 {
		return domain.NewSignal(s.name, domain.SignalShort,
			score(), s.positionSize, last.Timestamp, price,
			meta(price*1.015, "vwap_revert_short"))
	}
	return s.neutral(candles, ""), nil
}
