// Package builtins provides the built-in strategy implementations that ship
// with ganymede. Each variant consumes indicator columns computed in Prepare
// and emits exactly one Signal per evaluation; when entry conditions are not
// met, or indicator values are still warming up, the signal is Neutral.
package builtins

import (
	"math"
	"time"

	"ganymede/internal/domain"
	"ganymede/internal/strategy"
)

// RegisterAll registers every built-in strategy factory.
func RegisterAll(r *strategy.Registry) {
	r.Register("v1-momentum", NewV1Momentum)
	r.Register("v2-profit-max", NewV2ProfitMax)
	r.Register("v3-aggressive", NewV3Aggressive)
	r.Register("v4-fixed-stop", NewV4FixedStop)
	r.Register("v5-vwap-revert", NewV5VWAPRevert)
	r.Register("v6-breakout", NewV6Breakout)
}

// base carries the configuration shared by all variants.
type base struct {
	name         string
	positionSize float64
	params       strategy.Params
}

func newBase(cfg strategy.Config, defaultName string) (base, error) {
	cfg.SetDefaults()
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if err := cfg.Validate(); err != nil {
		return base{}, err
	}
	return base{
		name:         cfg.Name,
		positionSize: cfg.PositionSize,
		params:       cfg.Params,
	}, nil
}

// Name returns the configured strategy name.
func (b *base) Name() string { return b.name }

// Reset is a no-op for stateless variants.
func (b *base) Reset() {}

// neutral builds a no-trade signal at the latest close.
func (b *base) neutral(candles []domain.Candle, reason string) domain.Signal {
	var price float64
	var ts time.Time
	if len(candles) > 0 {
		last := candles[len(candles)-1]
		price = last.Close
		ts = last.Timestamp
	}
	sig := domain.Signal{
		Strategy:  b.name,
		Kind:      domain.SignalNeutral,
		Timestamp: ts,
		Price:     price,
	}
	if reason != "" {
		sig.Metadata = map[string]any{"reason": reason}
	}
	return sig
}

// requirePeriod validates that a period parameter is positive.
func requirePeriod(name, key string, period int) error {
	if period <= 0 {
		return &strategy.ConfigurationError{
			Strategy: name,
			Reason:   key + " must be positive",
		}
	}
	return nil
}

// confidence computes a weighted score from the available factors. A
// volumeRatio of 0 means the factor is unknown and is skipped.
func confidence(trendStrength, volumeRatio, volatilityRegime float64) float64 {
	score := 0.5 + trendStrength*0.2
	if volumeRatio > 0 {
		score += math.Min(volumeRatio-1, 1) * 0.15
	}
	score += volatilityRegime * 0.1
	return clamp(score, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
