// Package indicator provides pure technical-indicator functions over ordered
// price series. Every function returns a slice aligned to its input; entries
// that depend on fewer than `period` prior bars are NaN ("warm-up"). Callers
// must treat NaN indicator values as insufficient evidence.
package indicator

import (
	"math"

	"ganymede/internal/domain"
)

// Closes extracts the close prices from a candle series.
func Closes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high prices from a candle series.
func Highs(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low prices from a candle series.
func Lows(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Volumes extracts the volumes from a candle series.
func Volumes(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// EMA computes the exponential moving average in the non-adjusted recursive
// form: ema[0] = x[0], ema[t] = ema[t-1] + α·(x[t]-ema[t-1]) with
// α = 2/(period+1). The seed convention matters: alternate (adjusted) forms
// produce materially different warm-up values and must not be substituted.
func EMA(x []float64, period int) []float64 {
	if period <= 0 || len(x) == 0 {
		return nan(len(x))
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(x))
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = out[i-1] + alpha*(x[i]-out[i-1])
	}
	return out
}

// SMA computes the simple moving average over a rolling window. NaN until
// period-1 points have accumulated, and for any window containing a NaN.
func SMA(x []float64, period int) []float64 {
	out := nan(len(x))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(x); i++ {
		var sum float64
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(x[j]) {
				ok = false
				break
			}
			sum += x[j]
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// RollingStd computes the rolling sample standard deviation. NaN during
// warm-up and for any window containing a NaN.
func RollingStd(x []float64, period int) []float64 {
	out := nan(len(x))
	if period <= 1 {
		return out
	}
	for i := period - 1; i < len(x); i++ {
		var sum float64
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(x[j]) {
				ok = false
				break
			}
			sum += x[j]
		}
		if !ok {
			continue
		}
		mean := sum / float64(period)
		var ss float64
		for j := i - period + 1; j <= i; j++ {
			d := x[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

// RSI computes the Relative Strength Index over a rolling window of price
// deltas: 100 - 100/(1 + avgGain/avgLoss). While the average loss is zero
// the ratio is undefined and the RSI is reported as 100.
func RSI(x []float64, period int) []float64 {
	out := nan(len(x))
	if period <= 0 || len(x) < period+1 {
		return out
	}
	// The first delta needs two prices, so index `period` is the first
	// defined output.
	for i := period; i < len(x); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			d := x[j] - x[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		avgGain := gain / float64(period)
		avgLoss := loss / float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// TrueRange computes the per-bar true range: the maximum of high-low,
// |high-prevClose|, and |low-prevClose|. The first bar uses high-low only.
func TrueRange(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		hl := c.High - c.Low
		if i == 0 {
			out[i] = hl
			continue
		}
		prev := candles[i-1].Close
		out[i] = math.Max(hl, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
	}
	return out
}

// ATR computes the Average True Range as a rolling mean of the true range.
func ATR(candles []domain.Candle, period int) []float64 {
	return SMA(TrueRange(candles), period)
}

// ADX computes the Average Directional Index, a 0-100 trend-strength value.
// Directional movement is smoothed with rolling means; where the DI ratio
// denominator is zero (or the DIs are still warming up) the DX contribution
// is 0 rather than an error.
func ADX(candles []domain.Candle, period int) []float64 {
	n := len(candles)
	out := nan(n)
	if period <= 0 || n == 0 {
		return out
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := SMA(TrueRange(candles), period)
	plusSM := SMA(plusDM, period)
	minusSM := SMA(minusDM, period)

	// DX, with zero filled in wherever the DIs are undefined or their sum
	// is zero.
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		// First delta is undefined, so DI windows touching index 0 are too.
		if i < period || math.IsNaN(atr[i]) || atr[i] == 0 {
			continue
		}
		plusDI := 100 * plusSM[i] / atr[i]
		minusDI := 100 * minusSM[i] / atr[i]
		sum := plusDI + minusDI
		if sum == 0 {
			continue
		}
		dx[i] = math.Abs(plusDI-minusDI) / sum * 100
	}

	return SMA(dx, period)
}

// VWAP computes the rolling volume-weighted average of the typical price
// (high+low+close)/3. NaN during warm-up or when the rolling volume sum is
// zero.
func VWAP(candles []domain.Candle, period int) []float64 {
	out := nan(len(candles))
	if period <= 0 {
		return out
	}
	var pvSum, vSum float64
	for i, c := range candles {
		tp := (c.High + c.Low + c.Close) / 3
		pvSum += tp * c.Volume
		vSum += c.Volume
		if i >= period {
			old := candles[i-period]
			oldTP := (old.High + old.Low + old.Close) / 3
			pvSum -= oldTP * old.Volume
			vSum -= old.Volume
		}
		if i >= period-1 && vSum > 0 {
			out[i] = pvSum / vSum
		}
	}
	return out
}

// Bollinger computes Bollinger bands: middle = SMA(period), upper/lower =
// middle ± k·rolling sample stdev.
func Bollinger(x []float64, period int, k float64) (upper, middle, lower []float64) {
	middle = SMA(x, period)
	std := RollingStd(x, period)
	upper = nan(len(x))
	lower = nan(len(x))
	for i := range x {
		if math.IsNaN(middle[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}
	return upper, middle, lower
}

// MACD computes the MACD line (fast EMA - slow EMA), its signal line
// (EMA of the MACD line), and the histogram (line - signal).
func MACD(x []float64, fast, slow, signal int) (line, signalLine, histogram []float64) {
	emaFast := EMA(x, fast)
	emaSlow := EMA(x, slow)
	line = make([]float64, len(x))
	for i := range x {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signalLine = EMA(line, signal)
	histogram = make([]float64, len(x))
	for i := range x {
		histogram[i] = line[i] - signalLine[i]
	}
	return line, signalLine, histogram
}

// Stochastic computes the stochastic oscillator: %K = 100·(close-lowestLow)/
// (highestHigh-lowestLow) over kPeriod bars, %D = SMA(%K, dPeriod). %K is
// NaN when the rolling range is zero.
func Stochastic(candles []domain.Candle, kPeriod, dPeriod int) (k, d []float64) {
	low := RollingMin(Lows(candles), kPeriod)
	high := RollingMax(Highs(candles), kPeriod)
	k = nan(len(candles))
	for i, c := range candles {
		if math.IsNaN(low[i]) || math.IsNaN(high[i]) {
			continue
		}
		rng := high[i] - low[i]
		if rng == 0 {
			continue
		}
		k[i] = 100 * (c.Close - low[i]) / rng
	}
	d = SMA(k, dPeriod)
	return k, d
}

// RollingMax returns the rolling maximum over a window.
func RollingMax(x []float64, period int) []float64 {
	out := nan(len(x))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(x); i++ {
		m := x[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if x[j] > m {
				m = x[j]
			}
		}
		out[i] = m
	}
	return out
}

// RollingMin returns the rolling minimum over a window.
func RollingMin(x []float64, period int) []float64 {
	out := nan(len(x))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(x); i++ {
		m := x[i-period+1]
		for j := i - period + 2; j <= i; j++ {
			if x[j] < m {
				m = x[j]
			}
		}
		out[i] = m
	}
	return out
}

// Shift returns x delayed by n entries; the first n entries are NaN.
func Shift(x []float64, n int) []float64 {
	out := nan(len(x))
	for i := n; i < len(x); i++ {
		out[i] = x[i-n]
	}
	return out
}

func nan(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
