// Package indicators provides technical analysis primitives over ordered
// price sequences.
//
// Every function returns a slice of the same length as its input, with NaN
// at the leading positions before enough history exists. The value at
// position i is a function of input positions [0..i] only: no centering, no
// forward fill.
package indicators

import (
	"fmt"
	"math"
)

// NaN is the missing-value sentinel used throughout the library.
var NaN = math.NaN()

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = NaN
	}
	return out
}

// SMA calculates the Simple Moving Average for the given period.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("indicators: period must be positive, got %d", period)
	}

	out := nanSlice(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMA calculates the Exponential Moving Average for the given period.
// The first value is seeded with the SMA over the first period inputs.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("indicators: period must be positive, got %d", period)
	}
	return emaFrom(values, period, 0), nil
}

// emaFrom runs an EMA whose warmup window starts at offset. Positions before
// offset+period-1 are NaN. Used directly by MACD, whose signal line smooths
// a series with a NaN prefix.
func emaFrom(values []float64, period, offset int) []float64 {
	out := nanSlice(len(values))
	if offset+period > len(values) {
		return out
	}

	multiplier := 2.0 / float64(period+1)

	sum := 0.0
	for i := offset; i < offset+period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[offset+period-1] = ema

	for i := offset + period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

// RSI calculates the Relative Strength Index with Wilder smoothing. The
// first defined output is at position period.
func RSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("indicators: period must be positive, got %d", period)
	}

	out := nanSlice(len(values))
	if len(values) <= period {
		return out, nil
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // flat window
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR calculates the Average True Range with Wilder smoothing. The first
// defined output is at position period (true range needs a previous bar).
func ATR(high, low, close []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("indicators: period must be positive, got %d", period)
	}
	if len(high) != len(low) || len(low) != len(close) {
		return nil, fmt.Errorf("indicators: high/low/close length mismatch: %d/%d/%d",
			len(high), len(low), len(close))
	}

	out := nanSlice(len(close))
	if len(close) <= period {
		return out, nil
	}

	var atr float64
	for i := 1; i <= period; i++ {
		atr += trueRange(high[i], low[i], close[i-1])
	}
	atr /= float64(period)
	out[period] = atr

	for i := period + 1; i < len(close); i++ {
		tr := trueRange(high[i], low[i], close[i-1])
		atr = (atr*float64(period-1) + tr) / float64(period)
		out[i] = atr
	}
	return out, nil
}

// trueRange calculates the True Range of a bar given the previous close.
func trueRange(high, low, prevClose float64) float64 {
	hl := high - low
	hc := math.Abs(high - prevClose)
	lc := math.Abs(low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// MACD returns the MACD line, signal line, and histogram for the given
// fast/slow/signal periods.
func MACD(values []float64, fast, slow, signal int) (macd, sig, hist []float64, err error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, nil, nil, fmt.Errorf("indicators: MACD periods must be positive, got %d/%d/%d", fast, slow, signal)
	}
	if fast >= slow {
		return nil, nil, nil, fmt.Errorf("indicators: MACD fast period %d must be < slow period %d", fast, slow)
	}

	emaFast, _ := EMA(values, fast)
	emaSlow, _ := EMA(values, slow)

	macd = nanSlice(len(values))
	for i := range values {
		macd[i] = emaFast[i] - emaSlow[i] // NaN until both are defined
	}

	sig = emaFrom(macd, signal, slow-1)

	hist = nanSlice(len(values))
	for i := range values {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist, nil
}

// Bollinger returns the lower, middle, and upper bands for the given period
// and width k (in standard deviations).
func Bollinger(values []float64, period int, k float64) (lower, middle, upper []float64, err error) {
	if period <= 1 {
		return nil, nil, nil, fmt.Errorf("indicators: Bollinger period must be > 1, got %d", period)
	}

	middle, _ = SMA(values, period)
	sd, _ := StdDev(values, period)

	lower = nanSlice(len(values))
	upper = nanSlice(len(values))
	for i := range values {
		lower[i] = middle[i] - k*sd[i]
		upper[i] = middle[i] + k*sd[i]
	}
	return lower, middle, upper, nil
}

// StdDev calculates the rolling sample standard deviation.
func StdDev(values []float64, period int) ([]float64, error) {
	if period <= 1 {
		return nil, fmt.Errorf("indicators: period must be > 1, got %d", period)
	}

	out := nanSlice(len(values))
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)

		ss := 0.0
		for _, v := range window {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out, nil
}

// PctChange returns v[i]/v[i-period] - 1, NaN for the first period positions.
func PctChange(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period; i < len(values); i++ {
		out[i] = values[i]/values[i-period] - 1
	}
	return out
}
