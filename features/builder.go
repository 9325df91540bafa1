// Package features assembles the feature table and classification target
// consumed by model-based strategies.
//
// The construction protocol is strict: every feature is computed on the
// unshifted price series, and the finished table is lagged by exactly one
// bar as the final operation. Lagging the inputs instead would double-lag
// stateful smoothers such as Wilder's RSI, whose rolling seed already spans
// [t-p..t]. After the lag, feature[t] depends only on bars strictly before
// t.
package features

import (
	"fmt"
	"math"

	"github.com/rustyeddy/quantlab/indicators"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/quanterr"
)

// Config enumerates the recognised feature-builder options.
type Config struct {
	SMAPeriods      []int
	RSIPeriod       int
	ATRPeriod       int
	LookbackPeriods []int
	Horizon         int
	Threshold       float64
}

// DefaultConfig mirrors the standard research setup.
func DefaultConfig() Config {
	return Config{
		SMAPeriods:      []int{5, 10, 20, 50},
		RSIPeriod:       14,
		ATRPeriod:       14,
		LookbackPeriods: []int{1, 5, 10, 20},
		Horizon:         1,
		Threshold:       0,
	}
}

// Builder derives feature tables and targets from OHLCV series.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) (*Builder, error) {
	if len(cfg.SMAPeriods) == 0 {
		return nil, quanterr.Contractf("features", cfg.SMAPeriods, "sma_periods must not be empty")
	}
	for _, p := range append(append([]int{}, cfg.SMAPeriods...), cfg.LookbackPeriods...) {
		if p <= 0 {
			return nil, quanterr.Contractf("features", p, "periods must be positive")
		}
	}
	if cfg.RSIPeriod <= 0 {
		return nil, quanterr.Contractf("features", cfg.RSIPeriod, "rsi_period must be positive")
	}
	if cfg.ATRPeriod <= 0 {
		return nil, quanterr.Contractf("features", cfg.ATRPeriod, "atr_period must be positive")
	}
	if cfg.Horizon <= 0 {
		return nil, quanterr.Contractf("features", cfg.Horizon, "horizon must be positive")
	}
	return &Builder{cfg: cfg}, nil
}

func (b *Builder) Config() Config { return b.cfg }

// Features builds the full feature table for prices. The returned table is
// aligned to the price index and already lagged by one bar.
func (b *Builder) Features(prices *market.Series) (*Table, error) {
	if prices == nil || prices.Len() == 0 {
		return nil, quanterr.Contractf("features", nil, "prices is empty")
	}

	close := prices.Closes()
	high := prices.Highs()
	low := prices.Lows()

	t := newTable(prices.Times())

	// Past-window returns.
	for _, p := range b.cfg.LookbackPeriods {
		t.add(fmt.Sprintf("return_%d", p), indicators.PctChange(close, p))
	}

	// Moving averages and relative distance from price.
	for _, p := range b.cfg.SMAPeriods {
		ma, err := indicators.SMA(close, p)
		if err != nil {
			return nil, err
		}
		t.add(fmt.Sprintf("sma_%d", p), ma)
		t.add(fmt.Sprintf("close_to_sma_%d", p), ratioMinusOne(close, ma))
	}

	// Fast/slow cross flag and normalised spread.
	if len(b.cfg.SMAPeriods) >= 2 {
		fast, _ := indicators.SMA(close, b.cfg.SMAPeriods[0])
		slow, _ := indicators.SMA(close, b.cfg.SMAPeriods[len(b.cfg.SMAPeriods)-1])
		t.add("ma_cross", binaryGT(fast, slow))
		t.add("ma_diff", normalisedSpread(fast, slow))
	}

	// RSI plus regime flags.
	rsi, err := indicators.RSI(close, b.cfg.RSIPeriod)
	if err != nil {
		return nil, err
	}
	t.add("rsi", rsi)
	t.add("rsi_oversold", binaryLTConst(rsi, 30))
	t.add("rsi_overbought", binaryGTConst(rsi, 70))

	// Volatility.
	atr, err := indicators.ATR(high, low, close, b.cfg.ATRPeriod)
	if err != nil {
		return nil, err
	}
	t.add("atr", atr)
	t.add("atr_pct", divide(atr, close))

	rets := indicators.PctChange(close, 1)
	for _, p := range []int{5, 20} {
		sd, err := indicators.StdDev(rets, p)
		if err != nil {
			return nil, err
		}
		t.add(fmt.Sprintf("volatility_%d", p), sd)
	}

	// MACD family.
	macd, sig, hist, err := indicators.MACD(close, 12, 26, 9)
	if err != nil {
		return nil, err
	}
	t.add("macd", macd)
	t.add("macd_signal", sig)
	t.add("macd_hist", hist)

	// Bollinger position and width.
	lower, _, upper, err := indicators.Bollinger(close, 20, 2)
	if err != nil {
		return nil, err
	}
	bbPos := make([]float64, len(close))
	bbWidth := make([]float64, len(close))
	for i := range close {
		r := upper[i] - lower[i]
		bbPos[i] = (close[i] - lower[i]) / r
		bbWidth[i] = r / close[i]
	}
	t.add("bb_position", bbPos)
	t.add("bb_width", bbWidth)

	// Volume features for datasets that carry volume.
	if prices.HasVolume() {
		vol := prices.Volumes()
		volSMA, _ := indicators.SMA(vol, 20)
		t.add("volume_sma_20", volSMA)
		t.add("volume_ratio", divide(vol, volSMA))
		t.add("volume_change", indicators.PctChange(vol, 1))
	}

	// Intra-bar shape.
	hlRange := make([]float64, len(close))
	closePos := make([]float64, len(close))
	for i := range close {
		hlRange[i] = (high[i] - low[i]) / close[i]
		closePos[i] = (close[i] - low[i]) / (high[i] - low[i])
	}
	t.add("high_low_range", hlRange)
	t.add("close_position", closePos)

	// Momentum over multiple horizons.
	for _, p := range []int{5, 10, 20} {
		t.add(fmt.Sprintf("momentum_%d", p), indicators.PctChange(close, p))
	}

	// Final operations, in order: lag the whole table once, then drop the
	// infinities division may have produced.
	t.lag()
	t.sanitize()

	return t, nil
}

// Target builds the binary classification label: 1 when the forward return
// over the horizon exceeds the threshold. The trailing horizon positions
// are NaN.
func (b *Builder) Target(prices *market.Series) ([]float64, error) {
	if prices == nil || prices.Len() == 0 {
		return nil, quanterr.Contractf("features", nil, "prices is empty")
	}

	close := prices.Closes()
	h := b.cfg.Horizon

	target := make([]float64, len(close))
	for i := range target {
		if i+h >= len(close) {
			target[i] = math.NaN()
			continue
		}
		futureReturn := close[i+h]/close[i] - 1
		if futureReturn > b.cfg.Threshold {
			target[i] = 1
		} else {
			target[i] = 0
		}
	}
	return target, nil
}

// Dataset assembles the aligned (features, target) pair with every row
// containing a missing value dropped. A horizon at or beyond the series
// length yields an empty dataset, not an error.
func (b *Builder) Dataset(prices *market.Series) (*Table, []float64, error) {
	feats, err := b.Features(prices)
	if err != nil {
		return nil, nil, err
	}
	target, err := b.Target(prices)
	if err != nil {
		return nil, nil, err
	}

	keep := make([]bool, feats.Len())
	for i := range keep {
		keep[i] = !feats.RowHasNaN(i) && !math.IsNaN(target[i])
	}

	kept := feats.filter(keep)
	y := make([]float64, 0, kept.Len())
	for i, k := range keep {
		if k {
			y = append(y, target[i])
		}
	}
	return kept, y, nil
}

func ratioMinusOne(num, den []float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		out[i] = num[i]/den[i] - 1
	}
	return out
}

func divide(num, den []float64) []float64 {
	out := make([]float64, len(num))
	for i := range num {
		out[i] = num[i] / den[i]
	}
	return out
}

func normalisedSpread(fast, slow []float64) []float64 {
	out := make([]float64, len(fast))
	for i := range fast {
		out[i] = (fast[i] - slow[i]) / slow[i]
	}
	return out
}

func binaryGT(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		switch {
		case math.IsNaN(a[i]) || math.IsNaN(b[i]):
			out[i] = math.NaN()
		case a[i] > b[i]:
			out[i] = 1
		}
	}
	return out
}

func binaryGTConst(a []float64, c float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		switch {
		case math.IsNaN(a[i]):
			out[i] = math.NaN()
		case a[i] > c:
			out[i] = 1
		}
	}
	return out
}

func binaryLTConst(a []float64, c float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		switch {
		case math.IsNaN(a[i]):
			out[i] = math.NaN()
		case a[i] < c:
			out[i] = 1
		}
	}
	return out
}
