package walkforward

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/strategies"
)

var t0 = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

func trendingSeries(t *testing.T, n int) *market.Series {
	t.Helper()
	bars := make([]market.Bar, n)
	for i := range bars {
		c := 100 + 15*math.Sin(float64(i)/23) + 0.02*float64(i)
		o := c * 0.998
		bars[i] = market.Bar{
			Time: t0.Add(time.Duration(i) * 24 * time.Hour),
			Open: o, High: c * 1.012, Low: o * 0.988, Close: c, Volume: 500,
		}
	}
	s, err := market.NewSeries(bars)
	require.NoError(t, err)
	return s
}

func maCrossFactory(p map[string]float64) (strategies.Strategy, error) {
	return strategies.NewMACross(strategies.MACrossConfig{
		FastPeriod: int(p["fast_period"]),
		SlowPeriod: int(p["slow_period"]),
		MAType:     strategies.Simple,
	})
}

// Overlapping ranges so the search also draws invalid fast >= slow samples
// and has to survive the penalty path.
var space = Space{
	"fast_period": {Min: 5, Max: 30, Int: true},
	"slow_period": {Min: 20, Max: 60, Int: true},
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NSplits = 4
	cfg.NTrials = 8
	return cfg
}

func TestOptimizeFoldsDisjointAndSized(t *testing.T) {
	prices := trendingSeries(t, 1000)
	opt, err := New(testConfig())
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), prices, maCrossFactory, space)
	require.NoError(t, err)

	require.Len(t, res.Folds, 4)
	for _, f := range res.Folds {
		assert.True(t, f.TrainEnd.Before(f.TestStart), "fold %d: test must start after train", f.Index)
		assert.True(t, f.TrainStart.Before(f.TrainEnd))
		assert.True(t, f.TestStart.Before(f.TestEnd))

		trainBars := int(f.TrainEnd.Sub(f.TrainStart)/(24*time.Hour)) + 1
		testBars := int(f.TestEnd.Sub(f.TestStart)/(24*time.Hour)) + 1
		assert.Equal(t, 175, trainBars, "fold %d", f.Index)
		assert.GreaterOrEqual(t, testBars, 75, "fold %d", f.Index)
	}
}

func TestOptimizeBestParamsRespectConstraint(t *testing.T) {
	prices := trendingSeries(t, 800)
	opt, err := New(testConfig())
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), prices, maCrossFactory, space)
	require.NoError(t, err)

	for _, f := range res.Folds {
		require.NotNil(t, f.BestParams)
		assert.Less(t, f.BestParams["fast_period"], f.BestParams["slow_period"],
			"fold %d best params violate fast < slow", f.Index)
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	prices := trendingSeries(t, 600)

	run := func() *Result {
		opt, err := New(testConfig())
		require.NoError(t, err)
		res, err := opt.Optimize(context.Background(), prices, maCrossFactory, space)
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a, b)
}

func TestParamStabilityBounds(t *testing.T) {
	prices := trendingSeries(t, 800)
	opt, err := New(testConfig())
	require.NoError(t, err)

	res, err := opt.Optimize(context.Background(), prices, maCrossFactory, space)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.ParamStability, 0.0)
	assert.LessOrEqual(t, res.ParamStability, 1.0)
}

func TestStabilityIdenticalParamsIsOne(t *testing.T) {
	params := []map[string]float64{
		{"a": 10, "b": 3},
		{"a": 10, "b": 3},
		{"a": 10, "b": 3},
	}
	assert.Equal(t, 1.0, stability(params, []string{"a", "b"}))
}

func TestStabilityVaryingParamsBelowOne(t *testing.T) {
	params := []map[string]float64{
		{"a": 5},
		{"a": 25},
		{"a": 50},
	}
	s := stability(params, []string{"a"})
	assert.Greater(t, s, 0.0)
	assert.Less(t, s, 1.0)
}

func TestOptimizeInsufficientData(t *testing.T) {
	prices := trendingSeries(t, 100) // every fold undersized
	opt, err := New(testConfig())
	require.NoError(t, err)

	_, err = opt.Optimize(context.Background(), prices, maCrossFactory, space)
	assert.Error(t, err)
}

func TestOptimizeCancellation(t *testing.T) {
	prices := trendingSeries(t, 800)
	opt, err := New(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = opt.Optimize(ctx, prices, maCrossFactory, space)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidation(t *testing.T) {
	cfg := testConfig()
	cfg.NSplits = 1
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.TrainFraction = 1.2
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Metric = "alpha"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.NTrials = 0
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestOptimizeRejectsEmptySpace(t *testing.T) {
	prices := trendingSeries(t, 800)
	opt, err := New(testConfig())
	require.NoError(t, err)

	_, err = opt.Optimize(context.Background(), prices, maCrossFactory, Space{})
	assert.Error(t, err)
	_, err = opt.Optimize(context.Background(), prices, nil, space)
	assert.Error(t, err)
}
