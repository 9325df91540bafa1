package strategies

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/features"
	"github.com/rustyeddy/quantlab/market"
)

var t0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesFromCloses(t *testing.T, closes []float64) *market.Series {
	t.Helper()
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time: t0.Add(time.Duration(i) * 24 * time.Hour),
			Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 100,
		}
	}
	s, err := market.NewSeries(bars)
	require.NoError(t, err)
	return s
}

func TestSignalFrameEntryWinsConflict(t *testing.T) {
	times := []time.Time{t0, t0.Add(24 * time.Hour)}
	f, err := NewSignalFrame(times, []bool{true, false}, []bool{true, true})
	require.NoError(t, err)

	assert.True(t, f.Entries[0])
	assert.False(t, f.Exits[0]) // exit suppressed
	assert.True(t, f.Exits[1])
}

func TestSignalFrameRejectsMisalignment(t *testing.T) {
	_, err := NewSignalFrame([]time.Time{t0}, []bool{true, false}, []bool{false})
	assert.Error(t, err)
	_, err = NewSignalFrame(nil, nil, nil)
	assert.Error(t, err)
}

func TestNewMACrossValidation(t *testing.T) {
	_, err := NewMACross(MACrossConfig{FastPeriod: 50, SlowPeriod: 10, MAType: Simple})
	assert.Error(t, err)

	_, err = NewMACross(MACrossConfig{FastPeriod: 0, SlowPeriod: 10, MAType: Simple})
	assert.Error(t, err)

	_, err = NewMACross(MACrossConfig{FastPeriod: 5, SlowPeriod: 10, MAType: "weird"})
	assert.Error(t, err)
}

func TestMACrossSignals(t *testing.T) {
	// Down-trend then sharp up-trend then down again: one upward cross,
	// one downward cross, detectable with SMA(2) vs SMA(4).
	closes := []float64{110, 108, 106, 104, 102, 100, 110, 120, 130, 128, 116, 104, 92, 90}
	s := seriesFromCloses(t, closes)

	strat, err := NewMACross(MACrossConfig{FastPeriod: 2, SlowPeriod: 4, MAType: Simple})
	require.NoError(t, err)

	frame, err := strat.GenerateSignals(s)
	require.NoError(t, err)
	require.Equal(t, s.Len(), frame.Len())

	var entryIdx, exitIdx []int
	for i := range closes {
		if frame.Entries[i] {
			entryIdx = append(entryIdx, i)
		}
		if frame.Exits[i] {
			exitIdx = append(exitIdx, i)
		}
	}

	require.Len(t, entryIdx, 1)
	require.Len(t, exitIdx, 1)
	assert.Equal(t, 6, entryIdx[0]) // SMA2 first exceeds SMA4 at the rally
	assert.Equal(t, 10, exitIdx[0]) // downward cross as the rally fades

	// Pre-warmup bars emit nothing.
	for i := 0; i < 3; i++ {
		assert.False(t, frame.Entries[i])
		assert.False(t, frame.Exits[i])
	}
}

func TestMACrossName(t *testing.T) {
	strat, err := NewMACross(MACrossDefaults())
	require.NoError(t, err)
	assert.Equal(t, "ma_cross_simple_10_50", strat.Name())
	assert.Equal(t, 10.0, strat.Params()["fast_period"])
}

// stubClassifier replays a scripted probability path over the valid rows.
type stubClassifier struct {
	seq     []float64
	trained bool
}

func (c *stubClassifier) Fit(X [][]float64, y []float64) error { c.trained = true; return nil }
func (c *stubClassifier) Trained() bool                        { return c.trained }
func (c *stubClassifier) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i := range out {
		if i < len(c.seq) {
			out[i] = c.seq[i]
		} else {
			out[i] = 0.5
		}
	}
	return out, nil
}

func hysteresisFixture(t *testing.T) (*market.Series, *features.Builder) {
	t.Helper()
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/5) + 0.1*float64(i)
	}
	b, err := features.NewBuilder(features.DefaultConfig())
	require.NoError(t, err)
	return seriesFromCloses(t, closes), b
}

func TestMLStrategyHysteresis(t *testing.T) {
	s, builder := hysteresisFixture(t)

	// Probability path across the first four signal-capable bars:
	// 0.5 -> 0.7 -> 0.55 -> 0.45 with thresholds 0.6/0.4 must produce an
	// entry at step 2 and nothing at steps 3 and 4 (0.45 is above the exit
	// threshold: hysteresis holds the position).
	clf := &stubClassifier{seq: []float64{0.5, 0.7, 0.55, 0.45}, trained: true}
	strat, err := NewMLStrategy(clf, builder, MLStrategyConfig{EntryThreshold: 0.6, ExitThreshold: 0.4})
	require.NoError(t, err)

	frame, err := strat.GenerateSignals(s)
	require.NoError(t, err)

	feats, err := builder.Features(s)
	require.NoError(t, err)
	var valid []int
	for i := 0; i < feats.Len(); i++ {
		if !feats.RowHasNaN(i) {
			valid = append(valid, i)
		}
	}
	require.GreaterOrEqual(t, len(valid), 4)

	assert.False(t, frame.Entries[valid[0]])
	assert.True(t, frame.Entries[valid[1]])
	assert.False(t, frame.Exits[valid[2]])
	assert.False(t, frame.Entries[valid[2]])
	assert.False(t, frame.Exits[valid[3]]) // 0.45 > 0.4: no exit yet
}

func TestMLStrategyExitBelowThreshold(t *testing.T) {
	s, builder := hysteresisFixture(t)

	clf := &stubClassifier{seq: []float64{0.7, 0.35}, trained: true}
	strat, err := NewMLStrategy(clf, builder, MLStrategyDefaults())
	require.NoError(t, err)

	frame, err := strat.GenerateSignals(s)
	require.NoError(t, err)

	feats, _ := builder.Features(s)
	var valid []int
	for i := 0; i < feats.Len(); i++ {
		if !feats.RowHasNaN(i) {
			valid = append(valid, i)
		}
	}
	assert.True(t, frame.Entries[valid[0]])
	assert.True(t, frame.Exits[valid[1]])
}

// Pre-warmup bars (incomplete feature rows) emit no signal even when the
// classifier would fire.
func TestMLStrategyNaNRowsEmitNoSignal(t *testing.T) {
	s, builder := hysteresisFixture(t)

	clf := &stubClassifier{trained: true}
	clf.seq = nil // every valid row gets the neutral 0.5
	strat, err := NewMLStrategy(clf, builder, MLStrategyDefaults())
	require.NoError(t, err)

	frame, err := strat.GenerateSignals(s)
	require.NoError(t, err)

	feats, _ := builder.Features(s)
	for i := 0; i < feats.Len(); i++ {
		if feats.RowHasNaN(i) {
			assert.False(t, frame.Entries[i], "bar %d", i)
			assert.False(t, frame.Exits[i], "bar %d", i)
		}
	}
}

func TestMLStrategyUnfitClassifier(t *testing.T) {
	s, builder := hysteresisFixture(t)

	strat, err := NewMLStrategy(&stubClassifier{}, builder, MLStrategyDefaults())
	require.NoError(t, err)

	_, err = strat.GenerateSignals(s)
	assert.Error(t, err)
}

func TestMLStrategyThresholdValidation(t *testing.T) {
	_, builder := hysteresisFixture(t)
	clf := &stubClassifier{trained: true}

	_, err := NewMLStrategy(clf, builder, MLStrategyConfig{EntryThreshold: 0.4, ExitThreshold: 0.6})
	assert.Error(t, err)

	_, err = NewMLStrategy(clf, builder, MLStrategyConfig{EntryThreshold: 0.6, ExitThreshold: -0.1})
	assert.Error(t, err)

	_, err = NewMLStrategy(nil, builder, MLStrategyDefaults())
	assert.Error(t, err)
}
