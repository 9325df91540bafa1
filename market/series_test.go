package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/quanterr"
)

func mkBars(start time.Time, step time.Duration, closes ...float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func TestNewSeriesRejectsEmpty(t *testing.T) {
	_, err := NewSeries(nil)
	require.Error(t, err)
	assert.True(t, quanterr.IsKind(err, quanterr.Contract))
}

func TestNewSeriesRejectsDuplicateTimestamp(t *testing.T) {
	bars := mkBars(t0, 24*time.Hour, 100, 101, 102)
	bars[2].Time = bars[1].Time
	_, err := NewSeries(bars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")
}

func TestNewSeriesRejectsNonMonotone(t *testing.T) {
	bars := mkBars(t0, 24*time.Hour, 100, 101, 102)
	bars[1], bars[2] = bars[2], bars[1]
	_, err := NewSeries(bars)
	require.Error(t, err)
}

func TestNewSeriesRejectsBadOHLC(t *testing.T) {
	bars := mkBars(t0, 24*time.Hour, 100, 101)
	bars[1].Low = bars[1].Close + 5 // low above close
	_, err := NewSeries(bars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OHLC invariant")
}

func TestNewSeriesRejectsNonPositivePrice(t *testing.T) {
	bars := mkBars(t0, 24*time.Hour, 100, 101)
	bars[0].Open = 0
	_, err := NewSeries(bars)
	require.Error(t, err)
}

func TestSeriesAccessors(t *testing.T) {
	s, err := NewSeries(mkBars(t0, 24*time.Hour, 100, 101, 102))
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{100, 101, 102}, s.Closes())
	assert.Equal(t, []float64{101, 102, 103}, s.Highs())
	assert.Equal(t, 1, s.IndexOf(t0.Add(24*time.Hour)))
	assert.Equal(t, -1, s.IndexOf(t0.Add(36*time.Hour)))
	assert.True(t, s.HasVolume())
}

func TestSlice(t *testing.T) {
	s, err := NewSeries(mkBars(t0, 24*time.Hour, 100, 101, 102, 103))
	require.NoError(t, err)

	sub, err := s.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102}, sub.Closes())

	_, err = s.Slice(3, 3)
	assert.Error(t, err)
}

func TestPeriodsPerYearDaily(t *testing.T) {
	// Business days: Fri->Mon gap must not break daily inference.
	bars := []Bar{}
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	c := 100.0
	for len(bars) < 30 {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			bars = append(bars, Bar{Time: day, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1})
			c += 0.5
		}
		day = day.Add(24 * time.Hour)
	}
	s, err := NewSeries(bars)
	require.NoError(t, err)
	assert.InDelta(t, 252, s.PeriodsPerYear(), 1e-9)
}

func TestPeriodsPerYearIntraday(t *testing.T) {
	cases := []struct {
		step time.Duration
		want float64
	}{
		{time.Hour, 252 * 6.5},
		{15 * time.Minute, 252 * 6.5 * 4},
		{time.Minute, 252 * 6.5 * 60},
	}
	for _, tc := range cases {
		s, err := NewSeries(mkBars(t0, tc.step, 100, 101, 102, 103, 104))
		require.NoError(t, err)
		assert.InDelta(t, tc.want, s.PeriodsPerYear(), 1e-9)
	}
}

func TestPeriodsPerYearWeeklyMonthlyFallback(t *testing.T) {
	s, err := NewSeries(mkBars(t0, 7*24*time.Hour, 100, 101, 102))
	require.NoError(t, err)
	assert.InDelta(t, 52, s.PeriodsPerYear(), 1e-9)

	s, err = NewSeries(mkBars(t0, 30*24*time.Hour, 100, 101, 102))
	require.NoError(t, err)
	assert.InDelta(t, 12, s.PeriodsPerYear(), 1e-9)

	s, err = NewSeries(mkBars(t0, 11*time.Hour, 100, 101, 102))
	require.NoError(t, err)
	assert.InDelta(t, 1, s.PeriodsPerYear(), 1e-9)
}
