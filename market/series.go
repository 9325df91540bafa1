package market

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/quantlab/quanterr"
)

// Series is an ordered OHLCV bar sequence keyed by strictly increasing
// timestamps. Construct through NewSeries; a constructed Series is never
// mutated.
type Series struct {
	bars []Bar
}

// NewSeries validates and wraps bars. It rejects empty input, duplicate or
// non-monotone timestamps, violated OHLC invariants, and non-positive
// prices. The input slice is copied.
func NewSeries(bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, quanterr.Contractf("market", nil, "bars is empty")
	}

	out := make([]Bar, len(bars))
	copy(out, bars)

	for i, b := range out {
		if i > 0 && !out[i-1].Time.Before(b.Time) {
			return nil, quanterr.Contractf("market", b.Time,
				"timestamps must be strictly increasing at index %d", i)
		}
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return nil, quanterr.Contractf("market", b, "non-positive price at index %d", i)
		}
		if b.Volume < 0 {
			return nil, quanterr.Contractf("market", b.Volume, "negative volume at index %d", i)
		}
		lo, hi := math.Min(b.Open, b.Close), math.Max(b.Open, b.Close)
		if b.Low > lo || b.High < hi {
			return nil, quanterr.Contractf("market", b,
				"OHLC invariant low <= min(open,close) <= max(open,close) <= high violated at index %d", i)
		}
	}

	return &Series{bars: out}, nil
}

func (s *Series) Len() int      { return len(s.bars) }
func (s *Series) Bar(i int) Bar { return s.bars[i] }

// Times returns a copy of the timestamp index.
func (s *Series) Times() []time.Time {
	ts := make([]time.Time, len(s.bars))
	for i, b := range s.bars {
		ts[i] = b.Time
	}
	return ts
}

func (s *Series) column(pick func(Bar) float64) []float64 {
	v := make([]float64, len(s.bars))
	for i, b := range s.bars {
		v[i] = pick(b)
	}
	return v
}

func (s *Series) Opens() []float64   { return s.column(func(b Bar) float64 { return b.Open }) }
func (s *Series) Highs() []float64   { return s.column(func(b Bar) float64 { return b.High }) }
func (s *Series) Lows() []float64    { return s.column(func(b Bar) float64 { return b.Low }) }
func (s *Series) Closes() []float64  { return s.column(func(b Bar) float64 { return b.Close }) }
func (s *Series) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }

// HasVolume reports whether any bar carries a non-zero volume. Feature
// construction skips volume features for price-only datasets.
func (s *Series) HasVolume() bool {
	for _, b := range s.bars {
		if b.Volume > 0 {
			return true
		}
	}
	return false
}

// Slice returns the sub-series over bar indices [i, j). The bars are shared
// read-only with the parent.
func (s *Series) Slice(i, j int) (*Series, error) {
	if i < 0 || j > len(s.bars) || i >= j {
		return nil, quanterr.Contractf("market", []int{i, j}, "invalid slice bounds for %d bars", len(s.bars))
	}
	return &Series{bars: s.bars[i:j]}, nil
}

// IndexOf returns the position of t in the index, or -1.
func (s *Series) IndexOf(t time.Time) int {
	i := sort.Search(len(s.bars), func(i int) bool { return !s.bars[i].Time.Before(t) })
	if i < len(s.bars) && s.bars[i].Time.Equal(t) {
		return i
	}
	return -1
}

// BarInterval infers the sampling interval as the median delta between
// consecutive timestamps. Median rather than mean so weekend and holiday
// gaps in a daily index do not distort the result.
func (s *Series) BarInterval() time.Duration {
	if len(s.bars) < 2 {
		return 0
	}
	deltas := make([]time.Duration, 0, len(s.bars)-1)
	for i := 1; i < len(s.bars); i++ {
		deltas = append(deltas, s.bars[i].Time.Sub(s.bars[i-1].Time))
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
	return deltas[len(deltas)/2]
}

// Trading-calendar annualisation factors. 252 sessions per year, 6.5 market
// hours per session for intraday intervals.
const (
	hoursPerSession  = 6.5
	sessionsPerYear  = 252
	weeksPerYear     = 52
	monthsPerYear    = 12
	fallbackPerYear  = 1
	intradayPerYearH = sessionsPerYear * hoursPerSession
)

// PeriodsPerYear maps the inferred bar interval to an annualisation factor.
// Unknown intervals fall back to 1 so a misinference degrades metrics
// visibly instead of silently inflating them.
func (s *Series) PeriodsPerYear() float64 {
	d := s.BarInterval()
	switch {
	case d == time.Minute:
		return intradayPerYearH * 60
	case d == 5*time.Minute:
		return intradayPerYearH * 12
	case d == 15*time.Minute:
		return intradayPerYearH * 4
	case d == 30*time.Minute:
		return intradayPerYearH * 2
	case d == time.Hour:
		return intradayPerYearH
	case d >= 20*time.Hour && d <= 4*24*time.Hour:
		return sessionsPerYear
	case d >= 6*24*time.Hour && d <= 8*24*time.Hour:
		return weeksPerYear
	case d >= 27*24*time.Hour && d <= 32*24*time.Hour:
		return monthsPerYear
	default:
		return fallbackPerYear
	}
}
