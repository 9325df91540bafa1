package backtest

import (
	"math"

	"github.com/rs/zerolog"
)

// Stats is the metrics bundle computed once per simulation. Undefined
// metrics degrade to the documented sentinels: 0 where there is nothing to
// measure, +Inf where the denominator is a zero loss/drawdown against a
// positive numerator.
type Stats struct {
	TotalReturn          float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	SharpeRatio          float64
	SortinoRatio         float64
	MaxDrawdown          float64 // negative fraction
	CalmarRatio          float64
	WinRate              float64
	ProfitFactor         float64
	AvgTradeReturn       float64
	BestTrade            float64
	WorstTrade           float64
	NumTrades            int
	PeriodsPerYear       float64
}

// computeStats never fails: an unexpected panic during extraction is logged
// with context and degrades to zero-filled stats rather than aborting the
// simulation result.
func computeStats(trades []Trade, equity []EquityPoint, periodsPerYear float64, log zerolog.Logger) (s Stats) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("component", "backtest").
				Interface("panic", r).
				Int("num_trades", len(trades)).
				Int("equity_points", len(equity)).
				Msg("metric extraction failed, returning zeroed stats")
			s = Stats{PeriodsPerYear: periodsPerYear}
		}
	}()

	s.PeriodsPerYear = periodsPerYear
	s.NumTrades = len(trades)

	if len(equity) >= 2 {
		first, last := equity[0].Value, equity[len(equity)-1].Value
		s.TotalReturn = last/first - 1

		returns := make([]float64, len(equity)-1)
		for i := 1; i < len(equity); i++ {
			returns[i-1] = equity[i].Value/equity[i-1].Value - 1
		}

		nYears := float64(len(returns)) / periodsPerYear
		if nYears > 0 && first > 0 && last > 0 {
			s.AnnualizedReturn = math.Pow(last/first, 1/nYears) - 1
		}

		mean, sd := meanStd(returns)
		s.AnnualizedVolatility = sd * math.Sqrt(periodsPerYear)
		if sd > 0 {
			s.SharpeRatio = mean / sd * math.Sqrt(periodsPerYear)
		}

		var downside []float64
		for _, r := range returns {
			if r < 0 {
				downside = append(downside, r)
			}
		}
		switch {
		case len(downside) >= 2:
			_, dsd := meanStd(downside)
			if dsd > 0 {
				s.SortinoRatio = mean / dsd * math.Sqrt(periodsPerYear)
			}
		case mean > 0:
			s.SortinoRatio = math.Inf(1) // fewer than two losing bars to measure against
		}

		s.MaxDrawdown = maxDrawdown(equity)
		switch {
		case s.MaxDrawdown < 0:
			s.CalmarRatio = s.AnnualizedReturn / math.Abs(s.MaxDrawdown)
		case s.AnnualizedReturn > 0:
			s.CalmarRatio = math.Inf(1)
		}
	}

	if len(trades) > 0 {
		wins := 0
		grossProfit, grossLoss := 0.0, 0.0
		sumRet := 0.0
		best, worst := math.Inf(-1), math.Inf(1)
		for _, t := range trades {
			if t.PnL > 0 {
				wins++
				grossProfit += t.PnL
			} else {
				grossLoss += -t.PnL
			}
			sumRet += t.ReturnPct
			best = math.Max(best, t.ReturnPct)
			worst = math.Min(worst, t.ReturnPct)
		}
		s.WinRate = float64(wins) / float64(len(trades))
		switch {
		case grossLoss > 0:
			s.ProfitFactor = grossProfit / grossLoss
		case grossProfit > 0:
			s.ProfitFactor = math.Inf(1)
		}
		s.AvgTradeReturn = sumRet / float64(len(trades))
		s.BestTrade = best
		s.WorstTrade = worst
	}

	return s
}

// maxDrawdown is the worst peak-to-trough decline of the equity curve, as a
// negative fraction of the running peak.
func maxDrawdown(equity []EquityPoint) float64 {
	peak := equity[0].Value
	worst := 0.0
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		dd := (p.Value - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// meanStd returns the mean and sample standard deviation.
func meanStd(values []float64) (mean, sd float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)-1))
}
