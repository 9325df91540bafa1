// Package montecarlo estimates the distribution of outcomes a return
// stream could plausibly produce under reordering. Each simulated path is a
// permutation of the observed returns (sampling without replacement), which
// preserves the empirical distribution under the serial-independence null.
package montecarlo

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/quantlab/quanterr"
)

// Config enumerates the recognised simulator options.
type Config struct {
	NSimulations int
	Seed         int64
	Logger       zerolog.Logger
}

func DefaultConfig() Config {
	return Config{NSimulations: 1000, Seed: 42, Logger: zerolog.Nop()}
}

// Result carries the simulated distribution and its summary statistics.
// All returns are decimal fractions; VaR values are percentiles of the
// final-return distribution (negative means loss).
type Result struct {
	MeanFinalReturn   float64
	MedianFinalReturn float64
	StdFinalReturn    float64

	Percentile5  float64
	Percentile25 float64
	Percentile75 float64
	Percentile95 float64

	VaR95  float64
	VaR99  float64
	CVaR95 float64

	MeanMaxDrawdown  float64
	WorstMaxDrawdown float64

	ProbPositive float64
	ProbDouble   float64
	ProbLoss50   float64

	EquityPaths  [][]float64 // n_simulations x (n_periods + 1)
	FinalReturns []float64
	MaxDrawdowns []float64
}

// Simulator runs seeded permutation simulations. Identical seed and inputs
// produce byte-identical output.
type Simulator struct {
	cfg Config
}

func New(cfg Config) (*Simulator, error) {
	if cfg.NSimulations <= 0 {
		return nil, quanterr.Contractf("montecarlo", cfg.NSimulations, "n_simulations must be positive")
	}
	return &Simulator{cfg: cfg}, nil
}

// Simulate reshuffles returns NSimulations times, compounding each
// permutation from initialCapital. Cancellation is honoured between paths;
// an in-progress path runs to completion.
func (s *Simulator) Simulate(ctx context.Context, returns []float64, initialCapital float64) (*Result, error) {
	if initialCapital <= 0 {
		return nil, quanterr.Contractf("montecarlo", initialCapital, "initial_capital must be > 0")
	}

	clean := make([]float64, 0, len(returns))
	for _, r := range returns {
		if !math.IsNaN(r) {
			clean = append(clean, r)
		}
	}
	if len(clean) < 10 {
		return nil, quanterr.Contractf("montecarlo", len(clean), "need at least 10 return observations")
	}

	n := len(clean)
	rng := rand.New(rand.NewSource(s.cfg.Seed))

	paths := make([][]float64, s.cfg.NSimulations)
	finals := make([]float64, s.cfg.NSimulations)
	drawdowns := make([]float64, s.cfg.NSimulations)

	for sim := 0; sim < s.cfg.NSimulations; sim++ {
		if err := ctx.Err(); err != nil {
			s.cfg.Logger.Debug().Int("completed_paths", sim).Msg("montecarlo cancelled")
			return nil, err
		}

		path := make([]float64, n+1)
		path[0] = initialCapital
		peak := initialCapital
		worst := 0.0
		for t, idx := range rng.Perm(n) {
			path[t+1] = path[t] * (1 + clean[idx])
			if path[t+1] > peak {
				peak = path[t+1]
			}
			if dd := (path[t+1] - peak) / peak; dd < worst {
				worst = dd
			}
		}

		paths[sim] = path
		finals[sim] = path[n]/initialCapital - 1
		drawdowns[sim] = worst
	}

	res := &Result{
		EquityPaths:  paths,
		FinalReturns: finals,
		MaxDrawdowns: drawdowns,
	}

	res.MeanFinalReturn = mean(finals)
	res.StdFinalReturn = populationStd(finals, res.MeanFinalReturn)

	sortedFinals := append([]float64(nil), finals...)
	sort.Float64s(sortedFinals)
	res.MedianFinalReturn = percentileSorted(sortedFinals, 50)
	res.Percentile5 = percentileSorted(sortedFinals, 5)
	res.Percentile25 = percentileSorted(sortedFinals, 25)
	res.Percentile75 = percentileSorted(sortedFinals, 75)
	res.Percentile95 = percentileSorted(sortedFinals, 95)
	res.VaR95 = res.Percentile5
	res.VaR99 = percentileSorted(sortedFinals, 1)
	res.CVaR95 = tailMean(sortedFinals, res.VaR95)

	sortedDD := append([]float64(nil), drawdowns...)
	sort.Float64s(sortedDD)
	res.MeanMaxDrawdown = mean(drawdowns)
	res.WorstMaxDrawdown = percentileSorted(sortedDD, 1)

	for _, f := range finals {
		if f > 0 {
			res.ProbPositive++
		}
		if f > 1 {
			res.ProbDouble++
		}
		if f < -0.5 {
			res.ProbLoss50++
		}
	}
	res.ProbPositive /= float64(len(finals))
	res.ProbDouble /= float64(len(finals))
	res.ProbLoss50 /= float64(len(finals))

	return res, nil
}

func mean(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s / float64(len(values))
}

func populationStd(values []float64, mean float64) float64 {
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// percentileSorted computes the p-th percentile of sorted data with linear
// interpolation between closest ranks.
func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// tailMean is the mean of the observations at or below the cutoff; the
// cutoff itself when the tail is empty.
func tailMean(sorted []float64, cutoff float64) float64 {
	s, n := 0.0, 0
	for _, v := range sorted {
		if v > cutoff {
			break
		}
		s += v
		n++
	}
	if n == 0 {
		return cutoff
	}
	return s / float64(n)
}
