package walkforward

import (
	"context"
	"math"
	"math/rand"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/market"
)

// searchFold maximises the target metric over the space on one training
// window. The search is a seeded two-phase stochastic sampler: uniform
// exploration for the first part of the budget, then perturbation around
// the incumbent. Per-fold seeds are derived from the master seed so folds
// are independent and the whole run is reproducible.
func (o *Optimizer) searchFold(ctx context.Context, foldIdx int, train *market.Series,
	factory Factory, space Space, names []string) (map[string]float64, error) {

	rng := rand.New(rand.NewSource(o.cfg.Seed + int64(foldIdx)*1_000_003))

	explore := o.cfg.NTrials * 6 / 10
	if explore < 1 {
		explore = o.cfg.NTrials
	}

	var best map[string]float64
	bestScore := math.Inf(-1)

	for trial := 0; trial < o.cfg.NTrials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var params map[string]float64
		if trial < explore || best == nil {
			params = sampleUniform(rng, space, names)
		} else {
			params = perturb(rng, space, names, best)
		}

		score := o.trialScore(train, factory, params, foldIdx, trial)
		if score > bestScore {
			bestScore = score
			best = params
		}
	}

	return best, nil
}

// trialScore evaluates one parameter sample. Constructor violations and
// backtest failures score the penalty instead of raising, and are logged
// with the offending parameters.
func (o *Optimizer) trialScore(train *market.Series, factory Factory, params map[string]float64, foldIdx, trial int) float64 {
	score, _ := o.run(train, factory, params, foldIdx, trial)
	return score
}

// evaluate reruns the best parameters on a window and returns the target
// metric and total return.
func (o *Optimizer) evaluate(window *market.Series, factory Factory, params map[string]float64, foldIdx int) (float64, float64) {
	return o.run(window, factory, params, foldIdx, -1)
}

func (o *Optimizer) run(window *market.Series, factory Factory, params map[string]float64, foldIdx, trial int) (float64, float64) {
	strat, err := factory(params)
	if err != nil {
		o.logTrial(foldIdx, trial, params, err)
		return penaltyScore, penaltyScore
	}

	frame, err := strat.GenerateSignals(window)
	if err != nil {
		o.logTrial(foldIdx, trial, params, err)
		return penaltyScore, penaltyScore
	}

	engine, err := backtest.NewEngine(o.cfg.Engine)
	if err != nil {
		o.logTrial(foldIdx, trial, params, err)
		return penaltyScore, penaltyScore
	}

	res, err := engine.Run(window, frame)
	if err != nil {
		o.logTrial(foldIdx, trial, params, err)
		return penaltyScore, penaltyScore
	}

	return o.metricOf(res.Stats), res.Stats.TotalReturn
}

func (o *Optimizer) logTrial(foldIdx, trial int, params map[string]float64, err error) {
	o.cfg.Logger.Debug().
		Int("fold", foldIdx).
		Int("trial", trial).
		Fields(map[string]interface{}{"params": params}).
		Err(err).
		Msg("walkforward: trial penalised")
}

func (o *Optimizer) metricOf(s backtest.Stats) float64 {
	var v float64
	switch o.cfg.Metric {
	case "return":
		v = s.TotalReturn
	case "sortino":
		v = s.SortinoRatio
	default:
		v = s.SharpeRatio
	}
	if math.IsNaN(v) {
		return penaltyScore
	}
	if math.IsInf(v, 1) {
		// An infinite ratio means no downside was observed; treat it as a
		// strong but finite score so it can still be compared.
		return 100
	}
	if math.IsInf(v, -1) {
		return penaltyScore
	}
	return v
}

func sampleUniform(rng *rand.Rand, space Space, names []string) map[string]float64 {
	params := make(map[string]float64, len(names))
	for _, name := range names {
		r := space[name]
		v := r.Min + rng.Float64()*(r.Max-r.Min)
		if r.Int {
			v = math.Round(v)
		}
		params[name] = v
	}
	return params
}

// perturb resamples each dimension near the incumbent, clamped to its
// range. The width is a tenth of the range, enough to refine without
// collapsing the search.
func perturb(rng *rand.Rand, space Space, names []string, center map[string]float64) map[string]float64 {
	params := make(map[string]float64, len(names))
	for _, name := range names {
		r := space[name]
		width := (r.Max - r.Min) / 10
		v := center[name] + (rng.Float64()*2-1)*width
		v = math.Max(r.Min, math.Min(r.Max, v))
		if r.Int {
			v = math.Round(v)
		}
		params[name] = v
	}
	return params
}

// stability scores how much the optimum moved across folds: the mean
// coefficient of variation per parameter, mapped to (0, 1] where 1 means
// identical parameters every fold.
func stability(paramsList []map[string]float64, names []string) float64 {
	if len(paramsList) < 2 {
		return 1
	}

	cvSum := 0.0
	for _, name := range names {
		values := make([]float64, len(paramsList))
		for i, p := range paramsList {
			values[i] = p[name]
		}
		mean, sd := meanStd(values)
		if sd == 0 {
			continue
		}
		cvSum += sd / (math.Abs(mean) + 1e-8)
	}
	avgCV := cvSum / float64(len(names))
	return 1 / (1 + avgCV)
}

func meanStd(values []float64) (mean, sd float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	if len(values) > 1 {
		sd = math.Sqrt(ss / float64(len(values)-1))
	}
	return mean, sd
}
