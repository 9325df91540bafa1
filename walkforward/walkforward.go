// Package walkforward estimates a strategy's generalisation by optimising
// hyperparameters on rolling in-sample windows and evaluating each
// optimum on the disjoint, chronologically-following out-of-sample window.
package walkforward

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/quanterr"
	"github.com/rustyeddy/quantlab/strategies"
)

// ParamRange is one searchable hyperparameter dimension. Int ranges are
// sampled on whole numbers.
type ParamRange struct {
	Min float64
	Max float64
	Int bool
}

// Space maps parameter names to their ranges.
type Space map[string]ParamRange

// Factory builds a strategy from a sampled parameter set. Returning an
// error (e.g. fast >= slow) penalises the sample instead of aborting the
// search.
type Factory func(params map[string]float64) (strategies.Strategy, error)

// Fold thresholds: windows too small to mean anything are skipped.
const (
	minTrainBars = 50
	minTestBars  = 10
)

// penaltyScore is what a failed trial is worth: bad enough that no valid
// sample loses to it.
const penaltyScore = -10

// Config enumerates the recognised optimiser options.
type Config struct {
	NSplits       int     // default 5
	TrainFraction float64 // default 0.7
	NTrials       int     // default 30
	Metric        string  // sharpe (default), return, sortino
	Seed          int64   // master seed; per-fold seeds are derived

	// Engine is the evaluation backtest configuration. A zero value uses
	// the engine defaults with standard research frictions.
	Engine backtest.Config

	Logger zerolog.Logger
}

func DefaultConfig() Config {
	engine := backtest.DefaultConfig()
	engine.Costs = backtest.Costs{CommissionRate: 0.001, SlippageRate: 0.0005}
	return Config{
		NSplits:       5,
		TrainFraction: 0.7,
		NTrials:       30,
		Metric:        "sharpe",
		Seed:          42,
		Engine:        engine,
		Logger:        zerolog.Nop(),
	}
}

// Fold records one train/test window and its outcome.
type Fold struct {
	Index       int
	TrainStart  time.Time
	TrainEnd    time.Time
	TestStart   time.Time
	TestEnd     time.Time
	BestParams  map[string]float64
	TrainScore  float64 // in-sample target metric
	TestScore   float64 // out-of-sample target metric
	TrainReturn float64
	TestReturn  float64
}

// Result aggregates across folds.
type Result struct {
	Folds          []Fold
	OOSScore       float64 // mean out-of-sample target metric
	OOSReturn      float64
	ParamStability float64 // 1 means identical best parameters every fold
	Overfit        bool    // heuristic warning, not a failure
}

// Optimizer runs the walk-forward procedure.
type Optimizer struct {
	cfg Config
}

func New(cfg Config) (*Optimizer, error) {
	if cfg.NSplits < 2 {
		return nil, quanterr.Contractf("walkforward", cfg.NSplits, "n_splits must be >= 2")
	}
	if cfg.TrainFraction <= 0 || cfg.TrainFraction >= 1 {
		return nil, quanterr.Contractf("walkforward", cfg.TrainFraction, "train_fraction must be in (0, 1)")
	}
	if cfg.NTrials < 1 {
		return nil, quanterr.Contractf("walkforward", cfg.NTrials, "n_trials must be >= 1")
	}
	switch cfg.Metric {
	case "sharpe", "return", "sortino":
	default:
		return nil, quanterr.Contractf("walkforward", cfg.Metric, "metric must be sharpe, return, or sortino")
	}
	if cfg.Engine.InitialCapital == 0 {
		cfg.Engine = DefaultConfig().Engine
	}
	return &Optimizer{cfg: cfg}, nil
}

type window struct {
	train *market.Series
	test  *market.Series
}

// Optimize partitions prices into NSplits contiguous chunks, searches the
// space on each chunk's training slice, and scores the winner on the test
// slice. Cancellation is checked between trials; the active trial runs to
// completion.
func (o *Optimizer) Optimize(ctx context.Context, prices *market.Series, factory Factory, space Space) (*Result, error) {
	if prices == nil || prices.Len() == 0 {
		return nil, quanterr.Contractf("walkforward", nil, "prices is empty")
	}
	if factory == nil {
		return nil, quanterr.Contractf("walkforward", nil, "strategy factory is required")
	}
	if len(space) == 0 {
		return nil, quanterr.Contractf("walkforward", nil, "search space is empty")
	}

	windows := o.makeWindows(prices)
	if len(windows) < 2 {
		return nil, quanterr.Contractf("walkforward", len(windows),
			"need at least 2 valid folds (train >= %d bars, test >= %d bars)", minTrainBars, minTestBars)
	}

	names := sortedNames(space)

	var folds []Fold
	var allParams []map[string]float64

	for i, w := range windows {
		best, err := o.searchFold(ctx, i, w.train, factory, space, names)
		if err != nil {
			return nil, err
		}
		allParams = append(allParams, best)

		trainScore, trainReturn := o.evaluate(w.train, factory, best, i)
		testScore, testReturn := o.evaluate(w.test, factory, best, i)

		folds = append(folds, Fold{
			Index:       i,
			TrainStart:  w.train.Bar(0).Time,
			TrainEnd:    w.train.Bar(w.train.Len() - 1).Time,
			TestStart:   w.test.Bar(0).Time,
			TestEnd:     w.test.Bar(w.test.Len() - 1).Time,
			BestParams:  best,
			TrainScore:  trainScore,
			TestScore:   testScore,
			TrainReturn: trainReturn,
			TestReturn:  testReturn,
		})
	}

	res := &Result{Folds: folds}

	var isSum, oosSum, retSum float64
	for _, f := range folds {
		isSum += f.TrainScore
		oosSum += f.TestScore
		retSum += f.TestReturn
	}
	n := float64(len(folds))
	meanIS := isSum / n
	res.OOSScore = oosSum / n
	res.OOSReturn = retSum / n
	res.ParamStability = stability(allParams, names)
	res.Overfit = meanIS-res.OOSScore > 0.5 || (meanIS > 1 && res.OOSScore < 0.3)

	if res.Overfit {
		o.cfg.Logger.Warn().
			Float64("in_sample", meanIS).
			Float64("out_of_sample", res.OOSScore).
			Msg("walkforward: in-sample performance far exceeds out-of-sample, likely overfit")
	}

	return res, nil
}

// makeWindows splits prices into contiguous chunks and each chunk into a
// train head and test tail, dropping windows below the size thresholds.
func (o *Optimizer) makeWindows(prices *market.Series) []window {
	n := prices.Len()
	foldSize := n / o.cfg.NSplits

	var out []window
	for i := 0; i < o.cfg.NSplits; i++ {
		start := i * foldSize
		end := start + foldSize
		if i == o.cfg.NSplits-1 {
			end = n
		}
		chunkLen := end - start
		trainLen := int(float64(chunkLen) * o.cfg.TrainFraction)
		if trainLen < minTrainBars || chunkLen-trainLen < minTestBars {
			o.cfg.Logger.Debug().Int("fold", i).Int("train", trainLen).
				Int("test", chunkLen-trainLen).Msg("walkforward: skipping undersized fold")
			continue
		}
		train, err := prices.Slice(start, start+trainLen)
		if err != nil {
			continue
		}
		test, err := prices.Slice(start+trainLen, end)
		if err != nil {
			continue
		}
		out = append(out, window{train: train, test: test})
	}
	return out
}

func sortedNames(space Space) []string {
	names := make([]string, 0, len(space))
	for k := range space {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
