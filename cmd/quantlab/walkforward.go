package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantlab/config"
	"github.com/rustyeddy/quantlab/internal/csvfeed"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/rustyeddy/quantlab/walkforward"
)

var walkforwardCmd = &cobra.Command{
	Use:     "walkforward",
	Aliases: []string{"wfo"},
	Short:   "Walk-forward optimisation of the MA-cross strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		prices, err := csvfeed.Load(cfg.Data.File)
		if err != nil {
			return err
		}

		wfCfg := cfg.WalkForwardCfg()
		wfCfg.Logger = log
		opt, err := walkforward.New(wfCfg)
		if err != nil {
			return err
		}

		maType := strategies.MAType(cfg.Strategy.MAType)
		factory := func(p map[string]float64) (strategies.Strategy, error) {
			return strategies.NewMACross(strategies.MACrossConfig{
				FastPeriod: int(p["fast_period"]),
				SlowPeriod: int(p["slow_period"]),
				MAType:     maType,
			})
		}
		space := walkforward.Space{
			"fast_period": {Min: 5, Max: 30, Int: true},
			"slow_period": {Min: 20, Max: 100, Int: true},
		}

		res, err := opt.Optimize(cmd.Context(), prices, factory, space)
		if err != nil {
			return err
		}

		for _, f := range res.Folds {
			fmt.Printf("fold %d: train %s..%s  test %s..%s  IS=%.2f OOS=%.2f  params=%v\n",
				f.Index,
				f.TrainStart.Format("2006-01-02"), f.TrainEnd.Format("2006-01-02"),
				f.TestStart.Format("2006-01-02"), f.TestEnd.Format("2006-01-02"),
				f.TrainScore, f.TestScore, f.BestParams)
		}
		fmt.Printf("\nOOS %s:        %.3f\n", wfCfg.Metric, res.OOSScore)
		fmt.Printf("OOS return:        %.2f%%\n", res.OOSReturn*100)
		fmt.Printf("param stability:   %.2f\n", res.ParamStability)
		if res.Overfit {
			fmt.Println("overfitting risk:  HIGH")
		} else {
			fmt.Println("overfitting risk:  low")
		}
		return nil
	},
}
