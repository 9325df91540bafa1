package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/config"
	"github.com/rustyeddy/quantlab/internal/csvfeed"
	"github.com/rustyeddy/quantlab/montecarlo"
)

var montecarloCmd = &cobra.Command{
	Use:     "montecarlo",
	Aliases: []string{"mc"},
	Short:   "Monte-Carlo robustness analysis of the configured strategy",
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

		strat, err := buildStrategy(cfg, prices, log)
		if err != nil {
			return err
		}
		frame, err := strat.GenerateSignals(prices)
		if err != nil {
			return err
		}

		engineCfg := cfg.BacktestConfig()
		engineCfg.Logger = log
		engine, err := backtest.NewEngine(engineCfg)
		if err != nil {
			return err
		}
		res, err := engine.Run(prices, frame)
		if err != nil {
			return err
		}

		mcCfg := cfg.MonteCarloCfg()
		mcCfg.Logger = log
		sim, err := montecarlo.New(mcCfg)
		if err != nil {
			return err
		}

		mc, err := sim.Simulate(cmd.Context(), equityReturns(res.Equity), engineCfg.InitialCapital)
		if err != nil {
			return err
		}

		fmt.Printf("simulations:       %d\n", mcCfg.NSimulations)
		fmt.Printf("mean return:       %8.2f%%\n", mc.MeanFinalReturn*100)
		fmt.Printf("median return:     %8.2f%%\n", mc.MedianFinalReturn*100)
		fmt.Printf("5th..95th pct:     %8.2f%% .. %.2f%%\n", mc.Percentile5*100, mc.Percentile95*100)
		fmt.Printf("VaR 95 / 99:       %8.2f%% / %.2f%%\n", mc.VaR95*100, mc.VaR99*100)
		fmt.Printf("CVaR 95:           %8.2f%%\n", mc.CVaR95*100)
		fmt.Printf("mean max DD:       %8.2f%%\n", mc.MeanMaxDrawdown*100)
		fmt.Printf("worst max DD:      %8.2f%%\n", mc.WorstMaxDrawdown*100)
		fmt.Printf("P(positive):       %8.2f%%\n", mc.ProbPositive*100)
		return nil
	},
}

// equityReturns extracts the per-bar return stream from an equity curve.
func equityReturns(equity []backtest.EquityPoint) []float64 {
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		out = append(out, equity[i].Value/equity[i-1].Value-1)
	}
	return out
}
