package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/config"
	"github.com/rustyeddy/quantlab/features"
	"github.com/rustyeddy/quantlab/internal/csvfeed"
	"github.com/rustyeddy/quantlab/journal"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/ml"
	"github.com/rustyeddy/quantlab/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a single backtest from the experiment config",
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
		log.Info().Str("file", cfg.Data.File).Int("bars", prices.Len()).Msg("loaded prices")

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

		started := time.Now()
		res, err := engine.Run(prices, frame)
		if err != nil {
			return err
		}

		printStats(strat.Name(), res)

		return archive(cfg, strat, res, started, log)
	},
}

// buildStrategy assembles the configured signal generator. The ml variant
// trains its classifier offline here, on the configured dataset, before the
// strategy takes ownership of the fitted artefact.
func buildStrategy(cfg *config.Config, prices *market.Series, log zerolog.Logger) (strategies.Strategy, error) {
	switch cfg.Strategy.Name {
	case "ml":
		builder, err := features.NewBuilder(cfg.FeatureConfig())
		if err != nil {
			return nil, err
		}
		X, y, err := builder.Dataset(prices)
		if err != nil {
			return nil, err
		}
		log.Info().Int("rows", X.Len()).Int("features", len(X.Columns())).Msg("training classifier")

		clf := ml.NewLogistic(ml.LogisticConfig{})
		if err := clf.Fit(X.Matrix(), y); err != nil {
			return nil, err
		}
		return strategies.NewMLStrategy(clf, builder, cfg.MLStrategyConfig())

	default:
		return strategies.NewMACross(cfg.MACrossConfig())
	}
}

func printStats(name string, res *backtest.Result) {
	s := res.Stats
	fmt.Printf("strategy: %s\n", name)
	fmt.Printf("  total return:     %8.2f%%\n", s.TotalReturn*100)
	fmt.Printf("  annual return:    %8.2f%%\n", s.AnnualizedReturn*100)
	fmt.Printf("  annual vol:       %8.2f%%\n", s.AnnualizedVolatility*100)
	fmt.Printf("  sharpe:           %8.2f\n", s.SharpeRatio)
	fmt.Printf("  sortino:          %8.2f\n", s.SortinoRatio)
	fmt.Printf("  max drawdown:     %8.2f%%\n", s.MaxDrawdown*100)
	fmt.Printf("  calmar:           %8.2f\n", s.CalmarRatio)
	fmt.Printf("  win rate:         %8.2f%%\n", s.WinRate*100)
	fmt.Printf("  profit factor:    %8.2f\n", s.ProfitFactor)
	fmt.Printf("  trades:           %8d\n", s.NumTrades)
}

// archive persists the run when a journal backend is configured.
func archive(cfg *config.Config, strat strategies.Strategy, res *backtest.Result, started time.Time, log zerolog.Logger) error {
	var j journal.Journal
	var err error

	switch cfg.Journal.Type {
	case "sqlite":
		j, err = journal.NewSQLite(cfg.Journal.Path)
	case "csv":
		j, err = journal.NewCSV(cfg.Journal.Path+".trades.csv", cfg.Journal.Path+".equity.csv")
	default:
		return nil
	}
	if err != nil {
		return err
	}
	defer j.Close()

	runID := journal.NewRunID()
	run, err := journal.NewRunRecord(runID, cfg.Data.Symbol, strat.Name(), strat.Params(), started, res.Stats)
	if err != nil {
		return err
	}
	if err := j.RecordRun(run); err != nil {
		return err
	}
	if err := journal.RecordResult(j, runID, res); err != nil {
		return err
	}
	log.Info().Str("run_id", runID).Str("journal", cfg.Journal.Type).Msg("archived run")
	return nil
}
