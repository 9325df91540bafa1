package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "quantlab",
	Short: "Research platform for systematic trading strategies",
	Long: `quantlab runs signal-to-equity research pipelines: feature and target
construction, rule-based and model-based signal generation, event-driven
backtests with realistic frictions, walk-forward optimisation, and
Monte-Carlo robustness analysis.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "quantlab.yaml", "experiment configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(walkforwardCmd)
	rootCmd.AddCommand(montecarloCmd)
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
