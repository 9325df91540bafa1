// Package config loads the experiment description consumed by the CLI: the
// data file, the strategy and its parameters, engine frictions, and the
// validation settings. The core packages never read this (or anything
// else) implicitly; the CLI converts it into their plain config values.
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/features"
	"github.com/rustyeddy/quantlab/montecarlo"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/rustyeddy/quantlab/walkforward"
)

// Config is the complete experiment configuration.
type Config struct {
	Data        DataConfig        `yaml:"data"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Features    FeaturesConfig    `yaml:"features"`
	Engine      EngineConfig      `yaml:"engine"`
	WalkForward WalkForwardConfig `yaml:"walkforward"`
	MonteCarlo  MonteCarloConfig  `yaml:"montecarlo"`
	Journal     JournalConfig     `yaml:"journal"`
}

type DataConfig struct {
	File   string `yaml:"file" validate:"required"`
	Symbol string `yaml:"symbol" default:"UNKNOWN"`
}

type StrategyConfig struct {
	Name string `yaml:"name" default:"ma_cross" validate:"oneof=ma_cross ml"`

	// ma_cross
	FastPeriod int    `yaml:"fast_period" default:"10" validate:"gte=1"`
	SlowPeriod int    `yaml:"slow_period" default:"50" validate:"gtfield=FastPeriod"`
	MAType     string `yaml:"ma_type" default:"simple" validate:"oneof=simple exponential"`

	// ml
	EntryThreshold float64 `yaml:"entry_threshold" default:"0.6" validate:"gt=0,lt=1"`
	ExitThreshold  float64 `yaml:"exit_threshold" default:"0.4" validate:"gte=0,ltfield=EntryThreshold"`
}

type FeaturesConfig struct {
	SMAPeriods      []int   `yaml:"sma_periods" default:"[5,10,20,50]"`
	RSIPeriod       int     `yaml:"rsi_period" default:"14" validate:"gte=1"`
	ATRPeriod       int     `yaml:"atr_period" default:"14" validate:"gte=1"`
	LookbackPeriods []int   `yaml:"lookback_periods" default:"[1,5,10,20]"`
	Horizon         int     `yaml:"horizon" default:"1" validate:"gte=1"`
	Threshold       float64 `yaml:"threshold"`
}

type EngineConfig struct {
	InitialCapital float64 `yaml:"initial_capital" default:"10000" validate:"gt=0"`
	CommissionRate float64 `yaml:"commission_rate" default:"0.001" validate:"gte=0,lte=0.2"`
	SlippageRate   float64 `yaml:"slippage_rate" default:"0.0005" validate:"gte=0,lte=0.2"`
	ExecutionDelay int     `yaml:"execution_delay" default:"1" validate:"gte=0,lte=1"`
	SizeFraction   float64 `yaml:"size_fraction" default:"1" validate:"gt=0,lte=1"`
	StopLossPct    float64 `yaml:"sl_pct" validate:"gte=0"`
	TakeProfitPct  float64 `yaml:"tp_pct" validate:"gte=0"`
	PeriodsPerYear float64 `yaml:"periods_per_year" validate:"gte=0"`
}

type WalkForwardConfig struct {
	NSplits       int     `yaml:"n_splits" default:"5" validate:"gte=2"`
	TrainFraction float64 `yaml:"train_fraction" default:"0.7" validate:"gt=0,lt=1"`
	NTrials       int     `yaml:"n_trials" default:"30" validate:"gte=1"`
	Metric        string  `yaml:"metric" default:"sharpe" validate:"oneof=sharpe return sortino"`
	Seed          int64   `yaml:"seed" default:"42"`
}

type MonteCarloConfig struct {
	NSimulations int   `yaml:"n_simulations" default:"1000" validate:"gte=1"`
	Seed         int64 `yaml:"seed" default:"42"`
}

type JournalConfig struct {
	Type string `yaml:"type" default:"none" validate:"oneof=sqlite csv none"`
	Path string `yaml:"path" default:"quantlab.db"`
}

// Load reads, defaults, and validates an experiment file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: apply defaults: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// BacktestConfig converts the engine section for the backtest package.
func (c *Config) BacktestConfig() backtest.Config {
	out := backtest.DefaultConfig()
	out.InitialCapital = c.Engine.InitialCapital
	out.Costs = backtest.Costs{
		CommissionRate: c.Engine.CommissionRate,
		SlippageRate:   c.Engine.SlippageRate,
	}
	out.ExecutionDelay = c.Engine.ExecutionDelay
	out.SizeFraction = c.Engine.SizeFraction
	out.StopLossPct = c.Engine.StopLossPct
	out.TakeProfitPct = c.Engine.TakeProfitPct
	out.PeriodsPerYear = c.Engine.PeriodsPerYear
	return out
}

// FeatureConfig converts the features section.
func (c *Config) FeatureConfig() features.Config {
	return features.Config{
		SMAPeriods:      c.Features.SMAPeriods,
		RSIPeriod:       c.Features.RSIPeriod,
		ATRPeriod:       c.Features.ATRPeriod,
		LookbackPeriods: c.Features.LookbackPeriods,
		Horizon:         c.Features.Horizon,
		Threshold:       c.Features.Threshold,
	}
}

// MACrossConfig converts the strategy section for the rule-based variant.
func (c *Config) MACrossConfig() strategies.MACrossConfig {
	return strategies.MACrossConfig{
		FastPeriod: c.Strategy.FastPeriod,
		SlowPeriod: c.Strategy.SlowPeriod,
		MAType:     strategies.MAType(c.Strategy.MAType),
	}
}

// MLStrategyConfig converts the strategy section for the model variant.
func (c *Config) MLStrategyConfig() strategies.MLStrategyConfig {
	return strategies.MLStrategyConfig{
		EntryThreshold: c.Strategy.EntryThreshold,
		ExitThreshold:  c.Strategy.ExitThreshold,
	}
}

// WalkForwardCfg converts the walkforward section.
func (c *Config) WalkForwardCfg() walkforward.Config {
	out := walkforward.DefaultConfig()
	out.NSplits = c.WalkForward.NSplits
	out.TrainFraction = c.WalkForward.TrainFraction
	out.NTrials = c.WalkForward.NTrials
	out.Metric = c.WalkForward.Metric
	out.Seed = c.WalkForward.Seed
	out.Engine = c.BacktestConfig()
	return out
}

// MonteCarloCfg converts the montecarlo section.
func (c *Config) MonteCarloCfg() montecarlo.Config {
	out := montecarlo.DefaultConfig()
	out.NSimulations = c.MonteCarlo.NSimulations
	out.Seed = c.MonteCarlo.Seed
	return out
}
