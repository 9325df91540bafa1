package backtest

import (
	"github.com/rs/zerolog"

	"github.com/rustyeddy/quantlab/quanterr"
)

// Costs models per-side trading frictions as fractions of the fill price.
// A common user error is passing a percentage as a whole number (0.1% as
// 0.1 instead of 0.001); MaxCostRate exists to catch that early.
type Costs struct {
	CommissionRate float64
	SlippageRate   float64
}

// TotalRate is the single per-side rate applied to fills: buys pay
// fill*(1+rate), sells receive fill*(1-rate).
func (c Costs) TotalRate() float64 {
	return c.CommissionRate + c.SlippageRate
}

// MaxCostRate bounds each friction component. 20% per side is already far
// beyond any sane market.
const MaxCostRate = 0.2

// Config holds the engine parameters.
type Config struct {
	InitialCapital float64
	Costs          Costs

	// ExecutionDelay is the number of bars between signal observation and
	// fill. 1 (the default) fills at the next bar's open. 0 fills at the
	// current bar's open and is only sound when features lag one
	// additional bar.
	ExecutionDelay int

	// SizeFraction of current equity committed per entry, in (0, 1].
	SizeFraction float64

	// StopLossPct / TakeProfitPct as fractions below/above the entry fill.
	// Zero disables the level.
	StopLossPct   float64
	TakeProfitPct float64

	// PeriodsPerYear overrides the annualisation factor inferred from the
	// bar index. Zero means infer.
	PeriodsPerYear float64

	Logger zerolog.Logger
}

// DefaultConfig is the standard research setup: next-bar-open execution,
// full sizing, no frictions, no stops.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 10_000,
		ExecutionDelay: 1,
		SizeFraction:   1,
		Logger:         zerolog.Nop(),
	}
}

func (c Config) validate() error {
	if c.InitialCapital <= 0 {
		return quanterr.Contractf("backtest", c.InitialCapital, "initial_capital must be > 0")
	}
	if c.SizeFraction <= 0 || c.SizeFraction > 1 {
		return quanterr.Contractf("backtest", c.SizeFraction, "size_fraction must be in (0, 1]")
	}
	if c.Costs.CommissionRate < 0 || c.Costs.CommissionRate > MaxCostRate {
		return quanterr.Contractf("backtest", c.Costs.CommissionRate,
			"commission_rate must be a fraction in [0, %v]", MaxCostRate)
	}
	if c.Costs.SlippageRate < 0 || c.Costs.SlippageRate > MaxCostRate {
		return quanterr.Contractf("backtest", c.Costs.SlippageRate,
			"slippage_rate must be a fraction in [0, %v]", MaxCostRate)
	}
	if c.ExecutionDelay != 0 && c.ExecutionDelay != 1 {
		return quanterr.Contractf("backtest", c.ExecutionDelay, "execution_delay must be 0 or 1")
	}
	if c.StopLossPct < 0 {
		return quanterr.Contractf("backtest", c.StopLossPct, "sl_pct must be >= 0")
	}
	if c.TakeProfitPct < 0 {
		return quanterr.Contractf("backtest", c.TakeProfitPct, "tp_pct must be >= 0")
	}
	if c.ExecutionDelay == 0 && (c.StopLossPct > 0 || c.TakeProfitPct > 0) {
		// Same-bar fills plus intrabar stops leave the fill ordering
		// within the bar undefined.
		return quanterr.Contractf("backtest", c.ExecutionDelay,
			"execution_delay=0 cannot be combined with stop-loss/take-profit")
	}
	if c.PeriodsPerYear < 0 {
		return quanterr.Contractf("backtest", c.PeriodsPerYear, "periods_per_year must be >= 0")
	}
	return nil
}
