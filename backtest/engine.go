// Package backtest is the event-driven simulator at the centre of the
// platform: it converts prices and signals into trades, an equity curve,
// and a metrics bundle.
//
// The execution-timing contract is the package's reason to exist. A signal
// observed at bar t is acted on at the open of bar t+ExecutionDelay; stops
// are tested intrabar against high/low and fill at the stop level; when a
// stop and a take-profit are touched on the same bar the stop is assumed to
// have triggered first.
package backtest

import (
	"time"

	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/quanterr"
	"github.com/rustyeddy/quantlab/strategies"
)

// Engine runs long/flat simulations under a fixed configuration. It holds
// no state between runs; Run is a pure function of its inputs.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// position is the single open trade while the state machine is long.
type position struct {
	entryIdx   int
	entryTime  time.Time
	entryPrice float64 // raw fill
	units      float64
	costBasis  float64 // cash paid, units * effective buy price
}

// Run simulates the signal frame against the price series and returns
// trades, the per-bar equity curve, and the stats bundle.
func (e *Engine) Run(prices *market.Series, signals *strategies.SignalFrame) (*Result, error) {
	if prices == nil || prices.Len() == 0 {
		return nil, quanterr.Contractf("backtest", nil, "prices is empty")
	}
	if signals == nil || signals.Len() == 0 {
		return nil, quanterr.Contractf("backtest", nil, "signals is empty")
	}

	bars, entries, exits, err := align(prices, signals)
	if err != nil {
		return nil, err
	}

	// Apply the execution delay: a flag raised at bar t fires at bar
	// t+delay. Flags pushed past the end of data simply never fire.
	delay := e.cfg.ExecutionDelay
	entries = shiftFlags(entries, delay)
	exits = shiftFlags(exits, delay)

	rate := e.cfg.Costs.TotalRate()
	cash := e.cfg.InitialCapital

	var pos *position
	var trades []Trade
	equity := make([]EquityPoint, len(bars))

	for i, b := range bars {
		closedThisBar := false

		if pos != nil {
			if fill, reason, hit := e.stopFill(pos, b, i); hit {
				cash += pos.units * fill * (1 - rate)
				trades = append(trades, e.record(pos, b.Time, fill, rate, reason))
				pos = nil
				closedThisBar = true
			} else if exits[i] {
				fill := b.Open
				cash += pos.units * fill * (1 - rate)
				trades = append(trades, e.record(pos, b.Time, fill, rate, ExitSignal))
				pos = nil
				closedThisBar = true
			}
		}

		// A flagged entry while long is a no-op; so is one on the bar a
		// position just closed, or on the final bar (it could never exit
		// strictly later).
		if pos == nil && !closedThisBar && entries[i] && i < len(bars)-1 {
			fill := b.Open
			effBuy := fill * (1 + rate)
			notional := e.cfg.SizeFraction * cash
			units := notional / effBuy
			cash -= units * effBuy
			pos = &position{
				entryIdx:   i,
				entryTime:  b.Time,
				entryPrice: fill,
				units:      units,
				costBasis:  units * effBuy,
			}
		}

		held := 0.0
		if pos != nil {
			held = pos.units * b.Close
		}
		equity[i] = EquityPoint{Time: b.Time, Value: cash + held}
	}

	// Terminal transition: end of data closes any open position at the
	// final close.
	if pos != nil {
		last := bars[len(bars)-1]
		fill := last.Close
		cash += pos.units * fill * (1 - rate)
		trades = append(trades, e.record(pos, last.Time, fill, rate, ExitEndOfData))
		equity[len(equity)-1] = EquityPoint{Time: last.Time, Value: cash}
	}

	ppy := e.cfg.PeriodsPerYear
	if ppy == 0 {
		ppy = prices.PeriodsPerYear()
	}

	return &Result{
		Trades: trades,
		Equity: equity,
		Stats:  computeStats(trades, equity, ppy, e.cfg.Logger),
	}, nil
}

// stopFill tests the intrabar stop and take-profit levels for the bar.
// Ordering is deliberate: the stop is checked first, so a bar that touches
// both levels exits at the stop (the worst-case assumption — the intrabar
// path is unknown). A bar that already opens through a level fills at the
// open, not at the level.
func (e *Engine) stopFill(pos *position, b market.Bar, i int) (float64, ExitReason, bool) {
	if i <= pos.entryIdx {
		return 0, "", false
	}
	if sl := e.cfg.StopLossPct; sl > 0 {
		level := pos.entryPrice * (1 - sl)
		if b.Low <= level {
			fill := level
			if b.Open < level {
				fill = b.Open
			}
			return fill, ExitStopLoss, true
		}
	}
	if tp := e.cfg.TakeProfitPct; tp > 0 {
		level := pos.entryPrice * (1 + tp)
		if b.High >= level {
			fill := level
			if b.Open > level {
				fill = b.Open
			}
			return fill, ExitTakeProfit, true
		}
	}
	return 0, "", false
}

// record builds the trade row for a close at the given raw fill price.
func (e *Engine) record(pos *position, exitTime time.Time, fill, rate float64, reason ExitReason) Trade {
	proceeds := pos.units * fill * (1 - rate)
	return Trade{
		EntryTime:  pos.entryTime,
		ExitTime:   exitTime,
		EntryPrice: pos.entryPrice,
		ExitPrice:  fill,
		Size:       pos.units,
		PnL:        proceeds - pos.costBasis,
		ReturnPct:  proceeds/pos.costBasis - 1,
		ExitReason: reason,
	}
}

// align intersects the price and signal indices. Both are time-sorted, so a
// single merge pass suffices.
func align(prices *market.Series, signals *strategies.SignalFrame) ([]market.Bar, []bool, []bool, error) {
	sigTimes := signals.Times()

	var bars []market.Bar
	var entries, exits []bool

	j := 0
	for i := 0; i < prices.Len(); i++ {
		b := prices.Bar(i)
		for j < len(sigTimes) && sigTimes[j].Before(b.Time) {
			j++
		}
		if j < len(sigTimes) && sigTimes[j].Equal(b.Time) {
			bars = append(bars, b)
			entries = append(entries, signals.Entries[j])
			exits = append(exits, signals.Exits[j])
			j++
		}
	}

	if len(bars) < 2 {
		return nil, nil, nil, quanterr.Contractf("backtest", len(bars),
			"price/signal index intersection has fewer than two bars")
	}
	return bars, entries, exits, nil
}

func shiftFlags(flags []bool, delay int) []bool {
	if delay == 0 {
		return flags
	}
	out := make([]bool, len(flags))
	for i := delay; i < len(flags); i++ {
		out[i] = flags[i-delay]
	}
	return out
}
