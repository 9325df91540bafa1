// Package strategies defines the signal-generator capability and its two
// variants: a rule-based moving-average cross and a classifier-backed model
// strategy with hysteresis thresholds.
package strategies

import (
	"time"

	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/quanterr"
)

// Strategy is the minimal capability a signal generator exposes. Generators
// are stateless across calls: GenerateSignals is a pure function of the
// prices (and, for model strategies, the fitted artefact they own).
type Strategy interface {
	// Name returns a stable identifier like "ma_cross_simple_10_50".
	Name() string

	// Params returns the configurable parameters for reproducibility.
	Params() map[string]float64

	// GenerateSignals emits an entry/exit frame aligned to the price index.
	GenerateSignals(prices *market.Series) (*SignalFrame, error)
}

// SignalFrame carries the entry and exit flags aligned to a price index.
// A constructed frame never has an entry and an exit at the same timestamp:
// conflicts are resolved in favour of the entry.
type SignalFrame struct {
	times   []time.Time
	Entries []bool
	Exits   []bool
}

// NewSignalFrame validates alignment and resolves entry/exit conflicts
// (entry wins).
func NewSignalFrame(times []time.Time, entries, exits []bool) (*SignalFrame, error) {
	if len(times) == 0 {
		return nil, quanterr.Contractf("strategies", nil, "signal frame is empty")
	}
	if len(entries) != len(times) || len(exits) != len(times) {
		return nil, quanterr.Contractf("strategies", len(times),
			"entries/exits must align with the index (%d/%d)", len(entries), len(exits))
	}

	e := append([]bool(nil), entries...)
	x := append([]bool(nil), exits...)
	for i := range e {
		if e[i] && x[i] {
			x[i] = false
		}
	}
	return &SignalFrame{times: append([]time.Time(nil), times...), Entries: e, Exits: x}, nil
}

func (f *SignalFrame) Len() int             { return len(f.times) }
func (f *SignalFrame) Time(i int) time.Time { return f.times[i] }

// Times returns a copy of the frame's index.
func (f *SignalFrame) Times() []time.Time {
	return append([]time.Time(nil), f.times...)
}
