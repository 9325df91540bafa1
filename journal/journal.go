// Package journal archives experiments outside the core: the configuration
// that produced a run, its trades, its equity curve, and the resulting
// metrics, keyed by a ULID run ID.
package journal

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rustyeddy/quantlab/backtest"
)

// RunRecord is one archived backtest run.
type RunRecord struct {
	RunID     string
	Strategy  string
	Params    string // JSON-encoded strategy parameters
	Symbol    string
	StartedAt time.Time

	// Headline metrics denormalised for querying; the full bundle is in
	// StatsJSON.
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	WinRate     float64
	NumTrades   int
	StatsJSON   string
}

// TradeRecord is one archived round trip.
type TradeRecord struct {
	RunID      string
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	PnL        float64
	ReturnPct  float64
	Reason     string
}

// EquitySnapshot is one archived equity point.
type EquitySnapshot struct {
	RunID  string
	Time   time.Time
	Equity float64
}

type Journal interface {
	RecordRun(RunRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// NewRunID mints a lexically-sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// NewRunRecord builds the run row for a finished backtest.
func NewRunRecord(runID, symbol string, strategyName string, params map[string]float64, startedAt time.Time, stats backtest.Stats) (RunRecord, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return RunRecord{}, err
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return RunRecord{}, err
	}
	return RunRecord{
		RunID:       runID,
		Strategy:    strategyName,
		Params:      string(paramsJSON),
		Symbol:      symbol,
		StartedAt:   startedAt,
		TotalReturn: stats.TotalReturn,
		SharpeRatio: stats.SharpeRatio,
		MaxDrawdown: stats.MaxDrawdown,
		WinRate:     stats.WinRate,
		NumTrades:   stats.NumTrades,
		StatsJSON:   string(statsJSON),
	}, nil
}

// RecordResult fans a backtest result out into trade and equity rows.
func RecordResult(j Journal, runID string, res *backtest.Result) error {
	for _, t := range res.Trades {
		rec := TradeRecord{
			RunID:      runID,
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Size:       t.Size,
			PnL:        t.PnL,
			ReturnPct:  t.ReturnPct,
			Reason:     string(t.ExitReason),
		}
		if err := j.RecordTrade(rec); err != nil {
			return err
		}
	}
	for _, p := range res.Equity {
		if err := j.RecordEquity(EquitySnapshot{RunID: runID, Time: p.Time, Equity: p.Value}); err != nil {
			return err
		}
	}
	return nil
}
