package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/quantlab/backtest"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func sampleResult() *backtest.Result {
	return &backtest.Result{
		Trades: []backtest.Trade{
			{EntryTime: t0, ExitTime: t0.Add(48 * time.Hour), EntryPrice: 100, ExitPrice: 104,
				Size: 10, PnL: 40, ReturnPct: 0.04, ExitReason: backtest.ExitSignal},
			{EntryTime: t0.Add(96 * time.Hour), ExitTime: t0.Add(120 * time.Hour), EntryPrice: 104, ExitPrice: 99,
				Size: 10, PnL: -50, ReturnPct: -0.048, ExitReason: backtest.ExitStopLoss},
		},
		Equity: []backtest.EquityPoint{
			{Time: t0, Value: 10_000},
			{Time: t0.Add(24 * time.Hour), Value: 10_020},
			{Time: t0.Add(48 * time.Hour), Value: 10_040},
		},
		Stats: backtest.Stats{TotalReturn: 0.004, SharpeRatio: 1.1, MaxDrawdown: -0.01,
			WinRate: 0.5, NumTrades: 2, PeriodsPerYear: 252},
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestSQLiteRoundTrip(t *testing.T) {
	j, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer j.Close()

	res := sampleResult()
	runID := NewRunID()

	run, err := NewRunRecord(runID, "SPY", "ma_cross_simple_10_50",
		map[string]float64{"fast_period": 10, "slow_period": 50}, t0, res.Stats)
	require.NoError(t, err)
	require.NoError(t, j.RecordRun(run))
	require.NoError(t, RecordResult(j, runID, res))

	got, err := j.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "ma_cross_simple_10_50", got.Strategy)
	assert.Equal(t, 2, got.NumTrades)
	assert.InDelta(t, 1.1, got.SharpeRatio, 1e-12)
	assert.Contains(t, got.Params, "fast_period")
	assert.Contains(t, got.StatsJSON, "SharpeRatio")

	trades, err := j.ListTradesByRun(runID)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "signal", trades[0].Reason)
	assert.Equal(t, "stop_loss", trades[1].Reason)
	assert.InDelta(t, 0.04, trades[0].ReturnPct, 1e-12)

	equity, err := j.ListEquityByRun(runID)
	require.NoError(t, err)
	require.Len(t, equity, 3)
	assert.InDelta(t, 10_000, equity[0].Equity, 1e-12)
}

func TestSQLiteGetRunMissing(t *testing.T) {
	j, err := NewSQLite(":memory:")
	require.NoError(t, err)
	defer j.Close()

	_, err = j.GetRun("nope")
	assert.Error(t, err)
}

func TestCSVJournal(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	runID := NewRunID()
	require.NoError(t, RecordResult(j, runID, sampleResult()))
	require.NoError(t, j.Close())

	tf, err := os.Open(tradesPath)
	require.NoError(t, err)
	defer tf.Close()
	rows, err := csv.NewReader(tf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 trades
	assert.Equal(t, "run_id", rows[0][0])
	assert.Equal(t, runID, rows[1][0])
	assert.Equal(t, "signal", rows[1][8])

	ef, err := os.Open(equityPath)
	require.NoError(t, err)
	defer ef.Close()
	eq, err := csv.NewReader(ef).ReadAll()
	require.NoError(t, err)
	assert.Len(t, eq, 4) // header + 3 points
}
