package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, strategy, params, symbol, started_at, total_return, sharpe_ratio, max_drawdown, win_rate, num_trades, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Strategy, r.Params, r.Symbol, r.StartedAt,
		r.TotalReturn, r.SharpeRatio, r.MaxDrawdown, r.WinRate, r.NumTrades, r.StatsJSON,
	)
	return err
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, entry_time, exit_time, entry_price, exit_price, size, pnl, return_pct, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.EntryTime, t.ExitTime, t.EntryPrice,
		t.ExitPrice, t.Size, t.PnL, t.ReturnPct, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`,
		e.RunID, e.Time, e.Equity,
	)
	return err
}

// GetRun returns a single archived run.
func (j *SQLiteJournal) GetRun(runID string) (RunRecord, error) {
	var r RunRecord
	row := j.db.QueryRow(`
		SELECT run_id, strategy, params, symbol, started_at, total_return, sharpe_ratio, max_drawdown, win_rate, num_trades, stats
		FROM runs WHERE run_id = ?`, runID)

	err := row.Scan(
		&r.RunID, &r.Strategy, &r.Params, &r.Symbol, &r.StartedAt,
		&r.TotalReturn, &r.SharpeRatio, &r.MaxDrawdown, &r.WinRate, &r.NumTrades, &r.StatsJSON,
	)
	if err == sql.ErrNoRows {
		return r, fmt.Errorf("journal: run %s not found", runID)
	}
	return r, err
}

// ListTradesByRun returns a run's trades in entry-time order.
func (j *SQLiteJournal) ListTradesByRun(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, entry_time, exit_time, entry_price, exit_price, size, pnl, return_pct, reason
		FROM trades WHERE run_id = ? ORDER BY entry_time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.RunID, &t.EntryTime, &t.ExitTime, &t.EntryPrice,
			&t.ExitPrice, &t.Size, &t.PnL, &t.ReturnPct, &t.Reason); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEquityByRun returns a run's equity curve in time order.
func (j *SQLiteJournal) ListEquityByRun(runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, equity FROM equity WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Time, &e.Equity); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
