package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"ganymede/internal/backtest"
	"ganymede/internal/domain"
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database. The full
// equity curve is not persisted; GetResult restores the summary fields and
// the trade list.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS backtest_results (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy         TEXT NOT NULL,
	symbol           TEXT NOT NULL,
	start_time       INTEGER NOT NULL,
	end_time         INTEGER NOT NULL,
	initial_capital  REAL NOT NULL,
	final_cash       REAL NOT NULL,
	final_value      REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	total_trades     INTEGER NOT NULL,
	winning_trades   INTEGER NOT NULL,
	losing_trades    INTEGER NOT NULL,
	win_rate_pct     REAL NOT NULL,
	avg_win          REAL NOT NULL,
	avg_loss         REAL NOT NULL,
	gross_profit     REAL NOT NULL,
	gross_loss       REAL NOT NULL,
	profit_factor    REAL,
	max_drawdown_pct REAL NOT NULL,
	sharpe_ratio     REAL NOT NULL,
	created_at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	result_id    INTEGER NOT NULL REFERENCES backtest_results(id),
	strategy     TEXT NOT NULL,
	entry_signal TEXT NOT NULL,
	exit_signal  TEXT NOT NULL,
	entry_price  REAL NOT NULL,
	exit_price   REAL NOT NULL,
	size         REAL NOT NULL,
	entry_time   INTEGER NOT NULL,
	exit_time    INTEGER NOT NULL,
	pnl          REAL NOT NULL,
	pnl_pct      REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_strategy ON backtest_results(strategy);
CREATE INDEX IF NOT EXISTS idx_trades_result ON backtest_trades(result_id);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveResult stores a result and its trades in one transaction. An unbounded
// profit factor is stored as NULL.
func (s *SQLiteStore) SaveResult(ctx context.Context, symbol string, result *backtest.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var profitFactor sql.NullFloat64
	if !result.ProfitFactor.IsInf() {
		profitFactor = sql.NullFloat64{Float64: float64(result.ProfitFactor), Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO backtest_results (
			strategy, symbol, start_time, end_time,
			initial_capital, final_cash, final_value, total_return_pct,
			total_trades, winning_trades, losing_trades,
			win_rate_pct, avg_win, avg_loss, gross_profit, gross_loss,
			profit_factor, max_drawdown_pct, sharpe_ratio, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.Strategy, symbol,
		result.StartTime.UnixMilli(), result.EndTime.UnixMilli(),
		result.InitialCapital, result.FinalCash, result.FinalValue, result.TotalReturnPct,
		result.TotalTrades, result.WinningTrades, result.LosingTrades,
		result.WinRatePct, result.AvgWin, result.AvgLoss,
		result.GrossProfit, result.GrossLoss,
		profitFactor, result.MaxDrawdownPct, result.SharpeRatio,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, tr := range result.Trades {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backtest_trades (
				result_id, strategy, entry_signal, exit_signal,
				entry_price, exit_price, size,
				entry_time, exit_time, pnl, pnl_pct
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, tr.Strategy, string(tr.EntrySignal), string(tr.ExitSignal),
			tr.EntryPrice, tr.ExitPrice, tr.Size,
			tr.EntryTime.UnixMilli(), tr.ExitTime.UnixMilli(),
			tr.PnL, tr.PnLPct,
		); err != nil {
			return 0, fmt.Errorf("inserting trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetResult loads one result by run id, including its trades.
func (s *SQLiteStore) GetResult(ctx context.Context, id int64) (*backtest.Result, error) {
	var (
		r            backtest.Result
		startMs      int64
		endMs        int64
		profitFactor sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT strategy, start_time, end_time,
			initial_capital, final_cash, final_value, total_return_pct,
			total_trades, winning_trades, losing_trades,
			win_rate_pct, avg_win, avg_loss, gross_profit, gross_loss,
			profit_factor, max_drawdown_pct, sharpe_ratio
		FROM backtest_results WHERE id = ?`, id,
	).Scan(
		&r.Strategy, &startMs, &endMs,
		&r.InitialCapital, &r.FinalCash, &r.FinalValue, &r.TotalReturnPct,
		&r.TotalTrades, &r.WinningTrades, &r.LosingTrades,
		&r.WinRatePct, &r.AvgWin, &r.AvgLoss, &r.GrossProfit, &r.GrossLoss,
		&profitFactor, &r.MaxDrawdownPct, &r.SharpeRatio,
	)
	if err != nil {
		return nil, fmt.Errorf("loading result %d: %w", id, err)
	}
	r.StartTime = time.UnixMilli(startMs).UTC()
	r.EndTime = time.UnixMilli(endMs).UTC()
	if profitFactor.Valid {
		r.ProfitFactor = backtest.Ratio(profitFactor.Float64)
	} else {
		r.ProfitFactor = backtest.Ratio(math.Inf(1))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, entry_signal, exit_signal,
			entry_price, exit_price, size,
			entry_time, exit_time, pnl, pnl_pct
		FROM backtest_trades WHERE result_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tr                domain.Trade
			entrySig, exitSig string
			entryMs, exitMs   int64
		)
		if err := rows.Scan(
			&tr.Strategy, &entrySig, &exitSig,
			&tr.EntryPrice, &tr.ExitPrice, &tr.Size,
			&entryMs, &exitMs, &tr.PnL, &tr.PnLPct,
		); err != nil {
			return nil, err
		}
		tr.EntrySignal = domain.SignalKind(entrySig)
		tr.ExitSignal = domain.SignalKind(exitSig)
		tr.EntryTime = time.UnixMilli(entryMs).UTC()
		tr.ExitTime = time.UnixMilli(exitMs).UTC()
		r.Trades = append(r.Trades, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResults returns summaries of stored runs, most recent first.
func (s *SQLiteStore) ListResults(ctx context.Context, strategy string, limit int) ([]ResultSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, strategy, symbol, start_time, end_time,
			total_return_pct, total_trades, sharpe_ratio, created_at
		FROM backtest_results`
	args := []any{}
	if strategy != "" {
		query += ` WHERE strategy = ?`
		args = append(args, strategy)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultSummary
	for rows.Next() {
		var rs ResultSummary
		var startMs, endMs, createdMs int64
		if err := rows.Scan(&rs.ID, &rs.Strategy, &rs.Symbol, &startMs, &endMs,
			&rs.TotalReturnPct, &rs.TotalTrades, &rs.SharpeRatio, &createdMs); err != nil {
			return nil, err
		}
		rs.StartTime = time.UnixMilli(startMs).UTC()
		rs.EndTime = time.UnixMilli(endMs).UTC()
		rs.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rs)
	}
	return out, rows.Err()
}
