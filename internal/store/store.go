// Package store provides persistence: candle history in Parquet files and
// backtest results in SQLite.
package store

import (
	"context"
	"time"

	"ganymede/internal/backtest"
	"ganymede/internal/domain"
)

// CandleStore persists and retrieves candle history.
type CandleStore interface {
	// WriteCandles stores candles for a symbol, merging with any already
	// on disk.
	WriteCandles(ctx context.Context, symbol string, candles []domain.Candle) error

	// ReadCandles returns the candles for a symbol within [start, end],
	// ordered by timestamp.
	ReadCandles(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error)

	// ListSymbols returns the symbols with stored candle data.
	ListSymbols(ctx context.Context) ([]string, error)
}

// ResultStore persists completed backtest results.
type ResultStore interface {
	// SaveResult stores a result and its trades, returning the assigned
	// run id.
	SaveResult(ctx context.Context, symbol string, result *backtest.Result) (int64, error)

	// GetResult loads one result by run id, including its trades.
	GetResult(ctx context.Context, id int64) (*backtest.Result, error)

	// ListResults returns summaries of stored runs for a strategy, most
	// recent first. An empty strategy matches all.
	ListResults(ctx context.Context, strategy string, limit int) ([]ResultSummary, error)
}

// ResultSummary is one row of the stored-run listing.
type ResultSummary struct {
	ID             int64
	Strategy       string
	Symbol         string
	StartTime      time.Time
	EndTime        time.Time
	TotalReturnPct float64
	TotalTrades    int
	SharpeRatio    float64
	CreatedAt      time.Time
}
