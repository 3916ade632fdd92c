package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"ganymede/internal/backtest"
	"ganymede/internal/domain"
)

var t0 = time.Date(2024, 3, 11, 14, 30, 0, 0, time.UTC)

func mkCandles(t *testing.T, n int) []domain.Candle {
	t.Helper()
	out := make([]domain.Candle, n)
	for i := range out {
		c := 100 + float64(i)
		candle, err := domain.NewCandle(
			t0.Add(time.Duration(i)*30*time.Minute),
			c, c+1, c-1, c+0.5, 1000,
		)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = candle
	}
	return out
}

func TestParquetWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	ps := NewParquetStore(t.TempDir())
	candles := mkCandles(t, 10)

	if err := ps.WriteCandles(ctx, "aapl", candles); err != nil {
		t.Fatalf("WriteCandles: %v", err)
	}

	got, err := ps.ReadCandles(ctx, "AAPL", t0, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ReadCandles: %v", err)
	}
	if len(got) != len(candles) {
		t.Fatalf("read %d candles, want %d", len(got), len(candles))
	}
	for i := range got {
		if !got[i].Timestamp.Equal(candles[i].Timestamp) {
			t.Errorf("candle %d: timestamp %v, want %v", i, got[i].Timestamp, candles[i].Timestamp)
		}
		if got[i].Close != candles[i].Close {
			t.Errorf("candle %d: close %v, want %v", i, got[i].Close, candles[i].Close)
		}
	}
}

func TestParquetMergeDeduplicates(t *testing.T) {
	ctx := context.Background()
	ps := NewParquetStore(t.TempDir())
	candles := mkCandles(t, 6)

	if err := ps.WriteCandles(ctx, "MSFT", candles[:4]); err != nil {
		t.Fatal(err)
	}
	// Overlapping write: the last two of the first batch again, plus two
	// new candles.
	if err := ps.WriteCandles(ctx, "MSFT", candles[2:]); err != nil {
		t.Fatal(err)
	}

	got, err := ps.ReadCandles(ctx, "MSFT", t0, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Fatalf("read %d candles after overlapping writes, want 6", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Timestamp.Before(got[i].Timestamp) {
			t.Fatalf("candles out of order at %d", i)
		}
	}
}

func TestParquetReadWindow(t *testing.T) {
	ctx := context.Background()
	ps := NewParquetStore(t.TempDir())
	candles := mkCandles(t, 10)
	if err := ps.WriteCandles(ctx, "SPY", candles); err != nil {
		t.Fatal(err)
	}

	start := candles[3].Timestamp
	end := candles[6].Timestamp
	got, err := ps.ReadCandles(ctx, "SPY", start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("read %d candles in window, want 4", len(got))
	}
}

func TestParquetListSymbols(t *testing.T) {
	ctx := context.Background()
	ps := NewParquetStore(t.TempDir())
	candles := mkCandles(t, 3)
	for _, sym := range []string{"msft", "AAPL"} {
		if err := ps.WriteCandles(ctx, sym, candles); err != nil {
			t.Fatal(err)
		}
	}

	symbols, err := ps.ListSymbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Errorf("symbols = %v, want [AAPL MSFT]", symbols)
	}
}

func mkResult() *backtest.Result {
	return &backtest.Result{
		Strategy:       "v1-momentum",
		StartTime:      t0,
		EndTime:        t0.Add(48 * time.Hour),
		InitialCapital: 10000,
		FinalCash:      10080,
		FinalValue:     10080,
		TotalReturnPct: 0.8,
		TotalTrades:    2,
		WinningTrades:  2,
		WinRatePct:     100,
		AvgWin:         40,
		GrossProfit:    80,
		ProfitFactor:   backtest.Ratio(math.Inf(1)),
		MaxDrawdownPct: 1.2,
		SharpeRatio:    1.9,
		Trades: []domain.Trade{
			{
				Strategy:    "v1-momentum",
				EntrySignal: domain.SignalLong,
				ExitSignal:  domain.SignalNeutral,
				EntryPrice:  100, ExitPrice: 105, Size: 10,
				EntryTime: t0, ExitTime: t0.Add(time.Hour),
				PnL: 50, PnLPct: 5,
			},
			{
				Strategy:    "v1-momentum",
				EntrySignal: domain.SignalShort,
				ExitSignal:  domain.SignalLong,
				EntryPrice:  105, ExitPrice: 102, Size: 10,
				EntryTime: t0.Add(2 * time.Hour), ExitTime: t0.Add(3 * time.Hour),
				PnL: 30, PnLPct: 2.857,
			},
		},
	}
}

func TestSQLiteSaveAndGetResult(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer db.Close()

	id, err := db.SaveResult(ctx, "AAPL", mkResult())
	if err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := db.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Strategy != "v1-momentum" {
		t.Errorf("strategy = %q", got.Strategy)
	}
	if !got.StartTime.Equal(t0) {
		t.Errorf("start = %v, want %v", got.StartTime, t0)
	}
	if got.TotalTrades != 2 || len(got.Trades) != 2 {
		t.Fatalf("trades = %d rows %d, want 2 each", got.TotalTrades, len(got.Trades))
	}
	// A run with no losing trades must come back as the +Inf sentinel.
	if !got.ProfitFactor.IsInf() {
		t.Errorf("profit factor = %v, want +Inf", got.ProfitFactor)
	}
	if got.Trades[0].ExitSignal != domain.SignalNeutral {
		t.Errorf("trade 0 exit = %v, want NEUTRAL", got.Trades[0].ExitSignal)
	}
	if got.Trades[1].PnL != 30 {
		t.Errorf("trade 1 pnl = %v, want 30", got.Trades[1].PnL)
	}
}

func TestSQLiteListResults(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	r := mkResult()
	if _, err := db.SaveResult(ctx, "AAPL", r); err != nil {
		t.Fatal(err)
	}
	other := mkResult()
	other.Strategy = "v6-breakout"
	if _, err := db.SaveResult(ctx, "MSFT", other); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListResults(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("listed %d results, want 2", len(all))
	}

	only, err := db.ListResults(ctx, "v6-breakout", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || only[0].Strategy != "v6-breakout" || only[0].Symbol != "MSFT" {
		t.Errorf("filtered list = %+v", only)
	}
}
