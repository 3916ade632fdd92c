package portfolio

import (
	"math"
	"testing"
	"time"

	"ganymede/internal/domain"
)

var t0 = time.Date(2024, 3, 11, 14, 30, 0, 0, time.UTC)

func mkSignal(t *testing.T, kind domain.SignalKind, size, price float64, ts time.Time, meta map[string]any) domain.Signal {
	t.Helper()
	sig, err := domain.NewSignal("test-strategy", kind, 0.8, size, ts, price, meta)
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	return sig
}

func TestLongRoundTrip(t *testing.T) {
	p, err := New(10000, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	// 10% of 10000 at price 100 buys 10 units and leaves 9000 cash.
	if err := p.ProcessSignal(mkSignal(t, domain.SignalLong, 0.1, 100, t0, nil)); err != nil {
		t.Fatal(err)
	}
	if got := p.Cash(); got != 9000 {
		t.Fatalf("cash after open = %v, want 9000", got)
	}
	pos, ok := p.Position("test-strategy")
	if !ok {
		t.Fatal("expected an open position")
	}
	if pos.Size != 10 {
		t.Errorf("size = %v, want 10", pos.Size)
	}

	// Opposing signal at 110 closes with pnl 100 and opens a short.
	exit := t0.Add(time.Hour)
	if err := p.ProcessSignal(mkSignal(t, domain.SignalShort, 0.1, 110, exit, nil)); err != nil {
		t.Fatal(err)
	}
	trades := p.Trades()
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	tr := trades[0]
	if tr.PnL != 100 {
		t.Errorf("pnl = %v, want 100", tr.PnL)
	}
	if tr.PnLPct != 10 {
		t.Errorf("pnl_pct = %v, want 10", tr.PnLPct)
	}
	if tr.ExitSignal != domain.SignalShort {
		t.Errorf("exit signal = %v, want SHORT", tr.ExitSignal)
	}
	if tr.Duration() < 0 {
		t.Errorf("duration = %v, want >= 0", tr.Duration())
	}

	// Reversal: the short opened in the same call at the same price,
	// sized from the credited cash (10100 before the new notional).
	pos, ok = p.Position("test-strategy")
	if !ok {
		t.Fatal("reversal should leave a short open")
	}
	if pos.Kind != domain.SignalShort {
		t.Errorf("kind = %v, want SHORT", pos.Kind)
	}
	if pos.EntryPrice != 110 {
		t.Errorf("reversal entry = %v, want the same execution price 110", pos.EntryPrice)
	}
	if got, want := p.Cash()+pos.Notional(), 10100.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("cash + notional = %v, want %v", got, want)
	}
}

func TestNeutralClosesWithoutReopening(t *testing.T) {
	p, _ := New(10000, 0, 0)
	if err := p.ProcessSignal(mkSignal(t, domain.SignalLong, 0.1, 100, t0, nil)); err != nil {
		t.Fatal(err)
	}
	neutral := domain.Signal{
		Strategy:  "test-strategy",
		Kind:      domain.SignalNeutral,
		Timestamp: t0.Add(time.Hour),
		Price:     105,
	}
	if err := p.ProcessSignal(neutral); err != nil {
		t.Fatal(err)
	}
	if p.OpenPositions() != 0 {
		t.Error("neutral signal should flatten the strategy")
	}
	if len(p.Trades()) != 1 {
		t.Fatalf("trades = %d, want 1", len(p.Trades()))
	}
	if got := p.Cash(); got != 10050 {
		t.Errorf("cash = %v, want 10050", got)
	}
}

func TestSameDirectionClosesAndReopens(t *testing.T) {
	p, _ := New(10000, 0, 0)
	if err := p.ProcessSignal(mkSignal(t, domain.SignalLong, 0.1, 100, t0, nil)); err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessSignal(mkSignal(t, domain.SignalLong, 0.1, 120, t0.Add(time.Hour), nil)); err != nil {
		t.Fatal(err)
	}
	// A repeated long realizes the first position and re-enters at the
	// new price.
	if len(p.Trades()) != 1 {
		t.Fatalf("trades = %d, want 1", len(p.Trades()))
	}
	pos, ok := p.Position("test-strategy")
	if !ok {
		t.Fatal("expected a reopened position")
	}
	if pos.EntryPrice != 120 {
		t.Errorf("entry = %v, want reopened at 120", pos.EntryPrice)
	}
}

func TestAtMostOnePositionPerStrategy(t *testing.T) {
	p, _ := New(10000, 0, 0)
	for i, price := range []float64{100, 105, 98, 110} {
		kind := domain.SignalLong
		if i%2 == 1 {
			kind = domain.SignalShort
		}
		ts := t0.Add(time.Duration(i) * time.Hour)
		if err := p.ProcessSignal(mkSignal(t, kind, 0.1, price, ts, nil)); err != nil {
			t.Fatal(err)
		}
		if p.OpenPositions() > 1 {
			t.Fatalf("open positions = %d after signal %d, want at most 1", p.OpenPositions(), i)
		}
	}
}

func TestSlippageAdjustsExecution(t *testing.T) {
	p, _ := New(10000, 0, 0.01)
	if err := p.ProcessSignal(mkSignal(t, domain.SignalLong, 0.1, 100, t0, nil)); err != nil {
		t.Fatal(err)
	}
	pos, _ := p.Position("test-strategy")
	if pos.EntryPrice != 101 {
		t.Errorf("long entry = %v, want 101 after 1%% slippage", pos.EntryPrice)
	}
}

func TestCommissionChargedOnClose(t *testing.T) {
	p, _ := New(10000, 0.001, 0)
	if err := p.ProcessSignal(mkSignal(t, domain.SignalLong, 0.1, 100, t0, nil)); err != nil {
		t.Fatal(err)
	}
	neutral := domain.Signal{
		Strategy:  "test-strategy",
		Kind:      domain.SignalNeutral,
		Timestamp: t0.Add(time.Hour),
		Price:     110,
	}
	if err := p.ProcessSignal(neutral); err != nil {
		t.Fatal(err)
	}
	// 0.001 * 10 * (100 + 110) = 2.1 deducted from 10100.
	if got, want := p.Cash(), 10097.9; math.Abs(got-want) > 1e-9 {
		t.Errorf("cash = %v, want %v", got, want)
	}
}

func TestCheckStopsClosesBreachedPositions(t *testing.T) {
	p, _ := New(10000, 0, 0)
	meta := map[string]any{"stop_loss": 95.0, "take_profit": 120.0}
	if err := p.ProcessSignal(mkSignal(t, domain.SignalLong, 0.1, 100, t0, meta)); err != nil {
		t.Fatal(err)
	}

	closed, err := p.CheckStops(96, t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(closed) != 0 {
		t.Fatal("stop should not fire above the stop level")
	}

	closed, err = p.CheckStops(94, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(closed) != 1 {
		t.Fatalf("closed = %d, want 1", len(closed))
	}
	if closed[0].ExitSignal != domain.SignalNeutral {
		t.Errorf("exit signal = %v, want NEUTRAL for a stop exit", closed[0].ExitSignal)
	}
	if closed[0].ExitPrice != 94 {
		t.Errorf("exit price = %v, want 94", closed[0].ExitPrice)
	}
	if p.OpenPositions() != 0 {
		t.Error("stopped position should be removed")
	}
}

func TestAccountingIdentity(t *testing.T) {
	p, _ := New(10000, 0.001, 0.0005)
	prices := []float64{100, 103, 99, 104, 101}
	for i, price := range prices {
		ts := t0.Add(time.Duration(i) * time.Hour)
		kind := domain.SignalLong
		if i%2 == 1 {
			kind = domain.SignalShort
		}
		if err := p.ProcessSignal(mkSignal(t, kind, 0.2, price, ts, nil)); err != nil {
			t.Fatal(err)
		}
		point := p.RecordEquity(price, ts)

		var open float64
		for _, name := range []string{"test-strategy"} {
			if pos, ok := p.Position(name); ok {
				open += pos.Notional() + pos.UnrealizedPnL(price)
			}
		}
		if got, want := point.TotalValue, p.Cash()+open; math.Abs(got-want) > 1e-9 {
			t.Fatalf("bar %d: total value %v != cash %v + open value %v", i, got, p.Cash(), open)
		}
	}
	if len(p.Equity()) != len(prices) {
		t.Errorf("equity points = %d, want %d", len(p.Equity()), len(prices))
	}
}

func TestRejectsBadCapital(t *testing.T) {
	if _, err := New(0, 0, 0); err == nil {
		t.Error("zero initial capital should be rejected")
	}
	if _, err := New(-100, 0, 0); err == nil {
		t.Error("negative initial capital should be rejected")
	}
	if _, err := New(100, -0.1, 0); err == nil {
		t.Error("negative commission should be rejected")
	}
}
