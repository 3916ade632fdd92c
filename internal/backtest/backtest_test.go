package backtest

import (
	"encoding/json"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"ganymede/internal/domain"
	"ganymede/internal/strategy"
)

var t0 = time.Date(2024, 3, 11, 14, 30, 0, 0, time.UTC)

func mkSeries(t *testing.T, closes []float64) []domain.Candle {
	t.Helper()
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candle, err := domain.NewCandle(
			t0.Add(time.Duration(i)*30*time.Minute),
			c, c+1, c-1, c, 1000,
		)
		if err != nil {
			t.Fatalf("candle %d: %v", i, err)
		}
		out[i] = candle
	}
	return out
}

// scriptedStrategy replays fixed signals keyed by bar index and stays
// neutral everywhere else.
type scriptedStrategy struct {
	name    string
	signals map[int]domain.Signal
}

func (s *scriptedStrategy) Name() string { return s.name }

func (s *scriptedStrategy) Reset() {}

func (s *scriptedStrategy) Prepare(candles []domain.Candle) (*strategy.Frame, error) {
	return strategy.NewFrame(candles), nil
}

func (s *scriptedStrategy) Generate(candles []domain.Candle) (domain.Signal, error) {
	if sig, ok := s.signals[len(candles)-1]; ok {
		return sig, nil
	}
	last := candles[len(candles)-1]
	return domain.Signal{
		Strategy:  s.name,
		Kind:      domain.SignalNeutral,
		Timestamp: last.Timestamp,
		Price:     last.Close,
	}, nil
}

func mkScriptSignal(t *testing.T, name string, kind domain.SignalKind, price float64, bar int, meta map[string]any) domain.Signal {
	t.Helper()
	sig, err := domain.NewSignal(name, kind, 0.8, 0.1,
		t0.Add(time.Duration(bar)*30*time.Minute), price, meta)
	if err != nil {
		t.Fatal(err)
	}
	return sig
}

func TestStopProcessedBeforeSignalOnSameBar(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	closes[55] = 95 // breaches the stop on the same bar a short arrives
	for i := 56; i < 60; i++ {
		closes[i] = 95
	}
	candles := mkSeries(t, closes)

	// Entry sits on the bar right before the collision: the scripted
	// strategy goes neutral on every other bar, and a neutral in between
	// would flatten the long before the stop ever fires.
	strat := &scriptedStrategy{
		name: "scripted",
		signals: map[int]domain.Signal{
			54: mkScriptSignal(t, "scripted", domain.SignalLong, 100, 54,
				map[string]any{"stop_loss": 96.0}),
			55: mkScriptSignal(t, "scripted", domain.SignalShort, 95, 55, nil),
		},
	}

	engine := NewEngine(Config{InitialCapital: 10000}, nil)
	result, err := engine.Run(strat, candles)
	if err != nil {
		t.Fatal(err)
	}
	if engine.State() != StateCompleted {
		t.Fatalf("state = %v, want completed", engine.State())
	}
	if result.TotalTrades != 2 {
		t.Fatalf("trades = %d, want the stop exit plus the short's close", result.TotalTrades)
	}

	// The stop must close the long before the fresh short is evaluated.
	// Had the short been processed first it would have reversed the long
	// with a SHORT exit marker; the stop sweep leaves a NEUTRAL one.
	tr := result.Trades[0]
	if tr.EntrySignal != domain.SignalLong {
		t.Errorf("first trade entry = %v, want LONG", tr.EntrySignal)
	}
	if tr.ExitSignal != domain.SignalNeutral {
		t.Errorf("exit signal = %v, want NEUTRAL from the stop sweep", tr.ExitSignal)
	}
	if tr.ExitPrice != 95 {
		t.Errorf("exit price = %v, want raw close 95", tr.ExitPrice)
	}

	// The short from the same bar was then opened, and the next bar's
	// neutral signal flattened it.
	if result.Trades[1].EntrySignal != domain.SignalShort {
		t.Errorf("second trade entry = %v, want the same-bar SHORT", result.Trades[1].EntrySignal)
	}
	last := result.EquityCurve[len(result.EquityCurve)-1]
	if last.OpenPositions != 0 {
		t.Errorf("open positions at end = %d, want 0", last.OpenPositions)
	}
}

func TestRunWithoutSignalsLeavesCapitalUntouched(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.1
	}
	engine := NewEngine(Config{InitialCapital: 10000}, nil)
	result, err := engine.Run(&scriptedStrategy{name: "idle"}, mkSeries(t, closes))
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalTrades != 0 {
		t.Fatalf("trades = %d, want 0", result.TotalTrades)
	}
	if result.FinalValue != 10000 {
		t.Errorf("final value = %v, want ending cash 10000", result.FinalValue)
	}
	if result.ProfitFactor != 0 || result.SharpeRatio != 0 || result.WinRatePct != 0 {
		t.Error("derived ratios should all be 0 with no trades")
	}
}

func TestRunRejectsShortSeries(t *testing.T) {
	engine := NewEngine(Config{InitialCapital: 10000}, nil)
	_, err := engine.Run(&scriptedStrategy{name: "idle"}, mkSeries(t, []float64{100, 101}))
	if err == nil {
		t.Fatal("expected error for a series shorter than the warm-up")
	}
	if engine.State() != StateFailed {
		t.Errorf("state = %v, want failed", engine.State())
	}
}

func TestRunRejectsUnorderedTimestamps(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	candles := mkSeries(t, closes)
	candles[30], candles[31] = candles[31], candles[30]

	engine := NewEngine(Config{InitialCapital: 10000}, nil)
	if _, err := engine.Run(&scriptedStrategy{name: "idle"}, candles); err == nil {
		t.Fatal("expected error for out-of-order timestamps")
	}
}

func TestProfitFactor(t *testing.T) {
	// Trades +50, +30, -20: gross profit 80 over gross loss 20.
	if got := ProfitFactor(80, 20, 3); got != 4.0 {
		t.Errorf("ProfitFactor(80, 20, 3) = %v, want 4", got)
	}
	if got := ProfitFactor(80, 0, 2); !got.IsInf() {
		t.Errorf("ProfitFactor with no losses = %v, want +Inf", got)
	}
	if got := ProfitFactor(0, 0, 0); got != 0 {
		t.Errorf("ProfitFactor with no trades = %v, want 0", got)
	}
}

func TestRatioJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Ratio(math.Inf(1)))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Fatalf("marshal(+Inf) = %s, want null", data)
	}
	var r Ratio
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	if !r.IsInf() {
		t.Errorf("round trip = %v, want +Inf", r)
	}

	data, err = json.Marshal(Ratio(2.5))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "2.5" {
		t.Errorf("marshal(2.5) = %s, want 2.5", data)
	}
}

func TestMaxDrawdownNonDecreasing(t *testing.T) {
	values := []float64{100, 120, 90, 130, 80, 140, 70}
	var equity []domain.EquityPoint
	prev := 0.0
	for i, v := range values {
		equity = append(equity, domain.EquityPoint{
			Timestamp:  t0.Add(time.Duration(i) * time.Hour),
			TotalValue: v,
		})
		dd := MaxDrawdown(equity)
		if dd < prev {
			t.Fatalf("drawdown decreased from %v to %v after point %d", prev, dd, i)
		}
		prev = dd
	}
	// Final trough: peak 140 down to 70.
	if want := 50.0; math.Abs(prev-want) > 1e-9 {
		t.Errorf("max drawdown = %v, want %v", prev, want)
	}
}

func TestSharpeZeroVariance(t *testing.T) {
	equity := []domain.EquityPoint{
		{TotalValue: 100}, {TotalValue: 100}, {TotalValue: 100},
	}
	if got := SharpeRatio(equity, 30*time.Minute); got != 0 {
		t.Errorf("Sharpe on a flat curve = %v, want 0", got)
	}
}

func TestWalkForwardWindowCount(t *testing.T) {
	// 48 bars/day, 30d train and 10d test over 2000 bars leaves one
	// full test window.
	wf := WalkForwardConfig{TrainBars: 1440, TestBars: 480}
	if got := wf.NumWindows(2000); got != 1 {
		t.Errorf("NumWindows(2000) = %d, want 1", got)
	}
	if got := wf.NumWindows(1440); got != 0 {
		t.Errorf("NumWindows(1440) = %d, want 0", got)
	}
}

func TestWalkForwardRunsIndependentWindows(t *testing.T) {
	closes := make([]float64, 130)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	candles := mkSeries(t, closes)

	var built atomic.Int32
	factory := func() (strategy.Strategy, error) {
		built.Add(1)
		return &scriptedStrategy{name: "idle"}, nil
	}

	results, err := WalkForward(
		Config{InitialCapital: 10000},
		WalkForwardConfig{TrainBars: 0, TestBars: 60},
		factory, candles, nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 windows", len(results))
	}
	if built.Load() != 2 {
		t.Errorf("factory called %d times, want once per window", built.Load())
	}
	for w, r := range results {
		if r == nil {
			t.Fatalf("window %d: nil result", w)
		}
		if r.InitialCapital != 10000 {
			t.Errorf("window %d: initial capital = %v, want fresh 10000", w, r.InitialCapital)
		}
	}
	if !results[1].StartTime.After(results[0].StartTime) {
		t.Error("results should be ordered by window start")
	}
}

func TestCompareRunsAllCandidates(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	candles := mkSeries(t, closes)

	reg := strategy.NewRegistry()
	reg.Register("idle", func(cfg strategy.Config) (strategy.Strategy, error) {
		return &scriptedStrategy{name: cfg.Name}, nil
	})

	results, err := Compare(
		Config{InitialCapital: 10000},
		reg,
		[]Candidate{
			{ID: "idle", Config: strategy.Config{Name: "first"}},
			{ID: "idle", Config: strategy.Config{Name: "second"}},
		},
		candles, nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Strategy != "first" || results[1].Strategy != "second" {
		t.Errorf("results out of candidate order: %s, %s", results[0].Strategy, results[1].Strategy)
	}
}

func TestRank(t *testing.T) {
	results := []*Result{
		{Strategy: "a", TotalReturnPct: 1},
		{Strategy: "b", TotalReturnPct: 5},
		{Strategy: "c", TotalReturnPct: 3},
	}
	ranked := Rank(results)
	if ranked[0].Strategy != "b" || ranked[2].Strategy != "a" {
		t.Errorf("rank order = %s, %s, %s", ranked[0].Strategy, ranked[1].Strategy, ranked[2].Strategy)
	}
	if results[0].Strategy != "a" {
		t.Error("Rank should not reorder its input")
	}
}
