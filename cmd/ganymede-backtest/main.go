package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"ganymede/internal/backtest"
	"ganymede/internal/config"
	"ganymede/internal/domain"
	"ganymede/internal/store"
	"ganymede/internal/strategy"
	"ganymede/internal/strategy/builtins"
	"ganymede/internal/util"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to backtest (required)")
	start := flag.String("start", "", "start date (YYYY-MM-DD, default: all data)")
	end := flag.String("end", "", "end date (YYYY-MM-DD, default: all data)")
	only := flag.String("strategy", "", "run a single strategy id instead of all enabled")
	walkforward := flag.Bool("walkforward", false, "run walk-forward analysis instead of a full-series backtest")
	save := flag.Bool("save", false, "persist results to the SQLite store")
	jsonOut := flag.String("json", "", "write results as JSON to this file")
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfgPath := "config/ganymede.yaml"
	if p := os.Getenv("GANYMEDE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLoggerWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	startTime, endTime, err := parseRange(*start, *end)
	if err != nil {
		log.Fatalf("invalid date range: %v", err)
	}

	ctx := context.Background()

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	candles, err := pstore.ReadCandles(ctx, *symbol, startTime, endTime)
	if err != nil {
		log.Fatalf("failed to read candles for %s: %v", *symbol, err)
	}
	if len(candles) == 0 {
		log.Fatalf("no candles found for %s in the requested range", *symbol)
	}

	reg := strategy.NewRegistry()
	builtins.RegisterAll(reg)

	entries := cfg.Enabled()
	if *only != "" {
		entries = filterEntries(entries, *only)
		if len(entries) == 0 {
			log.Fatalf("strategy %q is not enabled in %s", *only, cfgPath)
		}
	}
	if len(entries) == 0 {
		log.Fatalf("no strategies enabled in %s", cfgPath)
	}

	btCfg := backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		CommissionRate: cfg.Backtest.CommissionRate,
		SlippagePct:    cfg.Backtest.SlippagePct,
		WarmupBars:     cfg.Backtest.WarmupBars,
		Interval:       time.Duration(cfg.Backtest.Interval),
	}

	var results []*backtest.Result
	if *walkforward {
		results, err = runWalkForward(btCfg, cfg.WalkForward, reg, entries, candles, logger)
	} else {
		results, err = runCompare(btCfg, reg, entries, candles, logger)
	}
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	for _, r := range results {
		fmt.Println(r.Summary())
	}

	if *save {
		if err := saveResults(ctx, cfg.Storage.SQLitePath, *symbol, results); err != nil {
			log.Fatalf("failed to save results: %v", err)
		}
		slog.Info("results saved", "count", len(results), "db", cfg.Storage.SQLitePath)
	}

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, results); err != nil {
			log.Fatalf("failed to write JSON: %v", err)
		}
		slog.Info("results exported", "path", *jsonOut)
	}
}

func writeJSON(path string, results []*backtest.Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// runCompare backtests every entry over the full series and returns the
// results ranked by total return.
func runCompare(btCfg backtest.Config, reg *strategy.Registry, entries []config.Strategy, candles []domain.Candle, logger *slog.Logger) ([]*backtest.Result, error) {
	candidates := make([]backtest.Candidate, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, backtest.Candidate{ID: e.ID, Config: e.Config})
	}
	results, err := backtest.Compare(btCfg, reg, candidates, candles, logger)
	if err != nil {
		return nil, err
	}
	return backtest.Rank(results), nil
}

// runWalkForward runs walk-forward analysis for each entry and returns the
// per-window results in order.
func runWalkForward(btCfg backtest.Config, wf config.WalkForward, reg *strategy.Registry, entries []config.Strategy, candles []domain.Candle, logger *slog.Logger) ([]*backtest.Result, error) {
	wfCfg := backtest.WalkForwardConfig{TrainBars: wf.TrainBars, TestBars: wf.TestBars}

	var all []*backtest.Result
	for _, e := range entries {
		entry := e
		factory := func() (strategy.Strategy, error) {
			return reg.New(entry.ID, entry.Config)
		}
		results, err := backtest.WalkForward(btCfg, wfCfg, factory, candles, logger)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", entry.ID, err)
		}
		all = append(all, results...)
	}
	return all, nil
}

func saveResults(ctx context.Context, dbPath, symbol string, results []*backtest.Result) error {
	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, r := range results {
		if _, err := db.SaveResult(ctx, symbol, r); err != nil {
			return err
		}
	}
	return nil
}

func filterEntries(entries []config.Strategy, id string) []config.Strategy {
	var out []config.Strategy
	for _, e := range entries {
		if e.ID == id {
			out = append(out, e)
		}
	}
	return out
}

// parseRange converts optional date flags into a half-open query window.
// Missing flags widen the window to cover all stored data.
func parseRange(start, end string) (time.Time, time.Time, error) {
	startTime := time.Unix(0, 0).UTC()
	endTime := time.Now().UTC().AddDate(1, 0, 0)

	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		startTime = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		endTime = t.AddDate(0, 0, 1)
	}
	if !endTime.After(startTime) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is not after start %s", end, start)
	}
	return startTime, endTime, nil
}
