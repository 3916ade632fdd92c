package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ganymede/internal/config"
	"ganymede/internal/gather"
	"ganymede/internal/store"
	"ganymede/internal/util"
)

func main() {
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

	if len(cfg.Gather.Symbols) == 0 {
		log.Fatalf("no symbols configured under gather.symbols in %s", cfgPath)
	}

	rng, err := dateRange(cfg.Gather.StartDate)
	if err != nil {
		log.Fatalf("invalid gather.start_date: %v", err)
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	gatherer := gather.NewBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		pstore,
		cfg.Gather.Symbols,
		time.Duration(cfg.Gather.Interval),
		rng,
		cfg.Gather.BatchSize,
		cfg.Gather.MaxWorkers,
		cfg.Gather.RateLimitPerMin,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting candle fetch",
		"symbols", strings.Join(cfg.Gather.Symbols, ","),
		"interval", time.Duration(cfg.Gather.Interval).String(),
		"start", rng.Start.Format("2006-01-02"))
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("fetch error: %v", err)
	}
}

// dateRange builds the fetch window from the configured start date up to
// now. An empty start date defaults to one year back.
func dateRange(startDate string) (gather.DateRange, error) {
	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return gather.DateRange{}, err
		}
		start = t
	}
	return gather.DateRange{Start: start, End: end}, nil
}
