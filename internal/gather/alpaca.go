package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"ganymede/internal/domain"
	"ganymede/internal/util"
)

// Compile-time interface check.
var _ Gatherer = (*BarGatherer)(nil)

// CandleWriter is the store-side sink for fetched candles.
type CandleWriter interface {
	WriteCandles(ctx context.Context, symbol string, candles []domain.Candle) error
}

// BarGatherer fetches intraday bars for a fixed symbol list via the Alpaca
// market-data API and writes them to a candle store.
type BarGatherer struct {
	client     *marketdata.Client
	store      CandleWriter
	symbols    []string
	interval   time.Duration
	rng        DateRange
	batchSize  int
	maxWorkers int
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewBarGatherer creates a BarGatherer configured with the given Alpaca
// credentials, target store, and fetch parameters.
func NewBarGatherer(apiKey, apiSecret, dataURL string, store CandleWriter, symbols []string, interval time.Duration, rng DateRange, batchSize, maxWorkers, rateLimitPerMin int) *BarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}

	return &BarGatherer{
		client:     marketdata.NewClient(opts),
		store:      store,
		symbols:    symbols,
		interval:   interval,
		rng:        rng,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		limiter:    util.NewRateLimiter(rateLimitPerMin),
		log:        slog.Default().With("gatherer", "alpaca-bars"),
	}
}

// Name returns the gatherer identifier.
func (g *BarGatherer) Name() string { return "alpaca-bars" }

// Run fetches bars for all configured symbols in batches and writes them to
// the store. Batches run on a bounded worker pool; a failed batch is logged
// and skipped.
func (g *BarGatherer) Run(ctx context.Context) error {
	if len(g.symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}

	var batches [][]string
	for i := 0; i < len(g.symbols); i += g.batchSize {
		end := min(i+g.batchSize, len(g.symbols))
		batches = append(batches, g.symbols[i:end])
	}

	g.log.Info("starting bar fetch",
		"symbols", len(g.symbols),
		"batches", len(batches),
		"start", g.rng.Start.Format("2006-01-02"),
		"end", g.rng.End.Format("2006-01-02"),
	)

	batchCh := make(chan []string, len(batches))
	for _, b := range batches {
		batchCh <- b
	}
	close(batchCh)

	var (
		wg       sync.WaitGroup
		fetched  atomic.Int64
		runStart = time.Now()
	)

	workers := min(g.maxWorkers, len(batches))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchCh {
				if ctx.Err() != nil {
					return
				}
				n, err := g.fetchBatch(ctx, batch)
				if err != nil {
					g.log.Error("batch fetch failed", "symbols", batch, "err", err)
					continue
				}
				fetched.Add(int64(n))
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	g.log.Info("bar fetch complete",
		"candles", fetched.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// fetchBatch fetches bars for one symbol batch and writes them per symbol.
// Requests go through the rate limiter and are retried with backoff.
func (g *BarGatherer) fetchBatch(ctx context.Context, symbols []string) (int, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var multiBars map[string][]marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		multiBars, err = g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame: g.timeFrame(),
			Start:     g.rng.Start,
			End:       g.rng.End,
			Feed:      "iex",
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("GetMultiBars: %w", err)
	}

	var total int
	for symbol, bars := range multiBars {
		candles := make([]domain.Candle, 0, len(bars))
		for _, b := range bars {
			candle, err := domain.NewCandle(b.Timestamp, b.Open, b.High, b.Low, b.Close, float64(b.Volume))
			if err != nil {
				g.log.Warn("skipping malformed bar", "symbol", symbol, "ts", b.Timestamp, "err", err)
				continue
			}
			candles = append(candles, candle)
		}
		if len(candles) == 0 {
			continue
		}
		if err := g.store.WriteCandles(ctx, strings.ToUpper(symbol), candles); err != nil {
			return total, fmt.Errorf("writing %s: %w", symbol, err)
		}
		total += len(candles)
	}
	return total, nil
}

// timeFrame maps the configured interval onto an Alpaca TimeFrame.
func (g *BarGatherer) timeFrame() marketdata.TimeFrame {
	switch {
	case g.interval >= 24*time.Hour:
		return marketdata.OneDay
	case g.interval >= time.Hour:
		return marketdata.NewTimeFrame(int(g.interval/time.Hour), marketdata.Hour)
	case g.interval >= time.Minute:
		return marketdata.NewTimeFrame(int(g.interval/time.Minute), marketdata.Min)
	}
	return marketdata.OneMin
}
