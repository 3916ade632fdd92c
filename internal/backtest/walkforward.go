package backtest

import (
	"fmt"
	"log/slog"
	"sync"

	"ganymede/internal/domain"
	"ganymede/internal/strategy"
)

// WalkForwardConfig describes the window layout. TrainBars reserves an
// in-sample prefix before each test window; the simulation itself runs on
// test windows only.
type WalkForwardConfig struct {
	TrainBars int
	TestBars  int
}

// NumWindows returns how many test windows fit in a series of n bars.
func (c WalkForwardConfig) NumWindows(n int) int {
	if c.TestBars <= 0 || n <= c.TrainBars {
		return 0
	}
	return (n - c.TrainBars) / c.TestBars
}

// WalkForward runs one backtest per consecutive test window, advancing by
// TestBars each time. Every window gets a fresh strategy instance from
// factory and a fresh portfolio, so windows share no mutable state and run
// in parallel. Results are ordered by window; the first window error aborts
// the whole analysis.
func WalkForward(cfg Config, wf WalkForwardConfig, factory func() (strategy.Strategy, error), candles []domain.Candle, logger *slog.Logger) ([]*Result, error) {
	if wf.TestBars <= 0 {
		return nil, &domain.ValidationError{Type: "walkforward", Reason: "test window size must be positive"}
	}
	if wf.TrainBars < 0 {
		return nil, &domain.ValidationError{Type: "walkforward", Reason: "train window size must be non-negative"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	n := wf.NumWindows(len(candles))
	if n == 0 {
		return nil, &domain.ValidationError{
			Type:   "walkforward",
			Reason: fmt.Sprintf("series of %d bars fits no test window of %d after %d train bars", len(candles), wf.TestBars, wf.TrainBars),
		}
	}
	logger.Info("walk-forward analysis started",
		"bars", len(candles), "train_bars", wf.TrainBars, "test_bars", wf.TestBars, "windows", n)

	results := make([]*Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for w := 0; w < n; w++ {
		start := wf.TrainBars + w*wf.TestBars
		window := candles[start : start+wf.TestBars]

		wg.Add(1)
		go func(w int, window []domain.Candle) {
			defer wg.Done()
			strat, err := factory()
			if err != nil {
				errs[w] = fmt.Errorf("window %d: %w", w, err)
				return
			}
			result, err := NewEngine(cfg, logger).Run(strat, window)
			if err != nil {
				errs[w] = fmt.Errorf("window %d: %w", w, err)
				return
			}
			results[w] = result
		}(w, window)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
