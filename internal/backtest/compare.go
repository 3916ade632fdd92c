package backtest

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"ganymede/internal/domain"
	"ganymede/internal/strategy"
)

// Candidate pairs a registry id with the configuration to instantiate it
// with.
type Candidate struct {
	ID     string
	Config strategy.Config
}

// Compare backtests several strategies over the same candle series
// concurrently. Each candidate gets its own strategy instance, engine, and
// portfolio, so the runs share nothing. Results are returned in candidate
// order; the first failing run aborts the comparison.
func Compare(cfg Config, reg *strategy.Registry, candidates []Candidate, candles []domain.Candle, logger *slog.Logger) ([]*Result, error) {
	if len(candidates) == 0 {
		return nil, &domain.ValidationError{Type: "compare", Reason: "no strategies to compare"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]*Result, len(candidates))
	errs := make([]error, len(candidates))
	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand Candidate) {
			defer wg.Done()
			strat, err := reg.New(cand.ID, cand.Config)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", cand.ID, err)
				return
			}
			result, err := NewEngine(cfg, logger).Run(strat, candles)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", cand.ID, err)
				return
			}
			results[i] = result
		}(i, cand)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Rank orders results by total return, best first. The input is not
// modified.
func Rank(results []*Result) []*Result {
	ranked := make([]*Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalReturnPct > ranked[j].TotalReturnPct
	})
	return ranked
}
