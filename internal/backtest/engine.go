package backtest

import (
	"fmt"
	"log/slog"
	"time"

	"ganymede/internal/domain"
	"ganymede/internal/portfolio"
	"ganymede/internal/strategy"
)

// State tracks the engine lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// minWarmupBars is the floor on warm-up so every indicator has stabilized
// before the first signal is taken.
const minWarmupBars = 50

// Config holds the simulation parameters for one run.
type Config struct {
	InitialCapital float64
	CommissionRate float64
	SlippagePct    float64
	// WarmupBars below the minimum is raised to it.
	WarmupBars int
	// Interval is the candle spacing, used to annualize the Sharpe ratio.
	// Zero means infer it from the first two candles.
	Interval time.Duration
}

// Engine runs one chronological pass of a strategy over a candle series. An
// Engine drives a single run and is not safe for concurrent use; spawn one
// per run.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	state  State
}

// NewEngine creates an engine for the given configuration.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Run replays candles through the strategy and returns the completed
// result. The strategy is reset first so repeated runs are independent.
// Each bar is processed in a fixed order: stop levels are checked against
// the current close, the strategy generates a signal from the history
// prefix ending at the bar, the signal is applied at a slippage-adjusted
// price with commission on any realized trade, and an equity snapshot is
// recorded at the raw close. Malformed candles or signals abort the run;
// there is no partial result.
func (e *Engine) Run(strat strategy.Strategy, candles []domain.Candle) (*Result, error) {
	warmup := e.cfg.WarmupBars
	if warmup < minWarmupBars {
		warmup = minWarmupBars
	}

	if err := e.validate(candles, warmup); err != nil {
		e.state = StateFailed
		return nil, err
	}

	interval := e.cfg.Interval
	if interval <= 0 {
		interval = candles[1].Timestamp.Sub(candles[0].Timestamp)
	}

	pf, err := portfolio.New(e.cfg.InitialCapital, e.cfg.CommissionRate, e.cfg.SlippagePct)
	if err != nil {
		e.state = StateFailed
		return nil, err
	}

	strat.Reset()
	e.state = StateRunning
	e.logger.Info("backtest started",
		"strategy", strat.Name(),
		"bars", len(candles),
		"warmup", warmup,
		"initial_capital", e.cfg.InitialCapital)

	for i := warmup; i < len(candles); i++ {
		candle := candles[i]

		if _, err := pf.CheckStops(candle.Close, candle.Timestamp); err != nil {
			e.state = StateFailed
			return nil, fmt.Errorf("bar %d: stop check: %w", i, err)
		}

		sig, err := strat.Generate(candles[:i+1])
		if err != nil {
			e.state = StateFailed
			return nil, fmt.Errorf("bar %d: generate: %w", i, err)
		}

		if err := pf.ProcessSignal(sig); err != nil {
			e.state = StateFailed
			return nil, fmt.Errorf("bar %d: process signal: %w", i, err)
		}

		pf.RecordEquity(candle.Close, candle.Timestamp)
	}

	result := computeResult(strat.Name(), pf,
		candles[warmup].Timestamp, candles[len(candles)-1].Timestamp, interval)
	e.state = StateCompleted
	e.logger.Info("backtest completed",
		"strategy", strat.Name(),
		"trades", result.TotalTrades,
		"final_value", result.FinalValue,
		"return_pct", result.TotalReturnPct)
	return result, nil
}

// validate checks the candle series before any bar is processed.
func (e *Engine) validate(candles []domain.Candle, warmup int) error {
	if len(candles) <= warmup {
		return &domain.ValidationError{
			Type:   "backtest",
			Reason: fmt.Sprintf("need more than %d candles, have %d", warmup, len(candles)),
		}
	}
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("candle %d: %w", i, err)
		}
		if i > 0 && !candles[i-1].Timestamp.Before(c.Timestamp) {
			return &domain.ValidationError{
				Type:   "backtest",
				Reason: fmt.Sprintf("timestamps not strictly increasing at index %d", i),
			}
		}
	}
	return nil
}
